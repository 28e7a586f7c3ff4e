package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Affinity is the categorical judgment of how well an image matches the
// requested aesthetic. Ordinal in quality (native_fit > workable >
// resistant) but treated as an unordered mode for entropy purposes.
type Affinity string

const (
	AffinityNative    Affinity = "native_fit"
	AffinityWorkable  Affinity = "workable"
	AffinityResistant Affinity = "resistant"
)

// Affinities lists the categories in quality order.
var Affinities = []Affinity{AffinityNative, AffinityWorkable, AffinityResistant}

func (a Affinity) Valid() bool {
	switch a {
	case AffinityNative, AffinityWorkable, AffinityResistant:
		return true
	}
	return false
}

// Confidence label thresholds. Ratings entered through the UI carry High/
// Medium/Low labels, AI ratings carry floats; both normalize to one axis.
const (
	ConfidenceHigh   = 0.9
	ConfidenceMedium = 0.65
	ConfidenceLow    = 0.3
)

// Rating is one profile's evaluation of one test.
type Rating struct {
	Affinity     Affinity `json:"affinity"`
	Score        int      `json:"score"`
	Confidence   float64  `json:"confidence"`
	Commentary   string   `json:"commentary,omitempty"`
	ColorPalette string   `json:"color_palette,omitempty"`
	// RenderingStyle is set for VOID-section tests only: photographic
	// strength for VOID_PHOTO, artistic strength for VOID_ART.
	RenderingStyle int `json:"rendering_style,omitempty"`
}

// ratingWire tolerates the two confidence representations and the
// hyphenated color-palette key the rating collaborator emits.
type ratingWire struct {
	Affinity        Affinity        `json:"affinity"`
	Score           int             `json:"score"`
	Confidence      json.RawMessage `json:"confidence"`
	Commentary      string          `json:"commentary"`
	ColorPalette    string          `json:"color_palette"`
	ColorPaletteAlt string          `json:"color-palette"`
	RenderingStyle  int             `json:"rendering_style"`
}

func (r *Rating) UnmarshalJSON(data []byte) error {
	var wire ratingWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	conf, err := normalizeConfidence(wire.Confidence)
	if err != nil {
		return err
	}

	palette := wire.ColorPalette
	if palette == "" {
		palette = wire.ColorPaletteAlt
	}

	*r = Rating{
		Affinity:       wire.Affinity,
		Score:          wire.Score,
		Confidence:     conf,
		Commentary:     wire.Commentary,
		ColorPalette:   palette,
		RenderingStyle: wire.RenderingStyle,
	}
	return nil
}

// ConfidenceLabel converts the normalized float back to the discrete label
// shown to the operator.
func (r *Rating) ConfidenceLabel() string {
	switch {
	case r.Confidence >= 0.8:
		return "High"
	case r.Confidence >= 0.5:
		return "Medium"
	default:
		return "Low"
	}
}

func normalizeConfidence(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 {
		return ConfidenceHigh, nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}

	var label string
	if err := json.Unmarshal(raw, &label); err != nil {
		return 0, fmt.Errorf("unsupported confidence value %s", string(raw))
	}

	switch strings.ToLower(strings.TrimSpace(label)) {
	case "high":
		return ConfidenceHigh, nil
	case "medium":
		return ConfidenceMedium, nil
	case "low":
		return ConfidenceLow, nil
	default:
		return 0, fmt.Errorf("unsupported confidence label %q", label)
	}
}
