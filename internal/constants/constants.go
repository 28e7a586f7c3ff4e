package constants

import "time"

// AnalysisPromptVersion tags every saved analysis so stale records can be
// flagged when the rating prompt changes. Compared for equality only.
const AnalysisPromptVersion = "2.3-signature"

var RatingConfig = struct {
	BatchSize         int
	MinRatingsForDNA  int
	MaxResponseTokens int
}{
	BatchSize:         15, // per-call cap to keep the vision payload bounded
	MinRatingsForDNA:  10,
	MaxResponseTokens: 4000,
}

var DiversityConfig = struct {
	TopKeywords    int
	TopPatterns    int
	TotalTests     int
	MinPerGroup    int
	MaxPerGroup    int
	RebalanceRatio float64
	RebalanceFloor float64
}{
	TopKeywords:    20,
	TopPatterns:    10,
	TotalTests:     20,
	MinPerGroup:    5,
	MaxPerGroup:    15,
	RebalanceRatio: 0.70,
	RebalanceFloor: 0.300,
}

var DifferentiationConfig = struct {
	LowThreshold  float64
	HighThreshold float64
}{
	LowThreshold:  0.2,
	HighThreshold: 0.8,
}

var RecommendConfig = struct {
	MinWordOverlap       int
	MinDescribedOverlap  float64
	MaxMatchingTests     int
	TopProfiles          int
	NativeBoost          float64
	ResistantPenalty     float64
	PaletteBonus         float64
	FallbackPaletteBonus float64
}{
	MinWordOverlap:       2,   // strictly more than this many shared words
	MinDescribedOverlap:  0.1, // normalized overlap for image-description queries
	MaxMatchingTests:     5,
	TopProfiles:          5,
	NativeBoost:          1.5,
	ResistantPenalty:     0.5,
	PaletteBonus:         0.2,
	FallbackPaletteBonus: 0.15,
}

var CacheTTL = struct {
	CrossProfileReport time.Duration
	ProfileSummary     time.Duration
	DiversityReport    time.Duration
}{
	CrossProfileReport: 10 * time.Minute,
	ProfileSummary:     10 * time.Minute,
	DiversityReport:    30 * time.Minute,
}

var ProviderConfig = struct {
	RequestTimeout time.Duration
	PingTimeout    time.Duration
}{
	RequestTimeout: 120 * time.Second,
	PingTimeout:    5 * time.Second,
}

var CircuitBreakerConfig = struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	RateLimitTimeout    time.Duration
	HealthCheckInterval time.Duration
}{
	FailureThreshold:    3,
	ResetTimeout:        60 * time.Second,
	RateLimitTimeout:    5 * time.Minute,
	HealthCheckInterval: 30 * time.Second,
}

var ServerConfig = struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}{
	ReadTimeout: 15 * time.Second,
	// Rating runs hold the response open across many model calls.
	WriteTimeout:    10 * time.Minute,
	ShutdownTimeout: 10 * time.Second,
}

// Stopwords excluded from keyword extraction (articles, auxiliaries,
// demonstratives). Mirrors the corpus the test battery was designed from.
var Stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "of": {}, "in": {}, "on": {}, "at": {},
	"to": {}, "for": {}, "with": {}, "by": {}, "from": {}, "as": {},
	"is": {}, "was": {}, "are": {}, "were": {}, "be": {}, "been": {},
	"being": {}, "have": {}, "has": {}, "had": {}, "do": {}, "does": {},
	"did": {}, "will": {}, "would": {}, "could": {}, "should": {},
	"may": {}, "might": {}, "must": {}, "can": {}, "this": {}, "that": {},
	"these": {}, "those": {},
}

// ColorThemes maps a palette theme to the keywords that signal it, both in
// query prompts and in rating color-palette commentary.
var ColorThemes = map[string][]string{
	"warm":       {"warm", "orange", "red", "yellow", "gold", "amber", "sunset", "fire"},
	"cool":       {"cool", "blue", "cyan", "teal", "ice", "winter", "ocean"},
	"vibrant":    {"vibrant", "bright", "neon", "vivid", "saturated", "bold", "electric"},
	"muted":      {"muted", "soft", "pastel", "subtle", "desaturated", "pale", "faded"},
	"dark":       {"dark", "black", "shadow", "moody", "noir", "night", "midnight"},
	"light":      {"light", "white", "bright", "airy", "ethereal", "luminous"},
	"monochrome": {"monochrome", "black and white", "grayscale", "sepia"},
	"earth":      {"earth", "brown", "tan", "beige", "natural", "organic"},
}

// ColorThemeOrder fixes the iteration order for palette detection so
// reports are deterministic.
var ColorThemeOrder = []string{"warm", "cool", "vibrant", "muted", "dark", "light", "monochrome", "earth"}
