package analysis

import (
	"regexp"
	"sort"
	"strings"

	"github.com/kapu/profile-lab-go/internal/constants"
	"github.com/kapu/profile-lab-go/internal/domain"
)

var wordPattern = regexp.MustCompile(`\w+`)

// OverlapMode selects how query/test-prompt overlap is measured.
type OverlapMode int

const (
	// OverlapAbsolute counts shared words; used for direct prompt queries
	// where a handful of shared keywords signals a related test.
	OverlapAbsolute OverlapMode = iota
	// OverlapNormalized divides the intersection by the query's word count;
	// used for long AI-generated image descriptions where absolute counts
	// would always be high.
	OverlapNormalized
)

// TestMatch pairs a test title with its overlap against the query.
type TestMatch struct {
	Title   string  `json:"title"`
	Overlap float64 `json:"overlap"`
}

// MatchTests finds the catalog tests whose prompts overlap the query,
// ranked by overlap descending. Absolute mode requires strictly more than
// MinWordOverlap shared words; normalized mode requires the intersection/
// query-size ratio to exceed MinDescribedOverlap.
func MatchTests(query string, tests []domain.Test, mode OverlapMode) []TestMatch {
	var queryWords map[string]struct{}
	switch mode {
	case OverlapNormalized:
		queryWords = fieldSet(query)
	default:
		queryWords = wordSet(query)
	}
	if len(queryWords) == 0 {
		return nil
	}

	matches := []TestMatch{}
	for _, test := range tests {
		var testWords map[string]struct{}
		switch mode {
		case OverlapNormalized:
			testWords = fieldSet(test.Prompt)
		default:
			testWords = wordSet(test.Prompt)
		}

		shared := 0
		for w := range testWords {
			if _, ok := queryWords[w]; ok {
				shared++
			}
		}

		switch mode {
		case OverlapNormalized:
			overlap := float64(shared) / float64(len(queryWords))
			if overlap > constants.RecommendConfig.MinDescribedOverlap {
				matches = append(matches, TestMatch{Title: test.Title, Overlap: overlap})
			}
		default:
			if shared > constants.RecommendConfig.MinWordOverlap {
				matches = append(matches, TestMatch{Title: test.Title, Overlap: float64(shared)})
			}
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Overlap > matches[j].Overlap })
	return matches
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range wordPattern.FindAllString(strings.ToLower(s), -1) {
		set[w] = struct{}{}
	}
	return set
}

func fieldSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = struct{}{}
	}
	return set
}

// DetectPalettes returns the color themes whose signal keywords appear in
// the query, in the fixed theme order.
func DetectPalettes(query string) []string {
	lower := strings.ToLower(query)
	detected := []string{}
	for _, theme := range constants.ColorThemeOrder {
		for _, kw := range constants.ColorThemes[theme] {
			if strings.Contains(lower, kw) {
				detected = append(detected, theme)
				break
			}
		}
	}
	return detected
}

// paletteMatches counts detected themes that also show up in a rating's
// color-palette commentary, by theme name or any of its keywords.
func paletteMatches(detected []string, paletteText string) int {
	if paletteText == "" {
		return 0
	}
	lower := strings.ToLower(paletteText)
	matches := 0
	for _, theme := range detected {
		if strings.Contains(lower, theme) {
			matches++
			continue
		}
		for _, kw := range constants.ColorThemes[theme] {
			if strings.Contains(lower, kw) {
				matches++
				break
			}
		}
	}
	return matches
}

// Recommendation is one ranked profile suggestion.
type Recommendation struct {
	ProfileID    string      `json:"profile_id"`
	Score        float64     `json:"score"`
	PaletteBonus int         `json:"palette_bonus"`
	MatchedTests []TestMatch `json:"matched_tests,omitempty"`
	ProfileLabel string      `json:"profile_label,omitempty"`
	ProfileDNA   []string    `json:"profile_dna,omitempty"`
	UsedAllTests bool        `json:"used_all_tests"`
}

// Recommend scores every profile for a new prompt by weighted overlap
// with its rated tests, and returns them ranked descending. Matching
// tests (capped to the top five) weight by overlap, boosted x1.5 for
// native_fit, cut x0.5 for resistant, and further boosted per matching
// color theme. When no test matches, all of a profile's ratings count at
// unit weight instead of excluding the profile. Profiles with zero total
// weight are left out of the ranking entirely.
func Recommend(query string, tests []domain.Test, profiles map[string]*domain.ProfileAnalysis, mode OverlapMode) []Recommendation {
	matches := MatchTests(query, tests, mode)
	if len(matches) > constants.RecommendConfig.MaxMatchingTests {
		matches = matches[:constants.RecommendConfig.MaxMatchingTests]
	}
	detected := DetectPalettes(query)

	profileIDs := make([]string, 0, len(profiles))
	for id := range profiles {
		profileIDs = append(profileIDs, id)
	}
	sort.Strings(profileIDs)

	ranked := []Recommendation{}
	for _, id := range profileIDs {
		analysis := profiles[id]
		if len(analysis.Ratings) == 0 {
			continue
		}

		rec := Recommendation{
			ProfileID:    id,
			ProfileLabel: analysis.ProfileLabel,
			ProfileDNA:   analysis.ProfileDNA,
			MatchedTests: matches,
		}

		totalScore := 0.0
		totalWeight := 0.0

		if len(matches) > 0 {
			for _, match := range matches {
				rating, ok := analysis.Ratings[match.Title]
				if !ok {
					continue
				}

				weight := match.Overlap * affinityFactor(rating.Affinity)
				if n := paletteMatches(detected, rating.ColorPalette); n > 0 {
					weight *= 1 + constants.RecommendConfig.PaletteBonus*float64(n)
					rec.PaletteBonus += n
				}

				totalScore += float64(rating.Score) * weight
				totalWeight += weight
			}
		} else {
			rec.UsedAllTests = true
			rec.MatchedTests = nil
			for _, rating := range analysis.Ratings {
				weight := affinityFactor(rating.Affinity)
				if n := paletteMatches(detected, rating.ColorPalette); n > 0 {
					weight *= 1 + constants.RecommendConfig.FallbackPaletteBonus*float64(n)
					rec.PaletteBonus += n
				}

				totalScore += float64(rating.Score) * weight
				totalWeight += weight
			}
		}

		if totalWeight > 0 {
			rec.Score = totalScore / totalWeight
			ranked = append(ranked, rec)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	return ranked
}

func affinityFactor(a domain.Affinity) float64 {
	switch a {
	case domain.AffinityNative:
		return constants.RecommendConfig.NativeBoost
	case domain.AffinityResistant:
		return constants.RecommendConfig.ResistantPenalty
	default:
		return 1.0
	}
}
