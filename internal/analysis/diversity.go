package analysis

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/kapu/profile-lab-go/internal/constants"
	"github.com/kapu/profile-lab-go/internal/util"
)

var (
	paramSplitPattern = regexp.MustCompile(`\s*--`)
	jobIDPattern      = regexp.MustCompile(`(?is)\s*job id:.*$`)
	urlPattern        = regexp.MustCompile(`https?://\S+`)
	keywordPattern    = regexp.MustCompile(`\b[a-z]{3,}\b`)
)

// CleanPrompt strips generation parameters (everything after the first
// "--" token), "Job ID:" suffixes, and URLs from a raw prompt.
func CleanPrompt(prompt string) string {
	if prompt == "" {
		return ""
	}

	if loc := paramSplitPattern.FindStringIndex(prompt); loc != nil {
		prompt = prompt[:loc[0]]
	}
	prompt = jobIDPattern.ReplaceAllString(prompt, "")
	prompt = urlPattern.ReplaceAllString(prompt, "")

	return strings.TrimSpace(prompt)
}

// ExtractKeywords returns the lowercase alphabetic tokens of length >= 3
// from a cleaned prompt, minus the stopword set. No stemming.
func ExtractKeywords(prompt string) []string {
	if prompt == "" {
		return nil
	}

	cleaned := strings.ToLower(CleanPrompt(prompt))
	words := keywordPattern.FindAllString(cleaned, -1)

	keywords := make([]string, 0, len(words))
	for _, w := range words {
		if _, stop := constants.Stopwords[w]; !stop {
			keywords = append(keywords, w)
		}
	}
	return keywords
}

// KeywordCount is one entry in a frequency-ranked keyword list.
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// DiversityMetrics summarizes the lexical diversity of a prompt corpus.
type DiversityMetrics struct {
	TotalPrompts     int            `json:"total_prompts"`
	UniquePrompts    int            `json:"unique_prompts"`
	UniquenessRatio  float64        `json:"uniqueness_ratio"`
	AvgLength        float64        `json:"avg_length"`
	UniqueKeywords   int            `json:"unique_keywords"`
	KeywordDiversity float64        `json:"keyword_diversity"`
	TopKeywords      []KeywordCount `json:"top_keywords"`
}

// AnalyzeDiversity computes diversity metrics for a set of raw prompts.
// Uniqueness counts raw prompts; length and keyword stats use the cleaned
// form. Empty input yields zero values, never an error.
func AnalyzeDiversity(prompts []string) DiversityMetrics {
	if len(prompts) == 0 {
		return DiversityMetrics{TopKeywords: []KeywordCount{}}
	}

	total := len(prompts)
	distinct := make(map[string]struct{}, total)
	wordCount := 0
	for _, p := range prompts {
		distinct[p] = struct{}{}
		wordCount += len(strings.Fields(CleanPrompt(p)))
	}

	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	totalKeywords := 0
	for _, p := range prompts {
		for _, kw := range ExtractKeywords(p) {
			if _, seen := counts[kw]; !seen {
				firstSeen[kw] = totalKeywords
			}
			counts[kw]++
			totalKeywords++
		}
	}

	keywordDiversity := 0.0
	if totalKeywords > 0 {
		keywordDiversity = float64(len(counts)) / float64(totalKeywords)
	}

	return DiversityMetrics{
		TotalPrompts:     total,
		UniquePrompts:    len(distinct),
		UniquenessRatio:  float64(len(distinct)) / float64(total),
		AvgLength:        float64(wordCount) / float64(total),
		UniqueKeywords:   len(counts),
		KeywordDiversity: keywordDiversity,
		TopKeywords:      rankCounts(counts, firstSeen, constants.DiversityConfig.TopKeywords),
	}
}

// rankCounts orders count entries by frequency, ties broken by first
// encounter, and truncates to n entries.
func rankCounts(counts map[string]int, firstSeen map[string]int, n int) []KeywordCount {
	ranked := make([]KeywordCount, 0, len(counts))
	for kw, c := range counts {
		ranked = append(ranked, KeywordCount{Keyword: kw, Count: c})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return firstSeen[ranked[i].Keyword] < firstSeen[ranked[j].Keyword]
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// Patterns holds the recurring 2- and 3-word phrases of a corpus.
type Patterns struct {
	TopBigrams  []KeywordCount `json:"top_bigrams"`
	TopTrigrams []KeywordCount `json:"top_trigrams"`
}

// CommonPatterns mines bigrams and trigrams over cleaned, lowercased,
// whitespace-tokenized prompts.
func CommonPatterns(prompts []string, n int) Patterns {
	bigrams := make(map[string]int)
	trigrams := make(map[string]int)
	biSeen := make(map[string]int)
	triSeen := make(map[string]int)
	biIdx, triIdx := 0, 0

	for _, p := range prompts {
		words := strings.Fields(strings.ToLower(CleanPrompt(p)))
		for i := 0; i+1 < len(words); i++ {
			phrase := words[i] + " " + words[i+1]
			if _, seen := bigrams[phrase]; !seen {
				biSeen[phrase] = biIdx
			}
			bigrams[phrase]++
			biIdx++
		}
		for i := 0; i+2 < len(words); i++ {
			phrase := words[i] + " " + words[i+1] + " " + words[i+2]
			if _, seen := trigrams[phrase]; !seen {
				triSeen[phrase] = triIdx
			}
			trigrams[phrase]++
			triIdx++
		}
	}

	return Patterns{
		TopBigrams:  rankCounts(bigrams, biSeen, n),
		TopTrigrams: rankCounts(trigrams, triSeen, n),
	}
}

// SplitSuggestion is a recommended allocation of the test budget between
// the photography and art groups.
type SplitSuggestion struct {
	PhotoTests int     `json:"photo_tests"`
	ArtTests   int     `json:"art_tests"`
	PhotoScore float64 `json:"photo_score"`
	ArtScore   float64 `json:"art_score"`
}

// SuggestSplit allocates totalTests between the two groups proportionally
// to diversity x ln(count+1), clamping the photo allocation to [min, max]
// and giving the remainder to art. The logarithmic dampening keeps a group
// with many near-duplicate prompts from dominating on volume alone. Zero
// total score falls back to an even split.
func SuggestSplit(photo, art DiversityMetrics, totalTests, min, max int) SplitSuggestion {
	photoScore := photo.KeywordDiversity * math.Log(float64(photo.TotalPrompts)+1)
	artScore := art.KeywordDiversity * math.Log(float64(art.TotalPrompts)+1)

	totalScore := photoScore + artScore
	var photoTests int
	if totalScore > 0 {
		photoTests = util.Clamp(int(math.Round(photoScore/totalScore*float64(totalTests))), min, max)
	} else {
		photoTests = totalTests / 2
	}

	return SplitSuggestion{
		PhotoTests: photoTests,
		ArtTests:   totalTests - photoTests,
		PhotoScore: photoScore,
		ArtScore:   artScore,
	}
}

// ShouldRebalance flags a rebalancing opportunity when the two groups'
// diversity scores have converged (lower/higher above ratioThreshold) AND
// the higher score clears the absolute floor. The floor guards against
// flagging two trivially low-diversity groups that merely agree.
func ShouldRebalance(photoDiversity, artDiversity, ratioThreshold, floor float64) bool {
	if photoDiversity <= 0 || artDiversity <= 0 {
		return false
	}

	lower, higher := photoDiversity, artDiversity
	if lower > higher {
		lower, higher = higher, lower
	}

	return higher >= floor && lower/higher > ratioThreshold
}
