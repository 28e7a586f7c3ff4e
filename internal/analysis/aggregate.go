package analysis

import (
	"sort"

	"github.com/kapu/profile-lab-go/internal/domain"
)

// minRatingsForSpread is the eligibility floor for the divisive and
// consensus rankings: with fewer ratings the spread statistics are noise.
const minRatingsForSpread = 3

// ProfileSummary is the per-profile aggregate over all its ratings.
type ProfileSummary struct {
	ProfileID   string         `json:"profile_id"`
	Label       string         `json:"label,omitempty"`
	RatingCount int            `json:"rating_count"`
	Affinities  AffinityCounts `json:"affinities"`
	MeanScore   float64        `json:"mean_score"`
}

// Summarize computes affinity counts and mean score for one profile.
// An empty rating set yields a zero summary, never a division by zero.
func Summarize(analysis *domain.ProfileAnalysis) ProfileSummary {
	summary := ProfileSummary{
		ProfileID: analysis.ProfileID,
		Label:     analysis.ProfileLabel,
	}

	scoreTotal := 0
	for _, rating := range analysis.Ratings {
		summary.Affinities.Add(rating.Affinity)
		scoreTotal += rating.Score
		summary.RatingCount++
	}

	if summary.RatingCount > 0 {
		summary.MeanScore = float64(scoreTotal) / float64(summary.RatingCount)
	}
	return summary
}

// TestOutcome is one test's cross-profile tally.
type TestOutcome struct {
	Title  string         `json:"title"`
	Counts AffinityCounts `json:"counts"`
	Total  int            `json:"total"`
}

// CategoryStats aggregates affinity counts across all tests sharing a
// catalog category.
type CategoryStats struct {
	Category  string         `json:"category"`
	Counts    AffinityCounts `json:"counts"`
	TestCount int            `json:"test_count"`
}

// CrossProfileReport holds the cross-profile leaderboards.
type CrossProfileReport struct {
	TotalRatings int `json:"total_ratings"`
	// MostNative ranks tests by native count desc, then resistant asc:
	// highly native AND few resistant outliers ranks first.
	MostNative []TestOutcome `json:"most_native"`
	// MostResistant is the symmetric ranking.
	MostResistant []TestOutcome `json:"most_resistant"`
	// MostDivisive ranks by native x resistant desc among tests with at
	// least three ratings. High only when BOTH extremes are represented;
	// an all-workable test scores zero no matter its volume.
	MostDivisive []TestOutcome `json:"most_divisive"`
	// MostConsensus ranks by the dominant category's vote share desc,
	// same eligibility floor.
	MostConsensus []TestOutcome `json:"most_consensus"`
	// ScoreDistribution counts ratings per score value 1-10.
	ScoreDistribution map[int]int `json:"score_distribution"`
}

// CrossProfile aggregates every profile's ratings into per-test outcome
// tallies and the derived leaderboards.
func CrossProfile(profiles map[string]*domain.ProfileAnalysis) CrossProfileReport {
	stats := CountAffinitiesByTest(profiles)

	outcomes := make([]TestOutcome, 0, len(stats))
	for title, counts := range stats {
		outcomes = append(outcomes, TestOutcome{Title: title, Counts: counts, Total: counts.Total()})
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Title < outcomes[j].Title })

	report := CrossProfileReport{
		ScoreDistribution: make(map[int]int),
	}
	for _, analysis := range profiles {
		for _, rating := range analysis.Ratings {
			report.ScoreDistribution[rating.Score]++
			report.TotalRatings++
		}
	}

	report.MostNative = rankOutcomes(outcomes, func(a, b TestOutcome) bool {
		if a.Counts.Native != b.Counts.Native {
			return a.Counts.Native > b.Counts.Native
		}
		return a.Counts.Resistant < b.Counts.Resistant
	}, 0)

	report.MostResistant = rankOutcomes(outcomes, func(a, b TestOutcome) bool {
		if a.Counts.Resistant != b.Counts.Resistant {
			return a.Counts.Resistant > b.Counts.Resistant
		}
		return a.Counts.Native < b.Counts.Native
	}, 0)

	report.MostDivisive = rankOutcomes(outcomes, func(a, b TestOutcome) bool {
		return a.Counts.Native*a.Counts.Resistant > b.Counts.Native*b.Counts.Resistant
	}, minRatingsForSpread)

	report.MostConsensus = rankOutcomes(outcomes, func(a, b TestOutcome) bool {
		return consensusShare(a) > consensusShare(b)
	}, minRatingsForSpread)

	return report
}

func consensusShare(o TestOutcome) float64 {
	if o.Total == 0 {
		return 0
	}
	return float64(o.Counts.Max()) / float64(o.Total)
}

// rankOutcomes filters by a minimum rating count and sorts with the given
// ordering. The input is pre-sorted by title, so stable sorting keeps ties
// deterministic.
func rankOutcomes(outcomes []TestOutcome, less func(a, b TestOutcome) bool, minTotal int) []TestOutcome {
	ranked := make([]TestOutcome, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Total >= minTotal {
			ranked = append(ranked, o)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return less(ranked[i], ranked[j]) })
	return ranked
}

// CategoryBreakdown groups per-test affinity tallies by the tests'
// catalog categories, for "does this handle portraits well" reporting.
// Ratings for titles absent from the catalog (orphans) are skipped, not
// mutated.
func CategoryBreakdown(tests []domain.Test, stats map[string]AffinityCounts) []CategoryStats {
	byCategory := make(map[string]*CategoryStats)
	order := []string{}

	for _, test := range tests {
		counts, ok := stats[test.Title]
		if !ok {
			continue
		}
		category := test.Category()
		cs, exists := byCategory[category]
		if !exists {
			cs = &CategoryStats{Category: category}
			byCategory[category] = cs
			order = append(order, category)
		}
		cs.Counts.Native += counts.Native
		cs.Counts.Workable += counts.Workable
		cs.Counts.Resistant += counts.Resistant
		cs.TestCount++
	}

	result := make([]CategoryStats, 0, len(order))
	for _, category := range order {
		result = append(result, *byCategory[category])
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Counts.Native > result[j].Counts.Native
	})
	return result
}
