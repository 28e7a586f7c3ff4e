package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/kapu/profile-lab-go/internal/domain"
)

// AffinityCounts tallies the categorical outcomes one test received across
// profiles.
type AffinityCounts struct {
	Native    int `json:"native"`
	Workable  int `json:"workable"`
	Resistant int `json:"resistant"`
}

func (c AffinityCounts) Total() int {
	return c.Native + c.Workable + c.Resistant
}

func (c *AffinityCounts) Add(a domain.Affinity) {
	switch a {
	case domain.AffinityNative:
		c.Native++
	case domain.AffinityWorkable:
		c.Workable++
	case domain.AffinityResistant:
		c.Resistant++
	}
}

// Max returns the dominant category's count.
func (c AffinityCounts) Max() int {
	m := c.Native
	if c.Workable > m {
		m = c.Workable
	}
	if c.Resistant > m {
		m = c.Resistant
	}
	return m
}

// maxAffinityEntropy is log2(3), the entropy of a uniform 3-way categorical.
var maxAffinityEntropy = math.Log2(3)

// DifferentiationScore is the normalized Shannon entropy of a test's
// affinity distribution: 0 for a unanimous outcome, 1 for an even 3-way
// split. It depends only on the shape of the distribution, so relabeling
// the categories leaves it unchanged. Returns false when the test has no
// ratings (differentiation is undefined there, not zero).
func DifferentiationScore(counts AffinityCounts) (float64, bool) {
	total := counts.Total()
	if total == 0 {
		return 0, false
	}

	entropy := 0.0
	for _, n := range []int{counts.Native, counts.Workable, counts.Resistant} {
		if n == 0 {
			continue
		}
		p := float64(n) / float64(total)
		entropy -= p * math.Log2(p)
	}

	return entropy / maxAffinityEntropy, true
}

// TestValue pairs a test with its differentiation score.
type TestValue struct {
	Title           string         `json:"title"`
	Differentiation float64        `json:"differentiation"`
	Counts          AffinityCounts `json:"counts"`
}

// CountAffinitiesByTest collapses all profiles' ratings into per-test
// affinity tallies.
func CountAffinitiesByTest(profiles map[string]*domain.ProfileAnalysis) map[string]AffinityCounts {
	stats := make(map[string]AffinityCounts)
	for _, analysis := range profiles {
		for title, rating := range analysis.Ratings {
			counts := stats[title]
			counts.Add(rating.Affinity)
			stats[title] = counts
		}
	}
	return stats
}

// RankByDifferentiation scores every rated test and returns them in
// ascending order: the front of the list is the "low value" end
// (near-unanimous outcomes, retirement candidates), the back is the "high
// value" end (outcomes vary across profiles). Unrated tests are excluded.
func RankByDifferentiation(stats map[string]AffinityCounts) []TestValue {
	ranked := make([]TestValue, 0, len(stats))
	for title, counts := range stats {
		score, ok := DifferentiationScore(counts)
		if !ok {
			continue
		}
		ranked = append(ranked, TestValue{Title: title, Differentiation: score, Counts: counts})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Differentiation != ranked[j].Differentiation {
			return ranked[i].Differentiation < ranked[j].Differentiation
		}
		return ranked[i].Title < ranked[j].Title
	})
	return ranked
}

// ValueBuckets classifies tests by how useful they are for telling
// profiles apart.
type ValueBuckets struct {
	Low  []TestValue `json:"low"`
	Keep []TestValue `json:"keep"`
	High []TestValue `json:"high"`
}

// ClassifyByValue buckets ranked tests against the low/high thresholds.
// The thresholds must not overlap.
func ClassifyByValue(ranked []TestValue, lowThreshold, highThreshold float64) (ValueBuckets, error) {
	if lowThreshold >= highThreshold {
		return ValueBuckets{}, fmt.Errorf("low threshold %.2f must be below high threshold %.2f", lowThreshold, highThreshold)
	}

	buckets := ValueBuckets{Low: []TestValue{}, Keep: []TestValue{}, High: []TestValue{}}
	for _, tv := range ranked {
		switch {
		case tv.Differentiation < lowThreshold:
			buckets.Low = append(buckets.Low, tv)
		case tv.Differentiation > highThreshold:
			buckets.High = append(buckets.High, tv)
		default:
			buckets.Keep = append(buckets.Keep, tv)
		}
	}
	return buckets, nil
}
