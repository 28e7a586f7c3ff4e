package analysis

import (
	"math"
	"testing"

	"github.com/kapu/profile-lab-go/internal/domain"
)

func TestSummarizeCountsAndMeanScore(t *testing.T) {
	analysis := domain.NewProfileAnalysis("moody")
	analysis.ProfileLabel = "Moody Urban Explorer"
	analysis.SetRating("A", domain.Rating{Affinity: domain.AffinityNative, Score: 9})
	analysis.SetRating("B", domain.Rating{Affinity: domain.AffinityNative, Score: 7})
	analysis.SetRating("C", domain.Rating{Affinity: domain.AffinityResistant, Score: 2})

	summary := Summarize(analysis)

	if summary.ProfileID != "moody" || summary.Label != "Moody Urban Explorer" {
		t.Fatalf("identity fields lost: %+v", summary)
	}
	if summary.Affinities.Native != 2 || summary.Affinities.Resistant != 1 || summary.Affinities.Workable != 0 {
		t.Fatalf("unexpected counts: %+v", summary.Affinities)
	}
	if math.Abs(summary.MeanScore-6.0) > 1e-12 {
		t.Fatalf("expected mean 6.0, got %f", summary.MeanScore)
	}
}

func TestSummarizeEmptyProfile(t *testing.T) {
	summary := Summarize(domain.NewProfileAnalysis("empty"))
	if summary.RatingCount != 0 || summary.MeanScore != 0 {
		t.Fatalf("empty profile must summarize to zeros, got %+v", summary)
	}
}

func buildProfiles(ratings map[string]map[string]domain.Rating) map[string]*domain.ProfileAnalysis {
	profiles := make(map[string]*domain.ProfileAnalysis, len(ratings))
	for id, rs := range ratings {
		analysis := domain.NewProfileAnalysis(id)
		for title, r := range rs {
			analysis.SetRating(title, r)
		}
		profiles[id] = analysis
	}
	return profiles
}

func TestCrossProfileRankings(t *testing.T) {
	native := domain.Rating{Affinity: domain.AffinityNative, Score: 9}
	workable := domain.Rating{Affinity: domain.AffinityWorkable, Score: 5}
	resistant := domain.Rating{Affinity: domain.AffinityResistant, Score: 2}

	profiles := buildProfiles(map[string]map[string]domain.Rating{
		"p1": {"Universal": native, "Divisive": native, "Bland": workable},
		"p2": {"Universal": native, "Divisive": resistant, "Bland": workable},
		"p3": {"Universal": native, "Divisive": native, "Bland": workable},
		"p4": {"Universal": workable, "Divisive": resistant, "Bland": workable},
	})

	report := CrossProfile(profiles)

	if report.TotalRatings != 12 {
		t.Fatalf("expected 12 ratings, got %d", report.TotalRatings)
	}
	if report.MostNative[0].Title != "Universal" {
		t.Fatalf("expected Universal as most native, got %+v", report.MostNative[0])
	}
	if report.MostDivisive[0].Title != "Divisive" {
		t.Fatalf("expected Divisive on top, got %+v", report.MostDivisive[0])
	}
	// All-workable Bland has zero divisiveness despite full volume.
	for i, o := range report.MostDivisive {
		if o.Title == "Bland" && i == 0 {
			t.Fatalf("all-workable test must not rank divisive")
		}
	}
	if report.MostConsensus[0].Title != "Bland" {
		t.Fatalf("expected unanimous Bland as consensus leader, got %+v", report.MostConsensus[0])
	}
}

func TestCrossProfileSpreadEligibility(t *testing.T) {
	native := domain.Rating{Affinity: domain.AffinityNative, Score: 9}
	resistant := domain.Rating{Affinity: domain.AffinityResistant, Score: 2}

	// Only two ratings: below the >=3 floor for spread rankings.
	profiles := buildProfiles(map[string]map[string]domain.Rating{
		"p1": {"Thin": native},
		"p2": {"Thin": resistant},
	})

	report := CrossProfile(profiles)
	if len(report.MostDivisive) != 0 || len(report.MostConsensus) != 0 {
		t.Fatalf("tests under the rating floor must be ineligible: %+v", report)
	}
	if len(report.MostNative) != 1 {
		t.Fatalf("volume-independent rankings must still include the test")
	}
}

func TestCrossProfileScoreDistribution(t *testing.T) {
	profiles := buildProfiles(map[string]map[string]domain.Rating{
		"p1": {"A": {Affinity: domain.AffinityNative, Score: 9}, "B": {Affinity: domain.AffinityNative, Score: 9}},
		"p2": {"A": {Affinity: domain.AffinityWorkable, Score: 5}},
	})

	report := CrossProfile(profiles)
	if report.ScoreDistribution[9] != 2 || report.ScoreDistribution[5] != 1 {
		t.Fatalf("unexpected distribution: %v", report.ScoreDistribution)
	}
}

func TestCategoryBreakdownGroupsBySection(t *testing.T) {
	tests := []domain.Test{
		{Title: "Pier", Section: domain.SectionPhoto},
		{Title: "Alley", Section: domain.SectionPhoto},
		{Title: "Canvas", Section: domain.SectionArt},
		{Title: "Null Prompt", Section: domain.SectionVoidPhoto},
	}
	stats := map[string]AffinityCounts{
		"Pier":        {Native: 3},
		"Alley":       {Workable: 2},
		"Canvas":      {Resistant: 1},
		"Null Prompt": {Native: 1},
		"Orphan":      {Native: 5}, // not in catalog: skipped
	}

	breakdown := CategoryBreakdown(tests, stats)

	if len(breakdown) != 2 {
		t.Fatalf("expected PHOTO and ART groups, got %+v", breakdown)
	}
	if breakdown[0].Category != "PHOTO" {
		t.Fatalf("expected PHOTO first by native count, got %+v", breakdown[0])
	}
	// VOID_PHOTO folds into the PHOTO category.
	if breakdown[0].TestCount != 3 || breakdown[0].Counts.Native != 4 {
		t.Fatalf("unexpected PHOTO stats: %+v", breakdown[0])
	}
	for _, cs := range breakdown {
		if cs.Counts.Native == 5 {
			t.Fatalf("orphaned rating leaked into breakdown")
		}
	}
}
