package analysis

import (
	"math"
	"testing"
)

func TestCleanPromptStripsParamsJobIDAndURLs(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"misty forest at dawn --ar 16:9 --stylize 1000", "misty forest at dawn"},
		{"neon alley Job ID: 1a2b3c-4d5e", "neon alley"},
		{"ref https://example.com/img.png moody portrait", "ref  moody portrait"},
		{"  padded prompt  ", "padded prompt"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := CleanPrompt(tc.in); got != tc.want {
			t.Fatalf("CleanPrompt(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExtractKeywordsFiltersStopwordsAndShortTokens(t *testing.T) {
	got := ExtractKeywords("The cat is on a moody pier at dusk")
	want := []string{"cat", "moody", "pier", "dusk"}

	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestAnalyzeDiversityEmptyCorpus(t *testing.T) {
	metrics := AnalyzeDiversity(nil)
	if metrics.TotalPrompts != 0 || metrics.UniquenessRatio != 0 || metrics.KeywordDiversity != 0 {
		t.Fatalf("expected zero metrics for empty corpus, got %+v", metrics)
	}
	if metrics.TopKeywords == nil || len(metrics.TopKeywords) != 0 {
		t.Fatalf("expected empty keyword list, got %v", metrics.TopKeywords)
	}
}

func TestAnalyzeDiversityUniquenessBounds(t *testing.T) {
	distinct := AnalyzeDiversity([]string{"foggy pier", "neon alley", "alpine stream"})
	if distinct.UniquenessRatio != 1.0 {
		t.Fatalf("pairwise distinct prompts must score 1.0, got %f", distinct.UniquenessRatio)
	}

	repeated := AnalyzeDiversity([]string{"foggy pier", "foggy pier", "neon alley", "foggy pier"})
	if repeated.UniquenessRatio <= 0 || repeated.UniquenessRatio >= 1 {
		t.Fatalf("repeated corpus must score inside (0,1), got %f", repeated.UniquenessRatio)
	}
	if repeated.UniquePrompts != 2 {
		t.Fatalf("expected 2 unique prompts, got %d", repeated.UniquePrompts)
	}
}

func TestAnalyzeDiversityKeywordDiversityRange(t *testing.T) {
	// Every prompt shares all keywords: diversity drops toward 0 with size.
	same := AnalyzeDiversity([]string{
		"misty mountain lake", "misty mountain lake",
		"misty mountain lake", "misty mountain lake",
	})
	if same.KeywordDiversity <= 0 || same.KeywordDiversity > 1 {
		t.Fatalf("keyword diversity out of range: %f", same.KeywordDiversity)
	}
	if same.KeywordDiversity != 0.25 {
		t.Fatalf("expected 3/12 = 0.25, got %f", same.KeywordDiversity)
	}

	// Fully disjoint keyword sets score exactly 1.0.
	disjoint := AnalyzeDiversity([]string{"crimson dunes", "velvet fog", "brutalist atrium"})
	if disjoint.KeywordDiversity != 1.0 {
		t.Fatalf("disjoint corpus must score 1.0, got %f", disjoint.KeywordDiversity)
	}
}

func TestAnalyzeDiversityAvgLengthUsesCleanedPrompts(t *testing.T) {
	metrics := AnalyzeDiversity([]string{"one two three --ar 16:9 --q 4"})
	if metrics.AvgLength != 3 {
		t.Fatalf("expected cleaned length 3, got %f", metrics.AvgLength)
	}
}

func TestTopKeywordsStableTieBreak(t *testing.T) {
	metrics := AnalyzeDiversity([]string{"zebra apple", "zebra apple", "banana zebra"})

	if len(metrics.TopKeywords) < 3 {
		t.Fatalf("expected 3 keywords, got %v", metrics.TopKeywords)
	}
	if metrics.TopKeywords[0].Keyword != "zebra" || metrics.TopKeywords[0].Count != 3 {
		t.Fatalf("expected zebra first, got %+v", metrics.TopKeywords[0])
	}
	// apple and banana both occur twice/once; apple was seen first.
	if metrics.TopKeywords[1].Keyword != "apple" {
		t.Fatalf("tie must break by first encounter, got %+v", metrics.TopKeywords)
	}
}

func TestCommonPatternsRanksNGrams(t *testing.T) {
	patterns := CommonPatterns([]string{
		"golden hour pier",
		"golden hour alley",
		"golden hour pier",
	}, 5)

	if len(patterns.TopBigrams) == 0 || patterns.TopBigrams[0].Keyword != "golden hour" {
		t.Fatalf("expected 'golden hour' as top bigram, got %+v", patterns.TopBigrams)
	}
	if patterns.TopBigrams[0].Count != 3 {
		t.Fatalf("expected count 3, got %d", patterns.TopBigrams[0].Count)
	}
	if len(patterns.TopTrigrams) == 0 || patterns.TopTrigrams[0].Keyword != "golden hour pier" {
		t.Fatalf("expected 'golden hour pier' as top trigram, got %+v", patterns.TopTrigrams)
	}
}

func TestSuggestSplitConservesBudgetWithinClamps(t *testing.T) {
	cases := []struct {
		name  string
		photo DiversityMetrics
		art   DiversityMetrics
	}{
		{"photo heavy", DiversityMetrics{KeywordDiversity: 0.9, TotalPrompts: 500}, DiversityMetrics{KeywordDiversity: 0.05, TotalPrompts: 3}},
		{"art heavy", DiversityMetrics{KeywordDiversity: 0.02, TotalPrompts: 4}, DiversityMetrics{KeywordDiversity: 0.8, TotalPrompts: 400}},
		{"balanced", DiversityMetrics{KeywordDiversity: 0.3, TotalPrompts: 100}, DiversityMetrics{KeywordDiversity: 0.3, TotalPrompts: 100}},
		{"both zero", DiversityMetrics{}, DiversityMetrics{}},
	}

	for _, tc := range cases {
		split := SuggestSplit(tc.photo, tc.art, 20, 5, 15)
		if split.PhotoTests+split.ArtTests != 20 {
			t.Fatalf("%s: budget not conserved: %+v", tc.name, split)
		}
		if split.PhotoTests < 5 || split.PhotoTests > 15 {
			t.Fatalf("%s: photo allocation outside [5,15]: %+v", tc.name, split)
		}
		if split.ArtTests < 5 || split.ArtTests > 15 {
			t.Fatalf("%s: art allocation outside [5,15]: %+v", tc.name, split)
		}
	}
}

func TestSuggestSplitEvenFallback(t *testing.T) {
	split := SuggestSplit(DiversityMetrics{}, DiversityMetrics{}, 20, 5, 15)
	if split.PhotoTests != 10 || split.ArtTests != 10 {
		t.Fatalf("expected even split on zero scores, got %+v", split)
	}
}

func TestSuggestSplitLogDampening(t *testing.T) {
	// Many near-duplicate photo prompts must not dominate on volume.
	photo := DiversityMetrics{KeywordDiversity: 0.05, TotalPrompts: 10000}
	art := DiversityMetrics{KeywordDiversity: 0.50, TotalPrompts: 50}

	split := SuggestSplit(photo, art, 20, 5, 15)
	if split.ArtTests <= split.PhotoTests {
		t.Fatalf("higher-diversity art group should receive more tests, got %+v", split)
	}

	wantPhoto := photo.KeywordDiversity * math.Log(float64(photo.TotalPrompts)+1)
	if math.Abs(split.PhotoScore-wantPhoto) > 1e-12 {
		t.Fatalf("photo score mismatch: got %f want %f", split.PhotoScore, wantPhoto)
	}
}

func TestShouldRebalanceTwoSidedGuard(t *testing.T) {
	// Scenario from the field: photo 0.10, art 0.35. Ratio 0.10/0.35 is
	// ~0.286 which does NOT clear the 0.70 convergence bar even though the
	// art score clears the floor. The exact formula wins over intuition.
	if ShouldRebalance(0.10, 0.35, 0.70, 0.300) {
		t.Fatalf("ratio 0.286 must not trigger rebalancing")
	}

	// Converged and above the floor: flag.
	if !ShouldRebalance(0.28, 0.35, 0.70, 0.300) {
		t.Fatalf("ratio 0.8 with floor cleared must trigger rebalancing")
	}

	// Converged but trivially low diversity on both sides: no flag.
	if ShouldRebalance(0.08, 0.10, 0.70, 0.300) {
		t.Fatalf("convergence alone must not trigger when the floor is missed")
	}

	// Zero scores never trigger.
	if ShouldRebalance(0, 0.35, 0.70, 0.300) {
		t.Fatalf("zero diversity must not trigger")
	}
}
