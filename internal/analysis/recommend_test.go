package analysis

import (
	"testing"

	"github.com/kapu/profile-lab-go/internal/domain"
)

func recommendTests() []domain.Test {
	return []domain.Test{
		{Title: "Foggy Pier", Prompt: "foggy wooden pier at dawn, muted tones, mist over water", Section: domain.SectionPhoto},
		{Title: "Neon Alley", Prompt: "neon soaked alley at night, cyberpunk signage, rain", Section: domain.SectionPhoto},
		{Title: "Oil Meadow", Prompt: "impressionist oil painting of a meadow", Section: domain.SectionArt},
	}
}

func TestMatchTestsAbsoluteRequiresSharedWords(t *testing.T) {
	matches := MatchTests("foggy pier at dawn with mist", recommendTests(), OverlapAbsolute)

	if len(matches) != 1 || matches[0].Title != "Foggy Pier" {
		t.Fatalf("expected only Foggy Pier to match, got %+v", matches)
	}
	// foggy, pier, at, dawn, mist are shared.
	if matches[0].Overlap != 5 {
		t.Fatalf("expected 5 shared words, got %f", matches[0].Overlap)
	}
}

func TestMatchTestsNormalizedRatio(t *testing.T) {
	// Long description: 2 shared words out of 10 query words is 0.2 > 0.1.
	query := "one photograph showing foggy scene near the pier somewhere else"
	matches := MatchTests(query, recommendTests(), OverlapNormalized)

	if len(matches) != 1 || matches[0].Title != "Foggy Pier" {
		t.Fatalf("expected Foggy Pier via normalized overlap, got %+v", matches)
	}
	if matches[0].Overlap <= 0.1 || matches[0].Overlap >= 1 {
		t.Fatalf("normalized overlap out of range: %f", matches[0].Overlap)
	}
}

func TestMatchTestsEmptyQuery(t *testing.T) {
	if matches := MatchTests("", recommendTests(), OverlapAbsolute); matches != nil {
		t.Fatalf("empty query must match nothing, got %+v", matches)
	}
}

func TestDetectPalettesFollowsThemeOrder(t *testing.T) {
	detected := DetectPalettes("pastel clouds over a neon skyline")
	if len(detected) != 2 {
		t.Fatalf("expected two themes, got %v", detected)
	}
	// neon signals vibrant, pastel signals muted; vibrant comes first in
	// the fixed ordering regardless of query position.
	if detected[0] != "vibrant" || detected[1] != "muted" {
		t.Fatalf("unexpected theme order: %v", detected)
	}
}

func TestRecommendRanksByWeightedScore(t *testing.T) {
	tests := recommendTests()

	strong := domain.NewProfileAnalysis("strong")
	strong.ProfileLabel = "Mist Devotee"
	strong.SetRating("Foggy Pier", domain.Rating{Affinity: domain.AffinityNative, Score: 9})

	weak := domain.NewProfileAnalysis("weak")
	weak.SetRating("Foggy Pier", domain.Rating{Affinity: domain.AffinityResistant, Score: 3})

	ranked := Recommend("foggy pier at dawn with mist", tests, map[string]*domain.ProfileAnalysis{
		"strong": strong,
		"weak":   weak,
	}, OverlapAbsolute)

	if len(ranked) != 2 {
		t.Fatalf("expected both profiles ranked, got %+v", ranked)
	}
	if ranked[0].ProfileID != "strong" || ranked[1].ProfileID != "weak" {
		t.Fatalf("unexpected order: %+v", ranked)
	}
	if ranked[0].Score <= ranked[1].Score {
		t.Fatalf("scores not descending: %+v", ranked)
	}
	if ranked[0].UsedAllTests {
		t.Fatalf("matched recommendation must not report fallback")
	}
	if ranked[0].ProfileLabel != "Mist Devotee" {
		t.Fatalf("profile label lost: %+v", ranked[0])
	}
}

func TestRecommendFallsBackToWholeProfile(t *testing.T) {
	tests := recommendTests()

	p := domain.NewProfileAnalysis("generalist")
	p.SetRating("Foggy Pier", domain.Rating{Affinity: domain.AffinityNative, Score: 8})
	p.SetRating("Neon Alley", domain.Rating{Affinity: domain.AffinityWorkable, Score: 6})

	// Zero keyword overlap with any catalog prompt.
	ranked := Recommend("xylophone quartz obelisk", tests, map[string]*domain.ProfileAnalysis{"generalist": p}, OverlapAbsolute)

	if len(ranked) != 1 {
		t.Fatalf("fallback must still rank the profile, got %+v", ranked)
	}
	if !ranked[0].UsedAllTests {
		t.Fatalf("fallback flag not set: %+v", ranked[0])
	}
	if len(ranked[0].MatchedTests) != 0 {
		t.Fatalf("fallback must not report matched tests: %+v", ranked[0])
	}
	if ranked[0].Score <= 0 {
		t.Fatalf("fallback score must reflect the profile's ratings, got %f", ranked[0].Score)
	}
}

func TestRecommendPaletteBonusBreaksTies(t *testing.T) {
	tests := recommendTests()

	plain := domain.NewProfileAnalysis("plain")
	plain.SetRating("Foggy Pier", domain.Rating{Affinity: domain.AffinityNative, Score: 6})
	plain.SetRating("Neon Alley", domain.Rating{Affinity: domain.AffinityNative, Score: 9})

	themed := domain.NewProfileAnalysis("themed")
	themed.SetRating("Foggy Pier", domain.Rating{
		Affinity: domain.AffinityNative, Score: 6,
		ColorPalette: "muted desaturated grey wash",
	})
	themed.SetRating("Neon Alley", domain.Rating{Affinity: domain.AffinityNative, Score: 9})

	// Both tests match; the palette bonus inflates the muted Foggy Pier
	// weight, pulling the themed profile's average toward that rating.
	ranked := Recommend("muted foggy pier and neon alley at night in the rain", tests,
		map[string]*domain.ProfileAnalysis{"plain": plain, "themed": themed}, OverlapAbsolute)

	var plainScore, themedScore float64
	var themedBonus int
	for _, rec := range ranked {
		switch rec.ProfileID {
		case "plain":
			plainScore = rec.Score
		case "themed":
			themedScore = rec.Score
			themedBonus = rec.PaletteBonus
		}
	}

	if themedBonus == 0 {
		t.Fatalf("expected palette bonus on themed profile, got %+v", ranked)
	}
	if themedScore == plainScore {
		t.Fatalf("palette bonus must shift the weighted average: %f vs %f", themedScore, plainScore)
	}
}

func TestRecommendExcludesZeroWeightProfiles(t *testing.T) {
	tests := recommendTests()

	unrated := domain.NewProfileAnalysis("unrated")
	unrated.SetRating("Oil Meadow", domain.Rating{Affinity: domain.AffinityWorkable, Score: 5})

	rated := domain.NewProfileAnalysis("rated")
	rated.SetRating("Foggy Pier", domain.Rating{Affinity: domain.AffinityNative, Score: 8})

	// The query matches only Foggy Pier; the unrated profile carries no
	// rating for it and accrues zero weight.
	ranked := Recommend("foggy pier at dawn with mist", tests,
		map[string]*domain.ProfileAnalysis{"unrated": unrated, "rated": rated}, OverlapAbsolute)

	if len(ranked) != 1 || ranked[0].ProfileID != "rated" {
		t.Fatalf("zero-weight profile must be excluded, got %+v", ranked)
	}
}

func TestRecommendSkipsEmptyProfiles(t *testing.T) {
	ranked := Recommend("foggy pier", recommendTests(),
		map[string]*domain.ProfileAnalysis{"empty": domain.NewProfileAnalysis("empty")}, OverlapAbsolute)
	if len(ranked) != 0 {
		t.Fatalf("profile without ratings must not be ranked: %+v", ranked)
	}
}
