package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kapu/profile-lab-go/internal/analysis"
	"github.com/kapu/profile-lab-go/internal/constants"
	"github.com/kapu/profile-lab-go/internal/domain"
	pkgerrors "github.com/kapu/profile-lab-go/pkg/errors"
)

// FinalizeService regenerates a profile's label and DNA from its full
// rating set. Finalizing a partial set would bake an incomplete picture
// into the record, so it refuses until every current test is rated.
type FinalizeService struct {
	models *ModelManager
	logger *zap.Logger
}

func NewFinalizeService(models *ModelManager, logger *zap.Logger) *FinalizeService {
	return &FinalizeService{models: models, logger: logger}
}

type finalizeResponse struct {
	ProfileLabel string   `json:"profile_label"`
	ProfileDNA   []string `json:"profile_dna"`
}

// Finalize generates and applies the label and DNA. catalogTitles is the
// current catalog; any unrated title blocks finalization.
func (fs *FinalizeService) Finalize(ctx context.Context, a *domain.ProfileAnalysis, catalogTitles []string) error {
	result := analysis.Reconcile(catalogTitles, a.Ratings)
	if len(result.Missing) > 0 {
		return pkgerrors.NewValidationError(
			fmt.Sprintf("%d tests still unrated", len(result.Missing)), "missing", result.Missing)
	}
	if len(a.Ratings) < constants.RatingConfig.MinRatingsForDNA {
		return pkgerrors.NewValidationError(
			fmt.Sprintf("need at least %d ratings for DNA, have %d",
				constants.RatingConfig.MinRatingsForDNA, len(a.Ratings)),
			"ratings", len(a.Ratings))
	}

	titles := make([]string, 0, len(a.Ratings))
	for title := range a.Ratings {
		titles = append(titles, title)
	}
	sort.Strings(titles)

	lines := make([]string, 0, len(titles))
	for _, title := range titles {
		rating := a.Ratings[title]
		lines = append(lines, fmt.Sprintf("- %s: %s (score: %d/10)", title, rating.Affinity, rating.Score))
	}

	prompt := fmt.Sprintf(`Based on these %d test results for MidJourney profile '%s', provide:

1. **Profile Label**: A concise 2-4 word aesthetic label (e.g., "Moody Urban Explorer", "Vibrant Nature Maximalist")

2. **Profile DNA**: 5-10 distinctive traits that define this profile's aesthetic strengths, weaknesses, and tendencies. Include color palette preferences if evident.

Test Results:
%s

Return as JSON:
{
  "profile_label": "Your Label Here",
  "profile_dna": ["trait1", "trait2"]
}`, len(lines), a.ProfileID, strings.Join(lines, "\n"))

	var response finalizeResponse
	metadata, err := fs.models.GenerateJSON(ctx, []VisionPart{TextPart(prompt)}, &response, &GenerateOptions{
		Model:       "gpt-4o-mini",
		Temperature: 0.7,
	})
	if err != nil {
		return err
	}
	if response.ProfileLabel == "" {
		return pkgerrors.NewProviderError("empty profile label", metadata.Provider, "finalize", nil)
	}

	a.ProfileLabel = response.ProfileLabel
	a.ProfileDNA = response.ProfileDNA
	a.AnalysisVersion = constants.AnalysisPromptVersion
	a.RecomputeAffinitySummary()

	fs.logger.Info("Profile finalized",
		zap.String("profile_id", a.ProfileID),
		zap.String("label", a.ProfileLabel),
		zap.Int("dna_traits", len(a.ProfileDNA)),
		zap.String("provider", metadata.Provider),
	)
	return nil
}
