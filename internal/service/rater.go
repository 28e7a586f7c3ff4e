package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/kapu/profile-lab-go/internal/constants"
	"github.com/kapu/profile-lab-go/internal/domain"
	pkgerrors "github.com/kapu/profile-lab-go/pkg/errors"
)

// UploadedTest pairs a catalog test with the generated image files to be
// rated. VOID tests carry several images; standard tests exactly one.
type UploadedTest struct {
	Test       domain.Test
	ImagePaths []string
}

// RaterService drives the batch image-rating pass: it assembles the
// vision payload, parses the reply, repairs malformed rating keys, and
// folds the results into the profile record.
type RaterService struct {
	models *ModelManager
	logger *zap.Logger
}

func NewRaterService(models *ModelManager, logger *zap.Logger) *RaterService {
	return &RaterService{models: models, logger: logger}
}

const ratingPreamble = `You are an expert at analyzing artistic and photographic styles. Be CRITICAL and DISCERNING.

You are analyzing test images generated by MidJourney profile ID '%s'.

**Your Task**: For each test, evaluate the images according to their test type:

**For Standard Tests (single image with specific prompt)**:
Evaluate how well the image ACHIEVES THE AESTHETIC DESCRIBED IN THE TEST PROMPT.

**Rating Criteria** - Be strict about medium, mood, technique, and subject accuracy:
- Does the image use the CORRECT MEDIUM/TECHNIQUE?
- Does the MOOD/ATMOSPHERE match?
- Is the SUBJECT/COMPOSITION correct?
- Does it avoid STYLE DRIFT?

**For VOID Tests (multiple unseeded images with minimal/no prompt)**:
Evaluate the CONSISTENCY and STRENGTH of the profile's natural aesthetic signature across all images.
Affinity for VOID tests means "signature strength": native_fit for strong recurring patterns, workable for moderate consistency, resistant for weak/random output.

**Provide for each test**:
- **affinity**: One of ["native_fit", "workable", "resistant"]
- **score**: Integer 1-10
- **confidence**: Float 0.0-1.0 indicating your confidence in the rating
- **rendering_style**: Integer 1-10 (VOID tests only): photographic strength for VOID_PHOTO, artistic strength for VOID_ART
- **commentary**: 3-4 sentences covering prompt execution and the profile's aesthetic signature (recurring patterns for VOID tests)
- **color-palette**: 1-2 sentences describing the color palette (recurring colors across images for VOID tests)

**Test Images:**`

// batchResponse is the expected reply envelope. Rating keys should be
// test titles but often come back as positional placeholders.
type batchResponse struct {
	Ratings map[string]domain.Rating `json:"ratings"`
}

// BuildBatch filters out already-rated tests and caps the batch at the
// payload limit. Remaining tests go into later batches.
func (rs *RaterService) BuildBatch(uploads []UploadedTest, existing map[string]domain.Rating) []UploadedTest {
	unrated := make([]UploadedTest, 0, len(uploads))
	for _, u := range uploads {
		if _, rated := existing[u.Test.Title]; rated {
			continue
		}
		unrated = append(unrated, u)
	}

	if len(unrated) > constants.RatingConfig.BatchSize {
		unrated = unrated[:constants.RatingConfig.BatchSize]
	}
	return unrated
}

// RateBatch rates one batch of uploads and folds the results into the
// analysis. Returns the titles that were rated in this pass.
func (rs *RaterService) RateBatch(ctx context.Context, profileID string, uploads []UploadedTest, analysis *domain.ProfileAnalysis) ([]string, error) {
	batch := rs.BuildBatch(uploads, analysis.Ratings)
	if len(batch) == 0 {
		return nil, nil
	}

	parts, err := rs.buildParts(profileID, batch)
	if err != nil {
		return nil, err
	}

	var response batchResponse
	metadata, err := rs.models.GenerateJSON(ctx, parts, &response, &GenerateOptions{
		MaxOutputTokens: constants.RatingConfig.MaxResponseTokens,
		Temperature:     0.7,
	})
	if err != nil {
		return nil, err
	}
	if len(response.Ratings) == 0 {
		return nil, pkgerrors.NewProviderError("no ratings in response", metadata.Provider, "rate_batch", nil)
	}

	repaired := RepairResponseKeys(response.Ratings, batch)

	rated := make([]string, 0, len(repaired))
	for title, rating := range repaired {
		if !rating.Affinity.Valid() {
			rs.logger.Warn("Dropping rating with invalid affinity",
				zap.String("title", title),
				zap.String("affinity", string(rating.Affinity)),
			)
			continue
		}
		analysis.SetRating(title, rating)
		rated = append(rated, title)
	}
	analysis.AnalysisVersion = constants.AnalysisPromptVersion

	rs.logger.Info("Batch rated",
		zap.String("profile_id", profileID),
		zap.String("provider", metadata.Provider),
		zap.Int("requested", len(batch)),
		zap.Int("rated", len(rated)),
	)

	return rated, nil
}

func (rs *RaterService) buildParts(profileID string, batch []UploadedTest) ([]VisionPart, error) {
	parts := []VisionPart{TextPart(fmt.Sprintf(ratingPreamble, profileID))}

	for idx, upload := range batch {
		test := upload.Test
		if test.Section.IsVoid() && len(upload.ImagePaths) > 1 {
			parts = append(parts, TextPart(fmt.Sprintf(
				"\n\n**Test %d: %s**\nSection: %s\nPrompt: %s\n\n**Purpose**: This test uses %d unseeded images to reveal pure profile bias. Analyze the COMMONALITIES across all images.",
				idx+1, test.Title, test.Section, test.Prompt, len(upload.ImagePaths))))

			for imgNum, path := range upload.ImagePaths {
				b64, mime, err := LoadImageBase64(path)
				if err != nil {
					return nil, err
				}
				parts = append(parts, TextPart(fmt.Sprintf("Image %d/%d:", imgNum+1, len(upload.ImagePaths))))
				parts = append(parts, ImagePart(b64, mime))
			}
			continue
		}

		if len(upload.ImagePaths) == 0 {
			return nil, pkgerrors.NewValidationError(
				fmt.Sprintf("no image for test %s", test.Title), "image_paths", test.Title)
		}

		b64, mime, err := LoadImageBase64(upload.ImagePaths[0])
		if err != nil {
			return nil, err
		}
		parts = append(parts, TextPart(fmt.Sprintf(
			"\n\n**Test %d: %s**\nPrompt: %s\nSection: %s", idx+1, test.Title, test.Prompt, test.Section)))
		parts = append(parts, ImagePart(b64, mime))
	}

	exampleTitle := batch[0].Test.Title
	parts = append(parts, TextPart(fmt.Sprintf(`

**Output Format (JSON):**
IMPORTANT: Use the actual test names (e.g., "%s") as the keys in the "ratings" object, NOT "Test 1", "Test 2", etc.

{
  "ratings": {
    "%s": {
      "affinity": "native_fit|workable|resistant",
      "score": 8,
      "confidence": 0.9,
      "commentary": "Commentary here...",
      "color-palette": "Color palette description here..."
    }
  }
}

Respond with ONLY the JSON, no other text.`, exampleTitle, exampleTitle)))

	return parts, nil
}

var (
	prefixedKeyPattern   = regexp.MustCompile(`^Test (\d+): (.+)$`)
	positionalKeyPattern = regexp.MustCompile(`^Test (\d+)$`)
)

// RepairResponseKeys normalizes rating keys straight off the wire:
// "Test N: Name" drops the prefix, bare "Test N" maps to the batch's
// N-th test. Unrecognized keys pass through for the reconciler to sort
// out later.
func RepairResponseKeys(ratings map[string]domain.Rating, batch []UploadedTest) map[string]domain.Rating {
	indexToTitle := make(map[string]string, len(batch))
	for idx, upload := range batch {
		indexToTitle[fmt.Sprintf("%d", idx+1)] = upload.Test.Title
	}

	fixed := make(map[string]domain.Rating, len(ratings))
	for key, rating := range ratings {
		cleanKey := key
		if m := prefixedKeyPattern.FindStringSubmatch(key); m != nil {
			cleanKey = m[2]
		} else if m := positionalKeyPattern.FindStringSubmatch(key); m != nil {
			if title, ok := indexToTitle[m[1]]; ok {
				cleanKey = title
			}
		}
		fixed[cleanKey] = rating
	}
	return fixed
}

// LoadImageBase64 reads an image file and returns its base64 payload and
// MIME type.
func LoadImageBase64(path string) (string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", pkgerrors.NewStorageError("failed to read image", "read", path, err)
	}

	mime := "image/jpeg"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		mime = "image/png"
	case ".webp":
		mime = "image/webp"
	}

	return base64.StdEncoding.EncodeToString(data), mime, nil
}
