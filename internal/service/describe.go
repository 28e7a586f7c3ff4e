package service

import (
	"context"
	"encoding/base64"
	"regexp"
	"strings"

	"go.uber.org/zap"

	pkgerrors "github.com/kapu/profile-lab-go/pkg/errors"
)

// DescribeService turns an uploaded reference image into an aesthetic
// analysis and a reusable prompt, the front half of the image-based
// recommendation flow.
type DescribeService struct {
	models *ModelManager
	logger *zap.Logger
}

func NewDescribeService(models *ModelManager, logger *zap.Logger) *DescribeService {
	return &DescribeService{models: models, logger: logger}
}

// ImageDescription is the parsed outcome of an aesthetic analysis.
type ImageDescription struct {
	AnalysisText    string `json:"analysis_text"`
	GeneratedPrompt string `json:"generated_prompt,omitempty"`
}

const describePrompt = `Analyze this image's aesthetic characteristics and create a MidJourney prompt to recreate it.

**Provide a detailed analysis:**

1. **Subject & Composition**: What is depicted? How is it composed?
2. **Visual Style**: Photography, digital art, painting, vector, 3D render, etc.
3. **Mood & Atmosphere**: Dark/bright, moody/cheerful, dramatic/calm, etc.
4. **Color Palette**: Dominant colors, saturation level, temperature, contrast level
5. **Texture & Quality**: Smooth/gritty, photorealistic/stylized, painterly/clean, etc.
6. **Lighting**: Natural/artificial, soft/hard, direction, time of day
7. **Technical Characteristics**: Depth of field, perspective, motion blur, grain/noise, etc.

**Then provide:**

- **MidJourney Prompt**: A complete, detailed prompt that would recreate this image's aesthetic. Format as a single paragraph ready to use.
- **Style Keywords**: 5-7 keywords that capture this aesthetic (e.g., "moody", "neon", "urban", "high-contrast", "cinematic")

Be thorough and specific in your analysis.`

var (
	boldPromptPattern = regexp.MustCompile(`(?is)\*\*MidJourney Prompt\*\*:?\s*(.+?)(?:\n\n\*\*|\n\n-\s*\*\*|$)`)
	barePromptPattern = regexp.MustCompile(`(?is)MidJourney Prompt[:\s]+(.+?)(?:\n\n|$)`)
	markdownBold      = regexp.MustCompile(`^\*\*|\*\*$`)
)

// Describe analyzes raw image bytes and extracts the generated prompt
// from the free-text reply. A missing prompt is not an error: the
// analysis text alone still drives profile matching.
func (ds *DescribeService) Describe(ctx context.Context, imageData []byte, mime string) (*ImageDescription, error) {
	if len(imageData) == 0 {
		return nil, pkgerrors.NewValidationError("image data is required", "image", "")
	}

	parts := []VisionPart{
		TextPart(describePrompt),
		ImagePart(base64.StdEncoding.EncodeToString(imageData), mime),
	}

	text, metadata, err := ds.models.GenerateText(ctx, parts, &GenerateOptions{
		Model:           "gpt-4o-mini",
		MaxOutputTokens: 1500,
	})
	if err != nil {
		return nil, err
	}

	description := &ImageDescription{
		AnalysisText:    text,
		GeneratedPrompt: ExtractGeneratedPrompt(text),
	}

	ds.logger.Info("Image described",
		zap.String("provider", metadata.Provider),
		zap.Int("analysis_length", len(text)),
		zap.Bool("prompt_extracted", description.GeneratedPrompt != ""),
	)
	return description, nil
}

// ExtractGeneratedPrompt pulls the suggested prompt out of the analysis
// text, tolerating both bold-header and plain forms.
func ExtractGeneratedPrompt(analysisText string) string {
	var prompt string
	if m := boldPromptPattern.FindStringSubmatch(analysisText); m != nil {
		prompt = m[1]
	} else if m := barePromptPattern.FindStringSubmatch(analysisText); m != nil {
		prompt = m[1]
	}

	prompt = strings.TrimSpace(prompt)
	prompt = markdownBold.ReplaceAllString(prompt, "")
	prompt = strings.Trim(prompt, `"'`)
	return strings.TrimSpace(prompt)
}
