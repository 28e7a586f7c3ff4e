package service

// GenerateOptions tunes one provider call. Zero values defer to the
// provider's defaults.
type GenerateOptions struct {
	Model           string
	JSONMode        bool
	MaxOutputTokens int
	Temperature     float64
}

// ProviderResult is the text outcome of one provider call.
type ProviderResult struct {
	Text  string
	Model string
}

// GenerateMetadata reports which provider actually served a managed call.
type GenerateMetadata struct {
	Provider     string
	Model        string
	UsedFallback bool
}

// VisionPart is one element of a multimodal message: either text or an
// inline base64 image, never both.
type VisionPart struct {
	Text      string
	ImageB64  string
	ImageMIME string
}

func TextPart(text string) VisionPart {
	return VisionPart{Text: text}
}

func ImagePart(b64, mime string) VisionPart {
	if mime == "" {
		mime = "image/jpeg"
	}
	return VisionPart{ImageB64: b64, ImageMIME: mime}
}
