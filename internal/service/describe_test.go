package service

import "testing"

func TestExtractGeneratedPromptBoldHeader(t *testing.T) {
	analysis := `1. **Subject & Composition**: A lone figure on a pier.

**MidJourney Prompt**: moody foggy pier at dawn, muted desaturated tones, cinematic lighting

**Style Keywords**: moody, foggy, muted`

	got := ExtractGeneratedPrompt(analysis)
	want := "moody foggy pier at dawn, muted desaturated tones, cinematic lighting"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestExtractGeneratedPromptPlainForm(t *testing.T) {
	analysis := `Some analysis text.

MidJourney Prompt: neon alley at night, rain reflections

More trailing text.`

	got := ExtractGeneratedPrompt(analysis)
	if got != "neon alley at night, rain reflections" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractGeneratedPromptStripsQuotes(t *testing.T) {
	analysis := `**MidJourney Prompt**: "quoted prompt here"`

	if got := ExtractGeneratedPrompt(analysis); got != "quoted prompt here" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractGeneratedPromptMissing(t *testing.T) {
	if got := ExtractGeneratedPrompt("no prompt section at all"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
