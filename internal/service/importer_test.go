package service

import (
	"strings"
	"testing"
)

func TestExtractPromptsFromDataAttributes(t *testing.T) {
	html := `<html><body>
		<div class="job" data-prompt="misty forest at dawn --ar 16:9" data-job-id="abc-123"></div>
		<div class="job" data-prompt="neon alley at night" data-job-id="def-456"></div>
	</body></html>`

	records, err := ExtractPrompts(strings.NewReader(html))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %+v", records)
	}
	if records[0].ID != "abc-123" || records[0].Prompt != "misty forest at dawn --ar 16:9" {
		t.Fatalf("unexpected first record: %+v", records[0])
	}
}

func TestExtractPromptsFallsBackToAltText(t *testing.T) {
	html := `<html><body>
		<img src="a.png" alt="golden hour pier with fishing boats">
		<img src="icon.png" alt="menu icon">
	</body></html>`

	records, err := ExtractPrompts(strings.NewReader(html))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("short alt text must be skipped, got %+v", records)
	}
	if records[0].Prompt != "golden hour pier with fishing boats" {
		t.Fatalf("unexpected prompt: %q", records[0].Prompt)
	}
}

func TestExtractPromptsDeduplicates(t *testing.T) {
	html := `<html><body>
		<div data-prompt="misty forest at dawn"></div>
		<img src="a.png" alt="misty forest at dawn">
		<figure><figcaption>misty forest at dawn</figcaption></figure>
	</body></html>`

	records, err := ExtractPrompts(strings.NewReader(html))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("duplicates must collapse, got %+v", records)
	}
}

func TestExtractPromptsEmptyDocument(t *testing.T) {
	records, err := ExtractPrompts(strings.NewReader("<html><body></body></html>"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %+v", records)
	}
}
