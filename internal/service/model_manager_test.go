package service

import (
	"testing"
)

func TestBuildOpenAIMessagesFoldsPartsIntoOneUserMessage(t *testing.T) {
	parts := []VisionPart{
		TextPart("Rate the following images."),
		ImagePart("aGVsbG8=", "image/png"),
		ImagePart("d29ybGQ=", "image/webp"),
	}

	messages := buildOpenAIMessages(parts, false)
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	user := messages[0].OfUser
	if user == nil {
		t.Fatal("expected a user message")
	}
	content := user.Content.OfArrayOfContentParts
	if len(content) != 3 {
		t.Fatalf("expected 3 content parts, got %d", len(content))
	}

	if content[0].OfText == nil {
		t.Fatal("first part should be text")
	}
	if content[0].OfText.Text != "Rate the following images." {
		t.Fatalf("unexpected text: %q", content[0].OfText.Text)
	}

	img := content[1].OfImageURL
	if img == nil {
		t.Fatal("second part should be an image")
	}
	if img.ImageURL.URL != "data:image/png;base64,aGVsbG8=" {
		t.Fatalf("unexpected image URL: %q", img.ImageURL.URL)
	}
	if img.ImageURL.Detail != "low" {
		t.Fatalf("unexpected detail: %q", img.ImageURL.Detail)
	}
}

func TestBuildOpenAIMessagesJSONModePrependsSystem(t *testing.T) {
	messages := buildOpenAIMessages([]VisionPart{TextPart("hi")}, true)
	if len(messages) != 2 {
		t.Fatalf("expected system + user, got %d messages", len(messages))
	}
	if messages[0].OfSystem == nil {
		t.Fatal("JSON mode must prepend a system message")
	}
	if messages[1].OfUser == nil {
		t.Fatal("user message must follow the system message")
	}
}
