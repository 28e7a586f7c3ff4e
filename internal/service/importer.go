package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/kapu/profile-lab-go/internal/storage"
	pkgerrors "github.com/kapu/profile-lab-go/pkg/errors"
)

const importerTimeout = 15 * time.Second

// PromptRecord is one imported prompt, keyed by the image's job id when
// the page carries one.
type PromptRecord struct {
	ID     string `json:"id,omitempty"`
	Prompt string `json:"prompt"`
}

// ImporterService pulls prompt text out of a saved gallery or archive
// page so the diversity analyzer has a corpus to work from. Pages vary,
// so extraction tries data attributes first and falls back to alt text
// and captions.
type ImporterService struct {
	store        *storage.JSONStore
	httpClient   *http.Client
	metadataPath string
	logger       *zap.Logger
}

func NewImporterService(store *storage.JSONStore, metadataPath string, logger *zap.Logger) *ImporterService {
	return &ImporterService{
		store: store,
		httpClient: &http.Client{
			Timeout: importerTimeout,
		},
		metadataPath: metadataPath,
		logger:       logger,
	}
}

// ImportFromURL fetches a gallery page and merges its prompts into the
// metadata file. Returns the number of new prompts added.
func (is *ImporterService) ImportFromURL(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("invalid gallery url: %w", err)
	}

	resp, err := is.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("gallery fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("gallery fetch returned status %d", resp.StatusCode)
	}

	return is.ImportFromHTML(resp.Body)
}

// ImportFromHTML parses gallery markup and merges extracted prompts into
// the metadata file.
func (is *ImporterService) ImportFromHTML(r io.Reader) (int, error) {
	records, err := ExtractPrompts(r)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	var existing []PromptRecord
	if err := is.store.Read(is.metadataPath, &existing); err != nil {
		return 0, err
	}

	seen := make(map[string]struct{}, len(existing))
	for _, rec := range existing {
		seen[rec.Prompt] = struct{}{}
	}

	added := 0
	for _, rec := range records {
		if _, dup := seen[rec.Prompt]; dup {
			continue
		}
		seen[rec.Prompt] = struct{}{}
		existing = append(existing, rec)
		added++
	}

	if added > 0 {
		if err := is.store.Write(is.metadataPath, existing); err != nil {
			return 0, err
		}
	}

	is.logger.Info("Gallery prompts imported",
		zap.Int("extracted", len(records)),
		zap.Int("added", added),
	)
	return added, nil
}

// Prompts returns the full imported corpus.
func (is *ImporterService) Prompts() ([]string, error) {
	var records []PromptRecord
	if err := is.store.Read(is.metadataPath, &records); err != nil {
		return nil, err
	}
	prompts := make([]string, 0, len(records))
	for _, rec := range records {
		prompts = append(prompts, rec.Prompt)
	}
	return prompts, nil
}

// ExtractPrompts pulls prompt records out of gallery markup.
func ExtractPrompts(r io.Reader) ([]PromptRecord, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, pkgerrors.NewValidationError("failed to parse gallery HTML", "html", err.Error())
	}

	records := []PromptRecord{}
	seen := make(map[string]struct{})
	add := func(id, prompt string) {
		prompt = strings.TrimSpace(prompt)
		if prompt == "" {
			return
		}
		if _, dup := seen[prompt]; dup {
			return
		}
		seen[prompt] = struct{}{}
		records = append(records, PromptRecord{ID: id, Prompt: prompt})
	}

	doc.Find("[data-prompt]").Each(func(_ int, s *goquery.Selection) {
		prompt, _ := s.Attr("data-prompt")
		id, _ := s.Attr("data-job-id")
		add(id, prompt)
	})

	doc.Find("img[alt]").Each(func(_ int, s *goquery.Selection) {
		alt, _ := s.Attr("alt")
		// Gallery thumbnails carry the full prompt as alt text; skip
		// short decorative alts.
		if len(strings.Fields(alt)) < 3 {
			return
		}
		add("", alt)
	})

	doc.Find("figure figcaption").Each(func(_ int, s *goquery.Selection) {
		add("", s.Text())
	})

	return records, nil
}
