package catalog

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/profile-lab-go/internal/domain"
	"github.com/kapu/profile-lab-go/internal/storage"
	"github.com/kapu/profile-lab-go/internal/util"
	"github.com/kapu/profile-lab-go/pkg/errors"
)

// Service manages the test catalog, a flat JSON list of tests. Every
// mutation rewrites the whole file.
type Service struct {
	store  *storage.JSONStore
	path   string
	logger *zap.Logger
	now    func() time.Time
}

func NewService(store *storage.JSONStore, path string, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		path:   path,
		logger: logger,
		now:    time.Now,
	}
}

// Load returns the catalog, optionally filtered by status. A missing
// catalog file loads as empty.
func (s *Service) Load(statusFilter domain.TestStatus) ([]domain.Test, error) {
	var tests []domain.Test
	if err := s.store.Read(s.path, &tests); err != nil {
		return nil, err
	}

	if statusFilter == "" {
		return tests, nil
	}

	filtered := make([]domain.Test, 0, len(tests))
	for _, t := range tests {
		if t.Status == statusFilter {
			filtered = append(filtered, t)
		}
	}
	return filtered, nil
}

func (s *Service) save(tests []domain.Test) error {
	return s.store.Write(s.path, tests)
}

// Add appends a new test. The id derives from the title, so two tests
// with the same title would collide; the caller sees that as an error.
func (s *Service) Add(title, prompt string, section domain.Section, params string, version domain.TestVersion) (*domain.Test, error) {
	if title == "" {
		return nil, errors.NewValidationError("title is required", "title", title)
	}
	if prompt == "" && !section.IsVoid() {
		return nil, errors.NewValidationError("prompt is required for non-VOID tests", "prompt", prompt)
	}

	tests, err := s.Load("")
	if err != nil {
		return nil, err
	}

	id := util.Slugify(title)
	for _, t := range tests {
		if t.ID == id {
			return nil, errors.NewValidationError(
				fmt.Sprintf("test id %s already exists", id), "id", id)
		}
	}

	test := domain.Test{
		ID:          id,
		Title:       title,
		Prompt:      prompt,
		Section:     section,
		Params:      params,
		Status:      domain.StatusCurrent,
		Version:     version,
		CreatedDate: s.now().Format("2006-01-02"),
	}

	tests = append(tests, test)
	if err := s.save(tests); err != nil {
		return nil, err
	}

	s.logger.Info("Test added",
		zap.String("id", test.ID),
		zap.String("section", string(test.Section)),
	)
	return &test, nil
}

// Update applies the mutation to the test with the given id and saves.
func (s *Service) Update(id string, mutate func(*domain.Test)) (*domain.Test, error) {
	tests, err := s.Load("")
	if err != nil {
		return nil, err
	}

	for i := range tests {
		if tests[i].ID == id {
			mutate(&tests[i])
			if err := s.save(tests); err != nil {
				return nil, err
			}
			return &tests[i], nil
		}
	}
	return nil, errors.NewValidationError(fmt.Sprintf("test %s not found", id), "id", id)
}

// Delete removes a test outright. Ratings keyed by its title become
// orphans; reconciliation handles those separately.
func (s *Service) Delete(id string) error {
	tests, err := s.Load("")
	if err != nil {
		return err
	}

	kept := make([]domain.Test, 0, len(tests))
	removed := false
	for _, t := range tests {
		if t.ID == id {
			removed = true
			continue
		}
		kept = append(kept, t)
	}

	if !removed {
		return errors.NewValidationError(fmt.Sprintf("test %s not found", id), "id", id)
	}

	if err := s.save(kept); err != nil {
		return err
	}
	s.logger.Info("Test deleted", zap.String("id", id))
	return nil
}

// Archive retires a test without deleting it, keeping its ratings valid
// for historical reports.
func (s *Service) Archive(id string) (*domain.Test, error) {
	return s.Update(id, func(t *domain.Test) {
		t.Status = domain.StatusArchived
	})
}

// Duplicate copies a test under a "_copy" id, optionally bumping its
// version, for iterating on a prompt without losing the original.
func (s *Service) Duplicate(id string, newVersion domain.TestVersion) (*domain.Test, error) {
	tests, err := s.Load("")
	if err != nil {
		return nil, err
	}

	for _, t := range tests {
		if t.ID != id {
			continue
		}

		copied := t
		copied.ID = id + "_copy"
		copied.Title = t.Title + " (Copy)"
		if newVersion != "" {
			copied.Version = newVersion
		}
		copied.CreatedDate = s.now().Format("2006-01-02")

		for _, existing := range tests {
			if existing.ID == copied.ID {
				return nil, errors.NewValidationError(
					fmt.Sprintf("test id %s already exists", copied.ID), "id", copied.ID)
			}
		}

		tests = append(tests, copied)
		if err := s.save(tests); err != nil {
			return nil, err
		}
		return &copied, nil
	}
	return nil, errors.NewValidationError(fmt.Sprintf("test %s not found", id), "id", id)
}

// Export returns the full catalog, archived tests included, for backup
// or transfer.
func (s *Service) Export() ([]domain.Test, error) {
	return s.Load("")
}

// ImportResult reports what an import pass did per test id.
type ImportResult struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// Import merges tests into the catalog. Ids derive from titles when
// absent. Existing ids are overwritten when replace is set and skipped
// otherwise, so a round trip through Export is lossless either way.
func (s *Service) Import(incoming []domain.Test, replace bool) (*ImportResult, error) {
	tests, err := s.Load("")
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(tests))
	for i, t := range tests {
		index[t.ID] = i
	}

	result := &ImportResult{}
	for _, t := range incoming {
		if t.ID == "" {
			t.ID = util.Slugify(t.Title)
		}
		if t.ID == "" {
			return nil, errors.NewValidationError("imported test has no id or title", "id", "")
		}
		if t.Status == "" {
			t.Status = domain.StatusCurrent
		}
		if t.CreatedDate == "" {
			t.CreatedDate = s.now().Format("2006-01-02")
		}

		if i, exists := index[t.ID]; exists {
			if !replace {
				result.Skipped++
				continue
			}
			tests[i] = t
			result.Updated++
			continue
		}
		index[t.ID] = len(tests)
		tests = append(tests, t)
		result.Added++
	}

	if err := s.save(tests); err != nil {
		return nil, err
	}

	s.logger.Info("Catalog imported",
		zap.Int("added", result.Added),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

func (s *Service) GetByID(id string) (*domain.Test, error) {
	tests, err := s.Load("")
	if err != nil {
		return nil, err
	}
	for i := range tests {
		if tests[i].ID == id {
			return &tests[i], nil
		}
	}
	return nil, nil
}

func (s *Service) GetByTitle(title string) (*domain.Test, error) {
	tests, err := s.Load("")
	if err != nil {
		return nil, err
	}
	for i := range tests {
		if tests[i].Title == title {
			return &tests[i], nil
		}
	}
	return nil, nil
}

// CurrentTitles returns the titles of all current tests, the canonical
// key set for reconciling rating records.
func (s *Service) CurrentTitles() ([]string, error) {
	tests, err := s.Load(domain.StatusCurrent)
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(tests))
	for _, t := range tests {
		titles = append(titles, t.Title)
	}
	return titles, nil
}

// Validate reports duplicate current titles. Duplicates make rating keys
// ambiguous, so they are surfaced rather than silently tolerated.
func (s *Service) Validate() ([]string, error) {
	tests, err := s.Load(domain.StatusCurrent)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]int)
	for _, t := range tests {
		seen[t.Title]++
	}

	duplicates := []string{}
	for _, t := range tests {
		if seen[t.Title] > 1 {
			seen[t.Title] = 0 // report once
			duplicates = append(duplicates, t.Title)
		}
	}
	return duplicates, nil
}
