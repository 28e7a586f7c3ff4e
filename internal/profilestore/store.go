package profilestore

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/kapu/profile-lab-go/internal/domain"
	"github.com/kapu/profile-lab-go/internal/storage"
	"github.com/kapu/profile-lab-go/pkg/errors"
)

const analysisSuffix = "_analysis.json"

// Store persists one ProfileAnalysis per profile as
// <profiles>/<id>_analysis.json. Records are written wholesale.
type Store struct {
	store       *storage.JSONStore
	profilesDir string
	logger      *zap.Logger
	concurrency int
}

func NewStore(store *storage.JSONStore, profilesDir string, logger *zap.Logger) *Store {
	return &Store{
		store:       store,
		profilesDir: profilesDir,
		logger:      logger,
		concurrency: 8,
	}
}

func (s *Store) path(profileID string) string {
	return filepath.Join(s.profilesDir, profileID+analysisSuffix)
}

// Load returns the stored analysis, or a fresh empty record when the
// profile has never been rated.
func (s *Store) Load(profileID string) (*domain.ProfileAnalysis, error) {
	analysis := domain.NewProfileAnalysis(profileID)
	if err := s.store.Read(s.path(profileID), analysis); err != nil {
		return nil, err
	}
	if analysis.Ratings == nil {
		analysis.Ratings = make(map[string]domain.Rating)
	}
	if analysis.ProfileID == "" {
		analysis.ProfileID = profileID
	}
	return analysis, nil
}

func (s *Store) Save(analysis *domain.ProfileAnalysis) error {
	if analysis.ProfileID == "" {
		return errors.NewValidationError("profile id is required", "profile_id", "")
	}
	return s.store.Write(s.path(analysis.ProfileID), analysis)
}

func (s *Store) Delete(profileID string) error {
	return s.store.Delete(s.path(profileID))
}

func (s *Store) Exists(profileID string) bool {
	return s.store.Exists(s.path(profileID))
}

// List returns the ids of all stored profiles, sorted.
func (s *Store) List() ([]string, error) {
	files, err := s.store.List(s.profilesDir, "*"+analysisSuffix)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(files))
	for _, f := range files {
		base := filepath.Base(f)
		ids = append(ids, strings.TrimSuffix(base, analysisSuffix))
	}
	sort.Strings(ids)
	return ids, nil
}

// LoadAll reads every stored profile concurrently. A single unreadable
// record fails the whole load; cross-profile reports over a partial set
// would be silently wrong.
func (s *Store) LoadAll() (map[string]*domain.ProfileAnalysis, error) {
	ids, err := s.List()
	if err != nil {
		return nil, err
	}

	p := pool.New().WithMaxGoroutines(s.concurrency)

	profiles := make(map[string]*domain.ProfileAnalysis, len(ids))
	var mu sync.Mutex
	var firstErr error

	for _, id := range ids {
		id := id
		p.Go(func() {
			analysis, err := s.Load(id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("load profile %s: %w", id, err)
				}
				return
			}
			profiles[id] = analysis
		})
	}

	p.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	s.logger.Debug("Profiles loaded", zap.Int("count", len(profiles)))
	return profiles, nil
}
