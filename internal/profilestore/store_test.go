package profilestore

import (
	"testing"

	"go.uber.org/zap"

	"github.com/kapu/profile-lab-go/internal/domain"
	"github.com/kapu/profile-lab-go/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	js := storage.NewJSONStore(t.TempDir(), zap.NewNop())
	return NewStore(js, "profiles", zap.NewNop())
}

func TestLoadUnknownProfileIsEmpty(t *testing.T) {
	store := newTestStore(t)

	analysis, err := store.Load("fresh")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis.ProfileID != "fresh" {
		t.Fatalf("unexpected id: %s", analysis.ProfileID)
	}
	if len(analysis.Ratings) != 0 {
		t.Fatalf("fresh profile must start empty, got %v", analysis.Ratings)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)

	analysis := domain.NewProfileAnalysis("moody")
	analysis.ProfileLabel = "Moody Urban Explorer"
	analysis.SetRating("Foggy Pier", domain.Rating{
		Affinity:   domain.AffinityNative,
		Score:      9,
		Confidence: 0.85,
	})

	if err := store.Save(analysis); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := store.Load("moody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.ProfileLabel != "Moody Urban Explorer" {
		t.Fatalf("label lost: %+v", loaded)
	}
	if loaded.Ratings["Foggy Pier"].Score != 9 {
		t.Fatalf("rating lost: %+v", loaded.Ratings)
	}
	if len(loaded.AffinitySummary.NativeFit) != 1 {
		t.Fatalf("summary lost: %+v", loaded.AffinitySummary)
	}
}

func TestSaveRequiresProfileID(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save(&domain.ProfileAnalysis{}); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestListAndLoadAll(t *testing.T) {
	store := newTestStore(t)

	for _, id := range []string{"beta", "alpha", "gamma"} {
		analysis := domain.NewProfileAnalysis(id)
		analysis.SetRating("Test", domain.Rating{Affinity: domain.AffinityWorkable, Score: 5})
		if err := store.Save(analysis); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	ids, err := store.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 3 || ids[0] != "alpha" || ids[2] != "gamma" {
		t.Fatalf("unexpected id list: %v", ids)
	}

	profiles, err := store.LoadAll()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(profiles) != 3 {
		t.Fatalf("expected 3 profiles, got %d", len(profiles))
	}
	if profiles["beta"].Ratings["Test"].Score != 5 {
		t.Fatalf("profile content lost: %+v", profiles["beta"])
	}
}

func TestDeleteRemovesRecord(t *testing.T) {
	store := newTestStore(t)

	analysis := domain.NewProfileAnalysis("doomed")
	if err := store.Save(analysis); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !store.Exists("doomed") {
		t.Fatalf("record missing after save")
	}

	if err := store.Delete("doomed"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.Exists("doomed") {
		t.Fatalf("record present after delete")
	}

	// Deleting an absent record is not an error.
	if err := store.Delete("doomed"); err != nil {
		t.Fatalf("second delete errored: %v", err)
	}
}
