package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/kapu/profile-lab-go/internal/catalog"
	"github.com/kapu/profile-lab-go/internal/domain"
	"github.com/kapu/profile-lab-go/internal/profilestore"
	"github.com/kapu/profile-lab-go/internal/service"
	"github.com/kapu/profile-lab-go/internal/storage"
)

type testEnv struct {
	router   http.Handler
	catalog  *catalog.Service
	profiles *profilestore.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	store := storage.NewJSONStore(t.TempDir(), logger)
	catalogSvc := catalog.NewService(store, "test_prompts.json", logger)
	profiles := profilestore.NewStore(store, "profiles", logger)
	importer := service.NewImporterService(store, "prompt_metadata.json", logger)

	router := NewRouter(&Container{
		Catalog:  catalogSvc,
		Profiles: profiles,
		Importer: importer,
		Hub:      NewHub(logger),
		Logger:   logger,
	})
	return &testEnv{router: router, catalog: catalogSvc, profiles: profiles}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestCatalogCRUDOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/v1/tests", map[string]string{
		"title":   "Foggy Pier",
		"prompt":  "a foggy pier at dawn",
		"section": "PHOTO",
		"version": "v2",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d, body %s", rec.Code, rec.Body.String())
	}

	var created domain.Test
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created test: %v", err)
	}
	if created.ID != "Foggy_Pier" || created.Status != domain.StatusCurrent {
		t.Fatalf("unexpected created test: %+v", created)
	}

	// Duplicate title collides on id.
	rec = env.do(t, "POST", "/v1/tests", map[string]string{
		"title":   "Foggy Pier",
		"prompt":  "another",
		"section": "PHOTO",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate create: status %d", rec.Code)
	}

	rec = env.do(t, "GET", "/v1/tests", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d", rec.Code)
	}
	var listed []domain.Test
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 test, got %d", len(listed))
	}

	rec = env.do(t, "PUT", "/v1/tests/Foggy_Pier", map[string]string{
		"prompt": "a foggy pier at dawn, muted tones",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, "POST", "/v1/tests/Foggy_Pier/archive", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("archive: status %d", rec.Code)
	}

	rec = env.do(t, "GET", "/v1/tests?status=current", nil)
	listed = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode filtered list: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("archived test still listed as current: %+v", listed)
	}

	rec = env.do(t, "GET", "/v1/tests/unknown_id", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing test: status %d", rec.Code)
	}
}

func TestProfileReconcileAndPurgeOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.catalog.Add("Foggy Pier", "a foggy pier", domain.SectionPhoto, "", domain.VersionV2); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}

	record := domain.NewProfileAnalysis("niji_6")
	record.SetRating("Foggy Pier", domain.Rating{Affinity: domain.AffinityNative, Score: 9})
	record.SetRating("Removed Test", domain.Rating{Affinity: domain.AffinityWorkable, Score: 5})
	if err := env.profiles.Save(record); err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	rec := env.do(t, "GET", "/v1/profiles/niji_6/reconcile", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reconcile: status %d", rec.Code)
	}
	var result struct {
		Valid    []string `json:"valid"`
		Orphaned []string `json:"orphaned"`
		Missing  []string `json:"missing"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode reconcile: %v", err)
	}
	if len(result.Valid) != 1 || len(result.Orphaned) != 1 || len(result.Missing) != 0 {
		t.Fatalf("unexpected reconcile result: %+v", result)
	}

	rec = env.do(t, "POST", "/v1/profiles/niji_6/purge", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("purge: status %d", rec.Code)
	}
	var purged struct {
		Purged []string `json:"purged"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &purged); err != nil {
		t.Fatalf("decode purge: %v", err)
	}
	if len(purged.Purged) != 1 || purged.Purged[0] != "Removed Test" {
		t.Fatalf("unexpected purge result: %+v", purged)
	}

	reloaded, err := env.profiles.Load("niji_6")
	if err != nil {
		t.Fatalf("reload profile: %v", err)
	}
	if len(reloaded.Ratings) != 1 {
		t.Fatalf("orphan not purged from disk: %v", reloaded.Ratings)
	}

	rec = env.do(t, "GET", "/v1/profiles/unknown/summary", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown profile summary: status %d", rec.Code)
	}
}

func TestRecommendOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.catalog.Add("Foggy Pier", "a foggy pier at dawn with muted tones", domain.SectionPhoto, "", domain.VersionV2); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}

	record := domain.NewProfileAnalysis("niji_6")
	record.SetRating("Foggy Pier", domain.Rating{Affinity: domain.AffinityNative, Score: 9, Confidence: 0.9})
	if err := env.profiles.Save(record); err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	rec := env.do(t, "POST", "/v1/recommend", map[string]string{
		"query": "foggy pier at dawn muted tones",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("recommend: status %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Recommendations []struct {
			ProfileID string  `json:"profile_id"`
			Score     float64 `json:"score"`
		} `json:"recommendations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode recommend: %v", err)
	}
	if len(resp.Recommendations) == 0 {
		t.Fatalf("expected at least one recommendation: %s", rec.Body.String())
	}
	if resp.Recommendations[0].ProfileID != "niji_6" {
		t.Fatalf("unexpected top profile: %+v", resp.Recommendations[0])
	}

	rec = env.do(t, "POST", "/v1/recommend", map[string]string{"query": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("blank query: status %d", rec.Code)
	}
}

func TestCrossProfileReportOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	for _, id := range []string{"niji_6", "testp_photo"} {
		record := domain.NewProfileAnalysis(id)
		record.SetRating("Foggy Pier", domain.Rating{Affinity: domain.AffinityNative, Score: 8})
		if err := env.profiles.Save(record); err != nil {
			t.Fatalf("seed profile %s: %v", id, err)
		}
	}

	rec := env.do(t, "GET", "/v1/reports/cross-profile", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cross-profile: status %d, body %s", rec.Code, rec.Body.String())
	}
	var report struct {
		TotalRatings int `json:"total_ratings"`
		MostNative   []struct {
			Title string `json:"title"`
		} `json:"most_native"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.TotalRatings != 2 {
		t.Fatalf("total_ratings = %d, want 2", report.TotalRatings)
	}
	if len(report.MostNative) != 1 || report.MostNative[0].Title != "Foggy Pier" {
		t.Fatalf("unexpected most_native ranking: %+v", report.MostNative)
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "GET", "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health: status %d", rec.Code)
	}
	var status map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if status["status"] != "ok" {
		t.Fatalf("unexpected health payload: %v", status)
	}
}
