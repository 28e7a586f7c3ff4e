package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kapu/profile-lab-go/internal/analysis"
	"github.com/kapu/profile-lab-go/internal/catalog"
	"github.com/kapu/profile-lab-go/internal/profilestore"
	"github.com/kapu/profile-lab-go/internal/service"
)

// ProfileHandler handles profile analysis endpoints.
type ProfileHandler struct {
	profiles   *profilestore.Store
	catalog    *catalog.Service
	rater      *service.RaterService
	finalizer  *service.FinalizeService
	hub        *Hub
	invalidate func(r *http.Request)
	logger     *zap.Logger
}

func NewProfileHandler(
	profiles *profilestore.Store,
	catalogSvc *catalog.Service,
	rater *service.RaterService,
	finalizer *service.FinalizeService,
	hub *Hub,
	invalidate func(r *http.Request),
	logger *zap.Logger,
) *ProfileHandler {
	return &ProfileHandler{
		profiles:   profiles,
		catalog:    catalogSvc,
		rater:      rater,
		finalizer:  finalizer,
		hub:        hub,
		invalidate: invalidate,
		logger:     logger,
	}
}

// List handles GET /v1/profiles
func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	ids, err := h.profiles.List()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"profiles": ids})
}

// Get handles GET /v1/profiles/{id}
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.profiles.Exists(id) {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	record, err := h.profiles.Load(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// Delete handles DELETE /v1/profiles/{id}
func (h *ProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.profiles.Delete(id); err != nil {
		writeServiceError(w, err)
		return
	}
	h.invalidate(r)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Summary handles GET /v1/profiles/{id}/summary
func (h *ProfileHandler) Summary(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.profiles.Exists(id) {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	record, err := h.profiles.Load(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis.Summarize(record))
}

// Reconcile handles GET /v1/profiles/{id}/reconcile
func (h *ProfileHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	record, err := h.profiles.Load(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	titles, err := h.catalog.CurrentTitles()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis.Reconcile(titles, record.Ratings))
}

// Purge handles POST /v1/profiles/{id}/purge
func (h *ProfileHandler) Purge(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	record, err := h.profiles.Load(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	titles, err := h.catalog.CurrentTitles()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	removed := analysis.PurgeOrphans(record, titles)
	if len(removed) > 0 {
		if err := h.profiles.Save(record); err != nil {
			writeServiceError(w, err)
			return
		}
		h.invalidate(r)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"purged": removed})
}

type repairRequest struct {
	UploadOrder []string `json:"upload_order"`
}

// Repair handles POST /v1/profiles/{id}/repair
func (h *ProfileHandler) Repair(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req repairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := h.profiles.Load(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	titles, err := h.catalog.CurrentTitles()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	result := analysis.RepairPositionalKeys(record, req.UploadOrder, titles)
	if len(result.Repaired) > 0 {
		if err := h.profiles.Save(record); err != nil {
			writeServiceError(w, err)
			return
		}
		h.invalidate(r)
	}

	writeJSON(w, http.StatusOK, result)
}

type rateRequest struct {
	Uploads []rateUpload `json:"uploads"`
}

type rateUpload struct {
	TestTitle  string   `json:"test_title"`
	ImagePaths []string `json:"image_paths"`
}

type ratingProgress struct {
	ProfileID  string   `json:"profile_id"`
	Rated      []string `json:"rated"`
	TotalRated int      `json:"total_rated"`
	Remaining  int      `json:"remaining"`
}

// Rate handles POST /v1/profiles/{id}/rate. Uploads are rated in capped
// batches; each batch persists before the next starts, so a mid-run
// failure keeps everything rated so far.
func (h *ProfileHandler) Rate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req rateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Uploads) == 0 {
		writeError(w, http.StatusBadRequest, "no uploads provided")
		return
	}

	uploads := make([]service.UploadedTest, 0, len(req.Uploads))
	for _, u := range req.Uploads {
		test, err := h.catalog.GetByTitle(u.TestTitle)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if test == nil {
			writeError(w, http.StatusBadRequest, "unknown test title: "+u.TestTitle)
			return
		}
		uploads = append(uploads, service.UploadedTest{Test: *test, ImagePaths: u.ImagePaths})
	}

	record, err := h.profiles.Load(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.hub.Broadcast(EventRatingStarted, map[string]interface{}{
		"profile_id": id,
		"uploads":    len(uploads),
	})

	allRated := []string{}
	for {
		batch := h.rater.BuildBatch(uploads, record.Ratings)
		if len(batch) == 0 {
			break
		}

		rated, err := h.rater.RateBatch(r.Context(), id, batch, record)
		if err != nil {
			h.hub.Broadcast(EventRatingFailed, map[string]string{
				"profile_id": id,
				"error":      err.Error(),
			})
			h.logger.Error("Rating batch failed",
				zap.String("profile", id),
				zap.Int("rated_so_far", len(allRated)),
				zap.Error(err),
			)
			writeServiceError(w, err)
			return
		}

		if err := h.profiles.Save(record); err != nil {
			writeServiceError(w, err)
			return
		}
		allRated = append(allRated, rated...)

		// A batch that rates nothing would loop forever on the same tests.
		if len(rated) == 0 {
			h.logger.Warn("Rating batch made no progress, stopping",
				zap.String("profile", id),
				zap.Int("batch_size", len(batch)),
			)
			break
		}

		remaining := 0
		for _, u := range uploads {
			if _, ok := record.Ratings[u.Test.Title]; !ok {
				remaining++
			}
		}
		h.hub.Broadcast(EventBatchComplete, ratingProgress{
			ProfileID:  id,
			Rated:      rated,
			TotalRated: len(allRated),
			Remaining:  remaining,
		})
	}

	h.invalidate(r)
	h.hub.Broadcast(EventRatingComplete, ratingProgress{
		ProfileID:  id,
		TotalRated: len(allRated),
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rated":         allRated,
		"total_ratings": len(record.Ratings),
	})
}

// Finalize handles POST /v1/profiles/{id}/finalize
func (h *ProfileHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	record, err := h.profiles.Load(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	titles, err := h.catalog.CurrentTitles()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.finalizer.Finalize(r.Context(), record, titles); err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.profiles.Save(record); err != nil {
		writeServiceError(w, err)
		return
	}

	h.invalidate(r)
	writeJSON(w, http.StatusOK, record)
}
