package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kapu/profile-lab-go/internal/catalog"
	"github.com/kapu/profile-lab-go/internal/domain"
)

// CatalogHandler handles test catalog endpoints.
type CatalogHandler struct {
	catalog    *catalog.Service
	invalidate func(r *http.Request)
	logger     *zap.Logger
}

func NewCatalogHandler(catalogSvc *catalog.Service, invalidate func(r *http.Request), logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalogSvc, invalidate: invalidate, logger: logger}
}

// List handles GET /v1/tests?status=current
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	status := domain.TestStatus(r.URL.Query().Get("status"))
	tests, err := h.catalog.Load(status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tests)
}

// Get handles GET /v1/tests/{id}
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	test, err := h.catalog.GetByID(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if test == nil {
		writeError(w, http.StatusNotFound, "test not found")
		return
	}
	writeJSON(w, http.StatusOK, test)
}

type createTestRequest struct {
	Title   string             `json:"title"`
	Prompt  string             `json:"prompt"`
	Section domain.Section     `json:"section"`
	Params  string             `json:"params"`
	Version domain.TestVersion `json:"version"`
}

// Create handles POST /v1/tests
func (h *CatalogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	test, err := h.catalog.Add(req.Title, req.Prompt, req.Section, req.Params, req.Version)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.invalidate(r)
	writeJSON(w, http.StatusCreated, test)
}

type updateTestRequest struct {
	Prompt  *string             `json:"prompt,omitempty"`
	Section *domain.Section     `json:"section,omitempty"`
	Params  *string             `json:"params,omitempty"`
	Version *domain.TestVersion `json:"version,omitempty"`
	Status  *domain.TestStatus  `json:"status,omitempty"`
}

// Update handles PUT /v1/tests/{id}. Title is immutable; renames would
// orphan every rating keyed by the old title.
func (h *CatalogHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req updateTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	test, err := h.catalog.Update(id, func(t *domain.Test) {
		if req.Prompt != nil {
			t.Prompt = *req.Prompt
		}
		if req.Section != nil {
			t.Section = *req.Section
		}
		if req.Params != nil {
			t.Params = *req.Params
		}
		if req.Version != nil {
			t.Version = *req.Version
		}
		if req.Status != nil {
			t.Status = *req.Status
		}
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.invalidate(r)
	writeJSON(w, http.StatusOK, test)
}

// Delete handles DELETE /v1/tests/{id}
func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.catalog.Delete(id); err != nil {
		writeServiceError(w, err)
		return
	}
	h.invalidate(r)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Archive handles POST /v1/tests/{id}/archive
func (h *CatalogHandler) Archive(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	test, err := h.catalog.Archive(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.invalidate(r)
	writeJSON(w, http.StatusOK, test)
}

type duplicateTestRequest struct {
	Version domain.TestVersion `json:"version,omitempty"`
}

// Duplicate handles POST /v1/tests/{id}/duplicate
func (h *CatalogHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req duplicateTestRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	test, err := h.catalog.Duplicate(id, req.Version)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.invalidate(r)
	writeJSON(w, http.StatusCreated, test)
}

// Export handles GET /v1/tests/export
func (h *CatalogHandler) Export(w http.ResponseWriter, r *http.Request) {
	tests, err := h.catalog.Export()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tests)
}

// Import handles POST /v1/tests/import?replace=true
func (h *CatalogHandler) Import(w http.ResponseWriter, r *http.Request) {
	var incoming []domain.Test
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	replace := r.URL.Query().Get("replace") == "true"
	result, err := h.catalog.Import(incoming, replace)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.invalidate(r)
	writeJSON(w, http.StatusOK, result)
}

// Validate handles GET /v1/tests/validate
func (h *CatalogHandler) Validate(w http.ResponseWriter, r *http.Request) {
	duplicates, err := h.catalog.Validate()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid":            len(duplicates) == 0,
		"duplicate_titles": duplicates,
	})
}
