package server

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kapu/profile-lab-go/internal/analysis"
	"github.com/kapu/profile-lab-go/internal/catalog"
	"github.com/kapu/profile-lab-go/internal/domain"
	"github.com/kapu/profile-lab-go/internal/profilestore"
	"github.com/kapu/profile-lab-go/internal/service"
)

// RecommendHandler answers "which profile should render this prompt"
// queries, for raw prompts and for uploaded reference images.
type RecommendHandler struct {
	profiles  *profilestore.Store
	catalog   *catalog.Service
	describer *service.DescribeService
	importer  *service.ImporterService
	hub       *Hub
	logger    *zap.Logger
}

func NewRecommendHandler(
	profiles *profilestore.Store,
	catalogSvc *catalog.Service,
	describer *service.DescribeService,
	importer *service.ImporterService,
	hub *Hub,
	logger *zap.Logger,
) *RecommendHandler {
	return &RecommendHandler{
		profiles:  profiles,
		catalog:   catalogSvc,
		describer: describer,
		importer:  importer,
		hub:       hub,
		logger:    logger,
	}
}

type recommendRequest struct {
	Query string `json:"query"`
	// Mode "prompt" (default) uses absolute word overlap; "description"
	// uses normalized overlap tuned for long generated descriptions.
	Mode string `json:"mode,omitempty"`
}

// Recommend handles POST /v1/recommend
func (h *RecommendHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	mode := analysis.OverlapAbsolute
	switch req.Mode {
	case "", "prompt":
	case "description":
		mode = analysis.OverlapNormalized
	default:
		writeError(w, http.StatusBadRequest, "unknown mode: "+req.Mode)
		return
	}

	recommendations, err := h.recommend(req.Query, mode)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"query":           req.Query,
		"palettes":        analysis.DetectPalettes(req.Query),
		"recommendations": recommendations,
	})
}

type describeRequest struct {
	ImageB64 string `json:"image_b64"`
	MIME     string `json:"mime,omitempty"`
}

// Describe handles POST /v1/describe. The image is described by the
// vision model, a prompt is extracted from the description, and profiles
// are ranked against it with normalized overlap.
func (h *RecommendHandler) Describe(w http.ResponseWriter, r *http.Request) {
	var req describeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ImageB64 == "" {
		writeError(w, http.StatusBadRequest, "image_b64 is required")
		return
	}

	imageData, err := base64.StdEncoding.DecodeString(req.ImageB64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "image_b64 is not valid base64")
		return
	}

	description, err := h.describer.Describe(r.Context(), imageData, req.MIME)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	query := description.GeneratedPrompt
	if query == "" {
		query = description.AnalysisText
	}

	recommendations, err := h.recommend(query, analysis.OverlapNormalized)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"analysis":         description.AnalysisText,
		"generated_prompt": description.GeneratedPrompt,
		"palettes":         analysis.DetectPalettes(query),
		"recommendations":  recommendations,
	})
}

func (h *RecommendHandler) recommend(query string, mode analysis.OverlapMode) ([]analysis.Recommendation, error) {
	tests, err := h.catalog.Load(domain.StatusCurrent)
	if err != nil {
		return nil, err
	}
	profiles, err := h.profiles.LoadAll()
	if err != nil {
		return nil, err
	}
	return analysis.Recommend(query, tests, profiles, mode), nil
}

type importRequest struct {
	URL string `json:"url"`
}

// Import handles POST /v1/import. A JSON body imports from a gallery
// URL; a text/html body imports the markup directly.
func (h *RecommendHandler) Import(w http.ResponseWriter, r *http.Request) {
	var added int
	var err error

	if strings.HasPrefix(r.Header.Get("Content-Type"), "text/html") {
		added, err = h.importer.ImportFromHTML(r.Body)
	} else {
		var req importRequest
		if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil || req.URL == "" {
			writeError(w, http.StatusBadRequest, "url is required")
			return
		}
		added, err = h.importer.ImportFromURL(r.Context(), req.URL)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.hub.Broadcast(EventImportComplete, map[string]int{"added": added})
	writeJSON(w, http.StatusOK, map[string]int{"added": added})
}
