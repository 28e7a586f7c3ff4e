package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/profile-lab-go/internal/analysis"
	"github.com/kapu/profile-lab-go/internal/catalog"
	"github.com/kapu/profile-lab-go/internal/constants"
	"github.com/kapu/profile-lab-go/internal/domain"
	"github.com/kapu/profile-lab-go/internal/profilestore"
	"github.com/kapu/profile-lab-go/internal/service"
	"github.com/kapu/profile-lab-go/internal/service/cache"
)

// ReportHandler serves derived reports. Every report recomputes from the
// full profile set, so results go through Redis when it is available.
type ReportHandler struct {
	profiles *profilestore.Store
	catalog  *catalog.Service
	importer *service.ImporterService
	cache    *cache.CacheService
	logger   *zap.Logger
}

func NewReportHandler(
	profiles *profilestore.Store,
	catalogSvc *catalog.Service,
	importer *service.ImporterService,
	cacheSvc *cache.CacheService,
	logger *zap.Logger,
) *ReportHandler {
	return &ReportHandler{
		profiles: profiles,
		catalog:  catalogSvc,
		importer: importer,
		cache:    cacheSvc,
		logger:   logger,
	}
}

// serveCached answers from the report cache when possible.
func (h *ReportHandler) serveCached(w http.ResponseWriter, r *http.Request, key string) bool {
	if h.cache == nil {
		return false
	}
	var cached json.RawMessage
	hit, err := h.cache.Get(r.Context(), key, &cached)
	if err != nil || !hit {
		return false
	}
	writeJSON(w, http.StatusOK, cached)
	return true
}

func (h *ReportHandler) storeCached(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Set(ctx, key, value, ttl); err != nil {
		h.logger.Warn("Report cache store failed", zap.String("key", key), zap.Error(err))
	}
}

// CrossProfile handles GET /v1/reports/cross-profile
func (h *ReportHandler) CrossProfile(w http.ResponseWriter, r *http.Request) {
	key := cache.ReportKey("cross_profile")
	if h.serveCached(w, r, key) {
		return
	}

	profiles, err := h.profiles.LoadAll()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	report := analysis.CrossProfile(profiles)
	h.storeCached(r.Context(), key, report, constants.CacheTTL.CrossProfileReport)
	writeJSON(w, http.StatusOK, report)
}

type differentiationReport struct {
	Ranked  []analysis.TestValue  `json:"ranked"`
	Buckets analysis.ValueBuckets `json:"buckets"`
}

// Differentiation handles GET /v1/reports/differentiation
func (h *ReportHandler) Differentiation(w http.ResponseWriter, r *http.Request) {
	key := cache.ReportKey("differentiation")
	if h.serveCached(w, r, key) {
		return
	}

	profiles, err := h.profiles.LoadAll()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	stats := analysis.CountAffinitiesByTest(profiles)
	ranked := analysis.RankByDifferentiation(stats)
	buckets, err := analysis.ClassifyByValue(ranked,
		constants.DifferentiationConfig.LowThreshold,
		constants.DifferentiationConfig.HighThreshold,
	)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	report := differentiationReport{Ranked: ranked, Buckets: buckets}
	h.storeCached(r.Context(), key, report, constants.CacheTTL.CrossProfileReport)
	writeJSON(w, http.StatusOK, report)
}

// Category handles GET /v1/reports/category
func (h *ReportHandler) Category(w http.ResponseWriter, r *http.Request) {
	key := cache.ReportKey("category")
	if h.serveCached(w, r, key) {
		return
	}

	tests, err := h.catalog.Load(domain.StatusCurrent)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	profiles, err := h.profiles.LoadAll()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	report := analysis.CategoryBreakdown(tests, analysis.CountAffinitiesByTest(profiles))
	h.storeCached(r.Context(), key, report, constants.CacheTTL.CrossProfileReport)
	writeJSON(w, http.StatusOK, report)
}

type diversityReport struct {
	Source    string                    `json:"source"`
	All       analysis.DiversityMetrics `json:"all"`
	Photo     analysis.DiversityMetrics `json:"photo"`
	Art       analysis.DiversityMetrics `json:"art"`
	Patterns  analysis.Patterns         `json:"patterns"`
	Split     analysis.SplitSuggestion  `json:"split"`
	Rebalance bool                      `json:"rebalance"`
}

// Diversity handles GET /v1/reports/diversity?source=catalog|imported.
// The catalog source splits prompts by section; the imported source runs
// over the gallery corpus, which carries no section labels.
func (h *ReportHandler) Diversity(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "" {
		source = "catalog"
	}

	key := cache.ReportKey("diversity", source)
	if h.serveCached(w, r, key) {
		return
	}

	var all, photo, art []string
	switch source {
	case "catalog":
		tests, err := h.catalog.Load(domain.StatusCurrent)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		for _, t := range tests {
			if t.Prompt == "" {
				continue
			}
			all = append(all, t.Prompt)
			switch t.Category() {
			case string(domain.SectionPhoto):
				photo = append(photo, t.Prompt)
			case string(domain.SectionArt):
				art = append(art, t.Prompt)
			}
		}
	case "imported":
		prompts, err := h.importer.Prompts()
		if err != nil {
			writeServiceError(w, err)
			return
		}
		all = prompts
	default:
		writeError(w, http.StatusBadRequest, "unknown diversity source: "+source)
		return
	}

	photoMetrics := analysis.AnalyzeDiversity(photo)
	artMetrics := analysis.AnalyzeDiversity(art)

	report := diversityReport{
		Source:   source,
		All:      analysis.AnalyzeDiversity(all),
		Photo:    photoMetrics,
		Art:      artMetrics,
		Patterns: analysis.CommonPatterns(all, constants.DiversityConfig.TopPatterns),
		Split: analysis.SuggestSplit(photoMetrics, artMetrics,
			constants.DiversityConfig.TotalTests,
			constants.DiversityConfig.MinPerGroup,
			constants.DiversityConfig.MaxPerGroup,
		),
		Rebalance: analysis.ShouldRebalance(
			photoMetrics.KeywordDiversity,
			artMetrics.KeywordDiversity,
			constants.DiversityConfig.RebalanceRatio,
			constants.DiversityConfig.RebalanceFloor,
		),
	}

	h.storeCached(r.Context(), key, report, constants.CacheTTL.DiversityReport)
	writeJSON(w, http.StatusOK, report)
}
