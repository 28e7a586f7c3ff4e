package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kapu/profile-lab-go/internal/catalog"
	"github.com/kapu/profile-lab-go/internal/profilestore"
	"github.com/kapu/profile-lab-go/internal/service"
	"github.com/kapu/profile-lab-go/internal/service/cache"
)

// Container holds all dependencies for the router.
type Container struct {
	Catalog   *catalog.Service
	Profiles  *profilestore.Store
	Rater     *service.RaterService
	Finalizer *service.FinalizeService
	Describer *service.DescribeService
	Importer  *service.ImporterService
	Models    *service.ModelManager
	Cache     *cache.CacheService
	Hub       *Hub
	Logger    *zap.Logger
}

// NewRouter creates the API router with all endpoints.
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Any write to ratings or the catalog stales every derived report.
	invalidate := func(req *http.Request) {
		if c.Cache == nil {
			return
		}
		if err := c.Cache.InvalidateReports(req.Context()); err != nil {
			c.Logger.Warn("Report cache invalidation failed", zap.Error(err))
		}
	}

	catalogHandler := NewCatalogHandler(c.Catalog, invalidate, c.Logger)
	profileHandler := NewProfileHandler(c.Profiles, c.Catalog, c.Rater, c.Finalizer, c.Hub, invalidate, c.Logger)
	reportHandler := NewReportHandler(c.Profiles, c.Catalog, c.Importer, c.Cache, c.Logger)
	recommendHandler := NewRecommendHandler(c.Profiles, c.Catalog, c.Describer, c.Importer, c.Hub, c.Logger)
	wsHandler := NewWSHandler(c.Hub, c.Logger)

	r.HandleFunc("/health", healthHandler(c)).Methods("GET")

	v1 := r.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/tests", catalogHandler.List).Methods("GET")
	v1.HandleFunc("/tests", catalogHandler.Create).Methods("POST")
	v1.HandleFunc("/tests/validate", catalogHandler.Validate).Methods("GET")
	v1.HandleFunc("/tests/export", catalogHandler.Export).Methods("GET")
	v1.HandleFunc("/tests/import", catalogHandler.Import).Methods("POST")
	v1.HandleFunc("/tests/{id}", catalogHandler.Get).Methods("GET")
	v1.HandleFunc("/tests/{id}", catalogHandler.Update).Methods("PUT")
	v1.HandleFunc("/tests/{id}", catalogHandler.Delete).Methods("DELETE")
	v1.HandleFunc("/tests/{id}/archive", catalogHandler.Archive).Methods("POST")
	v1.HandleFunc("/tests/{id}/duplicate", catalogHandler.Duplicate).Methods("POST")

	v1.HandleFunc("/profiles", profileHandler.List).Methods("GET")
	v1.HandleFunc("/profiles/{id}", profileHandler.Get).Methods("GET")
	v1.HandleFunc("/profiles/{id}", profileHandler.Delete).Methods("DELETE")
	v1.HandleFunc("/profiles/{id}/summary", profileHandler.Summary).Methods("GET")
	v1.HandleFunc("/profiles/{id}/reconcile", profileHandler.Reconcile).Methods("GET")
	v1.HandleFunc("/profiles/{id}/purge", profileHandler.Purge).Methods("POST")
	v1.HandleFunc("/profiles/{id}/repair", profileHandler.Repair).Methods("POST")
	v1.HandleFunc("/profiles/{id}/rate", profileHandler.Rate).Methods("POST")
	v1.HandleFunc("/profiles/{id}/finalize", profileHandler.Finalize).Methods("POST")

	v1.HandleFunc("/reports/cross-profile", reportHandler.CrossProfile).Methods("GET")
	v1.HandleFunc("/reports/differentiation", reportHandler.Differentiation).Methods("GET")
	v1.HandleFunc("/reports/category", reportHandler.Category).Methods("GET")
	v1.HandleFunc("/reports/diversity", reportHandler.Diversity).Methods("GET")

	v1.HandleFunc("/recommend", recommendHandler.Recommend).Methods("POST")
	v1.HandleFunc("/describe", recommendHandler.Describe).Methods("POST")
	v1.HandleFunc("/import", recommendHandler.Import).Methods("POST")

	v1.HandleFunc("/ws/progress", wsHandler.Progress).Methods("GET")

	return r
}

func healthHandler(c *Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{"status": "ok"}
		if c.Models != nil {
			status["circuit"] = c.Models.GetCircuitStatus()
		}
		if c.Cache != nil {
			status["cache_connected"] = c.Cache.IsConnected(r.Context())
		}
		writeJSON(w, http.StatusOK, status)
	}
}
