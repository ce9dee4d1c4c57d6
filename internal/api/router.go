package api

import (
	"net/http"

	"github.com/OPGLOL/opgl-raid-tracker/internal/middleware"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig holds all dependencies for router setup. Optional parts are nil
// when their backing configuration is absent.
type RouterConfig struct {
	Handler        *Handler
	AdminHandler   *AdminHandler
	KeyLimiter     middleware.KeyLimiter
	Throttle       middleware.ClientLimiter
	TokenValidator middleware.TokenValidator
}

// SetupRouter configures all routes of the raid tracker
func SetupRouter(config *RouterConfig) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.LoggingMiddleware)

	// Operational endpoints - no auth, no throttling
	router.HandleFunc("/health", config.Handler.HealthCheck).Methods(http.MethodPost)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Mod ingestion: token bucket always, ingest keys when a database is configured
	modRouter := router.PathPrefix("/api/mod").Subrouter()
	if config.Throttle != nil {
		modRouter.Use(middleware.ThrottleMiddleware(config.Throttle))
	}
	if config.KeyLimiter != nil {
		modRouter.Use(middleware.IngestKeyMiddleware(config.KeyLimiter))
	}
	modRouter.HandleFunc("/connect", config.Handler.ModConnect).Methods(http.MethodPost)
	modRouter.HandleFunc("/raid/start", config.Handler.RaidStart).Methods(http.MethodPost)
	modRouter.HandleFunc("/raid/end", config.Handler.RaidEnd).Methods(http.MethodPost)

	// Read endpoints
	router.HandleFunc("/api/raids", config.Handler.ListRaids).Methods(http.MethodGet)
	router.HandleFunc("/api/raids/detail", config.Handler.GetRaidDetail).Methods(http.MethodGet)
	router.HandleFunc("/api/players", config.Handler.ListPlayers).Methods(http.MethodGet)
	router.HandleFunc("/api/players/{nickname}", config.Handler.GetPlayer).Methods(http.MethodGet)

	// Admin endpoints
	if config.AdminHandler != nil && config.TokenValidator != nil {
		router.HandleFunc("/api/admin/login", config.AdminHandler.Login).Methods(http.MethodPost)

		adminRouter := router.PathPrefix("/api/admin").Subrouter()
		adminRouter.Use(middleware.AdminAuthMiddleware(config.TokenValidator))
		adminRouter.HandleFunc("/cache/invalidate", config.AdminHandler.InvalidateCache).Methods(http.MethodPost)

		if config.AdminHandler.HasIngestKeys() {
			adminRouter.HandleFunc("/apikeys", config.AdminHandler.CreateIngestKey).Methods(http.MethodPost)
			adminRouter.HandleFunc("/apikeys/list", config.AdminHandler.ListIngestKeys).Methods(http.MethodPost)
			adminRouter.HandleFunc("/apikeys/{id}", config.AdminHandler.RevokeIngestKey).Methods(http.MethodDelete)
		}
	}

	return router
}
