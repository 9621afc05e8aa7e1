package server

import (
	"github.com/gin-gonic/gin"

	"github.com/katastar/katastar/internal/config"
	"github.com/katastar/katastar/internal/logger"
	"github.com/katastar/katastar/internal/middleware"
)

// NewRouter assembles the gin engine with the full middleware chain and all
// registry routes.
func NewRouter(cfg *config.Config, log *logger.Logger, store *FixtureStore) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.CORS.Origins))

	h := NewHandler(store)

	router.GET("/", h.Root)
	router.GET("/health", h.Health)
	router.GET("/search-cad-parcels/offices", h.ListOffices)
	router.GET("/search-cad-parcels/municipalities", h.SearchMunicipalities)
	router.GET("/search-cad-parcels/parcel-numbers", h.SearchParcelNumbers)
	router.GET("/cad/parcel-info", h.GetParcelInfo)
	router.GET("/lr/lr-unit", h.GetLRUnit)

	return router
}
