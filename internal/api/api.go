package api

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/restock-advisor/internal/api/handlers"
	"github.com/andresuchdata/restock-advisor/internal/api/middleware"
	"github.com/andresuchdata/restock-advisor/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

//go:embed web/templates/*.html web/static/*
var webFS embed.FS

type Services struct {
	Catalog    *service.CatalogService
	Prediction *service.PredictionService
	Artifacts  handlers.ArtifactSource
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	// Item names may contain slashes; match routes on the escaped path.
	router.UseRawPath = true
	router.UnescapePathValues = true

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:8080", "http://127.0.0.1:8080"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			// Any origin may call the API, but never with credentials.
			corsConfig.AllowOrigins = nil
			corsConfig.AllowAllOrigins = true
			corsConfig.AllowCredentials = false
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.SetHTMLTemplate(template.Must(template.ParseFS(webFS, "web/templates/*.html")))
	static, err := fs.Sub(webFS, "web/static")
	if err != nil {
		panic(err)
	}
	router.StaticFS("/static", http.FS(static))

	health := handlers.NewHealthHandler(nil)
	if services != nil && services.Artifacts != nil {
		health = handlers.NewHealthHandler(services.Artifacts)
	}
	router.GET("/health", health.Health)
	if services != nil {
		if reloader, ok := services.Artifacts.(handlers.ArtifactReloader); ok {
			router.POST("/admin/artifacts/reload", handlers.NewReloadHandler(reloader).Reload)
		}
	}

	if services == nil || services.Catalog == nil {
		return router
	}

	catalogHandler := handlers.NewCatalogHandler(services.Catalog)
	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/items/:facility_id", catalogHandler.GetItems)
		apiGroup.GET("/item-details/:facility_id/:item_name", catalogHandler.GetItemDetails)
	}

	if services.Prediction != nil {
		dashboard := handlers.NewDashboardHandler(services.Catalog, services.Prediction)
		router.GET("/", dashboard.Index)
		router.POST("/predict", dashboard.Predict)
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
