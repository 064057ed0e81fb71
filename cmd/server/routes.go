package main

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/httpapi"
)

const (
	corsOriginWildcard      = "*"
	corsHeaderContentType   = "Content-Type"
	corsHeaderAuthorization = "Authorization"
	corsMaxAge              = 12 * time.Hour
)

var (
	corsAllowedMethods = []string{http.MethodGet, http.MethodOptions}
	corsAllowedHeaders = []string{corsHeaderAuthorization, corsHeaderContentType}
	corsExposedHeaders = []string{corsHeaderContentType}
)

func registerRoutes(router *gin.Engine, dashboardHandlers *httpapi.DashboardPageHandlers, renderPassHandlers *httpapi.RenderPassHandlers) {
	router.GET(httpapi.DashboardPagePath, dashboardHandlers.RenderDashboardPage)
	router.POST(httpapi.DashboardPagePath, dashboardHandlers.TriggerDashboardAnalysis)
	router.GET(httpapi.HealthPath, httpapi.Health)

	apiGroup := router.Group("/api")
	apiGroup.Use(cors.New(cors.Config{
		AllowOrigins:     []string{corsOriginWildcard},
		AllowMethods:     corsAllowedMethods,
		AllowHeaders:     corsAllowedHeaders,
		ExposeHeaders:    corsExposedHeaders,
		AllowCredentials: false,
		MaxAge:           corsMaxAge,
	}))
	apiGroup.GET("/dashboard", dashboardHandlers.DashboardJSON)
	apiGroup.GET("/passes", renderPassHandlers.ListRenderPasses)
	apiGroup.OPTIONS("/*path", func(context *gin.Context) {
		context.Status(http.StatusNoContent)
	})
}
