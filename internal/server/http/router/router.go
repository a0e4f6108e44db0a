package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"github.com/polkiloo/growthmart/internal/metrics"
	"github.com/polkiloo/growthmart/internal/server/http/handlers"
	"github.com/polkiloo/growthmart/internal/server/http/middleware"
)

const (
	eventsPath  = "/api/orders/events"
	metricsPath = "/metrics"

	maxRequestBody = 1 << 20
)

// Params lists router dependencies.
type Params struct {
	fx.In

	Facade   handlers.FulfillmentFacade
	Logger   *slog.Logger
	Gatherer prometheus.Gatherer `optional:"true"`
	Metrics  *metrics.Recorder   `optional:"true"`
}

// Setup configures gin router with handlers and middleware.
func Setup(p Params) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.RequestLogger(p.Logger))
	if p.Metrics != nil {
		engine.Use(middleware.Metrics(p.Metrics))
	}
	engine.Use(middleware.DecompressRequest(maxRequestBody))
	engine.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{eventsPath, metricsPath})))

	orderHandler := handlers.NewOrderHandler(p.Facade)
	dispatchHandler := handlers.NewDispatchHandler(p.Facade)
	eventsHandler := handlers.NewEventsHandler(p.Facade, 0)
	healthHandler := handlers.NewHealthHandler(p.Facade)

	orders := engine.Group("/api/orders")
	orders.POST("", orderHandler.Create)
	orders.GET("", orderHandler.List)
	orders.POST("/sweep", dispatchHandler.Sweep)
	orders.GET("/events", eventsHandler.Stream)
	orders.GET("/:id", orderHandler.Get)
	orders.POST("/:id/dispatch", dispatchHandler.Dispatch)
	orders.POST("/:id/progress", dispatchHandler.Progress)

	engine.GET("/health", healthHandler.Health)
	if p.Gatherer != nil {
		engine.GET(metricsPath, gin.WrapH(promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{})))
	}

	return engine
}
