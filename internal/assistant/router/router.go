// Package router wires the assistant HTTP routes.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kart-io/askdocs/internal/assistant/handler"
	"github.com/kart-io/askdocs/internal/assistant/metrics"
	"github.com/kart-io/askdocs/pkg/log"
)

// Register registers the assistant routes on the engine.
func Register(engine *gin.Engine, h *handler.AssistantHandler, m *metrics.Metrics) {
	log.Info("registering assistant routes")

	v1 := engine.Group("/v1")
	{
		v1.POST("/query", h.Query)
		v1.POST("/qa", h.Answer)
		v1.POST("/summarize", h.Summarize)
		v1.POST("/ingest", h.Ingest)
		v1.GET("/stats", h.Stats)
	}

	engine.GET("/healthz", h.Healthz)
	if m != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})))
	}
}
