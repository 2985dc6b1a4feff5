// Package httpserver exposes the addon-compatible REST surface over gin.
package httpserver

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/and161185/botscripts/internal/service"
)

// Options tunes the router.
type Options struct {
	RatePerMinute int // per client IP on /scripts; 0 disables
	Burst         int
}

// NewRouter builds the gin engine with every route and middleware installed.
func NewRouter(tokens service.TokenService, scripts service.ScriptService, log *zap.Logger, opts Options) *gin.Engine {
	h := &Handler{tokens: tokens, scripts: scripts}

	r := gin.New()
	r.Use(RequestID(), Logging(log), Recovery(log))

	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	g := r.Group("/scripts")
	g.Use(RateLimit(opts.RatePerMinute, opts.Burst))
	g.GET("/:param", h.Get)
	g.POST("", h.Sync)
	g.POST("/delete", h.Delete)

	return r
}
