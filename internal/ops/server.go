// Package ops serves the ground station's operator endpoints. It never
// flies; the flight side has no HTTP surface.
package ops

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/tinysat/uplink/internal/observability"
)

type Server struct {
	addr   string
	router *gin.Engine
}

func New(addr string, logger zerolog.Logger) *Server {
	observability.Register()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(observability.RequestLogger(logger), gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "groundctl",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &Server{addr: addr, router: router}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Run() error { return s.router.Run(s.addr) }
