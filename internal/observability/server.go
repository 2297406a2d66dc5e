package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// StatusItem is one ledger entry projected for the status endpoint.
type StatusItem struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// StatusSnapshot is a read-only projection of one deployment run in flight.
type StatusSnapshot struct {
	RunID     string       `json:"run_id"`
	Phase     string       `json:"phase"`
	Workspace string       `json:"workspace"`
	Total     int          `json:"total"`
	Success   int          `json:"success"`
	Failed    int          `json:"failed"`
	Skipped   int          `json:"skipped"`
	Items     []StatusItem `json:"items"`
}

// SnapshotFunc supplies the current run projection; it must be safe to call
// from the server goroutine while the run mutates the ledger.
type SnapshotFunc func() StatusSnapshot

// StatusServer exposes run progress and metrics while a deployment executes.
type StatusServer struct {
	addr     string
	snapshot SnapshotFunc
	log      zerolog.Logger
	srv      *http.Server
	started  time.Time
}

func NewStatusServer(addr string, snapshot SnapshotFunc, logger zerolog.Logger) *StatusServer {
	return &StatusServer{addr: addr, snapshot: snapshot, log: logger}
}

func (s *StatusServer) handler() http.Handler {
	RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(s.log))
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s.started = time.Now()
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"uptime":    time.Since(s.started).String(),
			"component": "fabricctl",
		})
	})
	r.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.snapshot())
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

// Start serves /healthz, /status, and /metrics in a background goroutine
// until Stop is called. Listen failures surface in the log only; the
// deployment does not depend on the status server.
func (s *StatusServer) Start() {
	s.srv = &http.Server{Addr: s.addr, Handler: s.handler()}
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Warn().Err(err).Str("addr", s.addr).Msg("status server stopped")
		}
	}()
	s.log.Info().Str("addr", s.addr).Msg("status server listening")
}

func (s *StatusServer) Stop(ctx context.Context) {
	if s.srv == nil {
		return
	}
	_ = s.srv.Shutdown(ctx)
}
