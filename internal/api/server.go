// Package api implements the read-only reporting surface: a gin HTTP API
// fronting the live Portfolio/StrategyManager/Simulated exchange, gated by
// a single shared-secret bearer token, plus a websocket stream of the
// same events the core bus already carries. It never writes back into the core state
// machine — starting/stopping a strategy is the only mutation exposed, and
// it goes through the same StrategyManager methods a CLI operator would
// call.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"trading-core/internal/events"
	"trading-core/internal/exchange"
	"trading-core/internal/journal"
	"trading-core/internal/risk"
	"trading-core/internal/strategy"
	"trading-core/pkg/logger"
)

// SystemMeta describes the run the API is reporting on, surfaced verbatim
// on GET /api/v1/status.
type SystemMeta struct {
	Version   string
	StartedAt time.Time
	RunTag    string
}

// Server wires the core collaborators into an HTTP surface. Construct with
// NewServer; Engine returns it ready for http.Server.Handler.
type Server struct {
	bus       *events.Bus
	portfolio *risk.Portfolio
	manager   *strategy.Manager
	exchange  *exchange.Simulated
	journal   *journal.Journal // optional, nil if the run has no journal
	log       *logger.Logger
	meta      SystemMeta
	secret    string

	engine *gin.Engine
}

// NewServer builds the gin engine and registers every route. jwtSecret
// signs and validates the bearer tokens AuthMiddleware checks; journal may
// be nil when the run was started without one.
func NewServer(bus *events.Bus, pf *risk.Portfolio, mgr *strategy.Manager, ex *exchange.Simulated, jrn *journal.Journal, log *logger.Logger, meta SystemMeta, jwtSecret string) *Server {
	if log == nil {
		log = logger.NewDiscard()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		bus:       bus,
		portfolio: pf,
		manager:   mgr,
		exchange:  ex,
		journal:   jrn,
		log:       log,
		meta:      meta,
		secret:    jwtSecret,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(CORSMiddleware())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger())
	r.Use(RateLimitMiddleware())
	r.Use(TimeoutMiddleware(10 * time.Second))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	v1.Use(AuthMiddleware(jwtSecret))
	{
		v1.GET("/status", s.handleStatus)
		v1.GET("/positions", s.handlePositions)
		v1.GET("/orders", s.handleOrders)
		v1.GET("/risk", s.handleRisk)
		v1.GET("/strategies", s.handleListStrategies)
		v1.POST("/strategies/:name/start", s.handleStartStrategy)
		v1.POST("/strategies/:name/stop", s.handleStopStrategy)
		v1.GET("/journal/orders", s.handleJournalOrders)
		v1.GET("/journal/fills", s.handleJournalFills)
		v1.GET("/stream", s.handleStream)
	}

	s.engine = r
	return s
}

// Handler returns the underlying http.Handler for use with http.Server.
func (s *Server) Handler() http.Handler { return s.engine }

func respondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{"code": code, "error": msg})
}
