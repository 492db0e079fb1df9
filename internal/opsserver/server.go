package opsserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/lifecycle"
)

var allLifecycleStates = []string{"EMPTY", "INIT", "RUNNING", "STOPPED", "ERROR"}

// Server is the internal ops HTTP listener.
type Server struct {
	manager *lifecycle.Manager
	httpSrv *http.Server
	logger  *zerolog.Logger
}

// New constructs an ops listener bound to addr (e.g. "127.0.0.1:9273"). The
// listener never touches the image-table mutex or lifecycle mutex directly
// beyond a single State()/Engine() read per request.
func New(addr string, manager *lifecycle.Manager, logger *zerolog.Logger) *Server {
	if addr == "" {
		addr = "127.0.0.1:9273"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{manager: manager, logger: logger}
	router.GET("/healthz", s.healthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s
}

// Handler exposes the underlying HTTP handler for testing without binding
// a real listener.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

func (s *Server) healthz(c *gin.Context) {
	state := s.manager.State()
	recordLifecycleState(state.String(), allLifecycleStates)

	if engine := s.manager.Engine(); engine != nil {
		snap := engine.Statistics().Snapshot()
		recordSnapshot(snap.ScanCount, snap.Overruns, snap.HasTiming, snap.ScanTimeNs.Mean, snap.CycleTimeNs.Mean)
	}

	c.JSON(http.StatusOK, gin.H{"state": state.String()})
}

// Run serves until ctx is cancelled, then shuts the HTTP server down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("ops listener: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
