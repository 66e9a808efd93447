// Package web provides an HTTP status endpoint for the heater-control daemon.
package web

import (
	"context"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sweeney/heater-control/internal/logic"
	"github.com/sweeney/heater-control/internal/status"
)

// Server serves the tracker's status over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
}

// New creates a Server that reads state from the given tracker.
func New(addr string, tracker *status.Tracker) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{tracker: tracker}

	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/status.json", s.handleStatus)
	r.GET("/healthz", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	return s
}

// Handler returns the HTTP handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleStatus(c *gin.Context) {
	snap := s.tracker.Snapshot()
	c.Data(http.StatusOK, "application/json", status.FormatJSON(snap))
}

// handleHealth reports 503 once the run has faulted so a supervisor can
// alert on it.
func (s *Server) handleHealth(c *gin.Context) {
	snap := s.tracker.Snapshot()
	if snap.State == logic.StateFault {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"state": string(snap.State),
			"fault": string(snap.Fault),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": string(snap.State)})
}
