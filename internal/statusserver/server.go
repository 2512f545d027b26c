// Package statusserver exposes the watcher daemon's status over a minimal
// localhost HTTP server, grounded on the teacher's gin-based pkg/api
// handlers (gin.Context, c.JSON with gin.H), scaled down from a
// session-processing API to a read-only diagnostics surface: there is no
// spec.md requirement for remote control, only for the CLI's own "check
// status" / "inspect logs" commands (spec.md §6) to have something to
// read.
package statusserver

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cam-watcher/cam/internal/model"
)

// Source supplies the live data the server reports. The watcher loop
// implements this by reading its own in-memory registry snapshot.
type Source interface {
	Agents() []model.AgentRecord
	StartedAt() time.Time
}

// Server wraps a gin.Engine serving /healthz and /agents.
type Server struct {
	engine *gin.Engine
	source Source
}

// New builds a Server. gin.SetMode(gin.ReleaseMode) is the caller's
// responsibility (cmd/camd), matching the teacher's convention of
// configuring gin's mode once at the entrypoint.
func New(source Source) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{engine: engine, source: source}
	engine.GET("/healthz", s.handleHealthz)
	engine.GET("/agents", s.handleAgents)
	engine.GET("/agents/:id", s.handleAgent)
	return s
}

// Handler returns the underlying http.Handler for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"started_at": s.source.StartedAt(),
		"uptime":     time.Since(s.source.StartedAt()).String(),
	})
}

func (s *Server) handleAgents(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"agents": s.source.Agents()})
}

func (s *Server) handleAgent(c *gin.Context) {
	id := c.Param("id")
	for _, a := range s.source.Agents() {
		if a.AgentID == id {
			c.JSON(http.StatusOK, a)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "agent not found", "agent_id": id})
}
