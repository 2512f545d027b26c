package statusserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cam-watcher/cam/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubSource struct {
	agents    []model.AgentRecord
	startedAt time.Time
}

func (s stubSource) Agents() []model.AgentRecord { return s.agents }
func (s stubSource) StartedAt() time.Time        { return s.startedAt }

func TestHealthzReportsUptime(t *testing.T) {
	srv := New(stubSource{startedAt: time.Now().Add(-time.Minute)})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestAgentsListsAllAgents(t *testing.T) {
	srv := New(stubSource{agents: []model.AgentRecord{{AgentID: "cam-A"}, {AgentID: "cam-B"}}})
	req := httptest.NewRequest(http.MethodGet, "/agents", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cam-A")
	assert.Contains(t, rec.Body.String(), "cam-B")
}

func TestAgentByIDReturnsNotFoundWhenMissing(t *testing.T) {
	srv := New(stubSource{agents: []model.AgentRecord{{AgentID: "cam-A"}}})
	req := httptest.NewRequest(http.MethodGet, "/agents/does-not-exist", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAgentByIDReturnsMatchingRecord(t *testing.T) {
	srv := New(stubSource{agents: []model.AgentRecord{{AgentID: "cam-A", AgentType: "claude-code"}}})
	req := httptest.NewRequest(http.MethodGet, "/agents/cam-A", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "claude-code")
}
