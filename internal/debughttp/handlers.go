// Package debughttp exposes a read-only gin HTTP surface over the
// session registry, for external introspection and the websocket
// activity mirror. It never mutates a session; all mutation goes
// through the dispatcher via the agent's own transport, not through
// HTTP.
package debughttp

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErrors "github.com/amuxd/amuxd/internal/common/errors"
	"github.com/amuxd/amuxd/internal/common/logger"
	"github.com/amuxd/amuxd/internal/events"
	"github.com/amuxd/amuxd/internal/session"
	"github.com/amuxd/amuxd/internal/session/registry"
)

// Handler holds the dependencies HTTP routes read from.
type Handler struct {
	registry *registry.Registry
	hub      *events.Hub
	logger   *logger.Logger
}

// NewHandler builds a Handler.
func NewHandler(reg *registry.Registry, hub *events.Hub, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{registry: reg, hub: hub, logger: log.WithFields(zap.String("component", "debug-http"))}
}

// sessionSummary is the wire shape for one row of ListSessions.
type sessionSummary struct {
	LocalID         string `json:"local_id"`
	Name            string `json:"name"`
	AgentKind       string `json:"agent_kind"`
	State           string `json:"state"`
	CurrentActivity string `json:"current_activity"`
}

// ListSessions lists every registered session.
// GET /api/v1/sessions
func (h *Handler) ListSessions(c *gin.Context) {
	all := h.registry.All()
	out := make([]sessionSummary, len(all))
	for i, s := range all {
		out[i] = summarize(s)
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

// sessionDetail is the wire shape for GetSession, including the full
// transcript.
type sessionDetail struct {
	sessionSummary
	Transcript []session.TranscriptEntry `json:"transcript"`
	Plan       []session.PlanEntry       `json:"plan"`
	Mode       string                    `json:"mode"`
}

// GetSession returns one session's full observable state.
// GET /api/v1/sessions/:id
func (h *Handler) GetSession(c *gin.Context) {
	id := c.Param("id")
	s, ok := h.registry.GetByID(id)
	if !ok {
		appErr := appErrors.NotFound("session", id)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}
	c.JSON(http.StatusOK, sessionDetail{
		sessionSummary: summarize(s),
		Transcript:     s.Transcript,
		Plan:           s.Plan,
		Mode:           s.Mode,
	})
}

// StreamEvents upgrades the connection to a read-only websocket mirroring
// the hub's activity stream. The id only has to name a registered
// session; activity is not filtered by it, so the client receives every
// session's activity.
// GET /api/v1/sessions/:id/events
func (h *Handler) StreamEvents(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.registry.GetByID(id); !ok {
		appErr := appErrors.NotFound("session", id)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}
	if err := h.hub.ServeWS(c.Writer, c.Request); err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
	}
}

func summarize(s *session.Session) sessionSummary {
	return sessionSummary{
		LocalID:         s.LocalID,
		Name:            s.Name,
		AgentKind:       string(s.AgentKind),
		State:           string(s.State),
		CurrentActivity: s.CurrentActivity(),
	}
}
