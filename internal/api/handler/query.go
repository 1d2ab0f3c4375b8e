package handler

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/davec/filmscout/internal/domain"
	"github.com/davec/filmscout/internal/provider"
	"github.com/davec/filmscout/internal/service"
)

// QueryHandler exposes the conversational agent over HTTP. Sessions
// are held in memory and addressed by the session_id echoed back to
// the client; omitting it starts a fresh conversation.
type QueryHandler struct {
	agent *service.Agent

	mu       sync.Mutex
	sessions map[string]*service.Session
}

// NewQueryHandler creates a new query handler.
// Parameters:
//   - agent: turn coordinator.
// Returns:
//   - *QueryHandler: initialized handler.
func NewQueryHandler(agent *service.Agent) *QueryHandler {
	return &QueryHandler{
		agent:    agent,
		sessions: make(map[string]*service.Session),
	}
}

type queryRequest struct {
	Query     string `json:"query" binding:"required"`
	SessionID string `json:"session_id"`
}

type queryResponse struct {
	SessionID string         `json:"session_id"`
	Answer    *domain.Answer `json:"answer"`
}

func (h *QueryHandler) session(id string) (string, *service.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if id != "" {
		if s, ok := h.sessions[id]; ok {
			return id, s
		}
	}
	id = uuid.New().String()
	s := service.NewSession()
	h.sessions[id] = s
	return id, s
}

// Query handles POST /api/v1/query.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *QueryHandler) Query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	sessionID, session := h.session(req.SessionID)

	answer, err := h.agent.ProcessQuery(c.Request.Context(), session, req.Query)
	if err != nil {
		if errors.Is(err, provider.ErrEmptyQuery) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Query must not be empty"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "Query failed: " + err.Error(),
			"kind":  string(domain.KindOf(err)),
		})
		return
	}

	c.JSON(http.StatusOK, queryResponse{SessionID: sessionID, Answer: answer})
}

// History handles GET /api/v1/sessions/:id.
func (h *QueryHandler) History(c *gin.Context) {
	h.mu.Lock()
	session, ok := h.sessions[c.Param("id")]
	h.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	turns := session.History()
	c.JSON(http.StatusOK, gin.H{
		"turns": turns,
		"total": len(turns),
	})
}

// ClearSession handles DELETE /api/v1/sessions/:id.
func (h *QueryHandler) ClearSession(c *gin.Context) {
	h.mu.Lock()
	delete(h.sessions, c.Param("id"))
	h.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}
