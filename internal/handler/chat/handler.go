package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/cosentus/cose-chat/backend/internal/service/ratelimit"
	"github.com/cosentus/cose-chat/backend/internal/service/relay"
	"github.com/cosentus/cose-chat/backend/internal/service/session"
	"github.com/cosentus/cose-chat/backend/pkg/utils"
)

const maxMessageLength = 1000

// Handler exposes the chat message endpoint.
type Handler struct {
	sessions *session.Manager
	limiter  *ratelimit.Limiter
}

// New creates the chat handler.
func New(sessions *session.Manager, limiter *ratelimit.Limiter) *Handler {
	return &Handler{sessions: sessions, limiter: limiter}
}

// RegisterRoutes mounts chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleMessage)
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message   string `json:"message"`
		SessionID string `json:"sessionId"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message := strings.TrimSpace(payload.Message)
	if message == "" {
		utils.RespondError(w, http.StatusBadRequest, "Invalid message")
		return
	}
	if utf8.RuneCountInString(message) > maxMessageLength {
		utils.RespondError(w, http.StatusBadRequest, "Message too long")
		return
	}
	if payload.SessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "Session ID required")
		return
	}

	// Rate limit before anything reaches the webhook.
	if err := h.limiter.Allow(utils.ClientIP(r), ratelimit.PurposeChat); err != nil {
		utils.RespondError(w, http.StatusTooManyRequests, "Too many messages. Please wait a minute.")
		return
	}

	reply, err := h.sessions.Send(r.Context(), payload.SessionID, message)
	if err != nil {
		status, msg := mapSendError(err)
		utils.RespondError(w, status, msg)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"message":   reply,
		"sessionId": payload.SessionID,
	})
}

func mapSendError(err error) (int, string) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound, "Session not found"
	case errors.Is(err, session.ErrSessionEnded):
		return http.StatusConflict, "Conversation has ended"
	case errors.Is(err, session.ErrLeadRequired):
		return http.StatusForbidden, "Please complete the contact form first"
	case errors.Is(err, session.ErrSendInFlight):
		return http.StatusConflict, "A message is already being processed"
	case errors.Is(err, relay.ErrNotConfigured):
		return http.StatusInternalServerError, "Chatbot not configured"
	case errors.Is(err, relay.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, "Service temporarily unavailable"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
