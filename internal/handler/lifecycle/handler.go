package lifecycle

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cosentus/cose-chat/backend/internal/model/chat"
	"github.com/cosentus/cose-chat/backend/internal/service/session"
	"github.com/cosentus/cose-chat/backend/internal/service/teaser"
	"github.com/cosentus/cose-chat/backend/pkg/utils"
)

// Handler exposes the session lifecycle endpoints the widget drives: ensure
// on load, activity pings, lead capture, manual close, and the teaser
// cooldown.
type Handler struct {
	sessions *session.Manager
	teasers  *teaser.Service
}

// New creates the lifecycle handler.
func New(sessions *session.Manager, teasers *teaser.Service) *Handler {
	return &Handler{sessions: sessions, teasers: teasers}
}

// RegisterRoutes mounts lifecycle routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleEnsure)
	r.Post("/session/activity", h.handleActivity)
	r.Post("/conversation/start", h.handleStart)
	r.Post("/conversation/end", h.handleEnd)
	r.Get("/teaser", h.handleTeaser)
	r.Post("/teaser/dismiss", h.handleTeaserDismiss)
}

// handleEnsure resumes the stored session for the widget instance or creates
// a replacement. The clientId distinguishes widget instances; absent one,
// the caller's IP stands in.
func (h *Handler) handleEnsure(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ClientID string `json:"clientId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, state, messages := h.sessions.Ensure(clientKey(payload.ClientID, r))

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"session":          record,
		"state":            state.String(),
		"needsLeadCapture": state != session.StateActive,
		"messages":         messages,
	})
}

func (h *Handler) handleActivity(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.SessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "Session ID required")
		return
	}

	if err := h.sessions.Touch(payload.SessionID); err != nil {
		utils.RespondError(w, lifecycleStatus(err), err.Error())
		return
	}
	utils.RespondSuccess(w)
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Email     string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.SessionID == "" || payload.FirstName == "" || payload.LastName == "" || payload.Email == "" {
		utils.RespondError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	record, err := h.sessions.CaptureLead(r.Context(), payload.SessionID, chat.LeadData{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
	})
	if err != nil {
		utils.RespondError(w, lifecycleStatus(err), err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"session": record,
	})
}

func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
		Reason    string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.SessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "Missing sessionId")
		return
	}

	reason := payload.Reason
	if reason != chat.ReasonTimeout {
		reason = chat.ReasonManual
	}

	if err := h.sessions.End(r.Context(), payload.SessionID, reason); err != nil {
		utils.RespondError(w, lifecycleStatus(err), err.Error())
		return
	}
	utils.RespondSuccess(w)
}

func (h *Handler) handleTeaser(w http.ResponseWriter, r *http.Request) {
	show := h.teasers.ShouldShow(clientKey(r.URL.Query().Get("clientId"), r))
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"show": show})
}

func (h *Handler) handleTeaserDismiss(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ClientID string `json:"clientId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.teasers.Dismiss(clientKey(payload.ClientID, r))
	utils.RespondSuccess(w)
}

func clientKey(clientID string, r *http.Request) string {
	if clientID != "" {
		return clientID
	}
	return utils.ClientIP(r)
}

func lifecycleStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrSessionEnded), errors.Is(err, session.ErrLeadAlreadySet):
		return http.StatusConflict
	case errors.Is(err, session.ErrInvalidName), errors.Is(err, session.ErrInvalidEmail):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
