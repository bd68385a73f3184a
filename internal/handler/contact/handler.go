package contact

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cosentus/cose-chat/backend/internal/service/hubspot"
	"github.com/cosentus/cose-chat/backend/internal/service/ratelimit"
	"github.com/cosentus/cose-chat/backend/pkg/utils"
)

// Handler exposes the CRM contact search used to enrich lead data.
type Handler struct {
	crm     *hubspot.Client
	limiter *ratelimit.Limiter
}

// New creates the contact handler.
func New(crm *hubspot.Client, limiter *ratelimit.Limiter) *Handler {
	return &Handler{crm: crm, limiter: limiter}
}

// RegisterRoutes mounts contact routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/hubspot/contact/search", h.handleSearch)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Email == "" {
		utils.RespondError(w, http.StatusBadRequest, "Email is required")
		return
	}

	if err := h.limiter.Allow(utils.ClientIP(r), ratelimit.PurposeContactSearch); err != nil {
		utils.RespondError(w, http.StatusTooManyRequests, "Too many requests. Please wait a minute.")
		return
	}

	contactID, err := h.crm.SearchContact(r.Context(), payload.Email)
	if err != nil {
		switch {
		case errors.Is(err, hubspot.ErrContactNotFound):
			utils.RespondError(w, http.StatusNotFound, "Contact not found")
		case errors.Is(err, hubspot.ErrNotConfigured):
			utils.RespondError(w, http.StatusInternalServerError, "HubSpot not configured")
		default:
			utils.RespondError(w, http.StatusBadGateway, "Failed to search contact")
		}
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"contactId": contactID})
}
