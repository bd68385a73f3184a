package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	chathandler "github.com/cosentus/cose-chat/backend/internal/handler/chat"
	"github.com/cosentus/cose-chat/backend/internal/handler/contact"
	"github.com/cosentus/cose-chat/backend/internal/handler/lifecycle"
	"github.com/cosentus/cose-chat/backend/internal/logging"
	middlewarePkg "github.com/cosentus/cose-chat/backend/internal/middleware"
	"github.com/cosentus/cose-chat/backend/internal/service/hubspot"
	"github.com/cosentus/cose-chat/backend/internal/service/ratelimit"
	"github.com/cosentus/cose-chat/backend/internal/service/session"
	"github.com/cosentus/cose-chat/backend/internal/service/teaser"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(
	sessions *session.Manager,
	teasers *teaser.Service,
	crm *hubspot.Client,
	limiter *ratelimit.Limiter,
	allowedOrigins []string,
	log *logging.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(log.Component("http")))
	r.Use(chimiddleware.Recoverer)
	r.Use(middlewarePkg.CORS(allowedOrigins))

	chatHandler := chathandler.New(sessions, limiter)
	lifecycleHandler := lifecycle.New(sessions, teasers)
	contactHandler := contact.New(crm, limiter)

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)
		lifecycleHandler.RegisterRoutes(api)
		contactHandler.RegisterRoutes(api)
	})

	return r
}
