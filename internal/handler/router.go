package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	educatorHandler "github.com/deleyapp/lawcopilot/internal/handler/educator"
	sessionHandler "github.com/deleyapp/lawcopilot/internal/handler/session"
	voiceHandler "github.com/deleyapp/lawcopilot/internal/handler/voice"
	middlewarePkg "github.com/deleyapp/lawcopilot/internal/middleware"
	educatorModel "github.com/deleyapp/lawcopilot/internal/model/educator"
	voiceService "github.com/deleyapp/lawcopilot/internal/service/voice"
	"github.com/deleyapp/lawcopilot/internal/store"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(educators educatorModel.Store, sessions store.Store, voiceSvc *voiceService.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Route("/api", func(api chi.Router) {
		educatorHandler.New(educators).RegisterRoutes(api)
		sessionHandler.New(sessions, voiceSvc).RegisterRoutes(api)
		voiceHandler.New(voiceSvc, sessions).RegisterRoutes(api)
	})

	return r
}
