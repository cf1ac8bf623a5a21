package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/homevirt/assistant-bridge/internal/commandbus"
	"github.com/homevirt/assistant-bridge/internal/csrf"
	"github.com/homevirt/assistant-bridge/internal/intent"
	"github.com/homevirt/assistant-bridge/internal/logging"
	"github.com/homevirt/assistant-bridge/internal/oauth"
	"github.com/homevirt/assistant-bridge/internal/statecache"
	"github.com/homevirt/assistant-bridge/internal/store"
	"github.com/homevirt/assistant-bridge/internal/templates"
)

type server struct {
	cfg        Config
	router     *chi.Mux
	store      store.Store
	auth       *oauth.Service
	dispatcher *intent.Dispatcher
	cache      statecache.Cache
	bus        commandbus.Bus
	csrf       *csrf.Manager
	templates  *templates.Templates
	validate   *validator.Validate
	log        *logging.Logger
}

func newServer(cfg Config, st store.Store, auth *oauth.Service, dispatcher *intent.Dispatcher,
	cache statecache.Cache, bus commandbus.Bus, csrfManager *csrf.Manager, logger *logging.Logger) (*server, error) {

	// Load templates
	tmpls, err := templates.LoadTemplates()
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	srv := &server{
		cfg:        cfg,
		router:     chi.NewRouter(),
		store:      st,
		auth:       auth,
		dispatcher: dispatcher,
		cache:      cache,
		bus:        bus,
		csrf:       csrfManager,
		templates:  tmpls,
		validate:   validator.New(),
		log:        logger,
	}

	// Set up middleware
	srv.router.Use(middleware.Logger)
	srv.router.Use(middleware.Recoverer)
	srv.router.Use(middleware.RealIP)
	srv.router.Use(middleware.Timeout(30 * time.Second))

	// Register routes
	srv.routes()

	return srv, nil
}

func (s *server) routes() {
	// Health check endpoint
	s.router.Get("/health", s.handleHealth())

	// Account linking endpoints
	s.router.Get("/oauth/auth", s.handleAuthForm())
	s.router.Post("/oauth/auth", s.handleAuthSubmit())
	s.router.Post("/oauth/token", s.handleToken())

	// Intent fulfillment endpoint
	s.router.Post("/gapi", s.handleIntent())

	// Admin API, disabled unless a token is configured
	if s.cfg.AdminToken != "" {
		s.router.Route("/api/admin", func(r chi.Router) {
			r.Use(s.requireAdminToken)
			r.Post("/accounts", s.handleAdminCreateAccount())
			r.Post("/devices", s.handleAdminCreateDevice())
			r.Get("/devices", s.handleAdminListDevices())
			r.Delete("/devices/{id}", s.handleAdminDeleteDevice())
		})
	}
}

// Helper methods

func (s *server) checkHealth(ctx context.Context) error {
	// Check all components
	if err := s.store.CheckHealth(ctx); err != nil {
		return err
	}
	if err := s.cache.CheckHealth(ctx); err != nil {
		return err
	}
	if err := s.bus.CheckHealth(ctx); err != nil {
		return err
	}
	if err := s.csrf.CheckHealth(ctx); err != nil {
		return err
	}
	return nil
}
