package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wrale/healthbot-connect/cmd/healthbot/handlers/authorize"
	btrelay "github.com/wrale/healthbot-connect/cmd/healthbot/handlers/bluetooth"
	"github.com/wrale/healthbot-connect/cmd/healthbot/handlers/callback"
	"github.com/wrale/healthbot-connect/cmd/healthbot/handlers/devices"
	healthcheck "github.com/wrale/healthbot-connect/cmd/healthbot/handlers/health"
	"github.com/wrale/healthbot-connect/cmd/healthbot/handlers/readings"
	"github.com/wrale/healthbot-connect/cmd/healthbot/handlers/token"
	"github.com/wrale/healthbot-connect/internal/connect"
	"github.com/wrale/healthbot-connect/internal/fetch"
	"github.com/wrale/healthbot-connect/internal/health"
	"github.com/wrale/healthbot-connect/internal/kv"
	"github.com/wrale/healthbot-connect/internal/oauth"
	"github.com/wrale/healthbot-connect/internal/provider"
)

type server struct {
	cfg      Config
	router   *chi.Mux
	logger   *slog.Logger
	registry *provider.Registry
	flow     *connect.Flow
	readings *health.Store
	syncer   *fetch.Syncer
}

// newServer wires the connection flow, fetchers and reading store over
// store and registers the HTTP routes. client is used for every outbound
// provider call.
func newServer(cfg Config, store kv.Store, reg *provider.Registry, client *http.Client, logger *slog.Logger) *server {
	exchanger := oauth.NewExchanger(reg,
		oauth.WithHTTPClient(client),
		oauth.WithPolicy(cfg.ExchangePolicy()),
		oauth.WithLogger(logger),
	)
	flow := connect.NewFlow(reg, store, exchanger,
		connect.WithSessionTTL(cfg.SessionTTL),
		connect.WithLogger(logger),
	)
	fetchers := fetch.NewSet(reg, flow.Tokens(),
		fetch.WithHTTPClient(client),
		fetch.WithTimeout(cfg.FetchTimeout),
		fetch.WithLogger(logger),
	)
	readingStore := health.NewStore(store)

	srv := &server{
		cfg:      cfg,
		router:   chi.NewRouter(),
		logger:   logger,
		registry: reg,
		flow:     flow,
		readings: readingStore,
		syncer:   fetch.NewSyncer(fetchers, readingStore, flow),
	}

	srv.router.Use(middleware.RequestID)
	srv.router.Use(middleware.RealIP)
	srv.router.Use(middleware.Logger)
	srv.router.Use(middleware.Recoverer)
	srv.router.Use(middleware.Timeout(cfg.RequestTimeout))

	srv.routes()
	return srv
}

func (s *server) routes() {
	s.router.Method(http.MethodGet, "/health",
		healthcheck.New(map[string]healthcheck.Checker{"store": s.flow}).WithVersion(Version))

	s.router.Route("/api/oauth", func(r chi.Router) {
		r.Method(http.MethodGet, "/authorize/{provider}", authorize.New(s.flow, s.logger))
		r.Method(http.MethodPost, "/token", token.New(token.Config{Service: s.flow, Logger: s.logger}))
		r.Method(http.MethodGet, "/callback/{provider}", callback.New(s.registry))
	})

	dev := devices.New(devices.Config{Service: s.flow, Syncer: s.syncer, Logger: s.logger})
	s.router.Route("/api/devices", func(r chi.Router) {
		r.Get("/", dev.List)
		r.Delete("/{id}", dev.Disconnect)
		r.Post("/{id}/sync", dev.Sync)
	})

	rd := readings.New(readings.Config{Store: s.readings, Service: s.flow, Logger: s.logger})
	s.router.Route("/api/readings", func(r chi.Router) {
		r.Get("/", rd.List)
		r.Post("/", rd.Create)
		r.Get("/latest", rd.Latest)
	})

	bt := btrelay.New(btrelay.Config{Store: s.readings, Service: s.flow, Logger: s.logger})
	s.router.Route("/api/bluetooth/{class}", func(r chi.Router) {
		r.Get("/", bt.Profile)
		r.Post("/measurements", bt.Measurement)
		r.Post("/connection", bt.Connection)
	})
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
