// SPDX-FileCopyrightText: 2026 The hopwatch authors
//
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hopwatch/hopwatch/internal/logger"
	"github.com/hopwatch/hopwatch/pkg/db"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"

	"github.com/getkin/kin-openapi/openapi3"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// Config is the configuration for the api server
type Config struct {
	// ListeningAddress is the address the api server listens on
	ListeningAddress string `yaml:"address" mapstructure:"address"`
}

func (c *Config) Validate() error {
	if c.ListeningAddress == "" {
		return ErrInvalidListeningAddress
	}
	return nil
}

// SpecGenerator assembles the openapi specification of the currently
// running checks.
type SpecGenerator func(ctx context.Context) (openapi3.T, error)

// API serves the check results, the openapi specification and the
// prometheus metrics over HTTP.
type API interface {
	// Run starts the api server and blocks until the context is
	// canceled or the server fails.
	Run(ctx context.Context) error
	// Shutdown gracefully shuts down the api server.
	Shutdown(ctx context.Context) error
}

var _ API = (*api)(nil)

type api struct {
	server   *http.Server
	router   chi.Router
	db       db.DB
	registry *prometheus.Registry
	specs    SpecGenerator
}

// New creates a new api server serving the results from the given db
// and the metrics from the given registry.
func New(cfg Config, dbase db.DB, registry *prometheus.Registry, specs SpecGenerator) API {
	r := chi.NewRouter()
	return &api{
		server:   &http.Server{Addr: cfg.ListeningAddress, Handler: r, ReadHeaderTimeout: readHeaderTimeout},
		router:   r,
		db:       dbase,
		registry: registry,
		specs:    specs,
	}
}

// Run serves the api.
func (a *api) Run(ctx context.Context) error {
	ctx, cancel := logger.NewContextWithLogger(ctx)
	defer cancel()
	log := logger.FromContext(ctx)

	a.registerRoutes(ctx)

	cErr := make(chan error, 1)
	go func() {
		cErr <- a.server.ListenAndServe()
	}()
	log.InfoContext(ctx, "Serving API", "address", a.server.Addr)

	select {
	case <-ctx.Done():
		return a.Shutdown(ctx)
	case err := <-cErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		if err != nil {
			log.ErrorContext(ctx, "API server failed", "error", err)
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	}
}

// Shutdown gracefully shuts down the api server.
func (a *api) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown api server: %w", err)
	}
	return nil
}

func (a *api) registerRoutes(ctx context.Context) {
	a.router.Use(middleware.Recoverer)
	a.router.Use(logger.Middleware(ctx))

	a.router.Get("/openapi", a.getOpenapi)
	a.router.Route("/v1", func(r chi.Router) {
		r.Get("/results", a.getResults)
		r.Get("/results/{check}", a.getResult)
	})
	a.router.Handle("/metrics",
		promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry}))
	a.router.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// getResult returns the latest result of one check.
func (a *api) getResult(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	name := chi.URLParam(r, "check")

	result, ok := a.db.Get(name)
	if !ok {
		http.Error(w, fmt.Sprintf("no result for check %q", name), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		log.Error("Failed to encode check result", "check", name, "error", err)
		http.Error(w, "failed to encode result", http.StatusInternalServerError)
	}
}

// getResults returns the latest result of every check.
func (a *api) getResults(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(a.db.List()); err != nil {
		log.Error("Failed to encode check results", "error", err)
		http.Error(w, "failed to encode results", http.StatusInternalServerError)
	}
}

// getOpenapi returns the openapi specification of the running checks.
func (a *api) getOpenapi(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	spec, err := a.specs(r.Context())
	if err != nil {
		log.Error("Failed to generate openapi spec", "error", err)
		http.Error(w, "failed to generate openapi spec", http.StatusInternalServerError)
		return
	}

	b, err := yaml.Marshal(spec)
	if err != nil {
		log.Error("Failed to marshal openapi spec", "error", err)
		http.Error(w, "failed to marshal openapi spec", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(b)
}
