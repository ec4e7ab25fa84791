// SPDX-FileCopyrightText: 2026 The hopwatch authors
//
// SPDX-License-Identifier: Apache-2.0

package hopwatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hopwatch/hopwatch/internal/logger"
	"github.com/hopwatch/hopwatch/pkg/api"
	"github.com/hopwatch/hopwatch/pkg/checks/runtime"
	"github.com/hopwatch/hopwatch/pkg/config"
	"github.com/hopwatch/hopwatch/pkg/db"
	"github.com/hopwatch/hopwatch/pkg/hopwatch/metrics"
)

const shutdownTimeout = time.Second * 90

// Hopwatch is the main struct of the hopwatch application
type Hopwatch struct {
	// config is the startup configuration of the hopwatch
	config *config.Config
	// version is the build version, injected via ldflags
	version string
	// db is the database used to store the check results
	db db.DB
	// api is the hopwatch's API
	api api.API
	// loader is used to load the runtime configuration
	loader config.Loader
	// metrics is used to collect metrics
	metrics metrics.Provider
	// controller is used to manage the checks
	controller *ChecksController
	// cRuntime is used to signal that the runtime configuration has changed
	cRuntime chan runtime.Config
	// cErr is used to handle non-recoverable errors of the hopwatch components
	cErr chan error
	// cDone is used to signal that the hopwatch was shut down because of an error
	cDone chan struct{}
	// shutOnce is used to ensure that the shutdown function is only called once
	shutOnce sync.Once
}

// New creates a new hopwatch from a given configfile
func New(cfg *config.Config, version string) *Hopwatch {
	m := metrics.New(cfg.Telemetry)
	dbase := db.NewInMemory()
	controller := NewChecksController(dbase, m)

	hw := &Hopwatch{
		config:     cfg,
		version:    version,
		db:         dbase,
		metrics:    m,
		controller: controller,
		cRuntime:   make(chan runtime.Config, 1),
		cErr:       make(chan error, 1),
		cDone:      make(chan struct{}, 1),
		shutOnce:   sync.Once{},
	}

	hw.api = api.New(cfg.Api, dbase, m.GetRegistry(), controller.GenerateCheckSpecs)
	hw.loader = config.NewLoader(cfg, hw.cRuntime)

	return hw
}

// Run starts the hopwatch
func (h *Hopwatch) Run(ctx context.Context) error {
	ctx, cancel := logger.NewContextWithLogger(ctx)
	log := logger.FromContext(ctx)
	defer cancel()

	err := h.metrics.InitTracing(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if err = metrics.RegisterInstanceInfo(h.metrics.GetRegistry(), h.config.Name, h.version); err != nil {
		log.WarnContext(ctx, "Failed to register instance info metric", "error", err)
	}

	go func() {
		h.cErr <- h.loader.Run(ctx)
	}()

	go func() {
		h.cErr <- h.api.Run(ctx)
	}()

	go func() {
		h.cErr <- h.controller.Run(ctx)
	}()

	for {
		select {
		case cfg := <-h.cRuntime:
			h.controller.Reconcile(ctx, cfg)
		case <-ctx.Done():
			h.shutdown(ctx)
		case err := <-h.cErr:
			if err != nil {
				log.Error("Non-recoverable error in hopwatch component", "error", err)
				h.shutdown(ctx)
			}
		case <-h.cDone:
			log.InfoContext(ctx, "Hopwatch was shut down")
			return ErrFinalShutdown
		}
	}
}

// shutdown shuts down the hopwatch and all managed components gracefully.
// It returns an error if one is present in the context or if any of the
// components fail to shut down.
func (h *Hopwatch) shutdown(ctx context.Context) {
	errC := ctx.Err()
	log := logger.FromContext(ctx)
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	h.shutOnce.Do(func() {
		log.InfoContext(ctx, "Shutting down hopwatch")
		var sErrs ErrShutdown
		sErrs.errAPI = h.api.Shutdown(ctx)
		sErrs.errMetrics = h.metrics.Shutdown(ctx)
		h.loader.Shutdown(ctx)
		h.controller.Shutdown(ctx)

		if sErrs.HasError() {
			log.ErrorContext(ctx, "Failed to shutdown gracefully", "contextError", errC, "errors", sErrs)
		}

		// Signal that shutdown is complete
		h.cDone <- struct{}{}
	})
}
