// SPDX-FileCopyrightText: 2026 The hopwatch authors
//
// SPDX-License-Identifier: Apache-2.0

package hopwatch

import (
	"context"
	"errors"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/hopwatch/hopwatch/internal/logger"
	"github.com/hopwatch/hopwatch/pkg/checks"
	"github.com/hopwatch/hopwatch/pkg/checks/runtime"
	"github.com/hopwatch/hopwatch/pkg/db"
	"github.com/hopwatch/hopwatch/pkg/factory"
	"github.com/hopwatch/hopwatch/pkg/hopwatch/metrics"
)

// ChecksController manages the lifecycle of the registered checks
// and fans their results into the database.
type ChecksController struct {
	db      db.DB
	metrics metrics.Provider
	checks  runtime.Checks
	cResult chan checks.ResultDTO
	cErr    chan error
	done    chan struct{}
}

// NewChecksController creates a new ChecksController
func NewChecksController(dbase db.DB, m metrics.Provider) *ChecksController {
	return &ChecksController{
		db:      dbase,
		metrics: m,
		checks:  runtime.Checks{},
		cResult: make(chan checks.ResultDTO, 1),
		cErr:    make(chan error, 1),
		done:    make(chan struct{}, 1),
	}
}

// Run executes the controller loop until the context is canceled
// or a non-recoverable error occurs
func (cc *ChecksController) Run(ctx context.Context) error {
	ctx, cancel := logger.NewContextWithLogger(ctx)
	defer cancel()
	log := logger.FromContext(ctx)

	for {
		select {
		case result := <-cc.cResult:
			go cc.db.Save(result)
		case err := <-cc.cErr:
			var runErr *ErrRunningCheck
			if errors.As(err, &runErr) {
				log.ErrorContext(ctx, "Check failed", "check", runErr.Check.Name(), "error", runErr.Err)
				cc.UnregisterCheck(ctx, runErr.Check)
				continue
			}
			return err
		case <-ctx.Done():
			return ctx.Err()
		case <-cc.done:
			return nil
		}
	}
}

// Shutdown stops the controller and all registered checks
func (cc *ChecksController) Shutdown(ctx context.Context) {
	log := logger.FromContext(ctx)
	log.Info("Shutting down checks controller")

	for c := range cc.checks.Iter() {
		cc.UnregisterCheck(ctx, c)
	}
	cc.done <- struct{}{}
	close(cc.done)
}

// Reconcile reconciles the checks against the target runtime configuration:
// checks no longer configured are unregistered, newly configured checks are
// registered and running checks get their configuration updated.
func (cc *ChecksController) Reconcile(ctx context.Context, cfg runtime.Config) {
	log := logger.FromContext(ctx)

	newChecks, err := factory.NewChecksFromConfig(cfg)
	if err != nil {
		log.ErrorContext(ctx, "Failed to create checks from config", "error", err)
		return
	}

	// Update existing checks and unregister removed ones
	for c := range cc.checks.Iter() {
		conf := cfg.For(c.Name())
		if conf == nil {
			cc.UnregisterCheck(ctx, c)
			delete(newChecks, c.Name())
			continue
		}

		if err = c.UpdateConfig(conf); err != nil {
			log.ErrorContext(ctx, "Failed to update config of check", "check", c.Name(), "error", err)
		}
		delete(newChecks, c.Name())
	}

	// Register new checks
	for _, c := range newChecks {
		cc.RegisterCheck(ctx, c)
	}
}

// RegisterCheck registers a new check and starts running it
func (cc *ChecksController) RegisterCheck(ctx context.Context, check checks.Check) {
	log := logger.FromContext(ctx).With("check", check.Name())

	for _, collector := range check.GetMetricCollectors() {
		if err := cc.metrics.GetRegistry().Register(collector); err != nil {
			log.ErrorContext(ctx, "Failed to register metric collector", "error", err)
		}
	}

	go func() {
		err := check.Run(ctx, cc.cResult)
		if err != nil {
			cc.cErr <- &ErrRunningCheck{
				Check: check,
				Err:   err,
			}
		}
	}()

	cc.checks.Add(check)
	log.InfoContext(ctx, "Check registered")
}

// UnregisterCheck stops the check and removes it from the controller
func (cc *ChecksController) UnregisterCheck(ctx context.Context, check checks.Check) {
	log := logger.FromContext(ctx).With("check", check.Name())

	for _, collector := range check.GetMetricCollectors() {
		cc.metrics.GetRegistry().Unregister(collector)
	}

	check.Shutdown()
	cc.checks.Delete(check)
	log.InfoContext(ctx, "Check unregistered")
}

var oapiBoilerplate = openapi3.T{
	OpenAPI: "3.0.0",
	Info: &openapi3.Info{
		Title:       "hopwatch metrics API",
		Description: "Serves traceroute check results in the checks result schema",
		Contact:     &openapi3.Contact{},
		Version:     "0.1.0",
	},
	Paths:      openapi3.NewPaths(),
	Components: &openapi3.Components{Schemas: make(openapi3.Schemas)},
}

// GenerateCheckSpecs generates the combined openapi specification
// of all currently registered checks
func (cc *ChecksController) GenerateCheckSpecs(ctx context.Context) (openapi3.T, error) {
	log := logger.FromContext(ctx)
	doc := oapiBoilerplate

	for c := range cc.checks.Iter() {
		name := c.Name()
		ref, err := c.Schema()
		if err != nil {
			log.ErrorContext(ctx, "Failed to get schema of check", "check", name, "error", err)
			return openapi3.T{}, &ErrCreateOpenapiSchema{name: name, err: err}
		}

		routeDesc := "Returns the latest result of the " + name + " check"
		doc.Components.Schemas[name] = ref
		doc.Paths.Set("/v1/results/"+name, &openapi3.PathItem{
			Description: routeDesc,
			Get: &openapi3.Operation{
				Description: routeDesc,
				Tags:        []string{"results", name},
				Responses: openapi3.NewResponses(
					openapi3.WithStatus(200, &openapi3.ResponseRef{
						Value: openapi3.NewResponse().
							WithDescription("Result of the check").
							WithJSONSchemaRef(ref),
					}),
				),
			},
		})
	}

	return doc, nil
}
