// SPDX-FileCopyrightText: 2026 The hopwatch authors
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hopwatch/hopwatch/internal/helper"
	"github.com/hopwatch/hopwatch/internal/logger"
	"github.com/hopwatch/hopwatch/pkg/checks/runtime"
	"gopkg.in/yaml.v3"
)

var _ Loader = (*HttpLoader)(nil)

type HttpLoader struct {
	config   LoaderConfig
	cRuntime chan<- runtime.Config
	done     chan struct{}
	client   *http.Client
}

func NewHttpLoader(cfg *Config, cRuntime chan<- runtime.Config) *HttpLoader {
	return &HttpLoader{
		config:   cfg.Loader,
		cRuntime: cRuntime,
		done:     make(chan struct{}, 1),
		client: &http.Client{
			Timeout: cfg.Loader.Http.Timeout,
		},
	}
}

// Run gets the runtime configuration from the remote endpoint.
// The config will be loaded periodically defined by the loader interval configuration.
// Failed attempts will be retried according to the retry configuration.
// If the interval is 0, the configuration is only fetched once and the loader is disabled.
func (h *HttpLoader) Run(ctx context.Context) error {
	ctx, cancel := logger.NewContextWithLogger(ctx)
	defer cancel()
	log := logger.FromContext(ctx)

	// Get the runtime configuration once on startup
	cfg, err := h.getRuntimeConfig(ctx)
	if err != nil {
		log.Warn("Could not get remote runtime configuration", "error", err)
		err = fmt.Errorf("could not get remote runtime configuration: %w", err)
	}
	h.cRuntime <- cfg

	if h.config.Interval == 0 {
		log.Info("HTTP Loader disabled")
		return err
	}

	tick := time.NewTicker(h.config.Interval)
	defer tick.Stop()

	for {
		select {
		case <-h.done:
			log.Info("HTTP Loader terminated")
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			runtimeCfg, err := h.getRuntimeConfig(ctx)
			if err != nil {
				log.Warn("Could not get remote runtime configuration", "error", err)
				tick.Reset(h.config.Interval)
				continue
			}

			log.Info("Successfully got remote runtime configuration")
			h.cRuntime <- runtimeCfg
			tick.Reset(h.config.Interval)
		}
	}
}

// getRuntimeConfig fetches the runtime configuration from the remote
// endpoint, retrying according to the retry configuration.
func (h *HttpLoader) getRuntimeConfig(ctx context.Context) (runtime.Config, error) {
	log := logger.FromContext(ctx).With("url", h.config.Http.Url)
	var cfg runtime.Config

	getConfigRetry := helper.Retry(func(ctx context.Context) (err error) {
		cfg, err = h.fetchRuntimeConfig(ctx)
		return err
	}, h.config.Http.RetryCfg)

	if err := getConfigRetry(ctx); err != nil {
		log.Error("Could not get remote runtime configuration", "error", err)
		return cfg, fmt.Errorf("failed to get remote runtime configuration: %w", err)
	}

	return cfg, nil
}

// fetchRuntimeConfig performs a single fetch of the remote runtime configuration.
func (h *HttpLoader) fetchRuntimeConfig(ctx context.Context) (cfg runtime.Config, err error) {
	log := logger.FromContext(ctx).With("url", h.config.Http.Url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.config.Http.Url, http.NoBody)
	if err != nil {
		log.Error("Could not create http request", "error", err)
		return cfg, fmt.Errorf("failed to create http request: %w", err)
	}
	if h.config.Http.Token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", h.config.Http.Token))
	}

	res, err := h.client.Do(req)
	if err != nil {
		log.Error("Http get request failed", "error", err)
		return cfg, fmt.Errorf("http get request failed: %w", err)
	}
	defer func() {
		cerr := res.Body.Close()
		if cerr != nil {
			log.Error("Failed to close response body", "error", cerr)
		}
	}()

	if res.StatusCode != http.StatusOK {
		log.Error("Http get request failed", "status", res.Status)
		return cfg, fmt.Errorf("request failed, status is %s", res.Status)
	}

	b, err := io.ReadAll(res.Body)
	if err != nil {
		log.Error("Could not read response body", "error", err)
		return cfg, fmt.Errorf("failed to read response body: %w", err)
	}
	log.Debug("Successfully got response")

	if err := yaml.Unmarshal(b, &cfg); err != nil {
		log.Error("Could not parse response body", "error", err)
		return cfg, fmt.Errorf("failed to parse response body: %w", err)
	}

	return cfg, nil
}

func (h *HttpLoader) Shutdown(ctx context.Context) {
	log := logger.FromContext(ctx)
	select {
	case h.done <- struct{}{}:
		log.Debug("Sending signal to shut down http loader")
	default:
	}
}
