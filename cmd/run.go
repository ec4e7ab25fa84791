// SPDX-FileCopyrightText: 2026 The hopwatch authors
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hopwatch/hopwatch/internal/logger"
	"github.com/hopwatch/hopwatch/pkg/config"
	"github.com/hopwatch/hopwatch/pkg/hopwatch"
)

// NewCmdRun creates a new run command
func NewCmdRun() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run hopwatch",
		RunE:  run(),
	}
}

// run is the entry point to start the hopwatch
func run() func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg := &config.Config{}
		if err := viper.Unmarshal(cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		ctx, lcancel := logger.NewContextWithLogger(ctx)
		defer lcancel()
		log := logger.FromContext(ctx)

		if err := cfg.Validate(ctx); err != nil {
			return fmt.Errorf("invalid startup configuration: %w", err)
		}

		h := hopwatch.New(cfg, cmd.Root().Version)
		log.InfoContext(ctx, "Running hopwatch")
		return h.Run(ctx)
	}
}
