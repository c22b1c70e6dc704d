// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/petar-djukic/layercheck/internal/mcpserver"
	"github.com/petar-djukic/layercheck/pkg/layercheck"
)

// newServeCmd creates the "serve" command.
func newServeCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve checks as MCP tools over stdio",
		Long: "Serve indexes the source tree once and answers check_method, cache_stats and " +
			"show_rules tool calls on stdin and stdout. Logs go to stderr.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			c, err := layercheck.New(ctx, configFromViper(v))
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			defer c.Close()

			return mcpserver.New(c, version, slog.Default()).ServeStdio()
		},
	}
}
