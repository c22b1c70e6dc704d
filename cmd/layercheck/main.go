// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Command layercheck checks the call graph of a method against a
// four-layer architecture.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const version = "0.1.0"

func main() {
	// .env is optional.
	_ = godotenv.Load()

	rootCmd := newRootCmd(viper.GetViper())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree over v.
func newRootCmd(v *viper.Viper) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "layercheck",
		Short: "Layered architecture checker",
		Long: "layercheck builds the call graph of a method, classifies every method into the " +
			"presentation, application, domain or infrastructure layer, and reports naming, " +
			"signature and layer-dependency violations.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(v.GetString("log-level"), os.Stderr)
		},
	}

	// Global flags.
	flags := rootCmd.PersistentFlags()
	flags.String("workdir", ".", "Source root directory")
	flags.String("language", "", "Source language: go or java (default: detect from go.mod)")
	flags.String("include", "", "Comma-separated namespace prefixes to keep")
	flags.String("exclude", "", "Comma-separated namespace prefixes to skip, in addition to the JVM and Go ecosystem roots")
	flags.Int("max-depth", 5, "Maximum call graph depth")
	flags.Int("max-up-hops", 8, "Maximum reference hops when anchoring at a controller")
	flags.String("rules-dsn", "", "Rule store: a sqlite file path or a postgres:// URL")
	flags.Duration("cache-ttl", 0, "Result cache lifetime (default 30m)")
	flags.Int("cache-max-entries", 0, "Result cache ceiling (default 1000)")
	flags.String("advisor-provider", "none", "Review model provider: none, bedrock or gemini")
	flags.String("advisor-model", "", "Review model ID")
	flags.String("advisor-region", "", "AWS region for bedrock")
	flags.String("advisor-profile", "", "AWS credential profile for bedrock")
	flags.Int("advisor-max-tokens", 0, "Maximum tokens for the review")
	flags.Bool("no-git", false, "Disable revision tracking")
	flags.String("log-level", "warn", "Log level: debug, info, warn or error")

	// Bind flags to viper.
	v.BindPFlags(flags)

	// Env vars: LAYERCHECK_RULES_DSN, LAYERCHECK_ADVISOR_MODEL, etc.
	v.SetEnvPrefix("LAYERCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// Config file.
	v.SetConfigName(".layercheck")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	v.ReadInConfig() // Ignore error; config file is optional.

	// Add commands.
	rootCmd.AddCommand(newCheckCmd(v))
	rootCmd.AddCommand(newRulesCmd(v))
	rootCmd.AddCommand(newServeCmd(v))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// newVersionCmd creates the "version" command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print layercheck version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "layercheck %s\n", version)
		},
	}
}
