// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/petar-djukic/layercheck/internal/rules"
	"github.com/petar-djukic/layercheck/internal/rulestore"
	"github.com/petar-djukic/layercheck/pkg/layercheck"
)

// newRulesCmd creates the "rules" command group.
func newRulesCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage the rule set",
	}
	cmd.AddCommand(newRulesInitCmd(v))
	cmd.AddCommand(newRulesShowCmd(v))
	return cmd
}

// newRulesInitCmd creates the "rules init" command.
func newRulesInitCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the rule table and seed the built-in rules",
		Long: "Init creates the layer_rules table in the store named by --rules-dsn and writes " +
			"the built-in naming, signature and layer rules into it. Existing rows are replaced.",
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn := v.GetString("rules-dsn")
			if dsn == "" {
				return fmt.Errorf("--rules-dsn is required")
			}
			ctx := context.Background()
			store, err := rulestore.Open(ctx, dsn)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.EnsureSchema(ctx); err != nil {
				return err
			}
			language := v.GetString("language")
			if language == "" {
				language = layercheck.DetectLanguage(v.GetString("workdir"))
			}
			if err := store.Seed(ctx, rules.DefaultRuleSetFor(language)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %s rules into %s store.\n", language, rulestore.DriverFor(dsn))
			return nil
		},
	}
}

// newRulesShowCmd creates the "rules show" command.
func newRulesShowCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective rule set as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := layercheck.EffectiveRules(context.Background(), configFromViper(v))
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(rs, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling rules: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
