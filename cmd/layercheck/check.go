// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/petar-djukic/layercheck/pkg/layercheck"
	"github.com/petar-djukic/layercheck/pkg/types"
)

// Output formats for check.
const (
	formatText = "text"
	formatJSON = "json"
	formatTree = "tree"
)

// errViolations is returned when --fail-on matches a reported violation.
var errViolations = errors.New("architecture violations found")

// newCheckCmd creates the "check" command.
func newCheckCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check one method",
		Long: "Check builds the call graph of a method, anchored at its nearest controller, " +
			"and reports the violations it contains, most severe first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, v)
		},
	}

	cmd.Flags().String("class", "", "Qualified name of the declaring type (required)")
	cmd.Flags().String("method", "", "Method or function name (required)")
	cmd.Flags().Bool("advise", false, "Ask the review model for advice")
	cmd.Flags().Bool("refresh", false, "Ignore cached results")
	cmd.Flags().String("format", formatText, "Output format: text, json or tree")
	cmd.Flags().String("fail-on", "", "Exit non-zero on violations of this severity or worse: low, medium or high")
	cmd.MarkFlagRequired("class")
	cmd.MarkFlagRequired("method")

	return cmd
}

// runCheck executes a single check.
func runCheck(cmd *cobra.Command, v *viper.Viper) error {
	className, _ := cmd.Flags().GetString("class")
	methodName, _ := cmd.Flags().GetString("method")
	format, _ := cmd.Flags().GetString("format")
	failOn, _ := cmd.Flags().GetString("fail-on")
	advise, _ := cmd.Flags().GetBool("advise")
	refresh, _ := cmd.Flags().GetBool("refresh")

	switch format {
	case formatText, formatJSON, formatTree:
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	threshold, err := severityThreshold(failOn)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	c, err := layercheck.New(ctx, configFromViper(v))
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	defer c.Close()

	result, err := c.Check(ctx, methodName, className, layercheck.Options{Advise: advise, Refresh: refresh})
	if err != nil {
		return err
	}
	if err := printResult(cmd.OutOrStdout(), result, format); err != nil {
		return err
	}
	if threshold > 0 {
		for _, viol := range result.Violations {
			if viol.Severity.Level() >= threshold {
				return errViolations
			}
		}
	}
	return nil
}

// severityThreshold maps a --fail-on value to a severity level. Empty
// disables the check.
func severityThreshold(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	switch sev := types.Severity(strings.ToLower(s)); sev {
	case types.Low, types.Medium, types.High:
		return sev.Level(), nil
	default:
		return 0, fmt.Errorf("unknown severity %q", s)
	}
}

// printResult renders result to w in the given format.
func printResult(w io.Writer, result *layercheck.Result, format string) error {
	switch format {
	case formatJSON:
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling result: %w", err)
		}
		fmt.Fprintln(w, string(out))
	case formatTree:
		fmt.Fprint(w, result.Graph.TreeString())
	default:
		fmt.Fprint(w, result.Graph.TreeString())
		if result.Fallback {
			fmt.Fprintf(w, "\nNote: source index could not resolve the method, showing a placeholder graph (%s)\n", result.FallbackReason)
		}
		fmt.Fprintln(w)
		if len(result.Violations) == 0 {
			fmt.Fprintln(w, "No violations found.")
		}
		for _, viol := range result.Violations {
			fmt.Fprintln(w, viol.Report())
		}
		if result.Advice != "" {
			fmt.Fprintln(w, result.Advice)
		}
	}
	return nil
}
