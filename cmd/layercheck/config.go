// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/petar-djukic/layercheck/internal/advisor"
	"github.com/petar-djukic/layercheck/internal/filter"
	"github.com/petar-djukic/layercheck/pkg/layercheck"
)

// setupLogging installs a text handler on w as the default logger.
func setupLogging(level string, w io.Writer) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return fmt.Errorf("invalid log level %q: use debug, info, warn or error", level)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
	return nil
}

// configFromViper assembles the checker config from flags, environment and
// the config file. The config file's rules section is passed through as a
// rule source.
func configFromViper(v *viper.Viper) layercheck.Config {
	cfg := layercheck.Config{
		WorkDir:         v.GetString("workdir"),
		Language:        strings.ToLower(v.GetString("language")),
		Includes:        filter.ParseList(v.GetString("include")),
		MaxDepth:        v.GetInt("max-depth"),
		MaxUpHops:       v.GetInt("max-up-hops"),
		RulesDSN:        v.GetString("rules-dsn"),
		CacheTTL:        v.GetDuration("cache-ttl"),
		CacheMaxEntries: v.GetInt("cache-max-entries"),
		Advisor: advisor.Config{
			Provider:  strings.ToLower(v.GetString("advisor-provider")),
			ModelID:   v.GetString("advisor-model"),
			Region:    v.GetString("advisor-region"),
			Profile:   v.GetString("advisor-profile"),
			MaxTokens: v.GetInt("advisor-max-tokens"),
		},
		NoGit:  v.GetBool("no-git"),
		Logger: slog.Default(),
	}
	if ex := v.GetString("exclude"); ex != "" {
		cfg.Excludes = append(filter.ParseList(ex), filter.DefaultExcludes...)
	}
	if r := v.GetStringMap("rules"); len(r) > 0 {
		cfg.Rules = r
	}
	return cfg
}
