package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/hyperengineering/pindex/internal/config"
	"github.com/hyperengineering/pindex/internal/store"
)

var (
	dbPathOverride string
	jsonOutput     bool
)

// openStore opens the configured database for a local CLI command. The --db
// flag selects a SQLite file instead.
func openStore() (*store.SQLStore, *config.Config, error) {
	cfg, err := config.LoadLocal()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if dbPathOverride != "" {
		cfg.Database.Driver = "sqlite"
		cfg.Database.Path = dbPathOverride
	}

	s, err := store.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, nil, err
	}
	return s, cfg, nil
}

// cliLogger reports data-quality warnings on stderr.
func cliLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// printJSON marshals v to JSON and writes to the given writer.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newTabWriter returns a configured tabwriter for aligned columns.
func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// dashIfEmpty renders empty table cells as "-".
func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
