// Command eventimport loads a YAML event catalog into the yescount store.
//
//	eventimport -file events.yaml [-dry-run]
//
// Database selection follows the same YESCOUNT_* variables as the API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/yescount/internal/catalog"
	"github.com/example/yescount/internal/config"
	"github.com/example/yescount/internal/logging"
	"github.com/example/yescount/internal/persistence/sqlstore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "eventimport:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("eventimport", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("file", "", "YAML catalog to import")
	dryRun := fs.Bool("dry-run", false, "validate the catalog without writing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return errors.New("-file is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level, _ := logging.ParseLevel(cfg.LogLevel)
	logger := logging.New(stderr, level)

	file, err := catalog.LoadFile(*path)
	if err != nil {
		return err
	}
	events, err := file.Normalize(cfg.Location())
	if err != nil {
		return err
	}
	if *dryRun {
		fmt.Fprintf(stdout, "%d events valid\n", len(events))
		return nil
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	result, err := catalog.NewImporter(store.Events, logger).Import(ctx, events)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%d events imported\n", result.Upserted)
	return nil
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (*sqlstore.Store, error) {
	dbConfig := sqlstore.SQLiteConfig(cfg.SQLitePath)
	if cfg.UsesPostgres() {
		dbConfig = sqlstore.PostgresConfig(cfg.DatabaseURL)
	}
	return sqlstore.Open(ctx, dbConfig, logger)
}
