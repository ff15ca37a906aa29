package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/upb/ip-registry/config"
	"github.com/upb/ip-registry/internal/observability"
	"github.com/upb/ip-registry/migrations"
	"github.com/upb/ip-registry/repositories/postgres"
	"go.uber.org/zap"
)

type options struct {
	set       string
	direction string
	seed      bool
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := observability.NewLogger(envOr("LOG_LEVEL", "info"), os.Getenv("LOG_FORMAT"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := run(ctx, opts, logger); err != nil {
		logger.Fatal("migrate failed", zap.Error(err))
	}
}

func parseFlags(args []string) (options, error) {
	var opts options

	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.StringVar(&opts.set, "set", "", "migration set to apply: auth or app")
	fs.StringVar(&opts.direction, "direction", "up", "migration direction: up or down")
	fs.BoolVar(&opts.seed, "seed", false, "insert fixture rows after migrating up")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if opts.set != migrations.SetAuth && opts.set != migrations.SetApp {
		return opts, fmt.Errorf("-set must be %q or %q", migrations.SetAuth, migrations.SetApp)
	}
	if opts.direction != "up" && opts.direction != "down" {
		return opts, fmt.Errorf("-direction must be up or down")
	}
	if opts.seed && opts.direction != "up" {
		return opts, fmt.Errorf("-seed requires -direction up")
	}
	return opts, nil
}

func run(ctx context.Context, opts options, logger *zap.Logger) error {
	cfg, err := config.New(ctx)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}

	logger.Info("running migrations",
		zap.String("set", opts.set),
		zap.String("direction", opts.direction),
		zap.String("database", cfg.Database.LogString()))

	if err := migrations.Run(cfg.Database.DSN(), opts.set, opts.direction); err != nil {
		return err
	}
	logger.Info("migrations complete")

	if !opts.seed {
		return nil
	}

	factory, err := postgres.NewRepositoryFactory(cfg, logger)
	if err != nil {
		return err
	}
	defer factory.Close()

	switch opts.set {
	case migrations.SetAuth:
		err = seedUsers(ctx, factory.NewAuthRepositories().Users, logger)
	case migrations.SetApp:
		err = seedIPAddresses(ctx, factory.NewAppRepositories().IPAddresses, logger)
	}
	if err != nil {
		return fmt.Errorf("failed to seed %s: %w", opts.set, err)
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
