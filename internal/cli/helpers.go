package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	otelAdapter "github.com/hatchpoint/variance/internal/adapters/otel"
	"github.com/hatchpoint/variance/internal/adapters/turso"
	"github.com/hatchpoint/variance/internal/experiments"
	"github.com/hatchpoint/variance/internal/flags"
	"github.com/hatchpoint/variance/internal/infrastructure/config"
	"github.com/hatchpoint/variance/internal/ports"
)

// app wires the engine together for a single CLI invocation.
type app struct {
	cfg     *config.Engine
	db      *sql.DB
	repo    *turso.ExperimentRepository
	service *experiments.Service
	flags   *flags.Flags
	metrics ports.EngineMetrics
}

func newApp(ctx context.Context) (*app, func(), error) {
	cfg, err := config.LoadEngine()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	db, err := turso.NewDB(cfg.Database.URL, cfg.Database.AuthToken)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger := newLogger(cfg.Verbose)

	var metrics ports.EngineMetrics
	otelCfg := otelAdapter.LoadConfig()
	if otelCfg.Enabled {
		exporter, err := otelAdapter.NewExporter(ctx, otelCfg)
		if err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("init OTEL exporter: %w", err)
		}
		metrics = exporter
	} else {
		metrics = otelAdapter.NewNoopExporter()
	}

	repo := turso.NewExperimentRepository(db)
	service := experiments.NewService(repo, metrics, logger)

	a := &app{
		cfg:     cfg,
		db:      db,
		repo:    repo,
		service: service,
		flags:   flags.New(repo, service, logger),
		metrics: metrics,
	}

	cleanup := func() {
		if err := metrics.Close(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to flush metrics: %v\n", err)
		}
		_ = db.Close()
	}
	return a, cleanup, nil
}

// orgOrDefault prefers the --org flag over the configured default.
func (a *app) orgOrDefault(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return a.cfg.OrgID
}
