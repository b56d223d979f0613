package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/billbatista/acasinha-ledger/config"
	"github.com/billbatista/acasinha-ledger/eventlogger"
	"github.com/billbatista/acasinha-ledger/eventstore"
	"github.com/billbatista/acasinha-ledger/group"
	"github.com/billbatista/acasinha-ledger/idempotency"
	"github.com/billbatista/acasinha-ledger/ledger"
	"github.com/billbatista/acasinha-ledger/migrations"
	"github.com/billbatista/acasinha-ledger/projector"
	"github.com/billbatista/acasinha-ledger/service"
	"github.com/billbatista/acasinha-ledger/storage"
)

type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	DB          *storage.DB
	Groups      group.Repository
	Store       *eventstore.Store
	Service     *service.Service
	Keys        idempotency.Store
	Diagnostics *eventlogger.Worker
}

// NewApp opens the configured database, migrates it and wires the ledger
// together. The returned cleanup flushes diagnostics and closes the database.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if logger == nil {
		logger = cfg.NewLogger()
	}

	a := &App{Config: cfg, Logger: logger}

	var (
		backend eventstore.Backend
		diag    eventlogger.EventLogger
	)
	switch cfg.Database.Driver {
	case storage.DriverMemory:
		a.Groups = group.NewMemoryRepository()
		a.Keys = idempotency.NewMemoryRepository(cfg.Idempotency.TTL)
		backend = eventstore.NewMemory()
		diag = eventlogger.NewMemoryEventLogger()
	default:
		db, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := migrations.Up(db.DB, cfg.Database.Driver); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		a.DB = db
		a.Groups = group.NewRepository(db)
		a.Keys = idempotency.NewRepository(db, cfg.Idempotency.TTL)
		backend = eventstore.NewSQL(db)
		diag = eventlogger.NewSqlEventLogger(db)
	}

	a.Diagnostics = eventlogger.NewWorker(diag, cfg.EventLogger.BufferSize, logger)
	a.Diagnostics.Start()

	a.Store = eventstore.New(backend, a.Groups,
		eventstore.WithRetries(cfg.Ledger.AppendRetries),
		eventstore.WithLogger(logger),
		eventstore.WithConflictHook(func(_ context.Context, groupID uuid.UUID, seq ledger.Seq, attempt int) {
			a.Diagnostics.Log(eventlogger.NewEvent(
				eventlogger.WithType(eventlogger.TypeAppendConflict),
				eventlogger.WithGroup(groupID),
				eventlogger.WithData(map[string]any{"seq": seq, "attempt": attempt}),
			))
		}),
	)
	a.Service = service.New(a.Groups, a.Store, projector.New(a.Store),
		service.WithLogger(logger),
		service.WithDiagnostics(a.Diagnostics),
	)

	cleanup := func() {
		a.Diagnostics.Shutdown()
		if a.DB != nil {
			if err := a.DB.Close(); err != nil {
				logger.Error("failed to close database", "error", err)
			}
		}
	}
	return a, cleanup, nil
}
