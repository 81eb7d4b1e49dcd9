package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/scriptorlabs/corrigo/pkg/cache"
	"github.com/scriptorlabs/corrigo/pkg/config"
	"github.com/scriptorlabs/corrigo/pkg/consensus"
	"github.com/scriptorlabs/corrigo/pkg/fingerprint"
	"github.com/scriptorlabs/corrigo/pkg/learned"
	"github.com/scriptorlabs/corrigo/pkg/ledger"
	"github.com/scriptorlabs/corrigo/pkg/logging"
	"github.com/scriptorlabs/corrigo/pkg/pipeline"
	"github.com/scriptorlabs/corrigo/pkg/provider"
)

// app bundles everything a command needs, plus the handles it must
// close on exit.
type app struct {
	corrector *pipeline.Corrector
	ledger    ledger.Ledger
	engine    *consensus.Engine
	db        *sql.DB
}

func (a *app) Close() {
	if a.corrector != nil {
		a.corrector.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// loadConfig reads the configured file. When the user did not name one
// and the default file is absent, defaults plus environment overrides
// apply instead of failing.
func loadConfig() (config.Config, error) {
	if !rootCmd.PersistentFlags().Changed("config") {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return config.Load("")
		}
	}
	return config.Load(configPath)
}

// buildApp wires the pipeline from configuration.
func buildApp(cfg config.Config) (*app, error) {
	setupLogging(cfg.Logging)

	var (
		db  *sql.DB
		fb  ledger.Ledger
		ls  learned.Store
		err error
	)
	switch cfg.Storage.Backend {
	case "memory":
		fb = ledger.NewMemoryLedger()
		ls = learned.NewMemoryStore()
	default:
		db, err = ledger.OpenDB(cfg.Storage.SQLite)
		if err != nil {
			return nil, err
		}
		if fb, err = ledger.NewSQLiteLedger(db); err != nil {
			return nil, err
		}
		if ls, err = learned.NewSQLiteStore(db); err != nil {
			return nil, err
		}
	}

	backend, err := provider.NewAnthropicProvider(cfg.Provider.Anthropic)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}
	gateway := provider.NewGateway(backend, cfg.Provider.Gateway)

	store := cache.NewMemoryStore(cache.Config{
		MaxEntries:      cfg.Cache.MaxEntries,
		DefaultTTL:      cfg.Cache.TTL,
		CleanupInterval: cfg.Cache.CleanupInterval,
	})
	requestCache := cache.New(store)

	engine := consensus.NewEngine(fb, ls, requestCache, cfg.Consensus)

	corrector := pipeline.New(pipeline.Deps{
		Index:   fingerprint.NewIndex(""),
		Learned: ls,
		Cache:   requestCache,
		Gateway: gateway,
		Engine:  engine,
		TTL:     cfg.Cache.TTL,
	})

	return &app{corrector: corrector, ledger: fb, engine: engine, db: db}, nil
}

func setupLogging(cfg config.LoggingConfig) {
	outputs := []logging.Output{logging.NewConsoleOutput(true)}
	if cfg.File != "" {
		if fileOut, err := logging.NewFileOutput(cfg.File); err == nil {
			outputs = append(outputs, fileOut)
		}
	}
	logging.SetLogger(logging.NewLogger(logging.Config{
		Severity: logging.ParseSeverity(cfg.Level),
		Outputs:  outputs,
	}))
}
