package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hashicorp/go-hclog"

	catalogoutadapter "dansprotocol/internal/modules/catalog/adapter/out"
	catalogservice "dansprotocol/internal/modules/catalog/service"
	interruptoutadapter "dansprotocol/internal/modules/interrupt/adapter/out"
	interruptservice "dansprotocol/internal/modules/interrupt/service"
	journaloutadapter "dansprotocol/internal/modules/journal/adapter/out"
	journalservice "dansprotocol/internal/modules/journal/service"
	protocolinadapter "dansprotocol/internal/modules/protocol/adapter/in"
	protocoloutadapter "dansprotocol/internal/modules/protocol/adapter/out"
	protocolusecase "dansprotocol/internal/modules/protocol/usecase"
	"dansprotocol/internal/platform/clock"
	"dansprotocol/internal/platform/config"
	"dansprotocol/internal/platform/id"
	"dansprotocol/internal/platform/logging"
	"dansprotocol/internal/platform/sqlitedb"
	uiapp "dansprotocol/internal/ui/app"
)

type App struct {
	ProtocolCLI protocolinadapter.CLIHandler
	Dispatcher  *protocoloutadapter.QueueDispatcher
	StoreMode   sqlitedb.Mode
	Settings    config.Settings
	Logger      hclog.Logger

	db  *sql.DB
	log *logging.Logger
}

func New(cfg config.Config) (*App, error) {
	ctx := context.Background()
	log, err := logging.New(cfg.LogDir, cfg.Settings.LogLevel)
	if err != nil {
		return nil, err
	}

	db, mode, err := sqlitedb.Open(ctx, cfg.DBPath, []string{
		journaloutadapter.Schema,
		interruptoutadapter.Schema,
		protocoloutadapter.Schema,
	}, log.Named("store"))
	if err != nil {
		_ = log.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	clk := clock.SystemClock{}
	questions := catalogservice.Load(ctx, catalogoutadapter.NewYAMLSource(cfg.Settings.CatalogPath), log.Named("catalog"))
	journalUC := journalservice.NewJournalService(
		clk,
		id.UUID{},
		journaloutadapter.NewSQLiteStore(db),
		journaloutadapter.NewMarkdownExporter(cfg.ExportDir, questions),
		log.Named("journal"),
	)
	kv := interruptoutadapter.NewSQLiteKV(db)
	dispatcher := protocoloutadapter.NewQueueDispatcher()
	protocolUC := protocolusecase.NewController(protocolusecase.Deps{
		Clock:       clk,
		Journal:     journalUC,
		Catalog:     questions,
		Ledger:      interruptservice.NewLedgerService(kv),
		Snooze:      interruptservice.NewSnoozeService(kv),
		Scheduler:   protocoloutadapter.NewSQLiteScheduler(db),
		Permissions: protocoloutadapter.NewStaticPermission(cfg.Settings.Notifications),
		Dispatcher:  dispatcher,
		Logger:      log.Named("protocol"),
	})

	app := &App{
		ProtocolCLI: protocolinadapter.NewCLIHandler(protocolUC),
		Dispatcher:  dispatcher,
		StoreMode:   mode,
		Settings:    cfg.Settings,
		Logger:      log.Logger,
		db:          db,
		log:         log,
	}
	if _, err := app.ProtocolCLI.Start(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

// Drain runs work the controller deferred to the next tick.
func (a *App) Drain() {
	a.Dispatcher.Drain()
}

func (a *App) Close() error {
	var first error
	if a.db != nil {
		first = a.db.Close()
	}
	if err := a.log.Close(); err != nil && first == nil {
		first = err
	}
	return first
}

func RunTUI(app *App) error {
	model := uiapp.NewModel(app.ProtocolCLI, app.Dispatcher, app.Settings, app.StoreMode)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}
