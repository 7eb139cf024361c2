package cli

import (
	"bufio"
	"context"
	"os"

	"github.com/avoskres/loankeeper/internal/client/config"
	"github.com/avoskres/loankeeper/internal/client/models"
	"github.com/avoskres/loankeeper/internal/client/remote"
	"github.com/avoskres/loankeeper/internal/client/services"
	"github.com/avoskres/loankeeper/internal/client/storage"
	"github.com/avoskres/loankeeper/internal/logging"
)

type App struct {
	config   *config.Config
	repos    *storage.Repositories
	remote   *remote.RESTClient
	engine   *services.SyncEngine
	monitor  *services.Monitor
	data     map[models.Table]*services.DataService
	log      logging.Logger
	reader   *bufio.Reader
	userName string
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	log := logging.NewDefault()

	repos, err := storage.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		log.Error(ctx, "initializing database", "error", err)
		return nil, err
	}

	rc := remote.NewRESTClient(c.ServerURL, c.APIKey)
	engine := services.NewSyncEngine(rc, repos, log)
	monitor := services.NewMonitor(rc, c.OnlineCheckInterval, log)

	opts := services.DataServiceOptions{AutoSync: c.AutoSync, SyncInterval: c.SyncInterval}
	data := make(map[models.Table]*services.DataService, len(models.ManagedTables()))
	for _, table := range models.ManagedTables() {
		data[table] = services.NewDataService(table, engine, repos, rc, monitor, log, opts)
	}

	return &App{
		config:  c,
		repos:   repos,
		remote:  rc,
		engine:  engine,
		monitor: monitor,
		data:    data,
		log:     log,
		reader:  bufio.NewReader(os.Stdin),
	}, nil
}

// Run starts the connectivity watcher and the per-table sync lifecycles,
// then hands control to the REPL until the user exits.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.monitor.Run(ctx)

	for _, svc := range a.data {
		svc.Start(ctx)
	}
	defer func() {
		for _, svc := range a.data {
			svc.Stop()
		}
		_ = a.remote.Close()
		_ = a.repos.Close()
	}()

	a.Root(ctx)
}
