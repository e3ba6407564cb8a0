// Package app wires the SnapKeeper client together: storage, the media
// cache, the Drive client, the sync engine, the optional import watcher and
// status server, and the REPL. It also runs the one-shot "drain" mode used
// by background processes.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/snapkeeper/internal/client/cli"
	"github.com/dmitrijs2005/snapkeeper/internal/client/client"
	"github.com/dmitrijs2005/snapkeeper/internal/client/config"
	"github.com/dmitrijs2005/snapkeeper/internal/client/httpapi"
	"github.com/dmitrijs2005/snapkeeper/internal/client/importer"
	"github.com/dmitrijs2005/snapkeeper/internal/client/media"
	"github.com/dmitrijs2005/snapkeeper/internal/client/notify"
	"github.com/dmitrijs2005/snapkeeper/internal/client/render"
	"github.com/dmitrijs2005/snapkeeper/internal/client/repositories/content"
	"github.com/dmitrijs2005/snapkeeper/internal/client/services"
	"github.com/dmitrijs2005/snapkeeper/internal/client/store"
	"github.com/dmitrijs2005/snapkeeper/internal/client/syncer"
	"github.com/dmitrijs2005/snapkeeper/internal/filex"
	"github.com/dmitrijs2005/snapkeeper/internal/logging"
)

var ErrNotLoggedIn = errors.New("not logged in")

type App struct {
	config *config.Config
	logger logging.Logger

	store  *store.Store
	bus    *notify.Bus
	remote client.Remote
	folder *syncer.Folder

	authService  services.AuthService
	photoService services.PhotoService
	status       *services.StatusService

	worker     *syncer.Worker
	reconciler *syncer.Reconciler
	runner     *syncer.Runner
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(logging.Options{File: c.LogFile, Level: c.LogLevel})

	var cs content.Store
	if c.ContentBackend == config.BackendS3 {
		s3, err := content.NewS3Store(ctx, content.S3Config(c.S3))
		if err != nil {
			return nil, fmt.Errorf("content store init error: %w", err)
		}
		cs = s3
	}

	if err := filex.EnsureParentDir(c.DBPath); err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	st, err := store.Open(ctx, c.DBPath, cs, logger)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	bus := notify.NewBus(logger)

	lib := media.NewLibrary(st, render.New(), media.Options{
		ThumbnailHeight: c.ThumbnailHeight,
		CacheSize:       c.CacheSize,
		CacheTTL:        c.CacheTTL,
	}, logger)
	lib.Watch(bus)

	remote := client.NewDriveClient(c.DriveEndpoint, nil)
	as := services.NewAuthService(st, bus)
	folder := syncer.NewFolder(remote, st, c.RemoteFolder)
	exec := syncer.NewExecutor(st, remote, as, folder, bus, logger)

	app := &App{
		config:       c,
		logger:       logger,
		store:        st,
		bus:          bus,
		remote:       remote,
		folder:       folder,
		authService:  as,
		photoService: services.NewPhotoService(st, lib, bus, logger),
		status:       services.NewStatusService(st, as),
	}

	var waker syncer.Waker
	if c.BackgroundDrain {
		app.worker = syncer.NewWorker(exec, logger)
		waker = app.worker
	}

	app.reconciler = syncer.NewReconciler(syncer.ReconcilerConfig{
		Store:    st,
		Remote:   remote,
		Auth:     as,
		Folder:   folder,
		Notify:   bus,
		Drainer:  exec,
		Waker:    waker,
		Interval: c.SyncInterval,
		Log:      logger,
	})
	app.runner = syncer.NewRunner(app.reconciler, c.SyncInterval, logger)

	return app, nil
}

func (app *App) Close() error {
	return app.store.Close()
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// watchSession starts background sync on login and stops it on logout.
func (app *App) watchSession(ctx context.Context) {
	app.bus.Subscribe(notify.ChannelLogin, func(context.Context, notify.Message) {
		app.runner.Start(ctx)
	})
	app.bus.Subscribe(notify.ChannelLogout, func(context.Context, notify.Message) {
		app.runner.Stop()
	})
}

func (app *App) startHTTPServer(ctx context.Context) {
	router := httpapi.NewRouter(app.bus, app.status, app.logger)
	s := httpapi.NewServer(app.config.HTTPAddr, router, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "status server stopped", "err", err)
	}
}

func (app *App) startImporter(ctx context.Context) {
	dir, err := filex.EnsureDir(app.config.ImportDir)
	if err != nil {
		app.logger.Error(ctx, "import watcher init error", "err", err)
		return
	}
	w, err := importer.NewWatcher(dir, app.photoService, importer.DefaultSettle, app.logger)
	if err != nil {
		app.logger.Error(ctx, "import watcher init error", "err", err)
		return
	}
	if err := w.Run(ctx); err != nil {
		app.logger.Error(ctx, "import watcher stopped", "err", err)
	}
}

// Run starts the background parts and blocks in the REPL until the user
// exits or a termination signal arrives.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "db", app.config.DBPath, "folder", app.config.RemoteFolder)

	app.initSignalHandler(cancelFunc)
	app.watchSession(ctx)

	var wg sync.WaitGroup

	if app.worker != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.worker.Run(ctx)
		}()
	}

	if app.config.HTTPAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startHTTPServer(ctx)
		}()
	}

	if app.config.ImportDir != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startImporter(ctx)
		}()
	}

	if _, err := app.authService.Resume(ctx); err != nil {
		app.logger.Warn(ctx, "failed to restore session", "err", err)
	}

	repl := cli.NewApp(app.authService, app.photoService, app.status, app.reconciler)
	replDone := make(chan struct{})
	go func() {
		defer close(replDone)
		repl.Run(ctx)
	}()

	select {
	case <-replDone:
	case <-ctx.Done():
	}

	cancelFunc()
	app.runner.Stop()
	wg.Wait()

	if err := app.Close(); err != nil {
		app.logger.Error(ctx, "failed to close store", "err", err)
	}
}

// Drain runs the intent queue once with the saved session. Change events
// go to the local bus and, when a status server address is configured, to
// the foreground process over the bridge.
func (app *App) Drain(ctx context.Context) (syncer.DrainResult, error) {
	ok, err := app.authService.Resume(ctx)
	if err != nil {
		return syncer.DrainResult{}, err
	}
	if !ok {
		return syncer.DrainResult{}, ErrNotLoggedIn
	}

	pub := notify.Fanout{app.bus}
	if url := app.config.BridgeURL(); url != "" {
		bridge := notify.NewBridgeClient(url, app.logger)
		defer bridge.Close()
		pub = append(pub, bridge)
	}

	exec := syncer.NewExecutor(app.store, app.remote, app.authService, app.folder, pub, app.logger)
	res, err := exec.Drain(ctx)
	app.logger.Info(ctx, "drain finished", "done", res.Done, "dropped", res.Dropped, "failed", res.Failed, "err", err)
	return res, err
}
