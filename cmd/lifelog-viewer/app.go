package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/energye/systray"

	"github.com/lifelog-system/desktop-viewer/pkg/icon"
	"github.com/lifelog-system/desktop-viewer/pkg/instance"
	"github.com/lifelog-system/desktop-viewer/pkg/ipc"
	"github.com/lifelog-system/desktop-viewer/pkg/lifecycle"
	"github.com/lifelog-system/desktop-viewer/pkg/logging"
	"github.com/lifelog-system/desktop-viewer/pkg/poller"
	"github.com/lifelog-system/desktop-viewer/pkg/safebrowse"
	"github.com/lifelog-system/desktop-viewer/pkg/settings"
	"github.com/lifelog-system/desktop-viewer/pkg/shell"
	"github.com/lifelog-system/desktop-viewer/pkg/theme"
	"github.com/lifelog-system/desktop-viewer/pkg/view"
	"github.com/lifelog-system/desktop-viewer/pkg/viewerapi"
	"github.com/lifelog-system/desktop-viewer/pkg/webui"
	"github.com/lifelog-system/desktop-viewer/pkg/x11tray"
)

const shutdownTimeout = 5 * time.Second

type runOptions struct {
	globalOptions
	addr        string
	quitOnClose bool
}

// App holds the application state.
type App struct {
	systrayInterface SystrayInterface
	store            *settings.Store
	client           *viewerapi.Client
	signals          *ipc.Signals
	poller           *poller.Poller
	shell            *shell.Shell
	router           *view.Router
	web              *webui.Server
	window           *lifecycle.Controller
	health           *healthMonitor
	icons            *icon.Cache
	lock             *instance.Lock
	cancel           context.CancelFunc
	disposers        []func()
	opts             runOptions
}

func runApp(ctx context.Context, opts runOptions) error {
	logger, logFile, err := logging.Setup(logging.Options{
		Console: os.Stderr,
		AppName: appName,
		Debug:   opts.debug,
	})
	slog.SetDefault(logger)
	if err != nil {
		slog.Warn("File logging disabled", "error", err)
	}
	defer func() {
		if err := logFile.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "close log file: %v\n", err)
		}
	}()

	slog.Info("Starting Lifelog Viewer",
		"version", version,
		"commit", commit,
		"date", date,
		"quit_on_close", opts.quitOnClose)

	lock, err := acquireLock(ctx)
	if err != nil {
		var running *instance.RunningError
		if errors.As(err, &running) {
			return nil
		}
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			slog.Warn("[INSTANCE] Failed to release lock", "error", err)
		}
	}()

	store, err := openStore(opts.settingsPath)
	if err != nil {
		return err
	}

	appCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	app, err := newApp(appCtx, cancel, store, &RealSystray{}, newDesktopNotifier(), opts)
	if err != nil {
		return err
	}
	app.lock = lock

	slog.Info("Checking system tray availability...")
	trayProxy, err := x11tray.EnsureTray(appCtx)
	if err != nil {
		slog.Error("FATAL: System tray unavailable",
			"error", err,
			"help", "Ensure your desktop environment has a system tray, or install snixembed")
		app.shutdown()
		return err
	}

	slog.Info("Starting systray...")
	systray.Run(func() { app.onReady(appCtx) }, func() {
		slog.Info("Shutting down application")
		app.shutdown()
		if trayProxy != nil {
			slog.Info("Stopping system tray proxy")
			if err := trayProxy.Stop(); err != nil {
				slog.Warn("Failed to stop tray proxy cleanly", "error", err)
			}
		}
	})
	return nil
}

// acquireLock takes the single-instance lock. When another viewer already runs, its
// window is brought up and a *instance.RunningError is returned.
func acquireLock(ctx context.Context) (*instance.Lock, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return nil, fmt.Errorf("get user cache dir: %w", err)
	}
	lock, err := instance.Acquire(filepath.Join(cacheDir, appName), appName)
	var running *instance.RunningError
	if errors.As(err, &running) {
		slog.Info("[INSTANCE] Another viewer is running", "pid", running.PID, "addr", running.Addr)
		if running.Addr != "" {
			if openErr := safebrowse.OpenLocal(ctx, "http://"+running.Addr+"/"); openErr != nil {
				slog.Warn("[INSTANCE] Failed to open the running viewer", "error", openErr)
			}
		}
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("acquire instance lock: %w", err)
	}
	return lock, nil
}

func openStore(path string) (*settings.Store, error) {
	if path == "" {
		p, err := settings.DefaultPath(appName)
		if err != nil {
			return nil, err
		}
		path = p
	}
	store, err := settings.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open settings: %w", err)
	}
	slog.Info("[SETTINGS] Loaded settings", "path", store.Path())
	return store, nil
}

// newApp wires every component. Nothing is started until onReady.
func newApp(ctx context.Context, cancel context.CancelFunc, store *settings.Store, tray SystrayInterface,
	notifier shell.Notifier, opts runOptions, webOpts ...webui.Option,
) (*App, error) {
	app := &App{
		systrayInterface: tray,
		store:            store,
		signals:          ipc.NewSignals(),
		icons:            icon.NewCache(),
		cancel:           cancel,
		opts:             opts,
	}
	app.client = viewerapi.New(store.Get().APIEndpoint)
	app.poller = poller.New(ctx, func() {
		slog.Debug("[POLL] Auto refresh")
		app.signals.AutoRefresh.Publish(struct{}{})
	})
	app.shell = shell.New(store, app.poller, app.signals, notifier)
	app.health = newHealthMonitor(app.setStatus)

	router, err := view.NewRouter(ctx, view.NewDocument(), app.client, app.shell,
		view.WithThemeResolver(theme.Resolve),
		view.WithObserver(app.health))
	if err != nil {
		return nil, fmt.Errorf("create router: %w", err)
	}
	app.router = router

	webOpts = append([]webui.Option{webui.WithOnClose(app.handleWindowClosed)}, webOpts...)
	web, err := webui.New(router, app.shell, app.signals, webOpts...)
	if err != nil {
		return nil, fmt.Errorf("create window server: %w", err)
	}
	app.web = web

	app.window = lifecycle.New(
		func() (lifecycle.Window, error) { return web.Window(), nil },
		tray.Quit,
		lifecycle.Options{QuitWhenAllWindowsClosed: opts.quitOnClose},
	)
	app.shell.SetWindow(app.window)

	app.disposers = append(app.disposers,
		router.Subscribe(app.signals),
		// Every applied save announces the theme; keep the client endpoint in step with it.
		app.signals.ThemeChanged.Subscribe(func(string) {
			app.client.SetBaseURL(store.Get().APIEndpoint)
		}),
	)
	return app, nil
}

func (app *App) onReady(ctx context.Context) {
	slog.Info("System tray ready")
	app.systrayInterface.SetTitle("")
	app.setupTray()

	if err := app.start(ctx); err != nil {
		slog.Error("Failed to start viewer", "error", err)
		app.window.Quit()
	}
}

// start brings up the window server, the refresh timer, the first page load and the window.
func (app *App) start(ctx context.Context) error {
	if err := app.web.Start(app.opts.addr); err != nil {
		return err
	}
	if err := app.lock.Publish(app.web.Addr()); err != nil {
		slog.Warn("[INSTANCE] Failed to publish window address", "error", err)
	}

	s := app.store.Get()
	if err := app.poller.Start(s.Interval()); err != nil {
		return fmt.Errorf("start refresh timer: %w", err)
	}
	app.router.ApplyTheme(s.Theme)
	app.router.Refresh()

	go func() {
		err := app.store.Watch(ctx, func(next settings.Settings) {
			app.client.SetBaseURL(next.APIEndpoint)
			app.shell.ApplyExternal(next)
		})
		if err != nil {
			slog.Warn("[SETTINGS] Settings watcher stopped", "error", err)
		}
	}()

	return app.window.Start(s.StartMinimized)
}

// handleWindowClosed runs when the last browser tab has gone away.
func (app *App) handleWindowClosed() {
	if app.window.HandleClose() {
		return
	}
	app.window.AllWindowsClosed()
}

// shutdown stops the timer and the window server. It runs once, on the way out.
func (app *App) shutdown() {
	app.poller.Stop()
	app.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.web.Shutdown(ctx); err != nil {
		slog.Warn("[WINDOW] Window server shutdown failed", "error", err)
	}
	app.router.Wait()

	for _, dispose := range app.disposers {
		dispose()
	}
	app.disposers = nil
	app.health.logMetrics()
}
