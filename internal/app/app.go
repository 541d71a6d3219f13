// Package app provides the main application structure and coordination
// for actionbus. It wires the event bus to its host loop, the Lua script
// host, the file watcher and the configuration, and manages the lifecycle.
package app

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/dshills/actionbus/internal/config"
	"github.com/dshills/actionbus/internal/event"
	"github.com/dshills/actionbus/internal/plugin/lua"
	"github.com/dshills/actionbus/internal/project/watcher"
)

// Host runs user actions and end-of-action flushes on a single goroutine.
// *Loop is the headless host; the terminal UI is the interactive one.
type Host interface {
	event.Scheduler

	// Post queues fn as one user action.
	Post(fn func() error) error

	// Run processes actions until ctx is done or an action returns ErrQuit.
	Run(ctx context.Context) error
}

// binder is implemented by hosts that subscribe to the bus themselves.
type binder interface {
	Bind(bus *event.Bus) error
	Unbind()
}

// Application is the central coordinator for all actionbus components.
type Application struct {
	mu sync.RWMutex

	// Core infrastructure
	host       Host
	bus        *event.Bus
	config     config.Config
	configPath string
	loader     *config.Loader
	logger     *Logger

	// Extension components
	scripts *lua.Host
	watcher *watcher.FSNotifyWatcher
	bridge  *watcher.Bridge

	// Bus subscriptions owned by the application
	subs subscriptions

	// State
	running atomic.Bool
	closed  atomic.Bool

	opts Options
}

// Options configures the application.
type Options struct {
	// Config is the initial configuration, usually from config.Load.
	Config config.Config

	// ConfigPath is the configuration file. When set and present on disk it
	// is watched and reloaded on change.
	ConfigPath string

	// Overrides is applied to every loaded configuration, including reloads.
	// Command-line flags use it so they keep precedence over the file.
	Overrides func(*config.Config)

	// Host runs actions. Defaults to a new Loop.
	Host Host

	// Logger receives application logs. Defaults to NullLogger.
	Logger *Logger

	// ScriptOutput receives Lua print output. Defaults to the logger at
	// info level.
	ScriptOutput io.Writer
}

// New creates a new Application with the given options. Scripts are loaded
// and watches are established before New returns; nothing is dispatched
// until Run starts the host.
func New(opts Options) (*Application, error) {
	if opts.Logger == nil {
		opts.Logger = NullLogger
	}
	if opts.Host == nil {
		opts.Host = NewLoop(WithLoopLogger(opts.Logger.WithComponent("loop")))
	}

	cfg := opts.Config
	if opts.Overrides != nil {
		opts.Overrides(&cfg)
	}

	app := &Application{
		host:   opts.Host,
		config: cfg,
		loader: config.NewLoader(),
		logger: opts.Logger,
		opts:   opts,
	}
	if opts.ConfigPath != "" {
		if abs, err := filepath.Abs(opts.ConfigPath); err == nil {
			app.configPath = abs
		} else {
			app.configPath = filepath.Clean(opts.ConfigPath)
		}
	}
	app.logger.SetLevel(ParseLogLevel(cfg.LogLevel))

	if err := newBootstrapper(app).bootstrap(); err != nil {
		return nil, err
	}
	return app, nil
}

// Run starts the host and blocks until it stops. Components are shut down
// before Run returns, so an Application runs at most once.
func (app *Application) Run(ctx context.Context) error {
	if app.closed.Load() {
		return ErrNotRunning
	}
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)

	app.logger.Info("running with %d script(s), watching %d path(s)",
		len(app.scripts.Loaded()), len(app.WatchedPaths()))

	err := app.host.Run(ctx)
	app.Shutdown()
	return err
}

// Shutdown releases every component in reverse initialization order. It is
// idempotent. Call it directly only when Run was never started.
func (app *Application) Shutdown() {
	if !app.closed.CompareAndSwap(false, true) {
		return
	}
	app.shutdown()
}

// shutdown performs cleanup in reverse initialization order.
func (app *Application) shutdown() {
	// 1. Stop file events before the bus loses its subscribers
	if app.bridge != nil {
		app.bridge.Close()
	}
	if app.watcher != nil {
		if err := app.watcher.Close(); err != nil {
			app.logger.Warn("close watcher: %v", err)
		}
	}

	// 2. Scripts
	if app.scripts != nil {
		app.scripts.Close()
	}

	// 3. Host and application subscriptions
	if b, ok := app.host.(binder); ok {
		b.Unbind()
	}
	app.subs.release()
}

// IsRunning returns true if the host is running.
func (app *Application) IsRunning() bool {
	return app.running.Load()
}

// Bus returns the event bus.
func (app *Application) Bus() *event.Bus {
	return app.bus
}

// Host returns the host running the actions.
func (app *Application) Host() Host {
	return app.host
}

// Config returns the current configuration. Reloads replace it on the host
// goroutine.
func (app *Application) Config() config.Config {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.config
}

// ConfigPath returns the absolute configuration file path, or "".
func (app *Application) ConfigPath() string {
	return app.configPath
}

// Logger returns the application logger.
func (app *Application) Logger() *Logger {
	return app.logger
}

// Scripts returns the Lua script host.
func (app *Application) Scripts() *lua.Host {
	return app.scripts
}

// WatchedPaths returns the paths under watch, sorted.
func (app *Application) WatchedPaths() []string {
	if app.watcher == nil {
		return nil
	}
	return app.watcher.WatchedPaths()
}

// InitError represents an initialization error.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return "init " + e.Component + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() error {
	return e.Err
}
