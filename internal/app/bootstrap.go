package app

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/dshills/actionbus/internal/event"
	"github.com/dshills/actionbus/internal/event/events"
	"github.com/dshills/actionbus/internal/plugin/lua"
	"github.com/dshills/actionbus/internal/project/watcher"
)

// bootstrapper handles component initialization with proper cleanup on failure.
type bootstrapper struct {
	app       *Application
	initOrder []string
}

// newBootstrapper creates a new bootstrapper for the application.
func newBootstrapper(app *Application) *bootstrapper {
	return &bootstrapper{
		app:       app,
		initOrder: make([]string, 0, 5),
	}
}

// bootstrap initializes all components in dependency order.
// On failure, it cleans up already-initialized components.
func (b *bootstrapper) bootstrap() error {
	steps := []func() error{
		// 1. Event bus with the end-of-action order
		b.initBus,
		// 2. Host-owned subscriptions
		b.initHost,
		// 3. Application subscriptions
		b.initSubscriptions,
		// 4. Lua scripts
		b.initScripts,
		// 5. File watcher
		b.initWatcher,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			b.cleanup()
			return err
		}
	}
	return nil
}

// initBus creates the bus scheduled on the host.
func (b *bootstrapper) initBus() error {
	policy, err := events.Order()
	if err != nil {
		return &InitError{Component: "event bus", Err: err}
	}
	b.app.bus = event.NewBus(b.app.host, policy,
		event.WithLogger(b.app.logger.WithComponent("bus")))
	b.initOrder = append(b.initOrder, "bus")
	return nil
}

// initHost lets an interactive host subscribe its views.
func (b *bootstrapper) initHost() error {
	bh, ok := b.app.host.(binder)
	if !ok {
		return nil
	}
	if err := bh.Bind(b.app.bus); err != nil {
		return &InitError{Component: "host", Err: err}
	}
	b.initOrder = append(b.initOrder, "host")
	return nil
}

// initSubscriptions registers the application's own handlers.
func (b *bootstrapper) initSubscriptions() error {
	if err := b.app.subscribe(); err != nil {
		return &InitError{Component: "subscriptions", Err: err}
	}
	b.initOrder = append(b.initOrder, "subscriptions")
	return nil
}

// initScripts starts the Lua host and loads the configured scripts.
func (b *bootstrapper) initScripts() error {
	out := b.app.opts.ScriptOutput
	if out == nil {
		out = &logWriter{logger: b.app.logger.WithComponent("lua")}
	}
	b.app.scripts = lua.NewHost(b.app.bus, lua.WithPrintOutput(out))
	b.initOrder = append(b.initOrder, "scripts")

	if err := b.app.scripts.LoadFiles(b.app.config.Scripts.Paths); err != nil {
		return &InitError{Component: "scripts", Err: err}
	}
	return nil
}

// initWatcher watches the configured paths and the configuration file's
// directory. Missing paths are logged and skipped.
func (b *bootstrapper) initWatcher() error {
	paths := slices.Clone(b.app.config.Watch.Paths)
	if b.app.configPath != "" {
		if _, err := os.Stat(b.app.configPath); err == nil {
			// Editors replace files on save, so the directory is watched
			paths = append(paths, filepath.Dir(b.app.configPath))
		}
	}
	if len(paths) == 0 {
		return nil
	}

	w, err := watcher.NewFSNotifyWatcher(watcher.WithIgnorePatterns(b.app.config.Watch.Ignore))
	if err != nil {
		return &InitError{Component: "watcher", Err: err}
	}
	b.app.watcher = w
	b.initOrder = append(b.initOrder, "watcher")

	for _, p := range paths {
		if err := w.Watch(p); err != nil {
			if errors.Is(err, watcher.ErrAlreadyWatching) {
				continue
			}
			b.app.logger.Warn("watch %s: %v", p, err)
		}
	}

	log := b.app.logger.WithComponent("watcher")
	b.app.bridge = watcher.NewBridge(w, b.app.host, b.app.bus,
		watcher.WithDelay(b.app.config.Watch.Debounce()),
		watcher.WithLogger(log),
		watcher.WithErrorHandler(func(err error) {
			log.Warn("%v", err)
		}),
	)
	return nil
}

// cleanup releases initialized components in reverse order.
func (b *bootstrapper) cleanup() {
	for i := len(b.initOrder) - 1; i >= 0; i-- {
		switch b.initOrder[i] {
		case "watcher":
			if b.app.bridge != nil {
				b.app.bridge.Close()
			}
			b.app.watcher.Close()
		case "scripts":
			b.app.scripts.Close()
		case "subscriptions":
			b.app.subs.release()
		case "host":
			b.app.host.(binder).Unbind()
		}
	}
	b.initOrder = b.initOrder[:0]
}

// logWriter logs each written line at info level.
type logWriter struct {
	mu     sync.Mutex
	logger *Logger
	buf    bytes.Buffer
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Keep the partial line for the next write
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		if line = line[:len(line)-1]; line != "" {
			w.logger.Info("%s", line)
		}
	}
	return len(p), nil
}
