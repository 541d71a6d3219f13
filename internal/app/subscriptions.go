package app

import (
	"path/filepath"
	"slices"

	"github.com/dshills/actionbus/internal/config"
	"github.com/dshills/actionbus/internal/event"
	"github.com/dshills/actionbus/internal/event/events"
	"github.com/dshills/actionbus/internal/event/topic"
)

// subscriptions tracks the handlers the application registered so they can
// be removed on shutdown.
type subscriptions struct {
	bus    *event.Bus
	exact  map[topic.Topic]event.Handler
	prefix map[string]event.PrefixHandler
}

func (s *subscriptions) addExact(t topic.Topic, h event.Handler) error {
	if err := s.bus.SubscribeExact(t, h); err != nil {
		return err
	}
	if s.exact == nil {
		s.exact = make(map[topic.Topic]event.Handler)
	}
	s.exact[t] = h
	return nil
}

func (s *subscriptions) addPrefix(prefix string, h event.PrefixHandler) error {
	if err := s.bus.SubscribePrefix(prefix, h); err != nil {
		return err
	}
	if s.prefix == nil {
		s.prefix = make(map[string]event.PrefixHandler)
	}
	s.prefix[prefix] = h
	return nil
}

// release unsubscribes everything. Safe to call more than once.
func (s *subscriptions) release() {
	if s.bus == nil {
		return
	}
	for t, h := range s.exact {
		s.bus.UnsubscribeExact(t, h)
	}
	for p, h := range s.prefix {
		s.bus.UnsubscribePrefix(p, h)
	}
	s.exact = nil
	s.prefix = nil
}

// subscribe registers the application's handlers:
//
//   - project.file.changed reloads the configuration file when it changes
//   - project.files.changed refreshes the status line
//   - every topic is traced at debug level
func (app *Application) subscribe() error {
	app.subs.bus = app.bus

	if err := app.subs.addExact(events.TopicProjectFileChanged,
		event.TypedFunc(events.ProjectFileChanged, app.onFileChanged)); err != nil {
		return err
	}
	if err := app.subs.addExact(events.TopicProjectFilesChanged,
		event.Func(app.onFilesChanged)); err != nil {
		return err
	}

	trace := app.logger.WithComponent("trace")
	return app.subs.addPrefix("", event.PrefixFunc(func(t topic.Topic, payload any) error {
		trace.Debug("%s %+v", t, payload)
		return nil
	}))
}

// onFileChanged reloads the configuration when its file changes.
func (app *Application) onFileChanged(c events.FileChange) error {
	if app.configPath == "" || filepath.Clean(c.Path) != app.configPath {
		return nil
	}
	if c.Action == events.FileActionDeleted {
		app.logger.Warn("config file %s removed, keeping current settings", c.Path)
		return nil
	}
	return app.ReloadConfig()
}

// onFilesChanged runs at end of action after a batch of file changes.
func (app *Application) onFilesChanged(any) error {
	return app.bus.Publish(events.TopicStatusLineRefresh, events.TopicProjectFilesChanged)
}

// ReloadConfig reads the configuration file again and applies it. When any
// key changed, config.changed is deferred to the end of the current action.
// It must run on the host goroutine, inside an action.
func (app *Application) ReloadConfig() error {
	if app.configPath == "" {
		return nil
	}

	cfg, err := app.loader.Load(app.configPath)
	if err != nil {
		return NewComponentError("config", "reload", err)
	}
	if app.opts.Overrides != nil {
		app.opts.Overrides(&cfg)
	}

	app.mu.Lock()
	old := app.config
	app.config = cfg
	app.mu.Unlock()

	keys := config.Changed(old, cfg)
	if len(keys) == 0 {
		app.logger.Debug("config reloaded, no changes")
		return nil
	}
	app.logger.Info("config reloaded, changed: %v", keys)

	if slices.Contains(keys, "log_level") {
		app.logger.SetLevel(ParseLogLevel(cfg.LogLevel))
	}
	return event.DeferTyped(app.bus, events.ConfigChanged, events.ConfigChange{
		Path: app.configPath,
		Keys: keys,
	})
}
