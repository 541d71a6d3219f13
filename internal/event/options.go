package event

// Logger receives printf-style debug traces from the bus. *app.Logger
// satisfies it.
type Logger interface {
	Debug(format string, args ...any)
}

// nopLogger discards all traces.
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}

// Option configures a Bus or Coordinator.
type Option func(*config)

// config contains configuration shared by Bus and Coordinator.
type config struct {
	// logger receives debug traces.
	logger Logger
}

// defaultConfig returns the default configuration.
func defaultConfig() config {
	return config{
		logger: nopLogger{},
	}
}

// WithLogger sets the logger for debug traces.
func WithLogger(l Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
