package lua

import (
	"io"
	"time"
)

// HostOption configures a Host.
type HostOption func(*hostConfig)

type hostConfig struct {
	output  io.Writer
	timeout time.Duration
}

// WithPrintOutput sets where script print output goes.
func WithPrintOutput(w io.Writer) HostOption {
	return func(c *hostConfig) {
		c.output = w
	}
}

// WithTimeout sets the execution timeout for scripts and handlers.
func WithTimeout(d time.Duration) HostOption {
	return func(c *hostConfig) {
		c.timeout = d
	}
}

// Host runs scripts against a bus.
type Host struct {
	state  *State
	module *BusModule
	loaded []string
}

// NewHost creates a Lua state with the bus module installed.
func NewHost(bus Bus, opts ...HostOption) *Host {
	cfg := hostConfig{
		output:  io.Discard,
		timeout: DefaultExecutionTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	state := NewState(WithOutput(cfg.output), WithExecutionTimeout(cfg.timeout))
	module := NewBusModule(state, bus)
	module.Register()

	return &Host{state: state, module: module}
}

// LoadFile runs the script at path.
func (h *Host) LoadFile(path string) error {
	if err := h.state.DoFile(path); err != nil {
		return err
	}
	h.loaded = append(h.loaded, path)
	return nil
}

// LoadFiles runs each script in order and stops at the first failure.
func (h *Host) LoadFiles(paths []string) error {
	for _, p := range paths {
		if err := h.LoadFile(p); err != nil {
			return err
		}
	}
	return nil
}

// Run runs a chunk of Lua code.
func (h *Host) Run(code string) error {
	return h.state.DoString(code)
}

// Loaded returns the scripts loaded so far.
func (h *Host) Loaded() []string {
	return append([]string(nil), h.loaded...)
}

// Subscriptions returns the ids of the subscriptions scripts hold.
func (h *Host) Subscriptions() []string {
	return h.module.Subscriptions()
}

// Close removes the scripts' subscriptions and releases the state.
func (h *Host) Close() {
	if h.state.Closed() {
		return
	}
	h.module.Cleanup()
	h.state.Close()
}
