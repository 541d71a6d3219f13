package lua

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultExecutionTimeout bounds a single script run or handler call.
const DefaultExecutionTimeout = 5 * time.Second

// State wraps a gopher-lua state with a restricted library set and an
// execution timeout.
//
// Calls may nest: a script that publishes runs Lua handlers inside its own
// call. The timeout covers the outermost call.
type State struct {
	L *lua.LState

	timeout time.Duration
	output  io.Writer

	depth  int
	cancel context.CancelFunc
	closed bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithExecutionTimeout sets the execution timeout. Zero disables it.
func WithExecutionTimeout(d time.Duration) StateOption {
	return func(s *State) {
		s.timeout = d
	}
}

// WithOutput sets where print writes. Output is discarded by default.
func WithOutput(w io.Writer) StateOption {
	return func(s *State) {
		s.output = w
	}
}

// NewState creates a Lua state.
func NewState(opts ...StateOption) *State {
	s := &State{
		timeout: DefaultExecutionTimeout,
		output:  io.Discard,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.L = lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(s.L)
	s.installPrint()

	return s
}

// openSafeLibraries opens the libraries that cannot reach the file system or
// the process.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}
}

func (s *State) installPrint() {
	s.L.SetGlobal("print", s.L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, n)
		for i := 1; i <= n; i++ {
			parts[i-1] = L.ToStringMeta(L.Get(i)).String()
		}
		fmt.Fprintln(s.output, strings.Join(parts, "\t"))
		return 0
	}))
}

// DoFile runs a script file.
func (s *State) DoFile(path string) error {
	return s.run(path, func() error { return s.L.DoFile(path) })
}

// DoString runs a chunk of Lua code.
func (s *State) DoString(code string) error {
	return s.run("<string>", func() error { return s.L.DoString(code) })
}

// CallFunction calls fn with args and discards its results.
func (s *State) CallFunction(source string, fn *lua.LFunction, args ...lua.LValue) error {
	return s.run(source, func() error {
		return s.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...)
	})
}

// run executes fn under the execution timeout of the outermost call.
func (s *State) run(source string, fn func() error) error {
	if s.closed {
		return ErrStateClosed
	}

	if s.depth == 0 && s.timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		s.cancel = cancel
		s.L.SetContext(ctx)
	}
	s.depth++

	err := fn()

	s.depth--
	timedOut := false
	if s.depth == 0 && s.cancel != nil {
		timedOut = errors.Is(s.L.Context().Err(), context.DeadlineExceeded)
		s.cancel()
		s.cancel = nil
		s.L.RemoveContext()
	}

	if err == nil {
		return nil
	}
	if timedOut {
		err = fmt.Errorf("%w: %v", ErrExecutionTimeout, err)
	}
	return &ScriptError{Source: source, Err: err}
}

// Closed returns true if the state has been closed.
func (s *State) Closed() bool {
	return s.closed
}

// Close releases the Lua state.
func (s *State) Close() {
	if s.closed {
		return
	}
	s.L.Close()
	s.closed = true
}
