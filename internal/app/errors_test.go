package app

import (
	"errors"
	"testing"
)

func TestComponentError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ComponentError
		expected string
	}{
		{"nil error", nil, ""},
		{"component only", &ComponentError{Component: "lua"}, "lua"},
		{"component and action", &ComponentError{Component: "lua", Action: "load"}, "lua: load"},
		{"component and err", &ComponentError{Component: "lua", Err: errors.New("boom")}, "lua: boom"},
		{"full", NewComponentError("watcher", "add /tmp", errors.New("boom")), "watcher: add /tmp: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := tt.err.Error(); result != tt.expected {
				t.Errorf("Error() = '%s', expected '%s'", result, tt.expected)
			}
		})
	}
}

func TestComponentError_Unwrap(t *testing.T) {
	inner := errors.New("inner error")
	err := NewComponentError("config", "load", inner)

	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the inner error")
	}

	var nilErr *ComponentError
	if nilErr.Unwrap() != nil {
		t.Error("expected nil from Unwrap() on nil receiver")
	}
}
