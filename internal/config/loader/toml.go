package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/pelletier/go-toml/v2"
)

// TOMLLoader decodes TOML files into Go values.
type TOMLLoader struct {
	fs     FileSystem
	strict bool
}

// NewTOMLLoader creates a TOML loader on the OS file system.
func NewTOMLLoader() *TOMLLoader {
	return &TOMLLoader{fs: DefaultFS()}
}

// NewTOMLLoaderWithFS creates a TOML loader with a custom file system.
func NewTOMLLoaderWithFS(fs FileSystem) *TOMLLoader {
	return &TOMLLoader{fs: fs}
}

// Strict makes the loader reject keys that do not map to a field of the
// target value.
func (l *TOMLLoader) Strict() *TOMLLoader {
	l.strict = true
	return l
}

// LoadInto decodes the file at path into v. Fields absent from the file keep
// their current value. It returns false without error if the file does not
// exist.
func (l *TOMLLoader) LoadInto(path string, v any) (bool, error) {
	data, err := l.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil // File doesn't exist, not an error
		}
		return false, fmt.Errorf("reading config file %s: %w", path, err)
	}

	return true, l.decode(path, data, v)
}

// LoadFromReader decodes TOML from r into v.
func (l *TOMLLoader) LoadFromReader(r io.Reader, v any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	return l.decode("<reader>", data, v)
}

// Overlay encodes values as TOML and decodes them into v, so a map produced
// by another source can be applied with the same field rules as a file.
func (l *TOMLLoader) Overlay(source string, values map[string]any, v any) error {
	if len(values) == 0 {
		return nil
	}
	data, err := toml.Marshal(values)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", source, err)
	}
	return l.decode(source, data, v)
}

// decode parses data into v and converts decoder errors to *ParseError.
func (l *TOMLLoader) decode(source string, data []byte, v any) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	if l.strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v); err != nil {
		perr := &ParseError{
			Path:    source,
			Message: err.Error(),
			Err:     err,
		}

		var derr *toml.DecodeError
		var serr *toml.StrictMissingError
		switch {
		case errors.As(err, &derr):
			perr.Line, perr.Column = derr.Position()
			perr.Message = derr.Error()
		case errors.As(err, &serr):
			perr.Message = "unknown setting: " + serr.String()
		}
		return perr
	}

	return nil
}

// ParseError represents an error while parsing a configuration file.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("parse error in %s at line %d, column %d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
