package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"gopkg.in/yaml.v3"
)

// YAMLLoader decodes YAML files into Go values.
type YAMLLoader struct {
	fs     FileSystem
	strict bool
}

// NewYAMLLoader creates a YAML loader on the OS file system.
func NewYAMLLoader() *YAMLLoader {
	return &YAMLLoader{fs: DefaultFS()}
}

// NewYAMLLoaderWithFS creates a YAML loader with a custom file system.
func NewYAMLLoaderWithFS(fs FileSystem) *YAMLLoader {
	return &YAMLLoader{fs: fs}
}

// Strict makes the loader reject keys that do not map to a field of the
// target value.
func (l *YAMLLoader) Strict() *YAMLLoader {
	l.strict = true
	return l
}

// LoadInto decodes the file at path into v. Fields absent from the file keep
// their current value. It returns false without error if the file does not
// exist.
func (l *YAMLLoader) LoadInto(path string, v any) (bool, error) {
	data, err := l.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("reading config file %s: %w", path, err)
	}

	return true, l.decode(path, data, v)
}

func (l *YAMLLoader) decode(source string, data []byte, v any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(l.strict)
	if err := dec.Decode(v); err != nil {
		// An empty document sets nothing
		if errors.Is(err, io.EOF) {
			return nil
		}
		perr := &ParseError{Path: source, Message: err.Error(), Err: err}

		var terr *yaml.TypeError
		if errors.As(err, &terr) && len(terr.Errors) > 0 {
			perr.Message = terr.Errors[0]
		}
		return perr
	}
	return nil
}
