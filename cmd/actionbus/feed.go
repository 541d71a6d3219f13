package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/dshills/actionbus/internal/app"
	"github.com/dshills/actionbus/internal/event"
	"github.com/dshills/actionbus/internal/event/topic"
)

// errBadCommand is returned for lines the feed cannot parse.
var errBadCommand = errors.New("bad command")

// poster queues one user action.
type poster interface {
	Post(fn func() error) error
}

// feed reads headless commands, one per line, and posts each as a user
// action:
//
//	publish <topic> [json]
//	defer <topic> [json]
//	snapshot
//	quit
//
// Blank lines and lines starting with # are skipped.
type feed struct {
	host   poster
	bus    *event.Bus
	out    io.Writer
	logger *app.Logger
}

// run reads r until EOF. Malformed lines are logged and skipped.
func (f *feed) run(r io.Reader) error {
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		action, err := f.parse(line)
		if err != nil {
			f.logger.Warn("line %d: %v", n, err)
			continue
		}
		if err := f.host.Post(action); err != nil {
			return err
		}
	}
	return sc.Err()
}

// serve runs the feed on r and then stops the host, so end of input ends the
// program like a quit command.
func (f *feed) serve(r io.Reader) {
	if err := f.run(r); err != nil {
		f.logger.Warn("stdin: %v", err)
	}
	if err := f.host.Post(func() error { return app.ErrQuit }); err != nil && !errors.Is(err, app.ErrNotRunning) {
		f.logger.Warn("stop after end of input: %v", err)
	}
}

// parse turns one command line into an action.
func (f *feed) parse(line string) (func() error, error) {
	verb, rest, _ := strings.Cut(line, " ")
	switch verb {
	case "quit":
		return func() error { return app.ErrQuit }, nil

	case "snapshot":
		return func() error {
			doc, err := f.bus.Snapshot().JSON()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(f.out, doc)
			return err
		}, nil

	case "publish", "defer":
		name, data, _ := strings.Cut(strings.TrimSpace(rest), " ")
		t := topic.Topic(name)
		if t.IsBlank() {
			return nil, fmt.Errorf("%w: %s needs a topic", errBadCommand, verb)
		}
		payload, err := parsePayload(strings.TrimSpace(data))
		if err != nil {
			return nil, err
		}
		if verb == "defer" {
			return func() error { return f.bus.DeferPublish(t, payload) }, nil
		}
		return func() error { return f.bus.Publish(t, payload) }, nil
	}
	return nil, fmt.Errorf("%w: unknown verb %q", errBadCommand, verb)
}

// parsePayload decodes a JSON payload. Objects become map[string]any,
// arrays []any and numbers float64. An empty string is a nil payload.
func parsePayload(s string) (any, error) {
	if s == "" {
		return nil, nil
	}
	if !gjson.Valid(s) {
		return nil, fmt.Errorf("%w: payload is not valid JSON: %s", errBadCommand, s)
	}
	return gjson.Parse(s).Value(), nil
}
