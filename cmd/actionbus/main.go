// Package main is the entry point for actionbus.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/dshills/actionbus/internal/app"
	"github.com/dshills/actionbus/internal/config"
	"github.com/dshills/actionbus/internal/ui"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// cliOptions holds the parsed command line.
type cliOptions struct {
	configPath  string
	logLevel    string
	headless    bool
	terminal    bool
	scripts     []string
	watch       []string
	snapshot    bool
	showVersion bool

	flags *pflag.FlagSet
}

func run(args []string) int {
	opts, err := parseFlags(args, os.Stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	if opts.showVersion {
		fmt.Printf("actionbus %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		return 0
	}

	path := opts.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		return 1
	}

	effective := cfg
	opts.apply(&effective)
	interactive := useTerminal(effective.UI.Mode)

	// The terminal owns the screen, so logs go to a file there
	logOut := io.Writer(os.Stderr)
	if interactive {
		f, err := openLogFile()
		if err != nil {
			logOut = io.Discard
		} else {
			defer f.Close()
			logOut = f
		}
	}
	logger := app.NewLogger(app.LoggerConfig{
		Level:  app.ParseLogLevel(effective.LogLevel),
		Output: logOut,
		Prefix: "actionbus",
	})

	var (
		host    app.Host
		scripts io.Writer
	)
	if interactive {
		screen, err := tcell.NewScreen()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create terminal: %v\n", err)
			return 1
		}
		host = ui.New(screen,
			ui.WithLogger(logger.WithComponent("ui")),
			ui.WithLogLines(effective.UI.LogLines))
	} else {
		host = app.NewLoop(app.WithLoopLogger(logger.WithComponent("loop")))
		scripts = os.Stdout
	}

	application, err := app.New(app.Options{
		Config:       cfg,
		ConfigPath:   path,
		Overrides:    opts.apply,
		Host:         host,
		Logger:       logger,
		ScriptOutput: scripts,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	// Ensure cleanup on all exit paths
	defer application.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !interactive {
		f := &feed{host: host, bus: application.Bus(), out: os.Stdout, logger: logger.WithComponent("feed")}
		go f.serve(os.Stdin)
	}

	err = application.Run(ctx)
	if opts.snapshot {
		if doc, serr := application.Bus().Snapshot().JSON(); serr == nil {
			fmt.Println(doc)
		}
	}
	if err != nil && !errors.Is(err, app.ErrQuit) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags(args []string, usage io.Writer) (cliOptions, error) {
	var opts cliOptions
	fs := pflag.NewFlagSet("actionbus", pflag.ContinueOnError)
	fs.SetOutput(usage)

	fs.StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	fs.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.BoolVar(&opts.headless, "headless", false, "Run without the terminal UI, reading commands from stdin")
	fs.BoolVar(&opts.terminal, "terminal", false, "Force the terminal UI")
	fs.StringArrayVarP(&opts.scripts, "script", "s", nil, "Lua script to load (repeatable)")
	fs.StringArrayVarP(&opts.watch, "watch", "w", nil, "Path to watch for changes (repeatable)")
	fs.BoolVar(&opts.snapshot, "snapshot", false, "Print the bus snapshot as JSON on exit")
	fs.BoolVarP(&opts.showVersion, "version", "v", false, "Show version information")

	fs.Usage = func() {
		fmt.Fprintf(usage, "actionbus - in-process event bus host\n\n")
		fmt.Fprintf(usage, "Usage: actionbus [options]\n\n")
		fmt.Fprintf(usage, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(usage, "\nHeadless commands (stdin):\n")
		fmt.Fprintf(usage, "  publish <topic> [json]   Dispatch now\n")
		fmt.Fprintf(usage, "  defer <topic> [json]     Dispatch at end of action\n")
		fmt.Fprintf(usage, "  snapshot                 Print the bus state\n")
		fmt.Fprintf(usage, "  quit                     Exit\n")
	}

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.headless && opts.terminal {
		return opts, errors.New("--headless and --terminal are mutually exclusive")
	}
	if fs.Changed("log-level") {
		switch strings.ToLower(opts.logLevel) {
		case "debug", "info", "warn", "warning", "error":
		default:
			return opts, fmt.Errorf("invalid log level %q (must be debug, info, warn or error)", opts.logLevel)
		}
	}
	opts.flags = fs
	return opts, nil
}

// apply overlays command-line settings onto cfg. Flags that were not given
// leave the file values alone.
func (o cliOptions) apply(cfg *config.Config) {
	if o.flags != nil && o.flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	switch {
	case o.headless:
		cfg.UI.Mode = config.UIModeHeadless
	case o.terminal:
		cfg.UI.Mode = config.UIModeTerminal
	}
	cfg.Scripts.Paths = slices.Concat(cfg.Scripts.Paths, o.scripts)
	cfg.Watch.Paths = slices.Concat(cfg.Watch.Paths, o.watch)
}

// useTerminal reports whether the terminal UI should run for mode.
func useTerminal(mode string) bool {
	switch mode {
	case config.UIModeTerminal:
		return true
	case config.UIModeHeadless:
		return false
	}
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// openLogFile opens the log file used while the terminal UI runs.
func openLogFile() (*os.File, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return nil, err
	}
	dir = filepath.Join(dir, "actionbus")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dir, "actionbus.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
