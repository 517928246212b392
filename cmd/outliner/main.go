// Package main is the entry point for the outliner.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/outliner/internal/app"
	"github.com/dshills/outliner/internal/config"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// onceTimeout bounds waiting for the outline in -once mode.
const onceTimeout = 30 * time.Second

type options struct {
	configPath  string
	logLevel    string
	metricsAddr string
	debounce    time.Duration
	once        bool
	view        bool
	watch       bool
	path        string
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading config: %v\n", err)
		return 1
	}
	applyFlags(cfg, opts)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	logOut, err := app.OpenLogFile(cfg.Log.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer logOut.Close()

	var w io.Writer = logOut
	if opts.view && cfg.Log.File == "" {
		// The terminal belongs to the viewer.
		w = io.Discard
	}
	logger, err := app.NewLogger(w, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	appOpts := app.Options{
		Path:   opts.path,
		Config: cfg,
		Logger: logger,
		Watch:  opts.watch && !opts.once,
	}
	if opts.view {
		screen, err := tcell.NewScreen()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create terminal: %v\n", err)
			return 1
		}
		appOpts.Screen = screen
	}

	application, err := app.New(appOpts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.once {
		defer application.Shutdown(context.Background())
		ctx, cancel := context.WithTimeout(ctx, onceTimeout)
		defer cancel()
		if err := application.Once(ctx, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// applyFlags overrides configuration with explicitly set flags.
func applyFlags(cfg *config.Config, opts options) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "log-level":
			cfg.Log.Level = opts.logLevel
		case "metrics-addr":
			cfg.Metrics.Addr = opts.metricsAddr
		case "debounce":
			cfg.Outline.DebounceMS = int(opts.debounce / time.Millisecond)
		}
	})
}

func parseFlags() options {
	var opts options
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.configPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	flag.DurationVar(&opts.debounce, "debounce", 2500*time.Millisecond, "Quiet period before recomputing the outline")
	flag.BoolVar(&opts.once, "once", false, "Print the outline and exit")
	flag.BoolVar(&opts.view, "view", false, "Open the interactive viewer")
	flag.BoolVar(&opts.watch, "watch", true, "Reload the file when it changes on disk")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "outliner - incremental code outlining\n\n")
		fmt.Fprintf(os.Stderr, "Usage: outliner [options] file\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  outliner -once main.go             Print the regions of main.go\n")
		fmt.Fprintf(os.Stderr, "  outliner -view main.go             Browse main.go with folds\n")
		fmt.Fprintf(os.Stderr, "  outliner -metrics-addr :9090 a.go  Log changes and serve metrics\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("outliner %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	opts.path = flag.Arg(0)

	if opts.once && opts.view {
		fmt.Fprintln(os.Stderr, "Error: -once and -view are mutually exclusive")
		os.Exit(2)
	}

	return opts
}
