package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"go.aimuz.me/murmur/config"
	"go.aimuz.me/murmur/hotkey"
	"go.aimuz.me/murmur/internal/app"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		slog.Error("murmur exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  = flag.String("config", "", "path to config file (default: user config dir)")
		debug       = flag.Bool("debug", false, "enable debug logging")
		bindingFlag = flag.String("hotkey", "", "override the push-to-talk key, e.g. F7")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("murmur %s (%s, %s)\n", version, commit, date)
		return nil
	}

	config.LoadDotEnv()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFrom(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *bindingFlag != "" {
		cfg.Hotkey = *bindingFlag
	}

	level := cfg.SlogLevel()
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})))
	slog.Info("starting murmur", "version", version, "commit", commit, "date", date)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := app.New(cfg)
	if err != nil {
		var be *hotkey.BindingError
		if errors.As(err, &be) {
			return fmt.Errorf("hotkey %q unavailable: %w", be.Binding, be.Err)
		}
		return fmt.Errorf("init: %w", err)
	}

	if err := svc.Run(ctx); err != nil {
		return err
	}
	slog.Info("bye")
	return nil
}
