package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/soundops/dawlink/core/logx"
	"github.com/soundops/dawlink/internal/agent"
	"github.com/soundops/dawlink/internal/dispatch"
	"github.com/soundops/dawlink/internal/handlers"
	"github.com/soundops/dawlink/internal/host"
	"github.com/soundops/dawlink/internal/listener"
)

var (
	version   = "dev"
	buildSHA  = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	var cfg agent.HostConfig
	cfg.BindFlags()
	flag.Usage = func() {
		_, _ = fmt.Fprintf(flag.CommandLine.Output(), "dawlink-host version=%s sha=%s date=%s\n\n", version, buildSHA, buildDate)
		flag.PrintDefaults()
	}
	flag.Parse()
	if *showVersion {
		fmt.Printf("dawlink-host version=%s sha=%s date=%s\n", version, buildSHA, buildDate)
		return
	}

	if cfg.ConfigFile != "" {
		if err := cfg.LoadFile(cfg.ConfigFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			logx.Log.Fatal().Err(err).Str("path", cfg.ConfigFile).Msg("load config")
		}
	}
	logx.Configure(cfg.LogLevel)

	sess := host.NewSession()
	if cfg.BrowserFile != "" {
		items, err := host.LoadBrowserFile(cfg.BrowserFile)
		if err != nil {
			logx.Log.Fatal().Err(err).Str("path", cfg.BrowserFile).Msg("load browser file")
		}
		sess.Browser = items
		logx.Log.Info().Int("items", len(items)).Str("path", cfg.BrowserFile).Msg("browser loaded from file")
	} else {
		sess.Browser = host.StockBrowser()
	}

	loop := host.NewTickLoop()
	defer loop.Close()

	reg := dispatch.NewRegistry()
	handlers.Register(reg, &handlers.Service{Session: sess, Version: version})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logx.Log.Info().Str("addr", cfg.ListenAddr).Int("commands", len(reg.Commands())).Msg("host daemon starting")
	// A bind failure is fatal: without the command channel the daemon has
	// no purpose, and silently retrying would hide a port conflict.
	if err := listener.New(reg, loop, version).Serve(ctx, cfg.ListenAddr); err != nil {
		logx.Log.Fatal().Err(err).Msg("command listener")
	}
}
