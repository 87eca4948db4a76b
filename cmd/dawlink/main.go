package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/soundops/dawlink/core/logx"
	"github.com/soundops/dawlink/internal/agent"
	"github.com/soundops/dawlink/internal/bridge"
	"github.com/soundops/dawlink/internal/handlers"
	"github.com/soundops/dawlink/internal/metrics"
	"github.com/soundops/dawlink/internal/resolve"
	"github.com/soundops/dawlink/internal/status"
	"github.com/soundops/dawlink/internal/tools"
)

var (
	version   = "dev"
	buildSHA  = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	var cfg agent.Config
	cfg.BindFlags()
	flag.Usage = func() {
		_, _ = fmt.Fprintf(flag.CommandLine.Output(), "dawlink version=%s sha=%s date=%s\n\n", version, buildSHA, buildDate)
		flag.PrintDefaults()
	}
	flag.Parse()
	if *showVersion {
		fmt.Printf("dawlink version=%s sha=%s date=%s\n", version, buildSHA, buildDate)
		return
	}

	if cfg.ConfigFile != "" {
		if err := cfg.LoadFile(cfg.ConfigFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			logx.Log.Fatal().Err(err).Str("path", cfg.ConfigFile).Msg("load config")
		}
	}
	logx.Configure(cfg.LogLevel)

	metrics.Register(prometheus.DefaultRegisterer)
	metrics.SetBuildInfo(version, buildSHA, buildDate)

	store, err := resolve.NewStore(cfg.CacheDir, cfg.SeedCacheDir)
	if err != nil {
		logx.Log.Fatal().Err(err).Str("dir", cfg.CacheDir).Msg("open cache")
	}

	// The connection is dialed lazily on the first command, so the agent
	// server starts (and plans offline) even when the host is down.
	client := bridge.New(bridge.Config{
		Addr:            cfg.BridgeAddr,
		DialTimeout:     cfg.DialTimeout,
		CallTimeout:     cfg.CallTimeout,
		MutatingTimeout: cfg.MutatingTimeout,
	}, handlers.IsMutating)
	defer client.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.StatusAddr != "" {
		st := status.NewServer(version, buildSHA, buildDate, client, store)
		addr, err := status.Serve(ctx, cfg.StatusAddr, st.Handler(cfg.AllowedOrigins))
		if err != nil {
			logx.Log.Fatal().Err(err).Str("addr", cfg.StatusAddr).Msg("status server bind")
		}
		logx.Log.Info().Str("addr", addr).Msg("status server ready")
	}

	svc := tools.New(client, store, version)
	logx.Log.Info().Str("bridge", cfg.BridgeAddr).Str("cache", store.Root()).Msg("serving MCP tools on stdio")

	errCh := make(chan error, 1)
	go func() { errCh <- svc.ServeStdio() }()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logx.Log.Fatal().Err(err).Msg("mcp server error")
		}
	case <-ctx.Done():
		logx.Log.Info().Msg("termination requested")
	}
}
