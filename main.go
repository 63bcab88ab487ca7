// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-core-stack/devin-mcp-remote/pkg/bridge"
	"github.com/go-core-stack/devin-mcp-remote/pkg/config"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if flags.WroteHelp(err) {
			return
		}
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Str("log_level", cfg.LogLevel).Msg("invalid log level")
	}
	log.Logger = log.Level(level)

	// Logs go to stderr; stdout is reserved for the JSON-RPC channel.
	b, err := bridge.New(cfg, os.Stdin, os.Stdout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to construct bridge")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watchSignals(cancel)

	log.Info().
		Str("sse_url", cfg.SSEURL).
		Str("rpc_url", cfg.RPCURL).
		Msg("starting MCP bridge")

	if err := b.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("bridge exited unexpectedly")
	}

	log.Info().Msg("bridge stopped")
}

// watchSignals cancels the run context on the first SIGINT/SIGTERM. Later
// signals are dropped by the buffered channel, so repeats are no-ops.
func watchSignals(cancel context.CancelFunc) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop

	log.Info().Msg("signal received; shutting down")
	cancel()
}
