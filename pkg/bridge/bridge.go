// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/go-core-stack/devin-mcp-remote/pkg/auth"
	"github.com/go-core-stack/devin-mcp-remote/pkg/config"
)

// Bridge wires the SSE consumer and the stdin forwarder to one shared state
// and runs them to a coordinated stop.
type Bridge struct {
	consumer  *consumer
	forwarder *forwarder
}

// New constructs a Bridge reading local input from in and writing remote
// events to out.
func New(cfg config.Config, in io.Reader, out io.Writer) (*Bridge, error) {
	sseURL, err := url.Parse(cfg.SSEURL)
	if err != nil {
		return nil, fmt.Errorf("parse SSE URL: %w", err)
	}

	cred := auth.Bearer{Token: cfg.APIKey}
	state := NewState(cfg.RPCURL, cfg.RPCOverridden, log.With().Str("component", "state").Logger())
	client := newHTTPClient(cfg.InsecureSkipVerify)

	return &Bridge{
		consumer: &consumer{
			client:  client,
			sseURL:  sseURL,
			headers: cred.SSEHeaders(),
			state:   state,
			out:     out,
			retry:   newBackoff(reconnectMin, reconnectMax),
			logger:  log.With().Str("component", "sse").Logger(),
		},
		forwarder: &forwarder{
			client:  client,
			headers: cred.RPCHeaders(),
			state:   state,
			in:      in,
			logger:  log.With().Str("component", "rpc").Logger(),
		},
	}, nil
}

// Run drives both paths until the first one finishes for any reason, then
// cancels and joins the other. Whichever completion is detected first wins;
// cancellation unwinds count as normal termination.
func (b *Bridge) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 2)
	go func() { done <- b.consumer.run(ctx) }()
	go func() { done <- b.forwarder.run(ctx) }()

	first := <-done
	cancel()
	second := <-done

	return firstFailure(first, second)
}

// firstFailure picks the first real error, ignoring cancellation unwinds.
func firstFailure(errs ...error) error {
	for _, err := range errs {
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}
	return nil
}
