// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/go-core-stack/devin-mcp-remote/pkg/auth"
	"github.com/go-core-stack/devin-mcp-remote/pkg/sse"
)

// consumer owns the long-lived SSE GET connection. It decodes the stream into
// events, routes endpoint discoveries into the shared state, and writes
// message payloads to local output. It is the only writer to local output, so
// events are emitted strictly in arrival order.
type consumer struct {
	client  *http.Client
	sseURL  *url.URL
	headers http.Header
	state   *State
	out     io.Writer
	retry   *backoff
	logger  zerolog.Logger
}

// run reconnects with exponential backoff until ctx is cancelled.
// Cancellation unwinds are not reported as connection errors.
func (c *consumer) run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := c.stream(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn().Err(err).Msg("SSE connection error")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retry.Delay()):
		}
	}
}

// stream opens one SSE connection and consumes it until the stream ends or
// ctx is cancelled. The session header is read fresh from the shared state
// on every attempt; the backoff resets once the connect succeeds.
func (c *consumer) stream(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.sseURL.String(), nil)
	if err != nil {
		return fmt.Errorf("build SSE request: %w", err)
	}
	req.Header = auth.WithSession(c.headers, c.state.SessionID())

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("connect SSE stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("SSE stream returned status %d", resp.StatusCode)
	}

	c.logger.Info().Str("sse_url", c.sseURL.String()).Msg("connected to SSE stream")
	c.retry.Reset()

	var blocks sse.BlockBuffer
	buf := make([]byte, 32*1024)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			blocks.Append(buf[:n])
			for {
				block, ok := blocks.Next()
				if !ok {
					break
				}
				if event, ok := sse.ParseBlock(block); ok {
					c.dispatch(event)
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return errors.New("SSE stream closed by server")
			}
			return fmt.Errorf("read SSE stream: %w", err)
		}
	}
}

func (c *consumer) dispatch(event sse.Event) {
	switch event.Type {
	case "endpoint":
		c.handleEndpoint(event)
	case "ping":
		// Keep-alive only; no output, no state change.
	default:
		c.handleMessage(event)
	}
}

// handleEndpoint resolves the announced RPC target against the SSE URL and
// publishes it, which also marks the bridge ready to send.
func (c *consumer) handleEndpoint(event sse.Event) {
	if !event.HasData {
		return
	}
	ref := decodeEndpoint(event.Data)
	if ref == "" {
		c.logger.Debug().Str("data", event.Data).Msg("endpoint event missing URL")
		return
	}
	resolved, err := resolveEndpoint(c.sseURL, ref)
	if err != nil {
		c.logger.Debug().Err(err).Str("data", event.Data).Msg("endpoint event has unparseable URL")
		return
	}
	c.state.SetRPCURL(resolved)
}

// handleMessage forwards a JSON payload to local output as one line. Non-JSON
// payloads are dropped; the remote side occasionally interleaves plain-text
// notices on the stream.
func (c *consumer) handleMessage(event sse.Event) {
	if !event.HasData {
		return
	}
	payload := strings.TrimSpace(event.Data)
	if payload == "" {
		return
	}
	if !json.Valid([]byte(payload)) {
		c.logger.Debug().Str("payload", payload).Msg("skipping non-JSON SSE event")
		return
	}
	if _, err := io.WriteString(c.out, payload+"\n"); err != nil {
		c.logger.Error().Err(err).Msg("write to local output failed")
	}
}
