// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/go-core-stack/devin-mcp-remote/pkg/auth"
)

// maxLineSize bounds a single JSON-RPC input line.
const maxLineSize = 4 * 1024 * 1024

// forwarder reads JSON lines from local input and POSTs them to the current
// RPC target with the session headers expected by the remote service.
type forwarder struct {
	client  *http.Client
	headers http.Header
	state   *State
	in      io.Reader
	logger  zerolog.Logger
}

// run forwards lines until local input closes or ctx is cancelled. A closed
// input is a normal completion; the orchestrator turns it into a full stop.
func (f *forwarder) run(ctx context.Context) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	// A blocked stdin read cannot be interrupted, so it lives on its own
	// goroutine and the loop selects against ctx instead.
	go f.readLines(lines, readErr)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			if err != nil {
				return fmt.Errorf("read local input: %w", err)
			}
			f.logger.Info().Msg("local input closed; stopping bridge")
			return nil
		case line := <-lines:
			f.forward(ctx, line)
		}
	}
}

// readLines pumps local input into lines and reports the terminal scanner
// state on readErr (nil on a clean end of input).
func (f *forwarder) readLines(lines chan<- string, readErr chan<- error) {
	scanner := bufio.NewScanner(f.in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		lines <- scanner.Text()
	}
	readErr <- scanner.Err()
}

// forward validates one input line and sends it once the RPC target is known.
func (f *forwarder) forward(ctx context.Context, line string) {
	payload := strings.TrimSpace(line)
	if payload == "" {
		return
	}
	if !json.Valid([]byte(payload)) {
		f.logger.Warn().Str("line", payload).Msg("discarding non-JSON input line")
		return
	}
	if !f.state.WaitReady(ctx) {
		// Shutdown won the race; the run loop exits on the next select.
		return
	}
	f.post(ctx, payload)
}

// post sends one JSON-RPC message. The target URL and session id are read
// fresh from the shared state, never cached across iterations. A failed POST
// is logged and dropped; there is no resend.
func (f *forwarder) post(ctx context.Context, payload string) {
	rpcURL := f.state.RPCURL()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rpcURL, strings.NewReader(payload))
	if err != nil {
		f.logger.Error().Err(err).Str("rpc_url", rpcURL).Msg("failed to build RPC request")
		return
	}
	req.Header = auth.WithSession(f.headers, f.state.SessionID())

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			f.logger.Error().Err(err).Str("rpc_url", rpcURL).Msg("RPC POST error")
		}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if readErr != nil {
			f.logger.Error().
				Err(readErr).
				Int("status", resp.StatusCode).
				Msg("failed to read RPC error body")
		} else {
			f.logger.Error().
				Int("status", resp.StatusCode).
				Str("rpc_url", rpcURL).
				Bytes("body", body).
				Msg("RPC POST failed")
		}
		if resp.StatusCode == http.StatusNotFound {
			// The remote no longer recognises the session.
			f.state.ClearSession()
		}
	}

	// Servers may rotate the session on any response, not only errors.
	if session := resp.Header.Get(auth.HeaderSessionID); session != "" {
		f.state.SetSessionID(session)
	}
}
