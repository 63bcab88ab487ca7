// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package bridge

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// State is the shared mutable bridge configuration: the current JSON-RPC
// target, the session token, and readiness. One instance is shared by the
// consumer and the forwarder; every field access goes through the lock, so
// neither path can observe a half-written update.
type State struct {
	mu        sync.Mutex
	rpcURL    string
	sessionID string
	ready     bool
	// readyCh is closed exactly once when the first RPC target becomes
	// known. Readiness never reverts within a run.
	readyCh chan struct{}
	logger  zerolog.Logger
}

// NewState seeds the state with the configured RPC URL. initialReady is true
// only when that URL was configured explicitly rather than left at its
// provisional default.
func NewState(initialRPCURL string, initialReady bool, logger zerolog.Logger) *State {
	s := &State{
		rpcURL:  initialRPCURL,
		readyCh: make(chan struct{}),
		logger:  logger,
	}
	if initialReady {
		s.ready = true
		close(s.readyCh)
	}
	return s
}

// RPCURL returns the current JSON-RPC target.
func (s *State) RPCURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rpcURL
}

// SetRPCURL updates the JSON-RPC target and marks the bridge ready to send.
// Marking ready again is a no-op.
func (s *State) SetRPCURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if url != s.rpcURL {
		s.logger.Info().Str("rpc_url", url).Msg("RPC endpoint updated")
	}
	s.rpcURL = url
	if !s.ready {
		s.ready = true
		close(s.readyCh)
	}
}

// SessionID returns the current session token, empty when none is
// established.
func (s *State) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// SetSessionID records the session token issued by the remote service.
func (s *State) SetSessionID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" && id != s.sessionID {
		s.logger.Info().Str("session_id", id).Msg("session established")
	}
	s.sessionID = id
}

// ClearSession forgets the session token after the remote rejected it.
func (s *State) ClearSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessionID != "" {
		s.logger.Info().Msg("clearing MCP session id")
	}
	s.sessionID = ""
}

// WaitReady blocks until an RPC target is known, returning false only when
// ctx is cancelled first. An already-ready state wins even against an
// already-cancelled context.
func (s *State) WaitReady(ctx context.Context) bool {
	select {
	case <-s.readyCh:
		return true
	default:
	}
	select {
	case <-s.readyCh:
		return true
	case <-ctx.Done():
		return false
	}
}
