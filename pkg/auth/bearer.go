// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package auth

import "net/http"

// HeaderSessionID carries the opaque session token issued by the remote
// service. Servers may rotate it on any response.
const HeaderSessionID = "Mcp-Session-Id"

// Bearer holds the API credential presented on every outbound request.
type Bearer struct {
	Token string
}

// SSEHeaders returns the base header set for the long-lived event stream GET.
func (b Bearer) SSEHeaders() http.Header {
	h := make(http.Header)
	h.Set("Authorization", "Bearer "+b.Token)
	h.Set("Accept", "text/event-stream")
	return h
}

// RPCHeaders returns the base header set for JSON-RPC POSTs.
func (b Bearer) RPCHeaders() http.Header {
	h := make(http.Header)
	h.Set("Authorization", "Bearer "+b.Token)
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json, text/event-stream")
	return h
}

// WithSession clones base and attaches the session header when a session is
// established. The base set is never mutated.
func WithSession(base http.Header, sessionID string) http.Header {
	h := base.Clone()
	if sessionID != "" {
		h.Set(HeaderSessionID, sessionID)
	}
	return h
}
