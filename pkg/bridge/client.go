// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package bridge

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// maxErrorBody caps response bodies captured for logs.
const maxErrorBody = 64 * 1024

// newHTTPClient builds the outbound HTTP client shared by both paths. No
// overall client timeout is set: the SSE GET is long-lived and liveness
// comes from the run context instead.
func newHTTPClient(insecure bool) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: insecure, // nolint:gosec -- opt-in for development scenarios
		},
	}

	return &http.Client{Transport: transport}
}
