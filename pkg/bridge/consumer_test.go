// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package bridge

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tmaxmax/go-sse"

	"github.com/go-core-stack/devin-mcp-remote/pkg/auth"
)

func newTestConsumer(t *testing.T, transport http.RoundTripper, state *State, out io.Writer) *consumer {
	t.Helper()

	sseURL, err := url.Parse("https://host/sse")
	if err != nil {
		t.Fatalf("parse SSE url: %v", err)
	}

	return &consumer{
		client:  &http.Client{Transport: transport},
		sseURL:  sseURL,
		headers: auth.Bearer{Token: "test-key"}.SSEHeaders(),
		state:   state,
		out:     out,
		retry:   newBackoff(time.Millisecond, 2*time.Millisecond),
		logger:  zerolog.Nop(),
	}
}

func TestConsumerDispatchesEventsInOrder(t *testing.T) {
	state := newTestState("https://host/mcp", false)
	out := &syncBuffer{}

	pr, pw := io.Pipe()
	var attempts int32
	transport := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if atomic.AddInt32(&attempts, 1) > 1 {
			return nil, errors.New("stream already consumed")
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     make(http.Header),
			Body:       pr,
		}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := newTestConsumer(t, transport, state, out)
	done := make(chan error, 1)
	go func() { done <- c.run(ctx) }()

	// Deliver the stream in fragments that split events mid-line.
	writeAll(t, pw,
		"event: endpoint\ndata: {\"url\": ",
		"\"/mcp/abc\"}\n\n",
		"event: ping\ndata: {}\n\nda",
		"ta: {\"id\":1}\n\n",
		"data: not json\n\n",
		"data: {\"id\":2}\n\n",
	)

	waitUntil(t, time.Second, func() bool {
		return strings.Contains(out.String(), `{"id":2}`)
	})

	if got, want := out.String(), "{\"id\":1}\n{\"id\":2}\n"; got != want {
		t.Fatalf("local output = %q, want %q", got, want)
	}
	if got := state.RPCURL(); got != "https://host/mcp/abc" {
		t.Fatalf("RPC URL = %q, want %q", got, "https://host/mcp/abc")
	}

	readyCtx, stop := context.WithCancel(context.Background())
	stop()
	if !state.WaitReady(readyCtx) {
		t.Fatal("endpoint discovery must have marked the state ready")
	}

	cancel()
	if err := pw.Close(); err != nil {
		t.Fatalf("close stream writer: %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("run returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop after cancellation")
	}
}

func TestConsumerRetriesAfterBadStatus(t *testing.T) {
	state := newTestState("https://host/mcp", false)
	out := &syncBuffer{}

	pr, pw := io.Pipe()
	var attempts int32
	transport := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		switch atomic.AddInt32(&attempts, 1) {
		case 1:
			return &http.Response{
				StatusCode: http.StatusServiceUnavailable,
				Header:     make(http.Header),
				Body:       io.NopCloser(strings.NewReader("busy")),
			}, nil
		case 2:
			return &http.Response{
				StatusCode: http.StatusOK,
				Header:     make(http.Header),
				Body:       pr,
			}, nil
		default:
			return nil, errors.New("no more streams")
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := newTestConsumer(t, transport, state, out)
	done := make(chan error, 1)
	go func() { done <- c.run(ctx) }()

	writeAll(t, pw, "data: {\"id\":1}\n\n")

	waitUntil(t, time.Second, func() bool {
		return strings.Contains(out.String(), `{"id":1}`)
	})

	if got := atomic.LoadInt32(&attempts); got != 2 {
		t.Fatalf("connect attempts = %d, want 2", got)
	}

	cancel()
	if err := pw.Close(); err != nil {
		t.Fatalf("close stream writer: %v", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop after cancellation")
	}
}

func TestConsumerReadsSessionFreshPerConnect(t *testing.T) {
	state := newTestState("https://host/mcp", false)
	out := &syncBuffer{}

	var (
		mu       sync.Mutex
		sessions []string
	)
	transport := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		mu.Lock()
		sessions = append(sessions, req.Header.Get(auth.HeaderSessionID))
		calls := len(sessions)
		mu.Unlock()

		if calls == 1 {
			if got := req.Header.Get("Authorization"); got != "Bearer test-key" {
				t.Errorf("Authorization = %q, want bearer credential", got)
			}
			if got := req.Header.Get("Accept"); got != "text/event-stream" {
				t.Errorf("Accept = %q, want text/event-stream", got)
			}
			// Simulate the forwarder learning a session between attempts.
			state.SetSessionID("rotated")
		}
		return nil, errors.New("connection refused")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := newTestConsumer(t, transport, state, out)
	done := make(chan error, 1)
	go func() { done <- c.run(ctx) }()

	waitUntil(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(sessions) >= 2
	})

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop after cancellation")
	}

	mu.Lock()
	defer mu.Unlock()
	if sessions[0] != "" {
		t.Fatalf("first connect carried session %q, want none", sessions[0])
	}
	if sessions[1] != "rotated" {
		t.Fatalf("second connect carried session %q, want %q", sessions[1], "rotated")
	}
}

func TestConsumerAgainstLiveSSEServer(t *testing.T) {
	sessionID := uuid.NewString()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want bearer credential", got)
		}

		sess, err := sse.Upgrade(w, r)
		if err != nil {
			t.Errorf("upgrade to SSE: %v", err)
			return
		}

		endpoint := sse.Message{Type: sse.Type("endpoint")}
		endpoint.AppendData("/mcp/message?sessionID=" + sessionID)
		if err := sess.Send(&endpoint); err != nil {
			return
		}
		if err := sess.Flush(); err != nil {
			return
		}

		msg := sse.Message{Type: sse.Type("message")}
		msg.AppendData(`{"jsonrpc":"2.0","id":1,"result":{}}`)
		if err := sess.Send(&msg); err != nil {
			return
		}
		if err := sess.Flush(); err != nil {
			return
		}

		<-r.Context().Done()
	}))
	defer srv.Close()

	sseURL, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}

	state := newTestState("https://host/mcp", false)
	out := &syncBuffer{}
	c := &consumer{
		client:  srv.Client(),
		sseURL:  sseURL,
		headers: auth.Bearer{Token: "test-key"}.SSEHeaders(),
		state:   state,
		out:     out,
		retry:   newBackoff(time.Millisecond, 2*time.Millisecond),
		logger:  zerolog.Nop(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.run(ctx) }()

	waitUntil(t, 2*time.Second, func() bool {
		return strings.Contains(out.String(), `"jsonrpc":"2.0"`)
	})

	wantURL := srv.URL + "/mcp/message?sessionID=" + sessionID
	if got := state.RPCURL(); got != wantURL {
		t.Fatalf("RPC URL = %q, want %q", got, wantURL)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop after cancellation")
	}
}

// writeAll feeds the stream fragments in order, failing the test on a broken
// pipe.
func writeAll(t *testing.T, w io.Writer, fragments ...string) {
	t.Helper()
	for _, fragment := range fragments {
		if _, err := io.WriteString(w, fragment); err != nil {
			t.Fatalf("write stream fragment: %v", err)
		}
	}
}

// syncBuffer is a bytes.Buffer safe for concurrent writers and readers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitUntil(t *testing.T, timeout time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
