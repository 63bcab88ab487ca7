// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package bridge connects a line-oriented JSON-RPC channel on stdin/stdout
// to a remote MCP service reached over SSE plus HTTP. A consumer goroutine
// owns the long-lived event stream and discovers the JSON-RPC endpoint and
// session; a forwarder goroutine POSTs local input lines to whatever target
// is current. Both share one State and stop together on the first
// completion, signal, or stdin close.
package bridge
