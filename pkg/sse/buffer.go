// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package sse

import (
	"bytes"
	"strings"
)

var (
	crlf      = []byte("\r\n")
	lf        = []byte("\n")
	delimiter = []byte("\n\n")
)

// BlockBuffer reassembles event blocks from a chunked byte stream. CRLF pairs
// are normalized to LF, even when split across chunks, and blocks are
// terminated by a blank line.
type BlockBuffer struct {
	buf []byte
}

// Append adds a chunk of raw stream bytes.
func (b *BlockBuffer) Append(p []byte) {
	b.buf = append(b.buf, p...)
	// Normalizing the whole buffer each time repairs a CRLF pair that was
	// split across the previous chunk boundary.
	b.buf = bytes.ReplaceAll(b.buf, crlf, lf)
}

// Next extracts the next complete block, reporting false when no full block
// is buffered yet. Invalid UTF-8 sequences are dropped from the block rather
// than surfaced as an error.
func (b *BlockBuffer) Next() (string, bool) {
	i := bytes.Index(b.buf, delimiter)
	if i < 0 {
		return "", false
	}
	block := string(b.buf[:i])
	b.buf = append(b.buf[:0], b.buf[i+len(delimiter):]...)
	return strings.ToValidUTF8(block, ""), true
}
