// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package sse implements the client-side text/event-stream plumbing used by
// the bridge: a block parser for the event/data/id line grammar and a buffer
// that reassembles blocks from an arbitrarily chunked byte stream.
package sse

import "strings"

// Event is one parsed server-sent event block. A Type of "" means the
// server sent no event field; consumers treat that as "message". HasData
// distinguishes an absent data field from an empty one.
type Event struct {
	Type    string
	ID      string
	Data    string
	HasData bool
}

// ParseBlock parses one event block whose lines are already LF-separated.
// Empty lines and ":" comments are skipped, unknown fields are ignored, and
// multiple data lines are joined with a newline. It reports false when the
// block carried no event, id, or data field at all.
func ParseBlock(block string) (Event, bool) {
	var (
		ev        Event
		fragments []string
		hasField  bool
	)

	for _, line := range strings.Split(block, "\n") {
		switch {
		case line == "":
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			ev.Type = fieldValue(line, "event:")
			hasField = true
		case strings.HasPrefix(line, "id:"):
			ev.ID = fieldValue(line, "id:")
			hasField = true
		case strings.HasPrefix(line, "data:"):
			fragments = append(fragments, fieldValue(line, "data:"))
		}
	}

	if !hasField && len(fragments) == 0 {
		return Event{}, false
	}
	if len(fragments) > 0 {
		ev.Data = strings.Join(fragments, "\n")
		ev.HasData = true
	}
	return ev, true
}

// fieldValue strips the field prefix and the single optional space after the
// colon.
func fieldValue(line, prefix string) string {
	return strings.TrimPrefix(line[len(prefix):], " ")
}
