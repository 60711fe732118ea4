// Package sse implements the client side of Server-Sent Events: framing of
// the text/event-stream wire format and a cancellable connection that
// dispatches events to callbacks.
package sse

import (
	"strconv"
	"strings"
)

// RetryUnset is the Retry value of an event whose block carried no valid
// retry field.
const RetryUnset = -1

// Event is a single parsed server-sent event.
type Event struct {
	// Data is the event payload. Multiple data lines are joined with newlines.
	Data string
	// Name is the event type (from the event field). Empty for unnamed events.
	Name string
	// ID is the event ID.
	ID string
	// Retry is the reconnection interval in milliseconds, or RetryUnset.
	Retry int
}

// Field prefixes recognized by parseEvent. This is a fixed subset of the
// Event Stream grammar: case-sensitive, one space after the colon. Comment
// lines and colon-less fields are ignored.
const (
	prefixData  = "data: "
	prefixEvent = "event: "
	prefixID    = "id: "
	prefixRetry = "retry: "
)

// parseEvent parses one blank-line-delimited block of text into an event.
// It returns false when the block accumulates no data; such blocks are
// dropped by the connection without dispatching.
func parseEvent(block string) (*Event, bool) {
	ev := &Event{Retry: RetryUnset}
	var data []string

	for _, line := range strings.Split(block, "\n") {
		switch {
		case strings.HasPrefix(line, prefixData):
			data = append(data, line[len(prefixData):])
		case strings.HasPrefix(line, prefixEvent):
			ev.Name = line[len(prefixEvent):]
		case strings.HasPrefix(line, prefixID):
			ev.ID = line[len(prefixID):]
		case strings.HasPrefix(line, prefixRetry):
			// A malformed interval is treated as absent.
			if n, err := strconv.Atoi(line[len(prefixRetry):]); err == nil && n >= 0 {
				ev.Retry = n
			}
		}
	}

	ev.Data = strings.Join(data, "\n")
	if ev.Data == "" {
		return nil, false
	}
	return ev, true
}
