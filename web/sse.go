package web

import (
	"fmt"
	"strings"
)

// handshakePadding is a comment block flushed at stream start so buffering
// intermediaries release the response to the client immediately.
const handshakePaddingBytes = 2 << 10

// DefaultRetryMillis is the reconnection delay advertised to clients.
const DefaultRetryMillis = 3000

// EventMessage is one text/event-stream message. Type is optional.
type EventMessage struct {
	ID   string
	Type string
	Data string
}

// EventSink frames messages onto a held-open connection. The producer
// controls pacing; no keep-alive pings are injected on its behalf.
type EventSink struct {
	w *BodyWriter
}

// Send frames one message as id / optional event / data lines plus the
// terminating blank line, then flushes it to the client.
func (s *EventSink) Send(m EventMessage) error {
	if _, err := fmt.Fprintf(s.w, "id: %s\n", m.ID); err != nil {
		return err
	}
	if m.Type != "" {
		if _, err := fmt.Fprintf(s.w, "event: %s\n", m.Type); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", m.Data); err != nil {
		return err
	}
	return s.w.Flush()
}

// Comment emits a comment line, for producers that want explicit keep-alive.
func (s *EventSink) Comment(text string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n", text); err != nil {
		return err
	}
	return s.w.Flush()
}

// EventStream opens a text/event-stream response and hands the connection to
// producer. The connection stays open until the producer returns; the
// response is close-delimited.
func EventStream(producer func(*EventSink) error) WebPart {
	return EventStreamRetry(producer, DefaultRetryMillis)
}

// EventStreamRetry is EventStream with an explicit retry directive.
func EventStreamRetry(producer func(*EventSink) error, retryMillis int) WebPart {
	return func(c *Context) *Context {
		c.Response.SetHeader("Content-Type", "text/event-stream")
		c.Response.SetHeader("Cache-Control", "no-cache")
		return c.WithStream(200, func(w *BodyWriter) error {
			if err := w.Begin(); err != nil {
				return err
			}
			// Padding comment then the retry directive, flushed before the
			// producer takes over.
			if _, err := fmt.Fprintf(w, ": %s\n", strings.Repeat(" ", handshakePaddingBytes)); err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "retry: %d\n\n", retryMillis); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}
			return producer(&EventSink{w: w})
		})
	}
}
