package web

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventStream_HandshakeAndFraming(t *testing.T) {
	t.Parallel()

	ctx, fc := newTestContext(t, "GET", "/events", nil)
	out := EventStream(func(s *EventSink) error {
		if err := s.Send(EventMessage{ID: "1", Type: "tick", Data: "hello"}); err != nil {
			return err
		}
		return s.Send(EventMessage{ID: "2", Data: "world"})
	})(ctx)
	require.NotNil(t, out)

	keep, err := out.Response.commit(out.Conn, "GET", true)
	require.NoError(t, err)
	assert.False(t, keep, "an event stream is close-delimited")

	wire := fc.out.String()
	assert.True(t, containsLine(wire, "Content-Type: text/event-stream"))
	assert.True(t, containsLine(wire, "Cache-Control: no-cache"))
	assert.True(t, containsLine(wire, "Connection: close"))
	assert.NotContains(t, wire, "Content-Length:")
	assert.NotContains(t, wire, "Transfer-Encoding:")

	body := wire[strings.Index(wire, "\r\n\r\n")+4:]
	assert.True(t, strings.HasPrefix(body, ": "), "stream opens with a padding comment")
	assert.GreaterOrEqual(t, len(body), handshakePaddingBytes)
	assert.Contains(t, body, "retry: 3000\n\n")

	retryAt := strings.Index(body, "retry:")
	firstEvent := strings.Index(body, "id: 1")
	assert.Greater(t, firstEvent, retryAt, "retry directive precedes the first event")
	assert.Contains(t, body, "id: 1\nevent: tick\ndata: hello\n\n")
	assert.Contains(t, body, "id: 2\ndata: world\n\n")
}

func TestEventStreamRetry_CustomDelay(t *testing.T) {
	t.Parallel()

	ctx, fc := newTestContext(t, "GET", "/events", nil)
	out := EventStreamRetry(func(*EventSink) error { return nil }, 750)(ctx)
	require.NotNil(t, out)
	_, err := out.Response.commit(out.Conn, "GET", true)
	require.NoError(t, err)
	assert.Contains(t, fc.out.String(), "retry: 750\n\n")
}

func TestEventSink_OmitsEmptyEventType(t *testing.T) {
	t.Parallel()

	ctx, fc := newTestContext(t, "GET", "/events", nil)
	out := EventStream(func(s *EventSink) error {
		return s.Send(EventMessage{ID: "7", Data: "typeless"})
	})(ctx)
	require.NotNil(t, out)
	_, err := out.Response.commit(out.Conn, "GET", true)
	require.NoError(t, err)

	assert.Contains(t, fc.out.String(), "id: 7\ndata: typeless\n\n")
	assert.NotContains(t, fc.out.String(), "event:")
}

func TestEventSink_CommentKeepAlive(t *testing.T) {
	t.Parallel()

	ctx, fc := newTestContext(t, "GET", "/events", nil)
	out := EventStream(func(s *EventSink) error {
		return s.Comment("ping")
	})(ctx)
	require.NotNil(t, out)
	_, err := out.Response.commit(out.Conn, "GET", true)
	require.NoError(t, err)
	assert.Contains(t, fc.out.String(), ": ping\n")
}
