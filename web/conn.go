package web

import (
	"bufio"
	"net"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxRecvBytes bounds a single header line read from a connection.
const DefaultMaxRecvBytes = 8 << 10

// Conn wraps an accepted socket with buffered I/O, a receive limit and a
// trace id used to correlate log lines across the requests it serves.
type Conn struct {
	rwc     net.Conn
	br      *bufio.Reader
	bw      *bufio.Writer
	maxRecv int
	trace   string
}

// NewConn wraps c. maxRecv bounds delimiter-terminated reads; exceeding it
// before the delimiter is a protocol violation, not a truncation.
func NewConn(c net.Conn, maxRecv int) *Conn {
	if maxRecv <= 0 {
		maxRecv = DefaultMaxRecvBytes
	}
	return &Conn{
		rwc:     c,
		br:      bufio.NewReader(c),
		bw:      bufio.NewWriter(c),
		maxRecv: maxRecv,
		trace:   uuid.NewString(),
	}
}

// Trace returns the connection's correlation id.
func (c *Conn) Trace() string { return c.trace }

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() string {
	if c.rwc == nil {
		return ""
	}
	return c.rwc.RemoteAddr().String()
}

// Reader exposes the buffered read side for the wire codec.
func (c *Conn) Reader() *bufio.Reader { return c.br }

// Writer exposes the buffered write side for the wire codec. All response
// bytes pass through this shared buffer, flushed when full.
func (c *Conn) Writer() *bufio.Writer { return c.bw }

// MaxRecvBytes returns the receive-buffer limit for delimited reads.
func (c *Conn) MaxRecvBytes() int { return c.maxRecv }

// Flush forces buffered output onto the wire.
func (c *Conn) Flush() error { return c.bw.Flush() }

func (c *Conn) SetReadDeadline(t time.Time) error  { return c.rwc.SetReadDeadline(t) }
func (c *Conn) SetWriteDeadline(t time.Time) error { return c.rwc.SetWriteDeadline(t) }

// Close tears the connection down.
func (c *Conn) Close() error { return c.rwc.Close() }
