package web

import (
	"io"
	"strconv"

	"dqx0.com/go/webserve/web/internal/http1"
)

// StreamWriter defers body production until commit time. The writer itself
// chooses bounded or chunked framing through the BodyWriter; the pipeline
// does not override that choice.
type StreamWriter func(w *BodyWriter) error

// Response is mutable until committed: status, an ordered header list and a
// content descriptor (empty, in-memory buffer, or deferred stream writer).
type Response struct {
	Status int
	Reason string
	Body   []byte
	Stream StreamWriter

	fields    []http1.Field
	committed bool
}

// SetHeader replaces the first field with the given name, keeping its
// position in the recorded order, or appends when absent.
func (r *Response) SetHeader(name, value string) {
	for i := range r.fields {
		if equalFold(r.fields[i].Name, name) {
			r.fields[i].Value = value
			return
		}
	}
	r.fields = append(r.fields, http1.Field{Name: name, Value: value})
}

// AddHeader appends a field, permitting duplicates.
func (r *Response) AddHeader(name, value string) {
	r.fields = append(r.fields, http1.Field{Name: name, Value: value})
}

// HeaderValue returns the first value recorded for name.
func (r *Response) HeaderValue(name string) string {
	for _, f := range r.fields {
		if equalFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// Fields returns the headers in recorded order.
func (r *Response) Fields() []http1.Field { return r.fields }

// Committed reports whether the response has been written to the wire.
func (r *Response) Committed() bool { return r.committed }

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

type frameMode int

const (
	frameUndecided frameMode = iota
	frameBounded
	frameChunked
	frameClose
)

// BodyWriter is handed to a StreamWriter at commit time. The first Send*
// or Begin call fixes the framing and emits the status line and headers;
// the framing is held fixed thereafter.
type BodyWriter struct {
	conn      *Conn
	resp      *Response
	keepAlive bool
	mode      frameMode
	started   bool
}

func (w *BodyWriter) start(chunked bool) error {
	if w.started {
		return nil
	}
	w.started = true
	status := w.resp.Status
	if status == 0 {
		status = 200
	}
	return http1.StartResponse(w.conn.bw, status, w.resp.Reason, w.resp.fields, chunked, w.keepAlive)
}

func (w *BodyWriter) decide(m frameMode) error {
	if w.mode != frameUndecided {
		return ErrFramingDecided
	}
	w.mode = m
	return nil
}

// SendBounded declares Content-Length n, then streams exactly n bytes from
// src via the bounded transfer primitive.
func (w *BodyWriter) SendBounded(src io.Reader, n int64) error {
	if err := w.decide(frameBounded); err != nil {
		return err
	}
	w.resp.SetHeader("Content-Length", strconv.FormatInt(n, 10))
	if err := w.start(false); err != nil {
		return err
	}
	return w.conn.TransferBounded(src, n)
}

// SendSegment writes one pre-sized buffer with fixed-length framing.
func (w *BodyWriter) SendSegment(p []byte) error {
	if err := w.decide(frameBounded); err != nil {
		return err
	}
	w.resp.SetHeader("Content-Length", strconv.Itoa(len(p)))
	if err := w.start(false); err != nil {
		return err
	}
	return w.conn.WriteSegment(p)
}

// SendChunked streams src with chunked framing, terminated by the
// zero-length chunk.
func (w *BodyWriter) SendChunked(src io.Reader) error {
	if err := w.decide(frameChunked); err != nil {
		return err
	}
	if err := w.start(true); err != nil {
		return err
	}
	return w.conn.TransferChunked(src)
}

// Begin opens a close-delimited stream: no length framing, the connection is
// closed when the writer returns. Used for held-open push protocols.
func (w *BodyWriter) Begin() error {
	if err := w.decide(frameClose); err != nil {
		return err
	}
	w.keepAlive = false
	if err := w.start(false); err != nil {
		return err
	}
	return w.conn.Flush()
}

// Write emits raw body bytes on a close-delimited stream.
func (w *BodyWriter) Write(p []byte) (int, error) {
	if w.mode != frameClose {
		return 0, ErrFramingDecided
	}
	return w.conn.bw.Write(p)
}

// Flush pushes buffered stream bytes onto the wire.
func (w *BodyWriter) Flush() error { return w.conn.Flush() }

// commit writes the finished response to the connection. It returns whether
// the connection may serve another request afterwards. A second commit is a
// programming error and fails fast.
func (r *Response) commit(c *Conn, method string, wantKeepAlive bool) (bool, error) {
	if r.committed {
		return false, ErrAlreadyCommitted
	}
	r.committed = true

	status := r.Status
	if status == 0 {
		status = 200
	}
	suppressBody := method == "HEAD" || status == 204 || status == 304 || (status >= 100 && status < 200)

	if suppressBody && r.Stream != nil {
		// The deferred writer would produce body bytes this status/method
		// forbids; emit the header block alone.
		r.Stream = nil
		r.Body = nil
	}

	if r.Stream == nil {
		body := r.Body
		if suppressBody {
			body = nil
		}
		r.SetHeader("Content-Length", strconv.Itoa(len(body)))
		if err := http1.StartResponse(c.bw, status, r.Reason, r.fields, false, wantKeepAlive); err != nil {
			return false, err
		}
		if len(body) > 0 {
			if _, err := c.bw.Write(body); err != nil {
				return false, err
			}
		}
		return wantKeepAlive, c.Flush()
	}

	w := &BodyWriter{conn: c, resp: r, keepAlive: wantKeepAlive}
	if err := r.Stream(w); err != nil {
		return false, err
	}
	if !w.started {
		// Stream writer produced nothing; fall back to an empty fixed body.
		r.SetHeader("Content-Length", "0")
		if err := http1.StartResponse(c.bw, status, r.Reason, r.fields, false, w.keepAlive); err != nil {
			return false, err
		}
	}
	if err := c.Flush(); err != nil {
		return false, err
	}
	return w.keepAlive && w.mode != frameClose, nil
}
