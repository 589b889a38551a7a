package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"dqx0.com/go/webserve/internal/obs"
	"dqx0.com/go/webserve/web/internal/http1"
)

// Server multiplexes connections over the runtime scheduler: one goroutine
// per connection, suspending at every socket boundary, no dedicated worker
// threads. Requests on one connection are served strictly sequentially.
type Server struct {
	Addr string
	// Part is the root handler. When it declines, the server answers 404.
	Part WebPart

	Log   obs.Logger
	Meter obs.Meter
	Mime  MimeResolver
	// HomeDir and CompDir are handed to every Context as runtime paths.
	HomeDir string
	CompDir string

	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	// HandlerTimeout bounds part execution; on expiry with nothing
	// committed the server answers 408 and closes the connection.
	HandlerTimeout time.Duration
	MaxHeaderBytes int

	mu         sync.Mutex
	ln         net.Listener
	artifacts  *ArtifactCache
	inShutdown bool
	activeWG   sync.WaitGroup
}

func (s *Server) ListenAndServe() error {
	addr := s.Addr
	if addr == "" {
		addr = ":8080"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	s.ln = l
	if s.artifacts == nil {
		dir := s.CompDir
		if dir == "" {
			dir = "."
		}
		s.artifacts = NewArtifactCache(dir, s.meter())
	}
	s.mu.Unlock()
	defer l.Close()
	for {
		c, err := l.Accept()
		if err != nil {
			s.mu.Lock()
			closing := s.inShutdown
			s.mu.Unlock()
			if closing {
				return nil
			}
			return err
		}
		s.count("web_conn_accepted_total")
		s.activeWG.Add(1)
		go func() {
			defer s.activeWG.Done()
			s.serveConn(c)
		}()
	}
}

// Shutdown stops accepting and waits for in-flight connections until ctx
// expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.inShutdown = true
	ln := s.ln
	s.mu.Unlock()
	if ln != nil {
		_ = ln.Close()
	}
	done := make(chan struct{})
	go func() {
		s.activeWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) serveConn(nc net.Conn) {
	conn := NewConn(nc, s.headerLimit())
	defer conn.Close()
	s.log(conn.Trace(), obs.Debug, "accepted "+conn.RemoteAddr(), nil)

	alive := true
	for alive {
		if s.ReadHeaderTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.ReadHeaderTimeout))
		}
		rr := &http1.Reader{
			BR:                  conn.Reader(),
			MaxHeaderBytes:      s.headerLimit(),
			MaxTotalHeaderBytes: s.headerLimit() * 8,
		}
		pr, err := rr.ReadRequest()
		if err != nil {
			if errors.Is(err, io.EOF) || isTimeout(err) {
				return
			}
			// Protocol violation: localized 400, then close because the
			// framing of the stream is no longer trustworthy.
			_ = http1.WriteResponse(conn.Writer(), 400, "", nil, nil, false)
			_ = conn.Flush()
			s.log(conn.Trace(), obs.Warn, "bad request", err)
			return
		}

		keepAlive := wantKeepAlive(pr)
		req := buildRequest(pr, conn)
		ctx := s.newContext(req, conn)

		if strings.EqualFold(req.Header.Get("Expect"), "100-continue") {
			_ = http1.WriteContinue(conn.Writer())
			_ = conn.Flush()
		}
		s.count("web_requests_total", obs.Label{Key: "method", Value: req.Method})
		started := time.Now()

		out, timedOut := s.runPart(ctx)
		if timedOut {
			_, _ = ctx.Response.commitFresh(conn, req.Method, 408, "Request Timeout")
			s.count("web_responses_total", obs.Label{Key: "status", Value: "408"})
			s.log(conn.Trace(), obs.Warn, req.Method+" "+req.RequestURI+" timed out", ErrTimeout)
			return
		}
		if out == nil {
			out = ctx.With(404, "not found")
		}

		if s.WriteTimeout > 0 {
			_ = conn.SetWriteDeadline(time.Now().Add(s.WriteTimeout))
		}
		keep, err := out.Response.commit(conn, req.Method, keepAlive)
		status := out.Response.Status
		if status == 0 {
			status = 200
		}
		s.count("web_responses_total", obs.Label{Key: "status", Value: strconv.Itoa(status)})
		s.histogram("web_request_duration_ms", float64(time.Since(started).Milliseconds()),
			obs.Label{Key: "method", Value: req.Method})
		s.log(conn.Trace(), obs.Info, fmt.Sprintf("%s %s -> %d", req.Method, req.RequestURI, status), nil)
		if err != nil {
			// Transfer failure mid-response: nothing further can be safely
			// written; tear the connection down.
			s.log(conn.Trace(), obs.Warn, "response transfer failed", err)
			return
		}

		req.drainBody()
		alive = keep
		if alive {
			if s.IdleTimeout > 0 {
				_ = conn.SetReadDeadline(time.Now().Add(s.IdleTimeout))
			} else {
				_ = conn.SetReadDeadline(time.Time{})
			}
		}
	}
}

// runPart executes the root part under Protect and the handler timeout.
func (s *Server) runPart(ctx *Context) (out *Context, timedOut bool) {
	part := s.Part
	if part == nil {
		return nil, false
	}
	guarded := Protect(part)
	if s.HandlerTimeout <= 0 {
		return guarded(ctx), false
	}
	done := make(chan *Context, 1)
	go func() { done <- guarded(ctx) }()
	timer := time.NewTimer(s.HandlerTimeout)
	defer timer.Stop()
	select {
	case out = <-done:
		return out, false
	case <-timer.C:
		// The in-flight part is abandoned; only this goroutine writes to
		// the connection, so the 408 cannot interleave with it.
		return nil, true
	}
}

// commitFresh answers with a short fixed response, bypassing any state the
// abandoned handler may have accumulated. Commit-once still holds: the
// abandoned response object is marked committed first.
func (r *Response) commitFresh(c *Conn, method string, status int, body string) (bool, error) {
	if r.committed {
		return false, ErrAlreadyCommitted
	}
	r.committed = true
	fresh := &Response{Status: status, Body: []byte(body)}
	return fresh.commit(c, method, false)
}

func (s *Server) newContext(req *Request, conn *Conn) *Context {
	mime := s.Mime
	if mime == nil {
		mime = DefaultMimeTable()
	}
	return &Context{
		Request:   req,
		Response:  &Response{},
		Conn:      conn,
		Log:       s.logger(),
		Meter:     s.meter(),
		Mime:      mime,
		HomeDir:   s.HomeDir,
		CompDir:   s.CompDir,
		Artifacts: s.artifacts,
	}
}

func buildRequest(pr *http1.ParsedRequest, conn *Conn) *Request {
	var u *url.URL
	if strings.HasPrefix(pr.RequestURI, "http://") || strings.HasPrefix(pr.RequestURI, "https://") {
		u, _ = url.Parse(pr.RequestURI)
	} else {
		u, _ = url.ParseRequestURI(pr.RequestURI)
	}
	rawQuery := ""
	if u != nil {
		rawQuery = u.RawQuery
	}
	return &Request{
		Method:        pr.Method,
		URL:           u,
		RequestURI:    pr.RequestURI,
		RawQuery:      rawQuery,
		Proto:         pr.Proto,
		Header:        Header(pr.Header),
		RemoteAddr:    conn.RemoteAddr(),
		ContentLength: pr.ContentLength,
		Trace:         conn.Trace(),
		body:          pr.Body,
	}
}

func wantKeepAlive(pr *http1.ParsedRequest) bool {
	connVal := strings.ToLower(Header(pr.Header).Get("Connection"))
	if pr.Proto == "HTTP/1.1" {
		return connVal != "close"
	}
	return connVal == "keep-alive"
}

// noBodyStatus reports whether a response to method with this status carries
// no body on the wire.
func noBodyStatus(status int, method string) bool {
	if method == "HEAD" {
		return true
	}
	if status >= 100 && status < 200 {
		return true
	}
	return status == 204 || status == 304
}

func (s *Server) headerLimit() int {
	if s.MaxHeaderBytes <= 0 {
		return DefaultMaxRecvBytes
	}
	return s.MaxHeaderBytes
}

func (s *Server) logger() obs.Logger {
	if s.Log != nil {
		return s.Log
	}
	return obs.NopLogger{}
}

func (s *Server) meter() obs.Meter {
	if s.Meter != nil {
		return s.Meter
	}
	return obs.NopMeter{}
}

func (s *Server) log(trace string, level obs.Level, msg string, err error) {
	s.logger().Log(trace, level, "web/server", msg, err)
}

func (s *Server) count(name string, labels ...obs.Label) {
	s.meter().Counter(name, 1, labels...)
}

func (s *Server) histogram(name string, v float64, labels ...obs.Label) {
	s.meter().Histogram(name, v, labels...)
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
