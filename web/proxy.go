package web

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"dqx0.com/go/webserve/internal/obs"
	"dqx0.com/go/webserve/web/internal/http1"
)

// UpstreamResolver maps an inbound request to the upstream that should
// receive it. ok=false means the request is not forwardable, which is an
// error for that request, not a decline.
type UpstreamResolver interface {
	Resolve(r *Request) (host string, port int, ok bool)
}

// ResolverFunc adapts a function to UpstreamResolver.
type ResolverFunc func(*Request) (string, int, bool)

func (f ResolverFunc) Resolve(r *Request) (string, int, bool) { return f(r) }

// StaticUpstream resolves every request to one host:port.
func StaticUpstream(host string, port int) UpstreamResolver {
	return ResolverFunc(func(*Request) (string, int, bool) { return host, port, true })
}

const badGatewayBody = "Bad Gateway: upstream did not respond"

// restrictedHeaders are never copied through naively: the transport layer
// owns them outright or recomputes their values for the outbound framing.
var restrictedHeaders = map[string]bool{
	"Connection":        true,
	"Keep-Alive":        true,
	"Proxy-Connection":  true,
	"Transfer-Encoding": true,
	"Upgrade":           true,
	"Te":                true,
	"Trailer":           true,
	"Content-Length":    true,
	"Host":              true,
	"X-Forwarded-For":   true,
}

// passthroughHeaders is the transport-sensitive subset re-applied explicitly
// from the inbound request after the generic copy.
var passthroughHeaders = []string{
	"Accept",
	"Date",
	"Expect",
	"Range",
	"Referer",
	"Content-Type",
	"If-Modified-Since",
	"User-Agent",
}

// Forwarder reconstructs an inbound request against a resolved upstream and
// relays the upstream's answer. One connection per forwarded request, one
// attempt, no retry; retry policy belongs to the resolver or an outer part.
type Forwarder struct {
	Resolver UpstreamResolver
	// DialTimeout bounds the upstream connect; ResponseTimeout bounds the
	// wait for the upstream status line.
	DialTimeout     time.Duration
	ResponseTimeout time.Duration
}

// Forward returns a part forwarding every matched request through resolver
// with default timeouts.
func Forward(resolver UpstreamResolver) WebPart {
	f := &Forwarder{Resolver: resolver}
	return f.Part()
}

// Part returns the forwarder as a composable WebPart.
func (f *Forwarder) Part() WebPart {
	return func(c *Context) *Context {
		host, port, ok := f.Resolver.Resolve(c.Request)
		if !ok {
			c.logf(obs.Warn, "web/proxy", "no upstream for "+c.Request.RequestURI, nil)
			return c.With(502, badGatewayBody)
		}
		return f.forward(c, net.JoinHostPort(host, strconv.Itoa(port)))
	}
}

func (f *Forwarder) forward(c *Context, addr string) *Context {
	dialTO := f.DialTimeout
	if dialTO <= 0 {
		dialTO = 5 * time.Second
	}
	up, err := net.DialTimeout("tcp", addr, dialTO)
	if err != nil {
		c.logf(obs.Warn, "web/proxy", "dial "+addr+" failed", err)
		c.count("web_proxy_upstream_errors_total", obs.Label{Key: "stage", Value: "dial"})
		return c.With(502, badGatewayBody)
	}

	ubw := bufio.NewWriter(up)
	ubr := bufio.NewReader(up)

	if err := f.writeUpstreamRequest(c, ubw); err != nil {
		_ = up.Close()
		c.logf(obs.Warn, "web/proxy", "write upstream request failed", err)
		c.count("web_proxy_upstream_errors_total", obs.Label{Key: "stage", Value: "write"})
		return c.With(502, badGatewayBody)
	}

	if f.ResponseTimeout > 0 {
		_ = up.SetReadDeadline(time.Now().Add(f.ResponseTimeout))
	}
	_, code, reason, err := http1.ReadStatusLine(ubr, c.Conn.MaxRecvBytes())
	if err != nil {
		_ = up.Close()
		c.logf(obs.Warn, "web/proxy", "read upstream status failed", err)
		c.count("web_proxy_upstream_errors_total", obs.Label{Key: "stage", Value: "read_status"})
		return c.With(502, badGatewayBody)
	}
	hdr, err := http1.ReadHeaderBlock(ubr, c.Conn.MaxRecvBytes())
	if err != nil {
		_ = up.Close()
		c.logf(obs.Warn, "web/proxy", "read upstream headers failed", err)
		c.count("web_proxy_upstream_errors_total", obs.Label{Key: "stage", Value: "read_headers"})
		return c.With(502, badGatewayBody)
	}
	_ = up.SetReadDeadline(time.Time{})

	// From here the upstream answered: relay it verbatim, error statuses
	// included. The framing headers are re-derived for our own wire.
	c.Response.Status = code
	c.Response.Reason = reason
	for k, vv := range hdr {
		if restrictedHeaders[k] {
			continue
		}
		for _, v := range vv {
			c.Response.AddHeader(k, v)
		}
	}

	if noBodyStatus(code, c.Request.Method) {
		_ = up.Close()
		c.Response.Body = nil
		c.Response.Stream = nil
		return c
	}

	chunked := http1.HasChunkedTE(hdr)
	clv := http1.GetHeader(hdr, "Content-Length")
	c.Response.Body = nil
	c.Response.Stream = func(w *BodyWriter) error {
		defer up.Close()
		if chunked {
			return w.SendChunked(http1.NewChunkedBody(ubr, c.Conn.MaxRecvBytes()))
		}
		if clv != "" {
			n, err := strconv.ParseInt(strings.TrimSpace(clv), 10, 64)
			if err != nil || n < 0 {
				return ErrProtocolViolation
			}
			return w.SendBounded(io.LimitReader(ubr, n), n)
		}
		// Close-delimited upstream body: re-frame as chunked downstream.
		return w.SendChunked(ubr)
	}
	return c
}

func (f *Forwarder) writeUpstreamRequest(c *Context, ubw *bufio.Writer) error {
	r := c.Request
	target := r.RequestURI
	if target == "" && r.URL != nil {
		target = r.URL.RequestURI()
	}
	if target == "" {
		target = "/"
	}
	if _, err := fmt.Fprintf(ubw, "%s %s HTTP/1.1\r\n", r.Method, target); err != nil {
		return err
	}

	// Host: the inbound value when present, matching what the client asked.
	if host := r.Header.Get("Host"); host != "" {
		fmt.Fprintf(ubw, "Host: %s\r\n", http1.SanitizeHeaderValue(host))
	}

	// Generic copy, restricted set excluded.
	for k, vv := range r.Header {
		if restrictedHeaders[k] {
			continue
		}
		if isPassthrough(k) {
			continue
		}
		for _, v := range vv {
			if _, err := fmt.Fprintf(ubw, "%s: %s\r\n", k, http1.SanitizeHeaderValue(v)); err != nil {
				return err
			}
		}
	}
	// Explicit re-apply of the transport-sensitive subset.
	for _, k := range passthroughHeaders {
		for _, v := range r.Header.Values(k) {
			if _, err := fmt.Fprintf(ubw, "%s: %s\r\n", k, http1.SanitizeHeaderValue(v)); err != nil {
				return err
			}
		}
	}
	// Synthetic forwarding chain with the original client address.
	xff := clientHost(r.RemoteAddr)
	if prior := r.Header.Get("X-Forwarded-For"); prior != "" {
		xff = prior + ", " + xff
	}
	if _, err := fmt.Fprintf(ubw, "X-Forwarded-For: %s\r\n", http1.SanitizeHeaderValue(xff)); err != nil {
		return err
	}
	if _, err := fmt.Fprint(ubw, "Connection: close\r\n"); err != nil {
		return err
	}

	hasBody := (r.Method == "POST" || r.Method == "PUT") && (r.ContentLength > 0 || r.ContentLength == -1)
	if !hasBody {
		if _, err := fmt.Fprint(ubw, "\r\n"); err != nil {
			return err
		}
		return ubw.Flush()
	}

	body, err := r.Body()
	if err != nil {
		return err
	}
	defer body.Close()

	if r.ContentLength >= 0 {
		// Stream exactly Content-Length bytes, never buffered in memory.
		if _, err := fmt.Fprintf(ubw, "Content-Length: %d\r\n\r\n", r.ContentLength); err != nil {
			return err
		}
		if err := CopyExactly(ubw, body, r.ContentLength); err != nil {
			return err
		}
		return ubw.Flush()
	}

	// Chunked inbound body: re-frame chunked on the outbound side.
	if _, err := fmt.Fprint(ubw, "Transfer-Encoding: chunked\r\n\r\n"); err != nil {
		return err
	}
	buf := make([]byte, transferBufSize)
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			if _, werr := http1.WriteChunked(ubw, buf[:n]); werr != nil {
				return werr
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return rerr
		}
	}
	if err := http1.EndChunked(ubw); err != nil {
		return err
	}
	return ubw.Flush()
}

func isPassthrough(k string) bool {
	for _, p := range passthroughHeaders {
		if p == k {
			return true
		}
	}
	return false
}

func clientHost(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
