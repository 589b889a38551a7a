package web

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dqx0.com/go/webserve/web/internal/http1"
)

// fakeNetConn is a net.Conn whose read side is a fixed script and whose
// write side collects the bytes the engine puts on the wire.
type fakeNetConn struct {
	in  io.Reader
	out bytes.Buffer
}

func (f *fakeNetConn) Read(p []byte) (int, error) {
	if f.in == nil {
		return 0, io.EOF
	}
	return f.in.Read(p)
}

func (f *fakeNetConn) Write(p []byte) (int, error)      { return f.out.Write(p) }
func (f *fakeNetConn) Close() error                     { return nil }
func (f *fakeNetConn) LocalAddr() net.Addr              { return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 80} }
func (f *fakeNetConn) RemoteAddr() net.Addr             { return &net.TCPAddr{IP: net.IPv4(192, 0, 2, 7), Port: 4242} }
func (f *fakeNetConn) SetDeadline(time.Time) error      { return nil }
func (f *fakeNetConn) SetReadDeadline(time.Time) error  { return nil }
func (f *fakeNetConn) SetWriteDeadline(time.Time) error { return nil }

func newTestContext(t *testing.T, method, target string, hdr Header) (*Context, *fakeNetConn) {
	t.Helper()
	fc := &fakeNetConn{}
	conn := NewConn(fc, 0)
	if hdr == nil {
		hdr = Header{}
	}
	req := &Request{
		Method:     method,
		RequestURI: target,
		Proto:      "HTTP/1.1",
		Header:     hdr,
		RemoteAddr: fc.RemoteAddr().String(),
		Trace:      conn.Trace(),
	}
	req.URL, _ = url.ParseRequestURI(target)
	req.RawQuery = ""
	if req.URL != nil {
		req.RawQuery = req.URL.RawQuery
	}
	return &Context{
		Request:  req,
		Response: &Response{},
		Conn:     conn,
		Mime:     DefaultMimeTable(),
	}, fc
}

// parsedResponse is the client-side view of one committed response.
type parsedResponse struct {
	Status int
	Reason string
	Header map[string][]string
	Body   []byte
	Raw    string
}

func parseResponse(t *testing.T, wire []byte, method string) parsedResponse {
	t.Helper()
	br := bufio.NewReader(bytes.NewReader(wire))
	_, code, reason, err := http1.ReadStatusLine(br, 8<<10)
	require.NoError(t, err)
	hdr, err := http1.ReadHeaderBlock(br, 8<<10)
	require.NoError(t, err)

	var body []byte
	switch {
	case noBodyStatus(code, method):
	case http1.HasChunkedTE(hdr):
		body, err = io.ReadAll(http1.NewChunkedBody(br, 8<<10))
		require.NoError(t, err)
	default:
		cl := http1.GetHeader(hdr, "Content-Length")
		if cl != "" && cl != "0" {
			body, err = io.ReadAll(br)
			require.NoError(t, err)
		}
	}
	return parsedResponse{Status: code, Reason: reason, Header: hdr, Body: body, Raw: string(wire)}
}

func headerValue(p parsedResponse, name string) string {
	return http1.GetHeader(p.Header, name)
}

func containsLine(raw, line string) bool {
	return strings.Contains(raw, line+"\r\n") || strings.Contains(raw, line+"\n")
}
