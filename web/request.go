package web

import (
	"io"
	"net/url"
)

// Request is an immutable snapshot of one inbound request. It is never
// mutated in place; handlers derive state through the Context instead.
type Request struct {
	Method        string
	URL           *url.URL
	RequestURI    string
	RawQuery      string
	Proto         string
	Header        Header
	RemoteAddr    string
	ContentLength int64
	// Trace correlates log lines for the owning connection.
	Trace string

	body  io.ReadCloser
	taken bool
}

// Body hands out the body-reading capability. The body can be taken exactly
// once; a second take is a programming error in the composed handlers.
func (r *Request) Body() (io.ReadCloser, error) {
	if r.taken {
		return nil, ErrBodyConsumed
	}
	r.taken = true
	if r.body == nil {
		return io.NopCloser(emptyReader{}), nil
	}
	return r.body, nil
}

// Query returns the parsed query parameters.
func (r *Request) Query() url.Values {
	v, _ := url.ParseQuery(r.RawQuery)
	return v
}

// drainBody disposes of an untaken or partially read body so the connection
// can serve the next keep-alive request.
func (r *Request) drainBody() {
	if r.body != nil {
		_ = r.body.Close()
	}
}

type emptyReader struct{}

func (emptyReader) Read([]byte) (int, error) { return 0, io.EOF }
