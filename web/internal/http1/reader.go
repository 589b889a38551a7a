package http1

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
)

var (
	ErrMalformed      = errors.New("http1: malformed request")
	ErrHeaderTooLarge = errors.New("http1: header too large")
)

// ParsedRequest is a minimal representation parsed from the wire.
type ParsedRequest struct {
	Method        string
	RequestURI    string
	Proto         string
	Header        map[string][]string
	ContentLength int64
	Body          io.ReadCloser
}

type Reader struct {
	BR *bufio.Reader
	// MaxHeaderBytes limits a single header line; MaxTotalHeaderBytes
	// limits the whole header block. Exceeding either is a protocol
	// violation, never a silent truncation.
	MaxHeaderBytes      int
	MaxTotalHeaderBytes int
}

func (r *Reader) ReadRequest() (*ParsedRequest, error) {
	line, err := r.readLine()
	if err != nil {
		return nil, err
	}
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return nil, ErrMalformed
	}
	method, uri, proto := parts[0], parts[1], parts[2]
	if !strings.HasPrefix(proto, "HTTP/1.") {
		return nil, ErrMalformed
	}
	hdr, err := r.readHeaders()
	if err != nil {
		return nil, err
	}
	// Decide body source: chunked TE, else Content-Length, else empty.
	// A request carrying both CL and TE is rejected outright.
	var cl int64 = 0
	var body io.ReadCloser
	chunked := HasChunkedTE(hdr)
	clValue, clOK, clErr := contentLength(hdr)
	if clErr != nil {
		return nil, clErr
	}
	if chunked && clOK {
		return nil, ErrMalformed
	}
	if chunked {
		cl = -1
		body = NewChunkedBody(r.BR, r.lineLimit())
	} else if clOK {
		cl = clValue
		if cl > 0 {
			lr := &io.LimitedReader{R: r.BR, N: cl}
			body = &limitedBody{lr: lr}
		} else {
			body = io.NopCloser(strings.NewReader(""))
		}
	} else {
		body = io.NopCloser(strings.NewReader(""))
	}
	return &ParsedRequest{
		Method:        method,
		RequestURI:    uri,
		Proto:         proto,
		Header:        hdr,
		ContentLength: cl,
		Body:          body,
	}, nil
}

func (r *Reader) readHeaders() (map[string][]string, error) {
	h := make(map[string][]string)
	total := 0
	for {
		line, err := r.readLine()
		if err != nil {
			return nil, err
		}
		if line == "" {
			break
		}
		total += len(line)
		if r.MaxTotalHeaderBytes > 0 && total > r.MaxTotalHeaderBytes {
			return nil, ErrHeaderTooLarge
		}
		i := strings.IndexByte(line, ':')
		if i <= 0 {
			return nil, ErrMalformed
		}
		k := strings.TrimSpace(line[:i])
		if SanitizeHeaderKey(k) == "" {
			return nil, ErrMalformed
		}
		v := strings.TrimSpace(line[i+1:])
		addHeader(h, k, v)
	}
	return h, nil
}

func (r *Reader) readLine() (string, error) {
	return readLineLimit(r.BR, r.lineLimit())
}

func (r *Reader) lineLimit() int {
	if r.MaxHeaderBytes <= 0 {
		return 8 << 10
	}
	return r.MaxHeaderBytes
}

// contentLength extracts and validates Content-Length. Multiple values must
// agree; a non-numeric or negative value is malformed.
func contentLength(h map[string][]string) (int64, bool, error) {
	vv, ok := h[canonicalHeaderKey("Content-Length")]
	if !ok || len(vv) == 0 {
		return 0, false, nil
	}
	var result int64 = -1
	for _, raw := range vv {
		for _, piece := range strings.Split(raw, ",") {
			piece = strings.TrimSpace(piece)
			if piece == "" {
				continue
			}
			n, err := strconv.ParseInt(piece, 10, 64)
			if err != nil || n < 0 {
				return 0, false, ErrMalformed
			}
			if result >= 0 && result != n {
				return 0, false, ErrMalformed
			}
			result = n
		}
	}
	if result < 0 {
		return 0, false, ErrMalformed
	}
	return result, true, nil
}

type limitedBody struct {
	lr *io.LimitedReader
}

func (b *limitedBody) Read(p []byte) (int, error) { return b.lr.Read(p) }

func (b *limitedBody) Close() error {
	// Drain remaining bytes to allow the next request on the same connection.
	buf := make([]byte, 1024)
	for b.lr.N > 0 {
		n := int64(len(buf))
		if n > b.lr.N {
			n = b.lr.N
		}
		if n <= 0 {
			break
		}
		if _, err := io.ReadFull(b.lr, buf[:n]); err != nil {
			if err == io.ErrUnexpectedEOF || err == io.EOF {
				break
			}
			return err
		}
	}
	return nil
}

func addHeader(h map[string][]string, k, v string) {
	hk := canonicalHeaderKey(k)
	h[hk] = append(h[hk], v)
}

// GetHeader returns the first value for k from a parsed header map.
func GetHeader(h map[string][]string, k string) string {
	hk := canonicalHeaderKey(k)
	if vv, ok := h[hk]; ok && len(vv) > 0 {
		return vv[0]
	}
	return ""
}

// HasChunkedTE reports whether Transfer-Encoding includes "chunked".
func HasChunkedTE(h map[string][]string) bool {
	hk := canonicalHeaderKey("Transfer-Encoding")
	if vv, ok := h[hk]; ok {
		for _, v := range vv {
			if strings.Contains(strings.ToLower(v), "chunked") {
				return true
			}
		}
	}
	return false
}

// Very small canonicalizer to avoid importing textproto here.
func canonicalHeaderKey(s string) string {
	b := []byte(strings.ToLower(s))
	upper := true
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			if upper {
				b[i] = byte(c - 'a' + 'A')
			}
			upper = false
			continue
		}
		upper = c == '-'
	}
	return string(b)
}
