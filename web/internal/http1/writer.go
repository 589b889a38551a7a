package http1

import (
	"bufio"
	"fmt"
	"strings"
)

// Field is one response header in wire order. Responses carry fields as an
// ordered list so the emitted header block is deterministic.
type Field struct {
	Name  string
	Value string
}

// StartResponse writes the status line and headers, including Connection and
// an optional Transfer-Encoding: chunked. It writes no body bytes.
func StartResponse(bw *bufio.Writer, status int, reason string, fields []Field, chunked, keepAlive bool) error {
	if reason == "" {
		reason = ReasonPhrase(status)
	}
	if _, err := fmt.Fprintf(bw, "HTTP/1.1 %d %s\r\n", status, reason); err != nil {
		return err
	}
	if chunked {
		if _, err := fmt.Fprint(bw, "Transfer-Encoding: chunked\r\n"); err != nil {
			return err
		}
	}
	for _, f := range fields {
		// Connection is owned by the server; chunked framing owns CL/TE.
		if strings.EqualFold(f.Name, "Connection") {
			continue
		}
		if chunked && (strings.EqualFold(f.Name, "Content-Length") || strings.EqualFold(f.Name, "Transfer-Encoding")) {
			continue
		}
		if _, err := fmt.Fprintf(bw, "%s: %s\r\n", f.Name, SanitizeHeaderValue(f.Value)); err != nil {
			return err
		}
	}
	if keepAlive {
		if _, err := fmt.Fprint(bw, "Connection: keep-alive\r\n"); err != nil {
			return err
		}
	} else {
		if _, err := fmt.Fprint(bw, "Connection: close\r\n"); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprint(bw, "\r\n"); err != nil {
		return err
	}
	return nil
}

// WriteResponse writes a complete fixed-length response in one call.
func WriteResponse(bw *bufio.Writer, status int, reason string, fields []Field, body []byte, keepAlive bool) error {
	fields = append(fields, Field{Name: "Content-Length", Value: fmt.Sprintf("%d", len(body))})
	if err := StartResponse(bw, status, reason, fields, false, keepAlive); err != nil {
		return err
	}
	if len(body) > 0 {
		if _, err := bw.Write(body); err != nil {
			return err
		}
	}
	return nil
}

// WriteChunked writes one HTTP/1.1 chunk for chunked transfer encoding.
func WriteChunked(bw *bufio.Writer, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if _, err := fmt.Fprintf(bw, "%x\r\n", len(p)); err != nil {
		return 0, err
	}
	if _, err := bw.Write(p); err != nil {
		return 0, err
	}
	if _, err := fmt.Fprint(bw, "\r\n"); err != nil {
		return 0, err
	}
	return len(p), nil
}

// EndChunked writes the terminating zero-length chunk.
func EndChunked(bw *bufio.Writer) error {
	_, err := fmt.Fprint(bw, "0\r\n\r\n")
	return err
}
