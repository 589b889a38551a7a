package http1

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestChunked_RoundTrip(t *testing.T) {
	var wire bytes.Buffer
	bw := bufio.NewWriter(&wire)
	pieces := []string{"hello", " ", "chunked", " world"}
	for _, p := range pieces {
		if _, err := WriteChunked(bw, []byte(p)); err != nil {
			t.Fatalf("WriteChunked: %v", err)
		}
	}
	if err := EndChunked(bw); err != nil {
		t.Fatalf("EndChunked: %v", err)
	}
	if err := bw.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	body := NewChunkedBody(bufio.NewReader(&wire), 8<<10)
	got, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != strings.Join(pieces, "") {
		t.Fatalf("decoded=%q", string(got))
	}
}

func TestChunked_EmptyBody(t *testing.T) {
	var wire bytes.Buffer
	bw := bufio.NewWriter(&wire)
	// An empty body is exactly one terminating zero-length chunk.
	if err := EndChunked(bw); err != nil {
		t.Fatalf("EndChunked: %v", err)
	}
	if err := bw.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if wire.String() != "0\r\n\r\n" {
		t.Fatalf("wire=%q", wire.String())
	}
	got, err := io.ReadAll(NewChunkedBody(bufio.NewReader(&wire), 8<<10))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("decoded=%q", string(got))
	}
}

func TestChunked_ZeroLengthWriteEmitsNothing(t *testing.T) {
	var wire bytes.Buffer
	bw := bufio.NewWriter(&wire)
	n, err := WriteChunked(bw, nil)
	if err != nil || n != 0 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	_ = bw.Flush()
	if wire.Len() != 0 {
		t.Fatalf("wire=%q", wire.String())
	}
}

func TestStartResponse_OrderedFields(t *testing.T) {
	var wire bytes.Buffer
	bw := bufio.NewWriter(&wire)
	fields := []Field{
		{Name: "Content-Type", Value: "text/plain"},
		{Name: "X-First", Value: "1"},
		{Name: "X-Second", Value: "2"},
	}
	if err := StartResponse(bw, 200, "", fields, false, true); err != nil {
		t.Fatalf("StartResponse: %v", err)
	}
	_ = bw.Flush()
	out := wire.String()
	first := strings.Index(out, "X-First")
	second := strings.Index(out, "X-Second")
	if first < 0 || second < 0 || first > second {
		t.Fatalf("field order lost:\n%s", out)
	}
	if !strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n") {
		t.Fatalf("status line: %q", out)
	}
}

func TestStartResponse_ChunkedStripsLength(t *testing.T) {
	var wire bytes.Buffer
	bw := bufio.NewWriter(&wire)
	fields := []Field{{Name: "Content-Length", Value: "42"}}
	if err := StartResponse(bw, 200, "", fields, true, true); err != nil {
		t.Fatalf("StartResponse: %v", err)
	}
	_ = bw.Flush()
	out := wire.String()
	if strings.Contains(out, "Content-Length") {
		t.Fatalf("Content-Length must not survive chunked framing:\n%s", out)
	}
	if !strings.Contains(out, "Transfer-Encoding: chunked\r\n") {
		t.Fatalf("missing chunked header:\n%s", out)
	}
}

func TestReasonPhrase_KnownCodes(t *testing.T) {
	for code, want := range map[int]string{
		304: "Not Modified",
		408: "Request Timeout",
		422: "Unprocessable Entity",
		502: "Bad Gateway",
		505: "HTTP Version Not Supported",
	} {
		if got := ReasonPhrase(code); got != want {
			t.Fatalf("ReasonPhrase(%d)=%q, want %q", code, got, want)
		}
	}
}
