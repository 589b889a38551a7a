package http1

import (
	"bufio"
	"strconv"
	"strings"
)

// ReadStatusLine parses an HTTP/1.x response status line.
func ReadStatusLine(br *bufio.Reader, maxLine int) (proto string, code int, reason string, err error) {
	line, err := readLineLimit(br, maxLine)
	if err != nil {
		return "", 0, "", err
	}
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return "", 0, "", ErrMalformed
	}
	proto = parts[0]
	if !strings.HasPrefix(proto, "HTTP/1.") {
		return "", 0, "", ErrMalformed
	}
	code, err = strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, "", ErrMalformed
	}
	if len(parts) == 3 {
		reason = parts[2]
	}
	return proto, code, reason, nil
}

// ReadHeaderBlock reads response headers up to the blank line.
func ReadHeaderBlock(br *bufio.Reader, maxLine int) (map[string][]string, error) {
	h := make(map[string][]string)
	for {
		line, err := readLineLimit(br, maxLine)
		if err != nil {
			return nil, err
		}
		if line == "" {
			break
		}
		i := strings.IndexByte(line, ':')
		if i <= 0 {
			return nil, ErrMalformed
		}
		k := strings.TrimSpace(line[:i])
		v := strings.TrimSpace(line[i+1:])
		addHeader(h, k, v)
	}
	return h, nil
}
