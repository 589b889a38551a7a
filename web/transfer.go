package web

import (
	"io"

	"dqx0.com/go/webserve/web/internal/http1"
)

// transferBufSize is the unit of suspension for streaming transfers: each
// buffer-sized read/write yields to the scheduler at the socket boundary.
const transferBufSize = 32 << 10

// CopyExactly moves exactly n bytes from src to dst. A short source or a
// closed sink surfaces as ErrIncompleteTransfer; the caller must not reuse
// the connection afterwards.
func CopyExactly(dst io.Writer, src io.Reader, n int64) error {
	written, err := io.CopyN(dst, src, n)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF || written < n {
			return ErrIncompleteTransfer
		}
		return err
	}
	if written != n {
		return ErrIncompleteTransfer
	}
	return nil
}

// TransferBounded streams exactly n bytes from src onto the connection.
func (c *Conn) TransferBounded(src io.Reader, n int64) error {
	if err := CopyExactly(c.bw, src, n); err != nil {
		return err
	}
	return c.bw.Flush()
}

// TransferChunked streams src onto the connection using chunked framing,
// terminated by the zero-length chunk. Used when the body length cannot be
// predetermined. Each chunk is flushed so downstream consumers see bytes as
// they are produced.
func (c *Conn) TransferChunked(src io.Reader) error {
	buf := make([]byte, transferBufSize)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := http1.WriteChunked(c.bw, buf[:n]); werr != nil {
				return werr
			}
			if werr := c.bw.Flush(); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	if err := http1.EndChunked(c.bw); err != nil {
		return err
	}
	return c.bw.Flush()
}

// WriteSegment writes one pre-sized buffer and flushes it.
func (c *Conn) WriteSegment(p []byte) error {
	if _, err := c.bw.Write(p); err != nil {
		return err
	}
	return c.bw.Flush()
}
