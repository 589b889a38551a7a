package web

import (
	"errors"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"dqx0.com/go/webserve/internal/obs"
)

// ResourceProvider addresses byte sources by key: files on disk, embedded
// resources, anything stat-able and openable.
type ResourceProvider interface {
	Stat(key string) (fs.FileInfo, error)
	Open(key string) (io.ReadCloser, error)
}

// FSProvider adapts any fs.FS (os.DirFS, embed.FS) to ResourceProvider.
type FSProvider struct {
	FS fs.FS
}

func (p FSProvider) Stat(key string) (fs.FileInfo, error) {
	return fs.Stat(p.FS, key)
}

func (p FSProvider) Open(key string) (io.ReadCloser, error) {
	return p.FS.Open(key)
}

// httpDateLayouts are the formats accepted for If-Modified-Since, preferred
// first.
var httpDateLayouts = []string{
	"Mon, 02 Jan 2006 15:04:05 GMT",
	"Monday, 02-Jan-06 15:04:05 GMT",
	"Mon Jan _2 15:04:05 2006",
}

func parseHTTPDate(v string) (time.Time, bool) {
	for _, layout := range httpDateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func formatHTTPDate(t time.Time) string {
	return t.UTC().Format(httpDateLayouts[0])
}

// Resource serves one resource key with conditional-GET semantics:
//
//	absent resource        -> decline (fall through, not an error)
//	unresolvable mime      -> decline
//	no If-Modified-Since   -> 200 with body
//	IMS >= last modified   -> 304, no body
//	IMS <  last modified   -> 200 with body
//	unparsable IMS         -> 400
func Resource(p ResourceProvider, key string) WebPart {
	return func(c *Context) *Context {
		fi, err := p.Stat(key)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			c.logf(obs.Warn, "web/files", "stat "+key, err)
			return nil
		}
		mt, ok := resolveMime(c, key)
		if !ok {
			return nil
		}

		modTime := fi.ModTime()
		if ims := c.Request.Header.Get("If-Modified-Since"); ims != "" {
			since, ok := parseHTTPDate(ims)
			if !ok {
				return c.With(400, "invalid If-Modified-Since")
			}
			// HTTP dates carry one-second resolution.
			if !modTime.Truncate(time.Second).After(since) {
				c.Response.SetHeader("Last-Modified", formatHTTPDate(modTime))
				return c.With(304, "")
			}
		}

		c.Response.SetHeader("Content-Type", mt.Name)
		c.Response.SetHeader("Last-Modified", formatHTTPDate(modTime))

		if mt.Compressible && acceptsGzip(c.Request.Header) && c.Artifacts != nil {
			artifact, err := c.Artifacts.Compressed(key, modTime, func() (io.ReadCloser, error) {
				return p.Open(key)
			})
			if err != nil {
				c.logf(obs.Error, "web/files", "compress "+key, err)
				return c.With(500, "Internal Server Error")
			}
			c.Response.SetHeader("Content-Encoding", "gzip")
			return c.WithStream(200, func(w *BodyWriter) error {
				src, err := artifact.Open()
				if err != nil {
					return err
				}
				defer src.Close()
				return w.SendBounded(src, artifact.Size)
			})
		}

		size := fi.Size()
		return c.WithStream(200, func(w *BodyWriter) error {
			src, err := p.Open(key)
			if err != nil {
				return err
			}
			defer src.Close()
			return w.SendBounded(src, size)
		})
	}
}

// Browse maps the request path onto provider keys under the served tree.
// The empty path serves index.html. Traversal outside the tree declines.
func Browse(p ResourceProvider) WebPart {
	return func(c *Context) *Context {
		if c.Request.URL == nil {
			return nil
		}
		key := resourceKey(c.Request.URL.Path)
		if key == "" {
			return nil
		}
		return Resource(p, key)(c)
	}
}

func resourceKey(urlPath string) string {
	cleaned := path.Clean("/" + urlPath)
	if strings.Contains(cleaned, "..") {
		return ""
	}
	key := strings.TrimPrefix(cleaned, "/")
	if key == "" || key == "." {
		key = "index.html"
	}
	return key
}

func resolveMime(c *Context, key string) (MimeType, bool) {
	if c.Mime == nil {
		return MimeType{}, false
	}
	return c.Mime.Resolve(path.Ext(key))
}

func acceptsGzip(h Header) bool {
	for _, v := range h.Values("Accept-Encoding") {
		if strings.Contains(strings.ToLower(v), "gzip") {
			return true
		}
	}
	return false
}
