package web

import (
	"dqx0.com/go/webserve/internal/obs"
)

// Context is the unit of state flowing through composed parts: the request
// snapshot, the response in progress, runtime dependencies and the owning
// connection. Parts either return a (possibly updated) Context or decline
// with nil.
type Context struct {
	Request  *Request
	Response *Response
	Conn     *Conn

	Log       obs.Logger
	Meter     obs.Meter
	Mime      MimeResolver
	HomeDir   string
	CompDir   string
	Artifacts *ArtifactCache

	bag map[any]any
}

// Key is a typed token for the per-request extension bag. Reads through a
// Key are type-checked at the call site.
type Key[T any] struct{ name string }

// NewKey mints a bag token. Keys with the same name and type are
// interchangeable.
func NewKey[T any](name string) Key[T] { return Key[T]{name: name} }

// Put stores v under k in the context's extension bag.
func Put[T any](c *Context, k Key[T], v T) {
	if c.bag == nil {
		c.bag = make(map[any]any)
	}
	c.bag[k] = v
}

// Value reads the bag entry for k.
func Value[T any](c *Context, k Key[T]) (T, bool) {
	var zero T
	if c.bag == nil {
		return zero, false
	}
	v, ok := c.bag[k]
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// With sets a buffered response on the context and returns it. It is the
// common terminal step of a matching part.
func (c *Context) With(status int, body string) *Context {
	c.Response.Status = status
	c.Response.Body = []byte(body)
	c.Response.Stream = nil
	return c
}

// WithStream sets a deferred streaming body on the context and returns it.
func (c *Context) WithStream(status int, w StreamWriter) *Context {
	c.Response.Status = status
	c.Response.Body = nil
	c.Response.Stream = w
	return c
}

func (c *Context) logf(level obs.Level, source, msg string, err error) {
	if c.Log == nil {
		return
	}
	trace := ""
	if c.Request != nil {
		trace = c.Request.Trace
	}
	c.Log.Log(trace, level, source, msg, err)
}

func (c *Context) count(name string, labels ...obs.Label) {
	if c.Meter == nil {
		return
	}
	c.Meter.Counter(name, 1, labels...)
}
