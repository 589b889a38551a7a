package web

import (
	"fmt"
	"strings"

	"dqx0.com/go/webserve/internal/obs"
)

// WebPart is a computation from Context to a matched Context or a decline
// (nil). Declining is not an error: the caller tries the next alternative.
// A part must never panic to signal "no match"; unexpected failures are
// intercepted by Protect and converted into a 500 Context.
type WebPart func(*Context) *Context

// Bind runs f, then g on f's result. If f declines, g never executes.
func Bind(f, g WebPart) WebPart {
	return func(c *Context) *Context {
		out := f(c)
		if out == nil {
			return nil
		}
		return g(out)
	}
}

// Compose chains parts left to right with Bind semantics.
func Compose(parts ...WebPart) WebPart {
	return func(c *Context) *Context {
		out := c
		for _, p := range parts {
			out = p(out)
			if out == nil {
				return nil
			}
		}
		return out
	}
}

// Choose tries parts in declared order; the first match wins. If all
// decline, Choose declines.
func Choose(parts ...WebPart) WebPart {
	return func(c *Context) *Context {
		for _, p := range parts {
			if out := p(c); out != nil {
				return out
			}
		}
		return nil
	}
}

// OrElse is the two-part form of Choose. It is associative.
func OrElse(a, b WebPart) WebPart {
	return func(c *Context) *Context {
		if out := a(c); out != nil {
			return out
		}
		return b(c)
	}
}

// Route pairs a predicate part with its continuation.
type Route struct {
	Match  WebPart
	Handle WebPart
}

// Inject routes through the table: on the first predicate match it runs post
// and then the paired continuation, so common post-processing wraps whichever
// route matched without being duplicated per route.
func Inject(post WebPart, routes []Route) WebPart {
	return func(c *Context) *Context {
		for _, r := range routes {
			out := r.Match(c)
			if out == nil {
				continue
			}
			if post != nil {
				return Bind(post, r.Handle)(out)
			}
			return r.Handle(out)
		}
		return nil
	}
}

// Protect intercepts a panic escaping p and converts it into a 500 Context,
// so one handler's failure cannot abort unrelated requests on other
// connections.
func Protect(p WebPart) WebPart {
	return func(c *Context) (out *Context) {
		defer func() {
			if r := recover(); r != nil {
				c.logf(obs.Error, "web/part", fmt.Sprintf("handler panic: %v", r), nil)
				out = c.With(500, "Internal Server Error")
			}
		}()
		return p(c)
	}
}

// method returns a filter matching one request method.
func method(m string) WebPart {
	return func(c *Context) *Context {
		if c.Request.Method == m {
			return c
		}
		return nil
	}
}

var (
	GET    = method("GET")
	POST   = method("POST")
	PUT    = method("PUT")
	DELETE = method("DELETE")
	HEAD   = method("HEAD")
)

// Path matches the request path exactly.
func Path(p string) WebPart {
	return func(c *Context) *Context {
		if c.Request.URL != nil && c.Request.URL.Path == p {
			return c
		}
		return nil
	}
}

// PathPrefix matches any request path under prefix.
func PathPrefix(prefix string) WebPart {
	return func(c *Context) *Context {
		if c.Request.URL != nil && strings.HasPrefix(c.Request.URL.Path, prefix) {
			return c
		}
		return nil
	}
}

// Respond sets a buffered response with the given status and body.
func Respond(status int, body string) WebPart {
	return func(c *Context) *Context {
		return c.With(status, body)
	}
}

// SetHeader records a response header in order.
func SetHeader(name, value string) WebPart {
	return func(c *Context) *Context {
		c.Response.SetHeader(name, value)
		return c
	}
}

func OK(body string) WebPart          { return Respond(200, body) }
func NotFound(body string) WebPart    { return Respond(404, body) }
func BadRequest(body string) WebPart  { return Respond(400, body) }
func Forbidden(body string) WebPart   { return Respond(403, body) }
func ServerError(body string) WebPart { return Respond(500, body) }

// Unauthorized challenges for basic credentials.
func Unauthorized(realm string) WebPart {
	return func(c *Context) *Context {
		c.Response.SetHeader("WWW-Authenticate", fmt.Sprintf("Basic realm=%q", realm))
		return c.With(401, "Unauthorized")
	}
}

// Redirect issues a 301 or 302 to location.
func Redirect(status int, location string) WebPart {
	return func(c *Context) *Context {
		c.Response.SetHeader("Location", location)
		return c.With(status, "")
	}
}
