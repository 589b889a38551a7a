// Package web is an embeddable HTTP/1.1 request-processing engine built
// directly over raw sockets: a composable handler algebra, asynchronous
// transfer primitives, and a reverse-proxy forwarder on top of both.
//
// The unit of composition is the WebPart, a computation from Context to a
// matched Context or a decline (nil). Parts compose with Bind, Choose,
// OrElse and Inject; the server commits exactly one response per request
// once the composed part returns.
//
// Quick start:
//
//	s := &web.Server{Addr: ":8080"}
//	s.Part = web.Choose(
//	    web.Compose(web.GET, web.Path("/hello"), web.OK("hello")),
//	    web.Browse(web.FSProvider{FS: os.DirFS("./public")}),
//	)
//	if err := s.ListenAndServe(); err != nil { log.Fatal(err) }
//
// Framing (fixed length, chunked, or connection close) is decided once per
// response before the first body byte and held fixed thereafter. Bodies of
// unknown length stream with chunked transfer encoding; the reverse proxy
// preserves upstream streaming end to end.
package web
