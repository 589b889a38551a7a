package main

import (
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"dqx0.com/go/webserve/config"
	"dqx0.com/go/webserve/internal/obs"
	"dqx0.com/go/webserve/web"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, nil)
	} else {
		handler = slog.NewTextHandler(os.Stderr, nil)
	}
	logger := obs.SlogLogger{S: slog.New(handler), Min: obs.ParseLevel(cfg.Log.Level)}
	meter := obs.NewPromMeter(prometheus.NewRegistry())

	parts := []web.WebPart{
		web.Compose(web.GET, web.Path("/events"), web.EventStream(clock)),
	}
	if cfg.Proxy.UpstreamHost != "" {
		parts = append(parts, web.Compose(
			web.PathPrefix("/proxy/"),
			web.Forward(web.StaticUpstream(cfg.Proxy.UpstreamHost, cfg.Proxy.UpstreamPort)),
		))
	}
	parts = append(parts, web.Browse(web.FSProvider{FS: os.DirFS(cfg.Paths.Home)}))

	s := &web.Server{
		Addr:              cfg.Server.Addr,
		Part:              web.Choose(parts...),
		Log:               logger,
		Meter:             meter,
		HomeDir:           cfg.Paths.Home,
		CompDir:           cfg.Paths.Compression,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		HandlerTimeout:    cfg.Server.HandlerTimeout,
		MaxHeaderBytes:    cfg.Server.MaxHeaderBytes,
	}
	logger.Log("", obs.Info, "cmd/webserve", "listening on "+cfg.Server.Addr, nil)
	if err := s.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}

// clock pushes the wall time once a second until the client goes away.
func clock(sink *web.EventSink) error {
	for {
		now := time.Now().UTC().Format(time.RFC3339)
		if err := sink.Send(web.EventMessage{ID: time.Now().Format("150405.000"), Type: "tick", Data: now}); err != nil {
			return err
		}
		time.Sleep(time.Second)
	}
}
