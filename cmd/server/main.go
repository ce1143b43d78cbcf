package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/himanishpuri/constellation/internal/config"
	"github.com/himanishpuri/constellation/pkg/constellation"
	"github.com/himanishpuri/constellation/pkg/logger"
)

var (
	configPath     string
	bind           string
	allowedOrigins string
)

func init() {
	flag.StringVar(&configPath, "config", "", "Path to the configuration file")
	flag.StringVar(&bind, "bind", "", "Listen address (overrides server.bind)")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
}

func parseOrigins(value string) []string {
	var origins []string
	for _, o := range strings.Split(value, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func main() {
	flag.Parse()

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.Configure(cfg.LoggerConfig())

	if bind == "" {
		bind = cfg.Server.Bind
	}

	service, err := constellation.NewService(append(cfg.ServiceOptions(), constellation.WithLogger(log))...)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	server := NewServer(service, &ServerConfig{
		Bind:           bind,
		Backend:        cfg.Storage.Backend,
		DBPath:         cfg.Storage.Path,
		TempDir:        cfg.Audio.TempDir,
		SampleRate:     cfg.Audio.SampleRate,
		MaxUploadBytes: int64(cfg.Server.MaxUploadMiB) << 20,
		AllowedOrigins: parseOrigins(allowedOrigins),
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		log.Errorf("Server failed: %v", err)
		service.Close()
		os.Exit(1)
	}
}
