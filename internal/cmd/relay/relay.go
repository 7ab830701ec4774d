// Package relay parses relay flags and launches the service.
package relay

import (
	"context"
	"flag"
	"fmt"

	"github.com/louisbranch/deadlines/internal/deadline"
	entrypoint "github.com/louisbranch/deadlines/internal/platform/cmd"
	server "github.com/louisbranch/deadlines/internal/services/relay"
)

// Config holds relay command configuration.
type Config struct {
	HTTPAddr           string `env:"DEADLINES_HTTP_ADDR" envDefault:":8080"`
	GRPCAddr           string `env:"DEADLINES_GRPC_ADDR" envDefault:":8081"`
	DownstreamGRPCAddr string `env:"DEADLINES_DOWNSTREAM_GRPC_ADDR"`
	DownstreamHTTPURL  string `env:"DEADLINES_DOWNSTREAM_HTTP_URL"`
	Deadline           deadline.Config
}

// ParseConfig parses environment and flags into Config. Flags win over the
// environment.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "gRPC listen address")
	fs.StringVar(&cfg.DownstreamGRPCAddr, "downstream-grpc", cfg.DownstreamGRPCAddr, "Downstream gRPC address probed by /v1/check")
	fs.StringVar(&cfg.DownstreamHTTPURL, "downstream-http", cfg.DownstreamHTTPURL, "Downstream URL proxied by /v1/fetch")
	fs.TextVar(&cfg.Deadline.Mode, "mode", cfg.Deadline.Mode, "Deadline enforcement mode")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if err := cfg.Deadline.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the relay until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceRelay, func(ctx context.Context) error {
		logger, err := entrypoint.NewLogger(entrypoint.ServiceRelay)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		srv, err := server.NewServer(ctx, server.Config{
			HTTPAddr:           cfg.HTTPAddr,
			GRPCAddr:           cfg.GRPCAddr,
			DownstreamGRPCAddr: cfg.DownstreamGRPCAddr,
			DownstreamHTTPURL:  cfg.DownstreamHTTPURL,
			Deadline:           cfg.Deadline,
			Logger:             logger,
		})
		if err != nil {
			return fmt.Errorf("init relay server: %w", err)
		}
		if err := srv.Serve(ctx); err != nil {
			return fmt.Errorf("serve relay: %w", err)
		}
		return nil
	})
}
