package relay

import (
	"errors"
	"flag"
	"io"
	"testing"

	"github.com/louisbranch/deadlines/internal/deadline"
	apperrors "github.com/louisbranch/deadlines/internal/platform/errors"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("relay", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig(newFlagSet(), nil)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.GRPCAddr != ":8081" {
		t.Fatalf("GRPCAddr = %q, want :8081", cfg.GRPCAddr)
	}
	if cfg.Deadline.Mode != deadline.ModeMetricsOnly {
		t.Fatalf("Mode = %v, want metrics-only", cfg.Deadline.Mode)
	}
	if cfg.Deadline.DefaultTimeoutMs != 10000 || cfg.Deadline.OutboundReadTimeoutMs != 10000 {
		t.Fatalf("unexpected default timeouts %+v", cfg.Deadline)
	}
}

func TestParseConfigEnvAndFlags(t *testing.T) {
	t.Setenv("DEADLINES_HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("DEADLINES_ENFORCEMENT_MODE", "propagate-only")
	t.Setenv("DEADLINES_ENDPOINT_TIMEOUTS_MS", "GET /v1/check=2500,/grpc.health.v1.Health/Check=750")
	t.Setenv("DEADLINES_DOWNSTREAM_HTTP_URL", "http://downstream/items")

	cfg, err := ParseConfig(newFlagSet(), []string{"-mode", "ENFORCE_ALL", "-downstream-grpc", "downstream:8081"})
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.HTTPAddr != "127.0.0.1:9000" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.Deadline.Mode != deadline.ModeEnforceAll {
		t.Fatalf("Mode = %v, want flag override enforce-all", cfg.Deadline.Mode)
	}
	if cfg.DownstreamGRPCAddr != "downstream:8081" || cfg.DownstreamHTTPURL != "http://downstream/items" {
		t.Fatalf("unexpected downstreams %q %q", cfg.DownstreamGRPCAddr, cfg.DownstreamHTTPURL)
	}
	if got := cfg.Deadline.EndpointTimeoutsMs["GET /v1/check"]; got != 2500 {
		t.Fatalf("endpoint timeout = %d, want 2500", got)
	}
	if got := cfg.Deadline.EndpointTimeoutsMs["/grpc.health.v1.Health/Check"]; got != 750 {
		t.Fatalf("endpoint timeout = %d, want 750", got)
	}
}

func TestParseConfigRejectsUnknownMode(t *testing.T) {
	if _, err := ParseConfig(newFlagSet(), []string{"-mode", "panic"}); err == nil {
		t.Fatal("expected unknown mode error")
	}
}

func TestParseConfigRejectsNonPositiveDefault(t *testing.T) {
	t.Setenv("DEADLINES_DEFAULT_TIMEOUT_MS", "0")

	_, err := ParseConfig(newFlagSet(), nil)
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeInvalidConfig {
		t.Fatalf("expected invalid config error, got %v", err)
	}
}
