package deadline

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/deadlines/internal/platform/config"
	apperrors "github.com/louisbranch/deadlines/internal/platform/errors"
)

func TestConfigFromEnvDefaults(t *testing.T) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Mode != ModeMetricsOnly {
		t.Fatalf("expected metrics-only, got %v", cfg.Mode)
	}
	if cfg.DefaultTimeout() != 10*time.Second {
		t.Fatalf("expected 10s default, got %v", cfg.DefaultTimeout())
	}
	if cfg.OutboundReadTimeout() != 10*time.Second {
		t.Fatalf("expected 10s outbound read timeout, got %v", cfg.OutboundReadTimeout())
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("DEADLINES_ENFORCEMENT_MODE", "enforce-all")
	t.Setenv("DEADLINES_DEFAULT_TIMEOUT_MS", "2500")
	t.Setenv("DEADLINES_ENDPOINT_TIMEOUTS_MS", "/grpc.health.v1.Health/Check=750")

	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Mode != ModeEnforceAll {
		t.Fatalf("expected enforce-all, got %v", cfg.Mode)
	}
	if cfg.DefaultTimeout() != 2500*time.Millisecond {
		t.Fatalf("expected 2.5s default, got %v", cfg.DefaultTimeout())
	}
	d, ok := cfg.EndpointTimeouts().EndpointTimeout("/grpc.health.v1.Health/Check")
	if !ok || d != 750*time.Millisecond {
		t.Fatalf("expected 750ms endpoint timeout, got %v (ok=%v)", d, ok)
	}
	if _, ok := cfg.EndpointTimeouts().EndpointTimeout("/other"); ok {
		t.Fatal("expected unknown endpoint to have no timeout")
	}
}

func TestConfigFromEnvRejectsUnknownMode(t *testing.T) {
	t.Setenv("DEADLINES_ENFORCEMENT_MODE", "enforce-harder")

	var cfg Config
	if err := config.ParseEnv(&cfg); err == nil {
		t.Fatal("expected unknown mode to fail parsing")
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultTimeoutMs = 0
	cfg.OutboundReadTimeoutMs = -1
	cfg.EndpointTimeoutsMs = map[string]int64{"/svc/Call": 0}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.Is(err, apperrors.New(apperrors.CodeInvalidConfig, "")) {
		t.Fatalf("expected invalid config code, got %v", err)
	}
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *errors.Error, got %T", err)
	}
	for _, want := range []string{"default timeout", "outbound read timeout", `endpoint "/svc/Call"`} {
		if !strings.Contains(appErr.Cause.Error(), want) {
			t.Fatalf("expected %q in %v", want, appErr.Cause)
		}
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}
}
