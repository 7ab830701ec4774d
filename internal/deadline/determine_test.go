package deadline

import (
	"net/http"
	"testing"
	"time"

	"google.golang.org/grpc/metadata"
	"pgregory.net/rapid"
)

func httpHeaders(pairs ...string) http.Header {
	h := http.Header{}
	for i := 0; i+1 < len(pairs); i += 2 {
		h.Set(pairs[i], pairs[i+1])
	}
	return h
}

func TestDetermineGlobalDefaultWithoutHeaders(t *testing.T) {
	got := Determine(Request{
		Dispatch:      DispatchHTTP,
		Headers:       http.Header{},
		GlobalDefault: 10 * time.Second,
	})
	if got.Timeout != 10*time.Second {
		t.Fatalf("expected 10s, got %v", got.Timeout)
	}
	if got.Source != SourceGlobalDefault {
		t.Fatalf("expected global default source, got %v", got.Source)
	}
}

func TestDetermineHTTPMinimumWins(t *testing.T) {
	got := Determine(Request{
		Dispatch:        DispatchHTTP,
		Headers:         httpHeaders(HeaderRequestDeadline, "8", HeaderProxyTimeout, "4000"),
		EndpointDefault: 5 * time.Second,
		GlobalDefault:   10 * time.Second,
	})
	if got.Timeout != 4*time.Second {
		t.Fatalf("expected 4s, got %v", got.Timeout)
	}
	if got.Source != SourceProxyHeader {
		t.Fatalf("expected proxy header source, got %v", got.Source)
	}
}

func TestDetermineHTTPTieKeepsDeadlineHeader(t *testing.T) {
	got := Determine(Request{
		Dispatch:      DispatchHTTP,
		Headers:       httpHeaders(HeaderRequestDeadline, "PT4S", HeaderProxyTimeout, "4000"),
		GlobalDefault: 10 * time.Second,
	})
	if got.Timeout != 4*time.Second || got.Source != SourceDeadlineHeader {
		t.Fatalf("expected 4s from deadline header, got %v from %v", got.Timeout, got.Source)
	}
}

func TestDetermineFramedHeaderIgnoresHTTPHeaders(t *testing.T) {
	md := metadata.Pairs(
		HeaderGRPCTimeout, "3000m",
		HeaderRequestDeadline, "1",
		HeaderProxyTimeout, "10",
	)
	got := Determine(Request{
		Dispatch:        DispatchFramed,
		Headers:         MetadataHeaders(md),
		EndpointDefault: time.Second,
		GlobalDefault:   10 * time.Second,
	})
	if got.Timeout != 3_000_000_000 {
		t.Fatalf("expected 3000000000ns, got %d", got.Timeout)
	}
	if got.Source != SourceFramedHeader {
		t.Fatalf("expected framed header source, got %v", got.Source)
	}
}

func TestDetermineFramedFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		md       metadata.MD
		endpoint time.Duration
		want     Decision
	}{
		{
			name: "native outranks shadow",
			md:   metadata.Pairs(HeaderGRPCTimeout, "2S", HeaderShadowTimeout, "1S"),
			want: Decision{Timeout: 2 * time.Second, Source: SourceFramedHeader},
		},
		{
			name: "shadow when native missing",
			md:   metadata.Pairs(HeaderShadowTimeout, "1500m"),
			want: Decision{Timeout: 1500 * time.Millisecond, Source: SourceFramedHeader},
		},
		{
			name: "shadow when native malformed",
			md:   metadata.Pairs(HeaderGRPCTimeout, "soon", HeaderShadowTimeout, "7S"),
			want: Decision{Timeout: 7 * time.Second, Source: SourceFramedHeader},
		},
		{
			name:     "endpoint when native is zero",
			md:       metadata.Pairs(HeaderGRPCTimeout, "0S"),
			endpoint: 5 * time.Second,
			want:     Decision{Timeout: 5 * time.Second, Source: SourceEndpointDefault},
		},
		{
			name: "global when nothing else",
			md:   metadata.MD{},
			want: Decision{Timeout: 10 * time.Second, Source: SourceGlobalDefault},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Determine(Request{
				Dispatch:        DispatchFramed,
				Headers:         MetadataHeaders(tt.md),
				EndpointDefault: tt.endpoint,
				GlobalDefault:   10 * time.Second,
			})
			if got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestDetermineHTTPIgnoresInvalidCandidates(t *testing.T) {
	got := Determine(Request{
		Dispatch:        DispatchHTTP,
		Headers:         httpHeaders(HeaderRequestDeadline, "-5", HeaderProxyTimeout, "abc"),
		EndpointDefault: 5 * time.Second,
		GlobalDefault:   10 * time.Second,
	})
	if got.Timeout != 5*time.Second || got.Source != SourceEndpointDefault {
		t.Fatalf("expected endpoint default, got %+v", got)
	}
}

func TestDetermineNilHeaders(t *testing.T) {
	got := Determine(Request{Dispatch: DispatchFramed, GlobalDefault: time.Second})
	if got.Timeout != time.Second || got.Source != SourceGlobalDefault {
		t.Fatalf("expected global default, got %+v", got)
	}
}

func TestDetermineHTTPSelectsMinimumOfValidCandidates(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		deadlineSeconds := rapid.Int64Range(-5, 120).Draw(t, "deadlineSeconds")
		proxyMillis := rapid.Int64Range(-5000, 120000).Draw(t, "proxyMillis")
		useDeadline := rapid.Bool().Draw(t, "useDeadline")
		useProxy := rapid.Bool().Draw(t, "useProxy")

		h := http.Header{}
		var valid []time.Duration
		if useDeadline {
			h.Set(HeaderRequestDeadline, formatInt(deadlineSeconds))
			if deadlineSeconds > 0 {
				valid = append(valid, time.Duration(deadlineSeconds)*time.Second)
			}
		}
		if useProxy {
			h.Set(HeaderProxyTimeout, formatInt(proxyMillis))
			if proxyMillis > 0 {
				valid = append(valid, time.Duration(proxyMillis)*time.Millisecond)
			}
		}

		got := Determine(Request{Dispatch: DispatchHTTP, Headers: h, GlobalDefault: 10 * time.Second})
		if len(valid) == 0 {
			if got.Source != SourceGlobalDefault || got.Timeout != 10*time.Second {
				t.Fatalf("expected global default, got %+v", got)
			}
			return
		}
		minimum := valid[0]
		for _, d := range valid[1:] {
			minimum = min(minimum, d)
		}
		if got.Timeout != minimum {
			t.Fatalf("expected minimum %v, got %v", minimum, got.Timeout)
		}
		if got.Source != SourceDeadlineHeader && got.Source != SourceProxyHeader {
			t.Fatalf("expected a header source, got %v", got.Source)
		}
	})
}

func TestDetermineFramedNativeAlwaysWins(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		native := rapid.Int64Range(1, 99999999).Draw(t, "nativeMillis")
		shadow := rapid.StringMatching(`[0-9]{0,9}[HMSmunx]?`).Draw(t, "shadow")
		md := metadata.Pairs(HeaderGRPCTimeout, formatInt(native)+"m", HeaderShadowTimeout, shadow)

		got := Determine(Request{
			Dispatch:        DispatchFramed,
			Headers:         MetadataHeaders(md),
			EndpointDefault: time.Second,
			GlobalDefault:   time.Second,
		})
		if got.Timeout != time.Duration(native)*time.Millisecond || got.Source != SourceFramedHeader {
			t.Fatalf("expected native %dms, got %+v", native, got)
		}
	})
}
