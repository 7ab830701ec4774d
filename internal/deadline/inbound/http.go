package inbound

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/louisbranch/deadlines/internal/deadline"
	"github.com/louisbranch/deadlines/internal/deadline/codec"
	"golang.org/x/net/http/httpguts"
	"google.golang.org/grpc/codes"
)

// exceededBody is the only detail an HTTP caller sees on rejection.
const exceededBody = "deadline exceeded"

// DispatchOf reports whether an HTTP request carries gRPC framing.
func DispatchOf(r *http.Request) deadline.Dispatch {
	if r.ProtoMajor == 2 && strings.HasPrefix(r.Header.Get("Content-Type"), "application/grpc") {
		return deadline.DispatchFramed
	}
	return deadline.DispatchHTTP
}

// isUpgrade reports whether the request asks to switch protocols, such as a
// websocket handshake.
func isUpgrade(r *http.Request) bool {
	return r.Header.Get("Upgrade") != "" && httpguts.HeaderValuesContainsToken(r.Header["Connection"], "upgrade")
}

// Middleware guards HTTP requests. Connection upgrades pass through
// untouched.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isUpgrade(r) {
			next.ServeHTTP(w, r)
			return
		}

		dispatch := DispatchOf(r)
		adm := g.admit(r.Context(), g.httpEndpoint(r), dispatch, r.Header)
		if adm.reject {
			writeExceeded(w, dispatch)
			return
		}

		if r.Header.Get(deadline.HeaderDeadlineAt) == "" {
			r.Header.Set(deadline.HeaderDeadlineAt, codec.FormatInstant(adm.deadline.At()))
		}
		next.ServeHTTP(w, r.WithContext(deadline.WithDeadline(r.Context(), adm.deadline)))
	})
}

func writeExceeded(w http.ResponseWriter, dispatch deadline.Dispatch) {
	if dispatch == deadline.DispatchFramed {
		// Trailers-only response: status travels in the header block.
		w.Header().Set("Content-Type", "application/grpc")
		w.Header().Set("Grpc-Status", strconv.Itoa(int(codes.DeadlineExceeded)))
		w.Header().Set("Grpc-Message", exceededBody)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Error(w, exceededBody, deadline.ErrDeadlineExceeded.HTTPStatus())
}
