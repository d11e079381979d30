package http

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"pair-quiz-service/internal/auth"
	"pair-quiz-service/internal/domain"

	"github.com/gorilla/mux"
)

// TokenVerifier resolves bearer tokens to players.
type TokenVerifier interface {
	Verify(raw string) (domain.Player, error)
}

// Authenticate rejects requests without a valid bearer token. Browsers cannot
// set headers on websocket handshakes, so access_token is accepted as a query
// parameter as well.
func Authenticate(tokens TokenVerifier) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				writeJSON(w, http.StatusUnauthorized, errorBody{Message: "missing bearer token"})
				return
			}
			player, err := tokens.Verify(raw)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorBody{Message: "invalid bearer token"})
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPlayer(r.Context(), player)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return r.URL.Query().Get("access_token")
}

// observe records request duration per route template.
func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		h.metrics.ObserveRequest(route, rec.status, time.Since(start))
		h.log.WithField("route", route).WithField("status", rec.status).Debug("request served")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack keeps websocket upgrades working behind the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}
