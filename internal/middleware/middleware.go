package middleware

import (
	"net/http"
	"strings"

	"github.com/EmpoweredVote/EV-PublicMap/internal/apierr"
	"github.com/EmpoweredVote/EV-PublicMap/internal/utils"
)

// Identity headers set by the gateway after it has authenticated the caller.
const (
	HeaderActorID   = "X-Actor-Id"
	HeaderActorRole = "X-Actor-Role"
)

const RoleAdmin = "admin"

// ActorMiddleware attaches the calling actor to the request context. When the
// gateway forwarded no identity, the request is attributed to systemID and
// marked Defaulted; write paths never synthesize an actor themselves.
func ActorMiddleware(systemID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := utils.Actor{
				ID:   strings.TrimSpace(r.Header.Get(HeaderActorID)),
				Role: strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderActorRole))),
			}
			if actor.ID == "" {
				actor.ID = systemID
				actor.Defaulted = true
			}
			next.ServeHTTP(w, r.WithContext(utils.WithActor(r.Context(), actor)))
		})
	}
}

// AdminMiddleware rejects callers whose forwarded role is not admin. A
// defaulted system actor is never an admin over HTTP.
func AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := utils.GetActorFromContext(r.Context())
		if !ok || actor.Defaulted {
			writeStatus(w, http.StatusUnauthorized, "Unauthorized: missing actor identity")
			return
		}
		if actor.Role != RoleAdmin {
			writeStatus(w, http.StatusForbidden, "Forbidden: admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeStatus(w http.ResponseWriter, status int, message string) {
	var b struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	b.Error.Code = "UNAUTHORIZED"
	if status == http.StatusForbidden {
		b.Error.Code = "FORBIDDEN"
	}
	b.Error.Message = message
	apierr.WriteJSON(w, status, b)
}

// CORSMiddleware echoes allowed origins back to the browser.
func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if _, ok := allowed[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin") // important for caches
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods",
					"GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers",
					"Content-Type, Authorization, X-Actor-Id, X-Actor-Role")
			}

			w.Header().Set("Access-Control-Expose-Headers", "Server-Timing, Retry-After, Cache-Control")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
