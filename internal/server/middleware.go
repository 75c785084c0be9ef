package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"tailscale.com/client/tailscale/apitype"
)

type contextKey int

const userInfoKey contextKey = iota

// UserInfo identifies the caller. UserID comes from the X-User-ID header set
// by the auth proxy in front of the API; Login and DisplayName are filled
// from the tailnet when available.
type UserInfo struct {
	UserID      uuid.UUID `json:"user_id"`
	Login       string    `json:"login"`
	DisplayName string    `json:"display_name"`
}

// WhoIser resolves a tailnet peer. The tsnet local client satisfies it.
type WhoIser interface {
	WhoIs(ctx context.Context, remoteAddr string) (*apitype.WhoIsResponse, error)
}

// Identity returns middleware that requires a valid X-User-ID header and
// stores the caller in the request context. lookup may enrich the identity
// with login details; it may be nil.
func Identity(lookup func(*http.Request) (login, name string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("X-User-ID")
			if raw == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing X-User-ID"})
				return
			}
			id, err := uuid.Parse(raw)
			if err != nil || id == uuid.Nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid X-User-ID"})
				return
			}

			info := UserInfo{UserID: id, Login: "local", DisplayName: "Local User"}
			if lookup != nil {
				if login, name := lookup(r); login != "" {
					info.Login, info.DisplayName = login, name
				}
			}
			ctx := context.WithValue(r.Context(), userInfoKey, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *Server) tailnetUser(r *http.Request) (string, string) {
	if s.whois == nil {
		return "", ""
	}
	who, err := s.whois.WhoIs(r.Context(), r.RemoteAddr)
	if err != nil || who == nil || who.UserProfile == nil {
		return "", ""
	}
	return who.UserProfile.LoginName, who.UserProfile.DisplayName
}

func userInfoFromContext(r *http.Request) UserInfo {
	if info, ok := r.Context().Value(userInfoKey).(UserInfo); ok {
		return info
	}
	return UserInfo{Login: "local", DisplayName: "Local User"}
}

// mustUserID returns the caller id or writes 401.
func mustUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	info := userInfoFromContext(r)
	if info.UserID == uuid.Nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthenticated"})
		return uuid.Nil, false
	}
	return info.UserID, true
}

// APIKeyAuth returns middleware that validates the X-API-Key header.
func APIKeyAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				http.Error(w, `{"error":"missing API key"}`, http.StatusUnauthorized)
				return
			}
			if key != apiKey {
				http.Error(w, `{"error":"invalid API key"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogging returns middleware that logs each request.
func RequestLogging(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration", time.Since(start).String(),
			)
		})
	}
}

// CORS adds permissive CORS headers for local development.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key, X-User-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusWriter wraps ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses (MCP) working through the wrapper.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
