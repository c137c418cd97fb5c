package server

import (
	"context"
	"net/http"

	"tailscale.com/client/tailscale/apitype"
)

// WhoIser resolves a tailnet peer address to its identity. The tsnet local
// client satisfies it.
type WhoIser interface {
	WhoIs(ctx context.Context, remoteAddr string) (*apitype.WhoIsResponse, error)
}

// UserInfo is the identity attached to a request.
type UserInfo struct {
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
}

type contextKey int

const (
	userIDKey contextKey = iota
	userInfoKey
)

const devUserID = 1

var devUser = UserInfo{Login: "local", DisplayName: "Local Dev User"}

// DevIdentity attaches the seeded local user to every request.
func DevIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), devUserID, devUser)))
	})
}

// TailscaleIdentity resolves the tailnet peer of each request and maps its
// login to a local user, creating one on first sight.
func TailscaleIdentity(whois WhoIser, users interface {
	GetOrCreateUser(ctx context.Context, login, displayName string) (int, error)
}) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			who, err := whois.WhoIs(r.Context(), r.RemoteAddr)
			if err != nil || who.UserProfile == nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unknown tailnet peer"})
				return
			}
			info := UserInfo{Login: who.UserProfile.LoginName, DisplayName: who.UserProfile.DisplayName}
			id, err := users.GetOrCreateUser(r.Context(), info.Login, info.DisplayName)
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "resolving user"})
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), id, info)))
		})
	}
}

func (s *Server) identify(next http.Handler) http.Handler {
	dev := DevIdentity(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.whois == nil {
			dev.ServeHTTP(w, r)
			return
		}
		TailscaleIdentity(s.whois, s.db)(next).ServeHTTP(w, r)
	})
}

func withUser(ctx context.Context, id int, info UserInfo) context.Context {
	ctx = context.WithValue(ctx, userIDKey, id)
	return context.WithValue(ctx, userInfoKey, info)
}

// userIDFromContext returns the request's user, falling back to the dev user.
func userIDFromContext(r *http.Request) int {
	return UserIDFromContext(r.Context())
}

func userInfoFromContext(r *http.Request) UserInfo {
	if info, ok := r.Context().Value(userInfoKey).(UserInfo); ok {
		return info
	}
	return devUser
}

// UserIDFromContext exposes the resolved user to handlers mounted from other
// packages.
func UserIDFromContext(ctx context.Context) int {
	if id, ok := ctx.Value(userIDKey).(int); ok {
		return id
	}
	return devUserID
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}
