package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/hyperjump/prtrack/internal/prparse"
)

const (
	headerUserName = "X-User-Name"
	headerUserRole = "X-User-Role"

	roleAdmin  = "admin"
	roleViewer = "viewer"
)

type callerKey struct{}

// identify reads the caller from the identity headers. A missing role means viewer.
func (s *Server) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSpace(r.Header.Get(headerUserName))
		if name == "" {
			s.respondError(w, http.StatusUnauthorized, headerUserName+" header is required")
			return
		}
		role := strings.ToLower(strings.TrimSpace(r.Header.Get(headerUserRole)))
		switch role {
		case "", roleViewer:
			role = roleViewer
		case roleAdmin:
		default:
			s.respondError(w, http.StatusBadRequest, "unknown role "+role)
			return
		}
		caller := prparse.Caller{UserName: name, Admin: role == roleAdmin}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, caller)))
	})
}

// requireAdmin rejects callers without the admin role.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !callerFrom(r.Context()).Admin {
			s.respondError(w, http.StatusForbidden, "viewers cannot modify requisitions")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func callerFrom(ctx context.Context) prparse.Caller {
	c, _ := ctx.Value(callerKey{}).(prparse.Caller)
	return c
}
