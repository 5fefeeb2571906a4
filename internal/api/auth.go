package api

import (
	"net/http"
	"strings"
)

type Principal struct {
	Subject string
	Role    string // admin, dispatcher, viewer
}

// getPrincipal extracts the caller's role from a bearer token, falling
// back to the X-Role header for dev setups.
func (s *Server) getPrincipal(r *http.Request) Principal {
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") && s.Auth != nil {
		tok := strings.TrimSpace(authz[len("Bearer "):])
		if pr, err := s.Auth.Verify(tok); err == nil {
			return Principal{Subject: pr.Subject, Role: pr.Role}
		}
	}
	role := r.Header.Get("X-Role")
	if role == "" {
		role = "admin"
	}
	return Principal{Role: role}
}

// IsAdmin reports whether the principal has the admin role.
func (p Principal) IsAdmin() bool { return p.Role == "admin" }

// CanPlan reports whether the principal may launch plan runs.
func (p Principal) CanPlan() bool { return p.Role == "admin" || p.Role == "dispatcher" }
