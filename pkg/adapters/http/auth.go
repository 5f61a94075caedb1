package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/aretw0/intake/pkg/access"
)

// HeaderUserEmail carries the caller's e-mail, set by the authenticating proxy.
const HeaderUserEmail = "X-User-Email"

var errUnauthenticated = errors.New("missing " + HeaderUserEmail + " header")

type capabilitiesKey struct{}

// Capabilities returns the caller's capabilities stored by the auth middleware.
func Capabilities(ctx context.Context) (access.Capabilities, bool) {
	c, ok := ctx.Value(capabilitiesKey{}).(access.Capabilities)
	return c, ok
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email := r.Header.Get(HeaderUserEmail)
		if email == "" {
			s.writeError(w, r, errUnauthenticated)
			return
		}
		profile, err := s.directory.Lookup(email)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), capabilitiesKey{}, access.For(profile))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) require(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caps, _ := Capabilities(r.Context())
			if !caps.HasPermission(permission) {
				s.writeError(w, r, forbidden(permission))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
