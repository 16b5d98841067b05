package authz

import (
	"net/http"

	"log/slog"

	"github.com/tillpoint/tillpoint/internal/shared"
)

// Middleware wires permission checks for HTTP handlers. It expects the
// tenant context to already be resolved by the auth middleware.
type Middleware struct {
	Resolver *Resolver
	Logger   *slog.Logger
}

// RequireAny ensures the current user has at least one of the required
// permissions. The admin role passes unconditionally.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			rc, ok := shared.RequestContextFromContext(r.Context())
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			if rc.Role == RoleAdmin {
				next.ServeHTTP(w, r)
				return
			}
			granted, err := m.Resolver.Resolve(r.Context(), rc.Role, rc.UserID)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("authz require any", slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			for _, perm := range perms {
				if granted.Has(perm) {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}
