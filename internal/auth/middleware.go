package auth

import (
	"log/slog"
	"net/http"

	"github.com/tillpoint/tillpoint/internal/platform/httpx"
	"github.com/tillpoint/tillpoint/internal/shared"
)

// RequireContext resolves the tenant context for the request and rejects
// unauthenticated or inactive accounts. Handlers behind this middleware can
// rely on shared.RequestContextFromContext succeeding.
func RequireContext(resolver *ContextResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			rc, err := resolver.Resolve(r.Context(), sess)
			if err != nil {
				if logger != nil {
					logger.Debug("tenant context rejected", slog.String("path", r.URL.Path), slog.Any("error", err))
				}
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithRequestContext(r.Context(), rc)))
		})
	}
}
