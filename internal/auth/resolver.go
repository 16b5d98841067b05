package auth

import (
	"context"
	"strconv"
	"strings"

	"github.com/tillpoint/tillpoint/internal/shared"
)

// ContextResolver turns an opaque session into the tenant context every
// downstream operation receives by value.
type ContextResolver struct {
	repo Repository
}

// NewContextResolver constructs a ContextResolver.
func NewContextResolver(repo Repository) *ContextResolver {
	return &ContextResolver{repo: repo}
}

// Resolve loads the authenticated user's id, role, department, and
// organization from the session. ErrUnauthenticated when no user is bound,
// ErrInactiveAccount when the account has been disabled.
func (r *ContextResolver) Resolve(ctx context.Context, sess *shared.Session) (shared.RequestContext, error) {
	if sess == nil {
		return shared.RequestContext{}, shared.ErrUnauthenticated
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return shared.RequestContext{}, shared.ErrUnauthenticated
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return shared.RequestContext{}, shared.ErrUnauthenticated
	}
	user, err := r.repo.FindByID(ctx, userID)
	if err != nil {
		return shared.RequestContext{}, shared.ErrUnauthenticated
	}
	if !user.IsActive {
		return shared.RequestContext{}, shared.ErrInactiveAccount
	}
	return shared.RequestContext{
		UserID:         user.ID,
		Role:           user.Role,
		DepartmentID:   user.DepartmentID,
		OrganizationID: user.OrganizationID,
	}, nil
}
