package authz

import (
	"context"
	"log/slog"
)

// PermissionSet is a deduplicated set of permission names.
type PermissionSet map[string]struct{}

// Has reports whether the set contains the permission.
func (s PermissionSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Names returns the permissions in the set, order unspecified.
func (s PermissionSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	return names
}

// NewPermissionSet builds a set from permission names.
func NewPermissionSet(names ...string) PermissionSet {
	set := make(PermissionSet, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

// Override is a per-user permission override. Granted=true adds the
// permission even if absent from the role; granted=false removes it even if
// the role grants it.
type Override struct {
	Permission string
	Granted    bool
}

// RepositoryPort loads role defaults and per-user overrides.
type RepositoryPort interface {
	RolePermissions(ctx context.Context, role string) ([]string, error)
	UserOverrides(ctx context.Context, userID int64) ([]Override, error)
}

// Resolver computes effective permission sets. Results may be cached; the
// cache is consulted before the repository and written through after a miss.
type Resolver struct {
	repo   RepositoryPort
	cache  *Cache
	logger *slog.Logger
}

// NewResolver constructs a Resolver. Cache and logger may be nil.
func NewResolver(repo RepositoryPort, cache *Cache, logger *slog.Logger) *Resolver {
	return &Resolver{repo: repo, cache: cache, logger: logger}
}

// Resolve merges role-default permissions with the user's individual
// overrides. Override application is keyed by permission name, so order does
// not matter: the individual row wins over the role default. An unknown role
// yields an empty set, not an error.
func (r *Resolver) Resolve(ctx context.Context, role string, userID int64) (PermissionSet, error) {
	if r.cache != nil {
		if set, ok := r.cache.Get(ctx, userID); ok {
			return set, nil
		}
	}

	defaults, err := r.repo.RolePermissions(ctx, role)
	if err != nil {
		return nil, err
	}
	overrides, err := r.repo.UserOverrides(ctx, userID)
	if err != nil {
		return nil, err
	}

	set := make(PermissionSet, len(defaults))
	for _, perm := range defaults {
		set[perm] = struct{}{}
	}
	for _, ov := range overrides {
		if ov.Granted {
			set[ov.Permission] = struct{}{}
		} else {
			delete(set, ov.Permission)
		}
	}

	if r.cache != nil {
		if err := r.cache.Put(ctx, userID, set); err != nil && r.logger != nil {
			r.logger.Warn("authz cache put", slog.Any("error", err))
		}
	}
	return set, nil
}

// Invalidate drops any cached set for the user. Callers must invoke this
// after changing the user's role or overrides.
func (r *Resolver) Invalidate(ctx context.Context, userID int64) {
	if r.cache != nil {
		if err := r.cache.Drop(ctx, userID); err != nil && r.logger != nil {
			r.logger.Warn("authz cache drop", slog.Any("error", err))
		}
	}
}
