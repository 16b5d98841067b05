package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tillpoint/tillpoint/internal/authz"
	"github.com/tillpoint/tillpoint/internal/shared"
)

type memoryUserRepo struct {
	users  map[int64]*User
	emails map[string]struct{}
	nextID int64
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[int64]*User), emails: make(map[string]struct{})}
}

func (r *memoryUserRepo) List(ctx context.Context, orgID int64) ([]User, error) {
	var out []User
	for _, u := range r.users {
		if u.OrganizationID == orgID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *memoryUserRepo) Get(ctx context.Context, orgID, id int64) (*User, error) {
	u, ok := r.users[id]
	if !ok || u.OrganizationID != orgID {
		return nil, shared.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memoryUserRepo) Create(ctx context.Context, u *User) (*User, error) {
	if _, exists := r.emails[u.Email]; exists {
		return nil, shared.ErrConflict
	}
	r.emails[u.Email] = struct{}{}
	r.nextID++
	cp := *u
	cp.ID = r.nextID
	r.users[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *memoryUserRepo) Update(ctx context.Context, u *User) (*User, error) {
	cp := *u
	r.users[cp.ID] = &cp
	out := cp
	return &out, nil
}

type memoryOverrides struct {
	rows map[int64]map[string]bool
}

func newMemoryOverrides() *memoryOverrides {
	return &memoryOverrides{rows: make(map[int64]map[string]bool)}
}

func (m *memoryOverrides) UserOverrides(ctx context.Context, userID int64) ([]authz.Override, error) {
	var out []authz.Override
	for perm, granted := range m.rows[userID] {
		out = append(out, authz.Override{Permission: perm, Granted: granted})
	}
	return out, nil
}

func (m *memoryOverrides) SetOverride(ctx context.Context, userID int64, perm string, granted bool) error {
	if m.rows[userID] == nil {
		m.rows[userID] = make(map[string]bool)
	}
	m.rows[userID][perm] = granted
	return nil
}

func (m *memoryOverrides) ClearOverride(ctx context.Context, userID int64, perm string) error {
	delete(m.rows[userID], perm)
	return nil
}

type recordingInvalidator struct {
	invalidated []int64
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, userID int64) {
	r.invalidated = append(r.invalidated, userID)
}

func adminCtx() shared.RequestContext {
	return shared.RequestContext{UserID: 1, Role: authz.RoleAdmin, OrganizationID: 10}
}

func seedService(t *testing.T) (*Service, *memoryUserRepo, *memoryOverrides, *recordingInvalidator) {
	t.Helper()
	repo := newMemoryUserRepo()
	overrides := newMemoryOverrides()
	inv := &recordingInvalidator{}
	svc := NewService(repo, overrides, inv)
	repo.users[1] = &User{ID: 1, OrganizationID: 10, Email: "admin@acme.test", Role: authz.RoleAdmin, Name: "Admin", IsActive: true}
	repo.emails["admin@acme.test"] = struct{}{}
	repo.nextID = 1
	return svc, repo, overrides, inv
}

func TestCreateHashesPassword(t *testing.T) {
	svc, repo, _, _ := seedService(t)

	u, err := svc.Create(context.Background(), adminCtx(), CreateInput{
		Email:    "Clerk@Acme.Test",
		Name:     "Clerk",
		Password: "swordfish123",
		Role:     authz.RoleCashier,
	})
	require.NoError(t, err)
	require.Equal(t, "clerk@acme.test", u.Email)
	require.True(t, u.IsActive)

	stored := repo.users[u.ID]
	require.NotEqual(t, "swordfish123", stored.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("swordfish123")))
}

func TestCreateRejectsUnknownRole(t *testing.T) {
	svc, _, _, _ := seedService(t)

	_, err := svc.Create(context.Background(), adminCtx(), CreateInput{
		Email: "x@acme.test", Name: "X", Password: "swordfish123", Role: "superuser",
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateRequiresAdmin(t *testing.T) {
	svc, _, _, _ := seedService(t)
	manager := shared.RequestContext{UserID: 2, Role: authz.RoleManager, OrganizationID: 10}

	_, err := svc.Create(context.Background(), manager, CreateInput{
		Email: "x@acme.test", Name: "X", Password: "swordfish123", Role: authz.RoleCashier,
	})
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestUpdateForbidsSelfRoleChange(t *testing.T) {
	svc, _, _, _ := seedService(t)

	_, err := svc.Update(context.Background(), adminCtx(), 1, UpdateInput{
		Name: "Admin", Role: authz.RoleCashier, IsActive: true,
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Update(context.Background(), adminCtx(), 1, UpdateInput{
		Name: "Admin", Role: authz.RoleAdmin, IsActive: false,
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateInvalidatesPermissionCache(t *testing.T) {
	svc, repo, _, inv := seedService(t)
	repo.users[2] = &User{ID: 2, OrganizationID: 10, Email: "c@acme.test", Role: authz.RoleCashier, Name: "C", IsActive: true}

	u, err := svc.Update(context.Background(), adminCtx(), 2, UpdateInput{
		Name: "C", Role: authz.RoleManager, IsActive: true,
	})
	require.NoError(t, err)
	require.Equal(t, authz.RoleManager, u.Role)
	require.Contains(t, inv.invalidated, int64(2))
}

func TestSetOverrideValidatesPermission(t *testing.T) {
	svc, repo, overrides, inv := seedService(t)
	repo.users[2] = &User{ID: 2, OrganizationID: 10, Email: "c@acme.test", Role: authz.RoleCashier, Name: "C", IsActive: true}

	err := svc.SetOverride(context.Background(), adminCtx(), 2, "launch_missiles", true)
	require.ErrorIs(t, err, shared.ErrValidation)

	err = svc.SetOverride(context.Background(), adminCtx(), 2, authz.PermViewAllData, true)
	require.NoError(t, err)
	require.True(t, overrides.rows[2][authz.PermViewAllData])
	require.Contains(t, inv.invalidated, int64(2))
}

func TestSetOverrideCrossTenantTargetIsNotFound(t *testing.T) {
	svc, repo, _, _ := seedService(t)
	repo.users[2] = &User{ID: 2, OrganizationID: 11, Email: "c@other.test", Role: authz.RoleCashier, Name: "C", IsActive: true}

	err := svc.SetOverride(context.Background(), adminCtx(), 2, authz.PermViewAllData, true)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
