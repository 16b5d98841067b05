package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tillpoint/tillpoint/internal/auth"
	"github.com/tillpoint/tillpoint/internal/shared"
)

type stubRepo struct {
	user *auth.User
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	return nil
}

func newHandler(t *testing.T, repo auth.Repository) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	handler := auth.NewHandler(discardLogger(), auth.NewService(repo), sessionManager, csrfManager)
	return handler, sessionManager
}

func testUser(t *testing.T, password string) *auth.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	require.NoError(t, err)
	return &auth.User{
		ID:             1,
		Email:          "cashier@store.test",
		Name:           "Cashier",
		PasswordHash:   string(hashed),
		Role:           "cashier",
		OrganizationID: 10,
		IsActive:       true,
	}
}

func doLogin(t *testing.T, handler *auth.Handler, sm *shared.SessionManager, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	mux := newMux(handler)
	mux.ServeHTTP(res, req)
	require.NoError(t, sm.Commit(req.Context(), res, req, sess))
	return res
}

func TestLoginSuccess(t *testing.T) {
	user := testUser(t, "correct-horse")
	handler, sm := newHandler(t, &stubRepo{user: user})

	res := doLogin(t, handler, sm, `{"email":"cashier@store.test","password":"correct-horse"}`)
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `"organization_id":10`)
}

func TestLoginWrongPassword(t *testing.T) {
	user := testUser(t, "correct-horse")
	handler, sm := newHandler(t, &stubRepo{user: user})

	res := doLogin(t, handler, sm, `{"email":"cashier@store.test","password":"wrong-battery"}`)
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestLoginInactiveAccount(t *testing.T) {
	user := testUser(t, "correct-horse")
	user.IsActive = false
	handler, sm := newHandler(t, &stubRepo{user: user})

	res := doLogin(t, handler, sm, `{"email":"cashier@store.test","password":"correct-horse"}`)
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestLoginMalformedBody(t *testing.T) {
	handler, sm := newHandler(t, &stubRepo{})

	res := doLogin(t, handler, sm, `{"email":`)
	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestContextResolver(t *testing.T) {
	user := testUser(t, "correct-horse")
	user.DepartmentID = 4
	repo := &stubRepo{user: user}
	resolver := auth.NewContextResolver(repo)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sm := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)

	_, err = resolver.Resolve(context.Background(), sess)
	require.ErrorIs(t, err, shared.ErrUnauthenticated)

	sess.SetUser("1")
	rc, err := resolver.Resolve(context.Background(), sess)
	require.NoError(t, err)
	require.Equal(t, int64(1), rc.UserID)
	require.Equal(t, "cashier", rc.Role)
	require.Equal(t, int64(4), rc.DepartmentID)
	require.Equal(t, int64(10), rc.OrganizationID)

	user.IsActive = false
	_, err = resolver.Resolve(context.Background(), sess)
	require.ErrorIs(t, err, shared.ErrInactiveAccount)
}
