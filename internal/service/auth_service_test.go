package service

import (
	"context"
	"testing"

	"rentalhub/internal/apierror"
	"rentalhub/internal/config"
	"rentalhub/internal/dto"
	"rentalhub/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-unit-tests"

func newAuthFixture(t *testing.T) (*memStore, AuthService) {
	t.Helper()
	store := newMemStore()
	audit, err := NewAuditService(memAuditRepo{store})
	require.NoError(t, err)
	cfg := &config.Config{JWTSecret: testSecret, JWTExpirationHours: 1, JWTRefreshHours: 24}
	return store, NewAuthService(memUserRepo{store}, cfg, audit)
}

func parseClaims(t *testing.T, token string) jwt.MapClaims {
	t.Helper()
	parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) { return []byte(testSecret), nil })
	require.NoError(t, err)
	return parsed.Claims.(jwt.MapClaims)
}

func TestAuth_CreateUserAndLogin(t *testing.T) {
	store, svc := newAuthFixture(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, Actor{}, dto.CreateUserRequest{
		Email: "  Manager@Example.com", Name: "Maria", Password: "s3cretpass", Role: model.RoleManager,
	})
	require.NoError(t, err)
	assert.Equal(t, "manager@example.com", user.Email)
	assert.True(t, user.Active)
	assert.Equal(t, []string{"user.create"}, store.auditActions())

	resp, err := svc.Login(ctx, dto.LoginRequest{Email: "manager@example.com", Password: "s3cretpass"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, 3600, resp.ExpiresIn)
	assert.Equal(t, user.ID, resp.User.ID)

	access := parseClaims(t, resp.AccessToken)
	assert.Equal(t, TokenAccess, access["typ"])
	assert.Equal(t, model.RoleManager, access["role"])
	assert.Equal(t, user.ID.String(), access["id"])
	assert.Equal(t, TokenRefresh, parseClaims(t, resp.RefreshToken)["typ"])
}

func TestAuth_LoginRejectsBadCredentials(t *testing.T) {
	_, svc := newAuthFixture(t)
	ctx := context.Background()
	_, err := svc.CreateUser(ctx, Actor{}, dto.CreateUserRequest{
		Email: "staff@example.com", Name: "Sam", Password: "correct-horse", Role: model.RoleStaff,
	})
	require.NoError(t, err)

	_, err = svc.Login(ctx, dto.LoginRequest{Email: "staff@example.com", Password: "wrong"})
	assert.True(t, apierror.IsKind(err, apierror.KindUnauthorized))

	_, err = svc.Login(ctx, dto.LoginRequest{Email: "nobody@example.com", Password: "correct-horse"})
	assert.True(t, apierror.IsKind(err, apierror.KindUnauthorized))
}

func TestAuth_CreateUserDuplicateEmail(t *testing.T) {
	_, svc := newAuthFixture(t)
	ctx := context.Background()
	req := dto.CreateUserRequest{Email: "dup@example.com", Name: "Dup", Password: "password1", Role: model.RoleStaff}

	_, err := svc.CreateUser(ctx, Actor{}, req)
	require.NoError(t, err)
	_, err = svc.CreateUser(ctx, Actor{}, req)
	assert.True(t, apierror.IsKind(err, apierror.KindConflict))
}

func TestAuth_Refresh(t *testing.T) {
	store, svc := newAuthFixture(t)
	ctx := context.Background()
	_, err := svc.CreateUser(ctx, Actor{}, dto.CreateUserRequest{
		Email: "staff@example.com", Name: "Sam", Password: "password1", Role: model.RoleStaff,
	})
	require.NoError(t, err)
	login, err := svc.Login(ctx, dto.LoginRequest{Email: "staff@example.com", Password: "password1"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	_, err = svc.Refresh(ctx, login.AccessToken)
	assert.True(t, apierror.IsKind(err, apierror.KindUnauthorized), "access tokens cannot refresh")

	_, err = svc.Refresh(ctx, "not-a-jwt")
	assert.True(t, apierror.IsKind(err, apierror.KindUnauthorized))

	for _, u := range store.users {
		u.Active = false
	}
	_, err = svc.Refresh(ctx, login.RefreshToken)
	assert.True(t, apierror.IsKind(err, apierror.KindUnauthorized), "inactive users cannot refresh")
}

func TestAuth_EnsureBootstrapAdmin(t *testing.T) {
	store, svc := newAuthFixture(t)
	ctx := context.Background()

	created, err := svc.EnsureBootstrapAdmin(ctx, "", "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Empty(t, store.users)

	created, err = svc.EnsureBootstrapAdmin(ctx, "Root@Example.com", "bootstrap-pass")
	require.NoError(t, err)
	assert.True(t, created)

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "root@example.com", users[0].Email)
	assert.Equal(t, model.RoleAdmin, users[0].Role)

	created, err = svc.EnsureBootstrapAdmin(ctx, "other@example.com", "bootstrap-pass")
	require.NoError(t, err)
	assert.False(t, created, "never runs once a user exists")
}
