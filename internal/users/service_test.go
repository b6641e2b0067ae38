package users

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shopora-backend/pkg/config"
	"github.com/angelmondragon/shopora-backend/pkg/db/dbtest"
	"github.com/angelmondragon/shopora-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopora-backend/pkg/errors"
	"github.com/angelmondragon/shopora-backend/pkg/logger"
	"github.com/angelmondragon/shopora-backend/pkg/pagination"
	"github.com/angelmondragon/shopora-backend/pkg/security"
)

var testPasswordCfg = config.PasswordConfig{
	ArgonMemoryKB:    8 * 1024,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func newTestService(t *testing.T) (Service, *Repository) {
	t.Helper()
	repo := NewRepository(dbtest.Open(t))
	svc, err := NewService(repo, testPasswordCfg, logger.New(logger.Options{ServiceName: "users-test", Output: io.Discard}))
	require.NoError(t, err)
	return svc, repo
}

func createUser(t *testing.T, repo *Repository, email string, role enums.UserRole) uuid.UUID {
	t.Helper()
	user, err := repo.Create(context.Background(), CreateUserDTO{
		Name:         "User " + email,
		Email:        email,
		PasswordHash: "hash",
		Role:         role,
	})
	require.NoError(t, err)
	return user.ID
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	assert.Equal(t, code, typed.Code())
}

func ptr[T any](v T) *T {
	return &v
}

func TestCreateNormalizesEmailAndDefaultsRole(t *testing.T) {
	_, repo := newTestService(t)
	user, err := repo.Create(context.Background(), CreateUserDTO{Name: " Ann ", Email: " Ann@Example.COM ", PasswordHash: "h"})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", user.Email)
	assert.Equal(t, "Ann", user.Name)
	assert.Equal(t, enums.UserRoleCustomer, user.Role)
	assert.True(t, user.IsActive)
	assert.NotNil(t, user.Cart)
}

func TestUpdateProfile(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	id := createUser(t, repo, "ann@example.com", enums.UserRoleCustomer)
	createUser(t, repo, "bob@example.com", enums.UserRoleCustomer)

	updated, err := svc.UpdateProfile(ctx, id, UpdateProfileInput{Name: ptr("Annie"), Email: ptr("ANNIE@example.com")})
	require.NoError(t, err)
	assert.Equal(t, "Annie", updated.Name)
	assert.Equal(t, "annie@example.com", updated.Email)

	_, err = svc.UpdateProfile(ctx, id, UpdateProfileInput{Email: ptr("bob@example.com")})
	requireCode(t, err, pkgerrors.CodeConflict)

	_, err = svc.UpdateProfile(ctx, id, UpdateProfileInput{Name: ptr("  ")})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.UpdateProfile(ctx, id, UpdateProfileInput{Password: ptr("n3w-secret")})
	require.NoError(t, err)
	stored, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	ok, err := security.VerifyPassword("n3w-secret", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.GetProfile(ctx, uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestAdminUpdateGuardsOwnAccount(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	admin := createUser(t, repo, "admin@example.com", enums.UserRoleAdmin)
	customer := createUser(t, repo, "c@example.com", enums.UserRoleCustomer)

	promoted, err := svc.AdminUpdate(ctx, admin, customer, AdminUpdateInput{Role: ptr(enums.UserRoleAdmin)})
	require.NoError(t, err)
	assert.True(t, promoted.IsAdmin)

	_, err = svc.AdminUpdate(ctx, admin, admin, AdminUpdateInput{Role: ptr(enums.UserRoleCustomer)})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.AdminUpdate(ctx, admin, admin, AdminUpdateInput{IsActive: ptr(false)})
	requireCode(t, err, pkgerrors.CodeValidation)

	deactivated, err := svc.AdminUpdate(ctx, admin, customer, AdminUpdateInput{IsActive: ptr(false)})
	require.NoError(t, err)
	assert.False(t, deactivated.IsActive)
}

func TestDeleteRefusesAdmins(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	admin := createUser(t, repo, "admin@example.com", enums.UserRoleAdmin)
	customer := createUser(t, repo, "c@example.com", enums.UserRoleCustomer)

	requireCode(t, svc.Delete(ctx, admin, admin), pkgerrors.CodeValidation)
	require.NoError(t, svc.Delete(ctx, admin, customer))
	requireCode(t, svc.Delete(ctx, admin, customer), pkgerrors.CodeNotFound)
}

func TestListPaginates(t *testing.T) {
	svc, repo := newTestService(t)
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		createUser(t, repo, email, enums.UserRoleCustomer)
	}

	page, err := svc.List(context.Background(), pagination.Params{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page.Users, 1)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.Pages)
	assert.Equal(t, 2, page.Page.Page)
}
