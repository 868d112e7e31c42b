package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hizbul38/book-porter-api/internal/model"
)

func TestUserService_UpdateRole(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(repo)

	u := &model.User{Email: "lib@example.com", Role: model.RoleUser}
	require.NoError(t, repo.Create(context.Background(), u))

	updated, err := svc.UpdateRole(context.Background(), u.ID, model.RoleLibrarian)
	require.NoError(t, err)
	assert.Equal(t, model.RoleLibrarian, updated.Role)
}

func TestUserService_UpdateRole_InvalidRole(t *testing.T) {
	svc := NewUserService(newMockUserRepo())

	_, err := svc.UpdateRole(context.Background(), uuid.New(), model.Role("owner"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUserService_UpdateRole_NotFound(t *testing.T) {
	svc := NewUserService(newMockUserRepo())

	_, err := svc.UpdateRole(context.Background(), uuid.New(), model.RoleAdmin)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
