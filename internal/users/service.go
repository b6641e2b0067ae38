package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopora-backend/pkg/config"
	"github.com/angelmondragon/shopora-backend/pkg/db"
	"github.com/angelmondragon/shopora-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/shopora-backend/pkg/errors"
	"github.com/angelmondragon/shopora-backend/pkg/logger"
	"github.com/angelmondragon/shopora-backend/pkg/pagination"
	"github.com/angelmondragon/shopora-backend/pkg/security"
)

// Service covers the profile endpoints and admin user management.
type Service interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*UserDTO, error)
	List(ctx context.Context, params pagination.Params) (*UserListResult, error)
	Get(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	AdminUpdate(ctx context.Context, actorID, id uuid.UUID, input AdminUpdateInput) (*UserDTO, error)
	Delete(ctx context.Context, actorID, id uuid.UUID) error
}

type userStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	List(ctx context.Context, params pagination.Params) ([]models.User, int64, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

type service struct {
	repo        userStore
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
}

// NewService builds the users service.
func NewService(repo userStore, passwordCfg config.PasswordConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, passwordCfg: passwordCfg, logg: logg}, nil
}

func (s *service) GetProfile(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*UserDTO, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Email != nil {
		email, err := s.availableEmail(ctx, user.ID, *input.Email)
		if err != nil {
			return nil, err
		}
		updates["email"] = email
	}
	if input.Password != nil {
		hash, err := security.HashPassword(*input.Password, s.passwordCfg)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid password")
		}
		updates["password_hash"] = hash
	}

	if err := s.apply(ctx, user.ID, updates); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, user.ID)
}

func (s *service) List(ctx context.Context, params pagination.Params) (*UserListResult, error) {
	params = params.Normalize()
	rows, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return &UserListResult{Users: out, Page: pagination.NewPage(params, total)}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	return s.GetProfile(ctx, id)
}

// AdminUpdate changes name, email, role or active flag. Admins cannot demote or
// deactivate themselves so at least one admin session always survives.
func (s *service) AdminUpdate(ctx context.Context, actorID, id uuid.UUID, input AdminUpdateInput) (*UserDTO, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Email != nil {
		email, err := s.availableEmail(ctx, user.ID, *input.Email)
		if err != nil {
			return nil, err
		}
		updates["email"] = email
	}
	if input.Role != nil {
		if !input.Role.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
		}
		if actorID == user.ID && *input.Role != user.Role {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot change your own role")
		}
		updates["role"] = *input.Role
	}
	if input.IsActive != nil {
		if actorID == user.ID && !*input.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot deactivate your own account")
		}
		updates["is_active"] = *input.IsActive
	}

	if err := s.apply(ctx, user.ID, updates); err != nil {
		return nil, err
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"actor_id": actorID.String(),
		"user_id":  user.ID.String(),
		"fields":   len(updates),
	})
	s.logg.Info(logCtx, "user updated by admin")
	return s.GetProfile(ctx, user.ID)
}

// Delete removes a customer account. Admin accounts must be demoted first.
func (s *service) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	user, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if user.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeValidation, "cannot delete admin user")
	}
	deleted, err := s.repo.Delete(ctx, user.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete user")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"actor_id": actorID.String(),
		"user_id":  user.ID.String(),
	}), "user deleted")
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

func (s *service) availableEmail(ctx context.Context, ownerID uuid.UUID, raw string) (string, error) {
	email := NormalizeEmail(raw)
	if email == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "email cannot be empty")
	}
	existing, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil && existing.ID != ownerID:
		return "", pkgerrors.New(pkgerrors.CodeConflict, "email already in use")
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check email")
	}
	return email, nil
}

func (s *service) apply(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	if err := s.repo.Update(ctx, id, updates); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		case db.IsUniqueViolation(err, ""):
			return pkgerrors.New(pkgerrors.CodeConflict, "email already in use")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user")
	}
	return nil
}
