package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/shopora-backend/internal/cart"
	"github.com/angelmondragon/shopora-backend/internal/users"
	pkgAuth "github.com/angelmondragon/shopora-backend/pkg/auth"
	"github.com/angelmondragon/shopora-backend/pkg/auth/session"
	"github.com/angelmondragon/shopora-backend/pkg/config"
	"github.com/angelmondragon/shopora-backend/pkg/db"
	"github.com/angelmondragon/shopora-backend/pkg/db/models"
	"github.com/angelmondragon/shopora-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopora-backend/pkg/errors"
	"github.com/angelmondragon/shopora-backend/pkg/logger"
	"github.com/angelmondragon/shopora-backend/pkg/security"
	"github.com/angelmondragon/shopora-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const invalidCredentialsMessage = "invalid credentials"

// pkgerrors values carry mutable details, so each failure gets a fresh one.
func invalidCredentials() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
}

func emailTaken() error {
	return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
}

// Service defines the behavior needed by the auth controllers.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*LoginResponse, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
}

type service struct {
	users        userRepository
	session      sessionManager
	carts        cartMerger
	jwtCfg       config.JWTConfig
	passwordCfg  config.PasswordConfig
	mergeOnLogin bool
	logg         *logger.Logger
	now          func() time.Time
}

type userRepository interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
}

type cartMerger interface {
	Merge(ctx context.Context, userID uuid.UUID, guest []types.GuestLine) (*cart.MergeResult, error)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo       userRepository
	SessionManager sessionManager
	// Carts is optional; without it guest carts are ignored at login.
	Carts          cartMerger
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	MergeOnLogin   bool
	Logger         *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	for _, dep := range []struct {
		name    string
		missing bool
	}{
		{"user repository", params.UserRepo == nil},
		{"session manager", params.SessionManager == nil},
		{"logger", params.Logger == nil},
	} {
		if dep.missing {
			return nil, fmt.Errorf("%s is required", dep.name)
		}
	}
	return &service{
		users:        params.UserRepo,
		session:      params.SessionManager,
		carts:        params.Carts,
		jwtCfg:       params.JWTConfig,
		passwordCfg:  params.PasswordConfig,
		mergeOnLogin: params.MergeOnLogin && params.Carts != nil,
		logg:         params.Logger,
		now:          time.Now,
	}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*LoginResponse, error) {
	email := users.NormalizeEmail(req.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	// The unique index still arbitrates races; this only gives the common case
	// a clean conflict before paying for an argon2 hash.
	switch _, err := s.users.FindByEmail(ctx, email); {
	case err == nil:
		return nil, emailTaken()
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check user email")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid password")
	}

	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         enums.UserRoleCustomer,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, emailTaken()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}

	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "user registered")
	return s.issue(ctx, user, req.GuestCart)
}

// Login authenticates the user and, when enabled, folds the guest cart into the
// stored cart. A failed merge never fails the login.
func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	if err := s.recordLogin(ctx, user); err != nil {
		return nil, err
	}
	s.upgradeHash(ctx, user, req.Password)
	return s.issue(ctx, user, req.GuestCart)
}

func (s *service) issue(ctx context.Context, user *models.User, guest []types.GuestLine) (*LoginResponse, error) {
	accessID := session.NewAccessID()
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now().UTC(), pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refreshToken, err := s.session.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}

	resp := &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         users.FromModel(user),
	}
	if len(guest) == 0 || !s.mergeOnLogin {
		return resp, nil
	}

	merged, err := s.carts.Merge(ctx, user.ID, guest)
	if err != nil {
		s.logg.Error(s.logg.WithUserID(ctx, user.ID.String()), "guest cart merge at login failed", err)
		return resp, nil
	}
	resp.Cart = merged.Cart
	resp.MergeWarnings = merged.Warnings
	resp.GuestCartMerged = true
	return resp, nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	normalized := users.NormalizeEmail(email)
	if normalized == "" {
		return nil, invalidCredentials()
	}
	user, err := s.users.FindByEmail(ctx, normalized)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, invalidCredentials()
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	// Unknown email, wrong password and disabled account look the same.
	if !valid || !user.IsActive {
		return nil, invalidCredentials()
	}
	return user, nil
}

// upgradeHash re-derives the stored hash when the configured argon2 costs have
// moved since it was written. Failures only cost us another attempt next login.
func (s *service) upgradeHash(ctx context.Context, user *models.User, password string) {
	if !security.NeedsRehash(user.PasswordHash, s.passwordCfg) {
		return
	}
	hash, err := security.HashPassword(password, s.passwordCfg)
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, user.ID, hash)
	}
	if err != nil {
		logCtx := s.logg.WithField(s.logg.WithUserID(ctx, user.ID.String()), "error", err.Error())
		s.logg.Warn(logCtx, "password rehash skipped")
		return
	}
	user.PasswordHash = hash
}

func (s *service) recordLogin(ctx context.Context, user *models.User) error {
	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now
	return nil
}
