package auth

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	errors "github.com/frahmantamala/donation-service/internal"
	"github.com/frahmantamala/donation-service/internal/core/datamodel/user"
)

// Service authenticates dashboard admins
type Service struct {
	repository     RepositoryAPI
	tokenGenerator TokenGeneratorAPI
	bcryptCost     int
	logger         *slog.Logger
}

func NewService(repository RepositoryAPI, tokenGen TokenGeneratorAPI, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repository:     repository,
		tokenGenerator: tokenGen,
		bcryptCost:     bcryptCost,
		logger:         logger,
	}
}

// Authenticate validates credentials and returns tokens. Unknown emails and wrong
// passwords get the same error.
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	admin, err := s.repository.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(dto.Email)))
	if err != nil {
		if stderrors.Is(err, errors.ErrInvalidCredentials) {
			return AuthTokens{}, errors.ErrInvalidCredentials
		}
		return AuthTokens{}, errors.NewStorageError("Failed to load user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(dto.Password)); err != nil {
		s.logger.Warn("admin login failed", "email", admin.Email)
		return AuthTokens{}, errors.ErrInvalidCredentials
	}

	if !admin.IsActive {
		return AuthTokens{}, errors.ErrUserInactive
	}
	if admin.Role != user.RoleAdmin {
		return AuthTokens{}, errors.ErrNotAdmin
	}

	s.logger.Info("admin logged in", "user_id", admin.ID)
	return s.issue(admin)
}

// RefreshTokens validates refresh token and returns new tokens
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error) {
	claims, err := s.tokenGenerator.ValidateRefreshToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}

	id, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return AuthTokens{}, errors.ErrInvalidToken
	}

	admin, err := s.repository.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, errors.ErrInvalidCredentials) {
			return AuthTokens{}, errors.ErrInvalidToken
		}
		return AuthTokens{}, errors.NewStorageError("Failed to load user", err)
	}
	if !admin.IsActive {
		return AuthTokens{}, errors.ErrUserInactive
	}
	if admin.Role != user.RoleAdmin {
		return AuthTokens{}, errors.ErrNotAdmin
	}

	return s.issue(admin)
}

func (s *Service) issue(admin *user.AdminUser) (AuthTokens, error) {
	accessToken, err := s.tokenGenerator.GenerateAccessToken(admin)
	if err != nil {
		return AuthTokens{}, errors.NewInternalError("Failed to issue token", err)
	}

	refreshToken, err := s.tokenGenerator.GenerateRefreshToken(admin)
	if err != nil {
		return AuthTokens{}, errors.NewInternalError("Failed to issue token", err)
	}

	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.tokenGenerator.AccessTokenTTL().Seconds()),
	}, nil
}

// ValidateAccessToken validates access token and returns claims
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokenGenerator.ValidateAccessToken(tokenString)
}

// HashPassword creates a bcrypt hash of the password
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// EnsureAdmin creates or updates an admin account with the given password.
func (s *Service) EnsureAdmin(ctx context.Context, email, name, password string) (*user.AdminUser, error) {
	if err := (LoginDTO{Email: email, Password: password}).Validate(); err != nil {
		return nil, err
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, errors.NewInternalError("Failed to hash password", err)
	}

	admin := &user.AdminUser{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Name:         name,
		PasswordHash: hash,
		Role:         user.RoleAdmin,
		IsActive:     true,
	}
	if err := s.repository.Upsert(ctx, admin); err != nil {
		return nil, errors.NewStorageError("Failed to save admin", err)
	}
	return admin, nil
}
