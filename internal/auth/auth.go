package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/frahmantamala/donation-service/internal/core/datamodel/user"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

type contextKey string

const ContextUserKey contextKey = "admin_user"

// Admin is the authenticated principal placed on the request context.
type Admin struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func (a *Admin) IsAdmin() bool {
	return a.Role == user.RoleAdmin
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Claims represents JWT token claims
type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

type ServiceAPI interface {
	Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error)
	RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	HashPassword(password string) (string, error)
}

type RepositoryAPI interface {
	GetByEmail(ctx context.Context, email string) (*user.AdminUser, error)
	GetByID(ctx context.Context, id int64) (*user.AdminUser, error)
	Upsert(ctx context.Context, u *user.AdminUser) error
}

type TokenGeneratorAPI interface {
	GenerateAccessToken(u *user.AdminUser) (string, error)
	GenerateRefreshToken(u *user.AdminUser) (string, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	ValidateRefreshToken(tokenString string) (*Claims, error)
	AccessTokenTTL() time.Duration
}

func WithUser(ctx context.Context, admin *Admin) context.Context {
	return context.WithValue(ctx, ContextUserKey, admin)
}

func UserFromContext(ctx context.Context) (*Admin, bool) {
	admin, ok := ctx.Value(ContextUserKey).(*Admin)
	return admin, ok && admin != nil
}
