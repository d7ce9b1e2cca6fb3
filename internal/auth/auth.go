package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey string

const contextUserKey ctxKey = "authUser"

// User is the authenticated principal attached to request contexts. It
// carries everything the authorization layer needs so handlers never go back
// to the database for access decisions.
type User struct {
	ID           int64    `json:"id"`
	Username     string   `json:"username"`
	FullName     string   `json:"full_name"`
	IsSuperuser  bool     `json:"is_superuser"`
	SupervisorID *int64   `json:"supervisor_id,omitempty"`
	WorksiteID   *int64   `json:"worksite_id,omitempty"`
	Permissions  []string `json:"permissions,omitempty"`
}

func (u *User) HasPermission(permission string) bool {
	for _, p := range u.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.IsSuperuser || u.HasPermission("admin")
}

// UserFromContext retrieves the authenticated user set by AuthMiddleware.
func UserFromContext(ctx context.Context) (*User, bool) {
	if ctx == nil {
		return nil, false
	}
	user, ok := ctx.Value(contextUserKey).(*User)
	return user, ok
}

// ContextWithUser attaches the authenticated user to a context.
func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, contextUserKey, user)
}

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Claims represents JWT token claims.
type Claims struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenGenerator creates and validates signed tokens.
type TokenGenerator interface {
	GenerateAccessToken(userID string, username string) (token string, err error)
	GenerateRefreshToken(userID string, username string) (token string, err error)
	ValidateToken(tokenString string) (*Claims, error)
}

type JWTTokenGenerator struct {
	AccessTokenSecret  []byte
	RefreshTokenSecret []byte
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
}
