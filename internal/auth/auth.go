package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Abhinavnist/payment-system-backend/internal/core/datamodel/merchant"
)

type contextKey string

const (
	merchantContextKey contextKey = "authMerchant"
	adminContextKey    contextKey = "authAdmin"
)

// TokenGenerator creates and validates admin session tokens.
type TokenGenerator interface {
	GenerateAccessToken(adminID, email string) (string, error)
	GenerateRefreshToken(adminID, email string) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Claims represents JWT token claims for admin sessions.
type Claims struct {
	AdminID   string `json:"admin_id"`
	Email     string `json:"email"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

type JWTTokenGenerator struct {
	Secret          []byte
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// NewJWTTokenGenerator creates a JWT token generator with the shared
// signing secret.
func NewJWTTokenGenerator(secret string) *JWTTokenGenerator {
	return &JWTTokenGenerator{
		Secret:          []byte(secret),
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * 7 * time.Hour,
	}
}

// ContextWithMerchant stores the authenticated merchant on the request
// context.
func ContextWithMerchant(ctx context.Context, m *merchant.Merchant) context.Context {
	return context.WithValue(ctx, merchantContextKey, m)
}

// MerchantFromContext returns the merchant placed on the context by the
// API key middleware.
func MerchantFromContext(ctx context.Context) (*merchant.Merchant, bool) {
	m, ok := ctx.Value(merchantContextKey).(*merchant.Merchant)
	return m, ok
}

// ContextWithAdmin stores the authenticated admin ID on the request context.
func ContextWithAdmin(ctx context.Context, adminID string) context.Context {
	return context.WithValue(ctx, adminContextKey, adminID)
}

// AdminFromContext returns the admin ID placed on the context by the JWT
// middleware.
func AdminFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(adminContextKey).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
