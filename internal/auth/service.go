package auth

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	errors "github.com/Abhinavnist/payment-system-backend/internal"
	"github.com/Abhinavnist/payment-system-backend/internal/core/datamodel/admin"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type AdminRepository interface {
	GetByEmail(email string) (*admin.Admin, error)
	GetByID(id string) (*admin.Admin, error)
}

// Service authenticates back-office admins.
type Service struct {
	admins         AdminRepository
	tokenGenerator TokenGenerator
	bcryptCost     int
}

func NewService(admins AdminRepository, tokenGen TokenGenerator, bcryptCost int) *Service {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		admins:         admins,
		tokenGenerator: tokenGen,
		bcryptCost:     bcryptCost,
	}
}

// Authenticate validates credentials and returns tokens.
func (s *Service) Authenticate(dto LoginDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	account, err := s.admins.GetByEmail(dto.Email)
	if err != nil {
		// same response whether the account is missing or the password
		// is wrong, so login cannot be used to enumerate admin emails
		return AuthTokens{}, errors.NewUnauthorizedError("invalid credentials", errors.ErrCodeInvalidCredentials)
	}
	if !account.IsActive {
		return AuthTokens{}, errors.NewUnauthorizedError("account is inactive", errors.ErrCodeInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(dto.Password)); err != nil {
		return AuthTokens{}, errors.NewUnauthorizedError("invalid credentials", errors.ErrCodeInvalidCredentials)
	}

	return s.issueTokens(account.ID, account.Email)
}

// RefreshTokens validates a refresh token and returns a new token pair.
func (s *Service) RefreshTokens(refreshToken string) (AuthTokens, error) {
	claims, err := s.tokenGenerator.ValidateToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}
	if claims.TokenType != tokenTypeRefresh {
		return AuthTokens{}, errors.ErrInvalidToken
	}

	account, err := s.admins.GetByID(claims.AdminID)
	if err != nil || !account.IsActive {
		return AuthTokens{}, errors.ErrInvalidToken
	}

	return s.issueTokens(account.ID, account.Email)
}

// ValidateAccessToken validates an access token and returns its claims.
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims, err := s.tokenGenerator.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenTypeAccess {
		return nil, errors.ErrInvalidToken
	}
	return claims, nil
}

// HashPassword creates a bcrypt hash of the password.
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *Service) issueTokens(adminID, email string) (AuthTokens, error) {
	accessToken, err := s.tokenGenerator.GenerateAccessToken(adminID, email)
	if err != nil {
		return AuthTokens{}, errors.NewInternalError("failed to issue access token", err)
	}

	refreshToken, err := s.tokenGenerator.GenerateRefreshToken(adminID, email)
	if err != nil {
		return AuthTokens{}, errors.NewInternalError("failed to issue refresh token", err)
	}

	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// GenerateAccessToken creates a short-lived access token.
func (j *JWTTokenGenerator) GenerateAccessToken(adminID, email string) (string, error) {
	return j.sign(adminID, email, tokenTypeAccess, j.AccessTokenTTL)
}

// GenerateRefreshToken creates a long-lived refresh token.
func (j *JWTTokenGenerator) GenerateRefreshToken(adminID, email string) (string, error) {
	return j.sign(adminID, email, tokenTypeRefresh, j.RefreshTokenTTL)
}

func (j *JWTTokenGenerator) sign(adminID, email, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		AdminID:   adminID,
		Email:     email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   adminID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Secret)
}

// ValidateToken validates a JWT and returns its claims.
func (j *JWTTokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.Secret, nil
	})

	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.NewUnauthorizedError("token expired", errors.ErrCodeTokenExpired)
		}
		return nil, errors.ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.ErrInvalidToken
}
