package auth

import (
	errors "github.com/Abhinavnist/payment-system-backend/internal"
	"github.com/Abhinavnist/payment-system-backend/internal/core/common/validation"
)

// LoginDTO is the transport shape used by the HTTP handler to accept
// admin login requests.
type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (d LoginDTO) Validate() error {
	validator := validation.NewValidator()
	validator.Field("email", d.Email).Required()
	validator.Field("password", d.Password).Required().MinLength(8)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// RefreshTokenDTO for refresh token requests
type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token"`
}

func (d RefreshTokenDTO) Validate() error {
	if d.RefreshToken == "" {
		return errors.NewValidationFieldError("refresh_token", "refresh_token is required", errors.ErrCodeValidationFailed)
	}
	return nil
}
