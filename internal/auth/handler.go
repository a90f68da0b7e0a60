package auth

import (
	"encoding/json"
	"net/http"

	errors "github.com/Abhinavnist/payment-system-backend/internal"
	"github.com/Abhinavnist/payment-system-backend/internal/core/datamodel/merchant"
	"github.com/Abhinavnist/payment-system-backend/internal/transport"
)

// MerchantStore resolves API keys to merchant accounts.
type MerchantStore interface {
	GetByAPIKey(apiKey string) (*merchant.Merchant, error)
}

type Handler struct {
	*transport.BaseHandler
	Service   *Service
	Merchants MerchantStore
}

func NewHandler(svc *Service, merchants MerchantStore) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(nil),
		Service:     svc,
		Merchants:   merchants,
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	tokens, err := h.Service.Authenticate(dto)
	if err != nil {
		h.Logger.Error("authentication failed", "error", err, "email", dto.Email)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, tokens)
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var dto RefreshTokenDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}
	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	tokens, err := h.Service.RefreshTokens(dto.RefreshToken)
	if err != nil {
		h.Logger.Error("token refresh failed", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, tokens)
}

// AdminMiddleware authenticates back-office requests with a Bearer JWT and
// places the admin ID on the request context.
func (h *Handler) AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.HandleError(w, errors.NewUnauthorizedError("missing authorization token", errors.ErrCodeInvalidToken))
			return
		}

		claims, err := h.Service.ValidateAccessToken(token)
		if err != nil {
			h.Logger.Warn("token validation failed", "error", err)
			h.HandleServiceError(w, err)
			return
		}

		ctx := ContextWithAdmin(r.Context(), claims.AdminID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// APIKeyMiddleware authenticates merchant requests with the X-API-Key
// header and places the merchant on the request context.
func (h *Handler) APIKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			h.HandleError(w, errors.NewUnauthorizedError("missing API key", errors.ErrCodeInvalidAPIKey))
			return
		}

		m, err := h.Merchants.GetByAPIKey(apiKey)
		if err != nil {
			h.Logger.Warn("API key lookup failed", "error", err)
			h.HandleError(w, errors.ErrInvalidAPIKey)
			return
		}
		if !m.IsActive {
			h.HandleError(w, errors.ErrMerchantInactive)
			return
		}

		ctx := ContextWithMerchant(r.Context(), m)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
