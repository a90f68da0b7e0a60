package paymentlink

import (
	"encoding/json"
	"net/http"
	"strings"

	errors "github.com/Abhinavnist/payment-system-backend/internal"
	"github.com/Abhinavnist/payment-system-backend/internal/auth"
	"github.com/Abhinavnist/payment-system-backend/internal/transport"
	"github.com/go-chi/chi"
)

type Handler struct {
	*transport.BaseHandler
	Service *Service

	// BaseURL prefixes the shareable payment-page URL returned on create.
	BaseURL string
}

func NewHandler(service *Service, baseURL string) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(nil),
		Service:     service,
		BaseURL:     strings.TrimRight(baseURL, "/"),
	}
}

// Create handles POST /api/v1/payment-links (merchant).
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	m, ok := auth.MerchantFromContext(r.Context())
	if !ok || m == nil {
		h.HandleError(w, errors.ErrInvalidAPIKey)
		return
	}

	var dto CreateLinkDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	link, err := h.Service.Create(m.ID, &dto)
	if err != nil {
		h.Logger.Error("Create: service error", "error", err, "merchant_id", m.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"link": link,
		"url":  h.BaseURL + "/api/v1/payment-links/" + link.UniqueCode,
	})
}

// Page handles GET /api/v1/payment-links/{code} (public).
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	view, err := h.Service.Page(code)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, view)
}

// Pay handles POST /api/v1/payment-links/{code}/pay (public).
func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	var dto CustomerPaymentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	p, payload, err := h.Service.Pay(code, &dto)
	if err != nil {
		h.Logger.Error("Pay: service error", "error", err, "unique_code", code)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"payment_id": p.ID,
		"status":     p.Status,
		"payment":    payload,
	})
}

// SubmitUTR handles POST /api/v1/payment-links/payments/{id}/utr (public).
func (h *Handler) SubmitUTR(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "id")

	var dto SubmitUTRDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	p, err := h.Service.SubmitUTR(paymentID, &dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	remarks := ""
	if p.Remarks != nil {
		remarks = *p.Remarks
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"payment_id": p.ID,
		"status":     p.Status,
		"remarks":    remarks,
	})
}
