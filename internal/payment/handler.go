package payment

import (
	"encoding/json"
	"net/http"
	"strconv"

	errors "github.com/Abhinavnist/payment-system-backend/internal"
	"github.com/Abhinavnist/payment-system-backend/internal/auth"
	"github.com/Abhinavnist/payment-system-backend/internal/core/datamodel/payment"
	"github.com/Abhinavnist/payment-system-backend/internal/transport"
	"github.com/go-chi/chi"
)

type Handler struct {
	*transport.BaseHandler
	Service *Service

	// PendingDays is the default lookback window for the pending listing
	// when the request does not carry a days parameter.
	PendingDays int
}

func NewHandler(service *Service, pendingDays int) *Handler {
	if pendingDays <= 0 {
		pendingDays = 7
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(nil),
		Service:     service,
		PendingDays: pendingDays,
	}
}

// Envelope matches the response shape merchants already integrate against.
type Envelope struct {
	Message  string      `json:"message"`
	Status   int         `json:"status"`
	Response interface{} `json:"response"`
}

// CreateRequest handles POST /api/v1/payments/request.
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	m, ok := auth.MerchantFromContext(r.Context())
	if !ok || m == nil {
		h.Logger.Error("CreateRequest: merchant not found in context")
		h.HandleError(w, errors.ErrInvalidAPIKey)
		return
	}

	var dto CreatePaymentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateRequest: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	var (
		p       *payment.Payment
		payload *ResponsePayload
		err     error
	)
	if dto.Action == "WITHDRAWAL" {
		p, payload, err = h.Service.CreateWithdrawal(m, &dto)
	} else {
		p, payload, err = h.Service.CreateDeposit(m, &dto)
	}
	if err != nil {
		h.Logger.Error("CreateRequest: service error", "error", err, "merchant_id", m.ID, "reference", dto.Reference)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("CreateRequest: payment request created",
		"payment_id", p.ID,
		"merchant_id", m.ID,
		"action", dto.Action,
		"amount", dto.Amount)

	h.WriteJSON(w, http.StatusCreated, Envelope{
		Message:  "Success",
		Status:   http.StatusCreated,
		Response: payload,
	})
}

// CheckRequest handles POST /api/v1/payments/check-request.
func (h *Handler) CheckRequest(w http.ResponseWriter, r *http.Request) {
	m, ok := auth.MerchantFromContext(r.Context())
	if !ok || m == nil {
		h.HandleError(w, errors.ErrInvalidAPIKey)
		return
	}

	var dto CheckRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}
	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	p, err := h.Service.CheckByHash(m.ID, dto.TrxnHashKey)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	remarks := ""
	if p.Remarks != nil {
		remarks = *p.Remarks
	}

	h.WriteJSON(w, http.StatusOK, Envelope{
		Message: "Success",
		Status:  http.StatusOK,
		Response: StatusView{
			TransactionID: p.ID,
			Reference:     p.Reference,
			Type:          p.PaymentType,
			Status:        p.Status,
			Remarks:       remarks,
			RequestedDate: p.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		},
	})
}

// Decline handles POST /api/v1/payments/{id}/decline (admin).
func (h *Handler) Decline(w http.ResponseWriter, r *http.Request) {
	adminID, ok := auth.AdminFromContext(r.Context())
	if !ok {
		h.HandleError(w, errors.ErrInvalidToken)
		return
	}

	paymentID := chi.URLParam(r, "id")
	if paymentID == "" {
		h.HandleError(w, errors.NewValidationError("payment id is required", errors.ErrCodeValidationFailed))
		return
	}

	var dto DeclinePaymentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}
	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	p, err := h.Service.Decline(paymentID, dto.Remarks, adminID)
	if err != nil {
		h.Logger.Error("Decline: service error", "error", err, "payment_id", paymentID, "admin_id", adminID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "Payment declined",
		"payment_id": p.ID,
		"status":     p.Status,
	})
}

// ListPending handles GET /api/v1/payments/pending (admin).
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.AdminFromContext(r.Context()); !ok {
		h.HandleError(w, errors.ErrInvalidToken)
		return
	}

	merchantID := r.URL.Query().Get("merchant_id")
	days := h.PendingDays
	if d := r.URL.Query().Get("days"); d != "" {
		if parsed, err := strconv.Atoi(d); err == nil && parsed > 0 {
			days = parsed
		}
	}

	pending, err := h.Service.ListPending(merchantID, days)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(pending),
		"payments": pending,
	})
}
