package utr

import (
	"encoding/json"
	"io"
	"net/http"

	errors "github.com/Abhinavnist/payment-system-backend/internal"
	"github.com/Abhinavnist/payment-system-backend/internal/auth"
	paymentpkg "github.com/Abhinavnist/payment-system-backend/internal/payment"
	"github.com/Abhinavnist/payment-system-backend/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	Service  *Service
	MaxBytes int64
}

func NewHandler(service *Service, maxBytes int64) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(nil),
		Service:     service,
		MaxBytes:    maxBytes,
	}
}

// Verify handles POST /api/v1/payments/verify (admin).
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	adminID, ok := auth.AdminFromContext(r.Context())
	if !ok {
		h.HandleError(w, errors.ErrInvalidToken)
		return
	}

	var dto paymentpkg.VerifyPaymentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}
	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	p, err := h.Service.VerifyByUTR(dto.UTRNumber, dto.PaymentID, adminID)
	if err != nil {
		h.Logger.Error("Verify: service error", "error", err, "payment_id", dto.PaymentID, "admin_id", adminID)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("Verify: payment confirmed", "payment_id", p.ID, "utr", dto.UTRNumber, "admin_id", adminID)

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "Payment verified",
		"payment_id": p.ID,
		"reference":  p.Reference,
		"status":     p.Status,
	})
}

// UploadStatement handles POST /api/v1/statements/upload (admin). The
// statement file arrives as multipart form data under the "file" field.
func (h *Handler) UploadStatement(w http.ResponseWriter, r *http.Request) {
	adminID, ok := auth.AdminFromContext(r.Context())
	if !ok {
		h.HandleError(w, errors.ErrInvalidToken)
		return
	}

	if h.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)
	}
	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		h.HandleError(w, errors.NewValidationError("invalid multipart request", errors.ErrCodeValidationFailed))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.HandleError(w, errors.NewValidationError("statement file is required", errors.ErrCodeValidationFailed))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		h.HandleServiceError(w, errors.NewInternalError("failed to read statement file", err))
		return
	}

	result, err := h.Service.ProcessStatement(content, header.Header.Get("Content-Type"), adminID)
	if err != nil {
		h.Logger.Error("UploadStatement: processing failed", "error", err, "filename", header.Filename)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("UploadStatement: statement processed",
		"filename", header.Filename,
		"total", result.Total,
		"matched", result.Matched,
		"ambiguous", len(result.Ambiguous),
		"admin_id", adminID)

	h.WriteJSON(w, http.StatusOK, result)
}
