package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/Abhinavnist/payment-system-backend/internal/auth"
	"github.com/Abhinavnist/payment-system-backend/internal/payment"
	"github.com/Abhinavnist/payment-system-backend/internal/paymentlink"
	"github.com/Abhinavnist/payment-system-backend/internal/transport/middleware"
	"github.com/Abhinavnist/payment-system-backend/internal/transport/swagger"
	"github.com/Abhinavnist/payment-system-backend/internal/utr"
	"github.com/go-chi/chi"
)

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, allowedOrigins string, authHandler *auth.Handler, paymentHandler *payment.Handler, utrHandler *utr.Handler, linkHandler *paymentlink.Handler, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	// Global middleware
	router.Use(middleware.CORS(allowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	// OpenAPI spec and swagger UI at root, outside the API prefix
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Admin auth
		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", authHandler.Login)
			sr.Post("/refresh", authHandler.RefreshToken)
		})

		// Merchant API (X-API-Key)
		r.Group(func(mr chi.Router) {
			mr.Use(authHandler.APIKeyMiddleware)

			mr.Post("/payments/request", paymentHandler.CreateRequest)
			mr.Post("/payments/check-request", paymentHandler.CheckRequest)
			mr.Post("/payment-links", linkHandler.Create)
		})

		// Admin verification (Bearer JWT)
		r.Group(func(ar chi.Router) {
			ar.Use(authHandler.AdminMiddleware)

			ar.Post("/payments/verify", utrHandler.Verify)
			ar.Post("/payments/{id}/decline", paymentHandler.Decline)
			ar.Get("/payments/pending", paymentHandler.ListPending)
			ar.Post("/statements/upload", utrHandler.UploadStatement)
		})

		// Public payment-link pages
		r.Get("/payment-links/{code}", linkHandler.Page)
		r.Post("/payment-links/{code}/pay", linkHandler.Pay)
		r.Post("/payment-links/payments/{id}/utr", linkHandler.SubmitUTR)
	})
}
