package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/Abhinavnist/payment-system-backend/internal"
	"github.com/Abhinavnist/payment-system-backend/internal/auth"
	"github.com/Abhinavnist/payment-system-backend/internal/core/datamodel/admin"
)

func TestAuth(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Auth Module Suite")
}

type mockAdminRepository struct {
	admins map[string]*admin.Admin
}

func (m *mockAdminRepository) GetByEmail(email string) (*admin.Admin, error) {
	for _, a := range m.admins {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, errors.New("admin not found")
}

func (m *mockAdminRepository) GetByID(id string) (*admin.Admin, error) {
	a, exists := m.admins[id]
	if !exists {
		return nil, errors.New("admin not found")
	}
	return a, nil
}

var _ = ginkgo.Describe("AuthService", func() {
	var (
		service  *auth.Service
		mockRepo *mockAdminRepository
		account  *admin.Admin
	)

	ginkgo.BeforeEach(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("correct-password"), bcrypt.MinCost)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		account = &admin.Admin{
			ID:           "admin-1",
			Email:        "admin@mail.com",
			Name:         "Admin",
			PasswordHash: string(hash),
			IsActive:     true,
		}
		mockRepo = &mockAdminRepository{admins: map[string]*admin.Admin{account.ID: account}}

		tokenGen := auth.NewJWTTokenGenerator("test-jwt-secret-at-least-32-chars!")
		service = auth.NewService(mockRepo, tokenGen, bcrypt.MinCost)
	})

	ginkgo.Describe("Authenticate", func() {
		ginkgo.It("should return a token pair for valid credentials", func() {
			tokens, err := service.Authenticate(auth.LoginDTO{
				Email:    "admin@mail.com",
				Password: "correct-password",
			})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(tokens.AccessToken).ToNot(gomega.BeEmpty())
			gomega.Expect(tokens.RefreshToken).ToNot(gomega.BeEmpty())

			claims, err := service.ValidateAccessToken(tokens.AccessToken)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(claims.AdminID).To(gomega.Equal("admin-1"))
			gomega.Expect(claims.Email).To(gomega.Equal("admin@mail.com"))
		})

		ginkgo.It("should give the same error for a wrong password and an unknown email", func() {
			_, wrongPassErr := service.Authenticate(auth.LoginDTO{
				Email:    "admin@mail.com",
				Password: "wrong-password",
			})
			_, unknownErr := service.Authenticate(auth.LoginDTO{
				Email:    "nobody@mail.com",
				Password: "whatever-password",
			})

			wrongAppErr, ok := apperrors.IsAppError(wrongPassErr)
			gomega.Expect(ok).To(gomega.BeTrue())
			unknownAppErr, ok := apperrors.IsAppError(unknownErr)
			gomega.Expect(ok).To(gomega.BeTrue())

			gomega.Expect(wrongAppErr.Code).To(gomega.Equal(unknownAppErr.Code))
			gomega.Expect(wrongAppErr.Message).To(gomega.Equal(unknownAppErr.Message))
		})

		ginkgo.It("should reject an inactive account", func() {
			account.IsActive = false

			_, err := service.Authenticate(auth.LoginDTO{
				Email:    "admin@mail.com",
				Password: "correct-password",
			})

			appErr, ok := apperrors.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.Code).To(gomega.Equal(apperrors.ErrCodeInvalidCredentials))
		})

		ginkgo.It("should reject a short password before touching the store", func() {
			_, err := service.Authenticate(auth.LoginDTO{
				Email:    "admin@mail.com",
				Password: "short",
			})

			gomega.Expect(err).To(gomega.HaveOccurred())
		})
	})

	ginkgo.Describe("RefreshTokens", func() {
		ginkgo.It("should exchange a refresh token for a new pair", func() {
			tokens, err := service.Authenticate(auth.LoginDTO{
				Email:    "admin@mail.com",
				Password: "correct-password",
			})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			refreshed, err := service.RefreshTokens(tokens.RefreshToken)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(refreshed.AccessToken).ToNot(gomega.BeEmpty())

			claims, err := service.ValidateAccessToken(refreshed.AccessToken)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(claims.AdminID).To(gomega.Equal("admin-1"))
		})

		ginkgo.It("should refuse an access token in the refresh slot", func() {
			tokens, err := service.Authenticate(auth.LoginDTO{
				Email:    "admin@mail.com",
				Password: "correct-password",
			})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.RefreshTokens(tokens.AccessToken)

			gomega.Expect(err).To(gomega.Equal(apperrors.ErrInvalidToken))
		})

		ginkgo.It("should refuse refreshing for a deactivated account", func() {
			tokens, err := service.Authenticate(auth.LoginDTO{
				Email:    "admin@mail.com",
				Password: "correct-password",
			})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			account.IsActive = false

			_, err = service.RefreshTokens(tokens.RefreshToken)

			gomega.Expect(err).To(gomega.Equal(apperrors.ErrInvalidToken))
		})
	})

	ginkgo.Describe("ValidateAccessToken", func() {
		ginkgo.It("should refuse a refresh token in the access slot", func() {
			tokens, err := service.Authenticate(auth.LoginDTO{
				Email:    "admin@mail.com",
				Password: "correct-password",
			})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.ValidateAccessToken(tokens.RefreshToken)

			gomega.Expect(err).To(gomega.Equal(apperrors.ErrInvalidToken))
		})

		ginkgo.It("should refuse garbage tokens", func() {
			_, err := service.ValidateAccessToken("not.a.token")

			gomega.Expect(err).To(gomega.Equal(apperrors.ErrInvalidToken))
		})

		ginkgo.It("should refuse an expired token with a distinct code", func() {
			expiredGen := auth.NewJWTTokenGenerator("test-jwt-secret-at-least-32-chars!")
			expiredGen.AccessTokenTTL = -time.Minute
			expired, err := expiredGen.GenerateAccessToken("admin-1", "admin@mail.com")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.ValidateAccessToken(expired)

			appErr, ok := apperrors.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.Code).To(gomega.Equal(apperrors.ErrCodeTokenExpired))
		})
	})
})
