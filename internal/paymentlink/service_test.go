package paymentlink_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	apperrors "github.com/Abhinavnist/payment-system-backend/internal"
	"github.com/Abhinavnist/payment-system-backend/internal/core/datamodel/merchant"
	"github.com/Abhinavnist/payment-system-backend/internal/core/datamodel/payment"
	linkmodel "github.com/Abhinavnist/payment-system-backend/internal/core/datamodel/paymentlink"
	"github.com/Abhinavnist/payment-system-backend/internal/identity"
	paymentPkg "github.com/Abhinavnist/payment-system-backend/internal/payment"
	"github.com/Abhinavnist/payment-system-backend/internal/paymentlink"
)

func TestPaymentLinkService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Payment Link Suite")
}

type mockLinkRepository struct {
	links       map[string]*linkmodel.PaymentLink
	byID        map[string]*linkmodel.PaymentLink
	payments    []*payment.Payment
	nextID      int
	createError error
}

func newMockLinkRepository() *mockLinkRepository {
	return &mockLinkRepository{
		links: make(map[string]*linkmodel.PaymentLink),
		byID:  make(map[string]*linkmodel.PaymentLink),
	}
}

func (m *mockLinkRepository) CodeExists(code string) (bool, error) {
	_, exists := m.links[code]
	return exists, nil
}

func (m *mockLinkRepository) Create(link *linkmodel.PaymentLink) error {
	if m.createError != nil {
		return m.createError
	}
	m.nextID++
	if link.ID == "" {
		link.ID = fmt.Sprintf("link-%d", m.nextID)
	}
	link.CreatedAt = time.Now()
	m.links[link.UniqueCode] = link
	m.byID[link.ID] = link
	return nil
}

func (m *mockLinkRepository) GetByCode(code string) (*linkmodel.PaymentLink, error) {
	link, exists := m.links[code]
	if !exists {
		return nil, gorm.ErrRecordNotFound
	}
	return link, nil
}

// ConsumeWithPayment mimics the conditional increment: the consume loses
// when the usage cap is already reached.
func (m *mockLinkRepository) ConsumeWithPayment(linkID string, p *payment.Payment) (bool, error) {
	link, exists := m.byID[linkID]
	if !exists || !link.IsActive {
		return false, nil
	}
	if link.MaxUses != nil && link.UsedCount >= *link.MaxUses {
		return false, nil
	}
	link.UsedCount++
	m.nextID++
	if p.ID == "" {
		p.ID = fmt.Sprintf("pay-%d", m.nextID)
	}
	m.payments = append(m.payments, p)
	return true, nil
}

type mockPaymentRepository struct{}

func (m *mockPaymentRepository) Create(p *payment.Payment) error { return nil }
func (m *mockPaymentRepository) GetByID(id string) (*payment.Payment, error) {
	return nil, gorm.ErrRecordNotFound
}
func (m *mockPaymentRepository) GetByHash(hash string) (*payment.Payment, error) {
	return nil, gorm.ErrRecordNotFound
}
func (m *mockPaymentRepository) ListPending(merchantID string, since time.Time) ([]*payment.Payment, error) {
	return nil, nil
}
func (m *mockPaymentRepository) ConfirmPending(id, utrNumber, verifiedBy, method string) (bool, error) {
	return false, nil
}
func (m *mockPaymentRepository) DeclinePending(id, remarks, verifiedBy string) (bool, error) {
	return false, nil
}
func (m *mockPaymentRepository) SubmitUTRPending(id, utrNumber, remarks string) (bool, error) {
	return false, nil
}

type mockMerchantStore struct {
	merchants map[string]*merchant.Merchant
}

func (m *mockMerchantStore) GetByID(id string) (*merchant.Merchant, error) {
	mc, exists := m.merchants[id]
	if !exists {
		return nil, errors.New("merchant not found")
	}
	return mc, nil
}

func int64Ptr(v int64) *int64 { return &v }
func intPtr(v int) *int       { return &v }
func timePtr(t time.Time) *time.Time {
	return &t
}

var _ = Describe("PaymentLinkService", func() {
	var (
		service  *paymentlink.Service
		mockRepo *mockLinkRepository
		m        *merchant.Merchant
	)

	BeforeEach(func() {
		mockRepo = newMockLinkRepository()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		m = &merchant.Merchant{
			ID:           "merchant-1",
			BusinessName: "Test Store",
			IsActive:     true,
			UPIDetails:   json.RawMessage(`{"upi_id": "teststore@upi", "name": "Test Store"}`),
			BankDetails:  json.RawMessage(`{"bank_name": "HDFC Bank", "account_name": "Test Store", "account_number": "50100123456789", "ifsc_code": "HDFC0001234"}`),
			MinDeposit:   500,
			MaxDeposit:   300000,
		}
		merchants := &mockMerchantStore{merchants: map[string]*merchant.Merchant{m.ID: m}}

		hasher := identity.NewHasher("test-hash-secret")
		payments := paymentPkg.NewService(&mockPaymentRepository{}, merchants, hasher, nil, logger)
		codes := identity.NewCodeGenerator(mockRepo, 10, 5)
		service = paymentlink.NewService(mockRepo, merchants, payments, codes, nil, logger)
	})

	createLink := func(dto *paymentlink.CreateLinkDTO) *linkmodel.PaymentLink {
		link, err := service.Create(m.ID, dto)
		Expect(err).ToNot(HaveOccurred())
		return link
	}

	Describe("Create", func() {
		It("should issue an active link with a unique code", func() {
			link := createLink(&paymentlink.CreateLinkDTO{Title: "Invoice 42", Amount: int64Ptr(50000)})

			Expect(link.UniqueCode).To(HaveLen(10))
			Expect(link.IsActive).To(BeTrue())
			Expect(link.Currency).To(Equal("INR"))
			Expect(link.PaymentType).To(Equal(payment.TypeDeposit))
		})

		It("should reject a title that is too long", func() {
			long := make([]byte, 201)
			for i := range long {
				long[i] = 'x'
			}

			_, err := service.Create(m.ID, &paymentlink.CreateLinkDTO{Title: string(long)})

			Expect(err).To(HaveOccurred())
		})

		It("should reject a past expiry", func() {
			past := time.Now().Add(-time.Hour)

			_, err := service.Create(m.ID, &paymentlink.CreateLinkDTO{Title: "Invoice", ExpiresAt: &past})

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("link validation", func() {
		It("should report deactivation before expiry before usage", func() {
			link := &linkmodel.PaymentLink{
				IsActive:  false,
				ExpiresAt: timePtr(time.Now().Add(-time.Hour)),
				MaxUses:   intPtr(1),
				UsedCount: 1,
			}

			Expect(paymentlink.Validate(link)).To(Equal(apperrors.ErrLinkInactive))

			link.IsActive = true
			Expect(paymentlink.Validate(link)).To(Equal(apperrors.ErrLinkExpired))

			link.ExpiresAt = nil
			Expect(paymentlink.Validate(link)).To(Equal(apperrors.ErrLinkUsageLimit))

			link.UsedCount = 0
			Expect(paymentlink.Validate(link)).To(Succeed())
		})
	})

	Describe("Page", func() {
		It("should expose only the merchant display name", func() {
			link := createLink(&paymentlink.CreateLinkDTO{Title: "Invoice 42", Amount: int64Ptr(50000)})

			page, err := service.Page(link.UniqueCode)

			Expect(err).ToNot(HaveOccurred())
			Expect(page.MerchantName).To(Equal("Test Store"))
			Expect(page.Title).To(Equal("Invoice 42"))
			Expect(*page.Amount).To(Equal(int64(50000)))
		})

		It("should return not found for an unknown code", func() {
			_, err := service.Page("NOSUCHCODE")

			Expect(err).To(Equal(apperrors.ErrLinkNotFound))
		})

		It("should hide an expired link from customers", func() {
			link := createLink(&paymentlink.CreateLinkDTO{Title: "Invoice", ExpiresAt: timePtr(time.Now().Add(time.Minute))})
			link.ExpiresAt = timePtr(time.Now().Add(-time.Minute))

			_, err := service.Page(link.UniqueCode)

			Expect(err).To(Equal(apperrors.ErrLinkExpired))
		})
	})

	Describe("Pay", func() {
		It("should use the link's fixed amount even when the customer sends one", func() {
			link := createLink(&paymentlink.CreateLinkDTO{Title: "Invoice", Amount: int64Ptr(50000)})

			p, payload, err := service.Pay(link.UniqueCode, &paymentlink.CustomerPaymentDTO{
				Name:         "Customer One",
				CustomAmount: int64Ptr(99999),
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(p.Amount).To(Equal(int64(50000)))
			Expect(payload.UPIString).To(ContainSubstring("am=50000"))
		})

		It("should take the customer amount on an open link", func() {
			link := createLink(&paymentlink.CreateLinkDTO{Title: "Donation"})

			p, _, err := service.Pay(link.UniqueCode, &paymentlink.CustomerPaymentDTO{
				Name:         "Customer One",
				CustomAmount: int64Ptr(75000),
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(p.Amount).To(Equal(int64(75000)))
		})

		It("should require an amount on an open link", func() {
			link := createLink(&paymentlink.CreateLinkDTO{Title: "Donation"})

			_, _, err := service.Pay(link.UniqueCode, &paymentlink.CustomerPaymentDTO{Name: "Customer One"})

			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(apperrors.ErrCodeInvalidAmount))
		})

		It("should enforce the merchant's deposit bounds", func() {
			link := createLink(&paymentlink.CreateLinkDTO{Title: "Donation"})

			_, _, err := service.Pay(link.UniqueCode, &paymentlink.CustomerPaymentDTO{
				Name:         "Customer One",
				CustomAmount: int64Ptr(100),
			})

			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(apperrors.ErrCodeAmountOutOfRange))
		})

		It("should attach customer details and the link id to the payment", func() {
			link := createLink(&paymentlink.CreateLinkDTO{Title: "Invoice", Amount: int64Ptr(50000)})

			p, _, err := service.Pay(link.UniqueCode, &paymentlink.CustomerPaymentDTO{
				Name:  "Customer One",
				Email: "customer@mail.com",
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(*p.PaymentLinkID).To(Equal(link.ID))
			Expect(*p.CustomerName).To(Equal("Customer One"))
			Expect(*p.CustomerEmail).To(Equal("customer@mail.com"))
			Expect(p.Reference).To(HavePrefix("PLINK-"))
		})

		It("should produce distinct references across repeated uses", func() {
			link := createLink(&paymentlink.CreateLinkDTO{Title: "Invoice", Amount: int64Ptr(50000)})

			first, _, err := service.Pay(link.UniqueCode, &paymentlink.CustomerPaymentDTO{Name: "Customer One"})
			Expect(err).ToNot(HaveOccurred())
			second, _, err := service.Pay(link.UniqueCode, &paymentlink.CustomerPaymentDTO{Name: "Customer Two"})
			Expect(err).ToNot(HaveOccurred())

			Expect(first.Reference).ToNot(Equal(second.Reference))
			Expect(first.TrxnHashKey).ToNot(Equal(second.TrxnHashKey))
		})

		It("should stop at the usage limit", func() {
			link := createLink(&paymentlink.CreateLinkDTO{Title: "Invoice", Amount: int64Ptr(50000), MaxUses: intPtr(1)})

			_, _, err := service.Pay(link.UniqueCode, &paymentlink.CustomerPaymentDTO{Name: "Customer One"})
			Expect(err).ToNot(HaveOccurred())

			_, _, err = service.Pay(link.UniqueCode, &paymentlink.CustomerPaymentDTO{Name: "Customer Two"})

			Expect(err).To(Equal(apperrors.ErrLinkUsageLimit))
			Expect(mockRepo.payments).To(HaveLen(1))
		})

		It("should fill bank coordinates for a bank-transfer payment", func() {
			link := createLink(&paymentlink.CreateLinkDTO{Title: "Invoice", Amount: int64Ptr(50000)})

			_, payload, err := service.Pay(link.UniqueCode, &paymentlink.CustomerPaymentDTO{
				Name:          "Customer One",
				PaymentMethod: payment.MethodBankTransfer,
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(payload.ReceiverBankInfo).ToNot(BeNil())
			Expect(payload.ReceiverBankInfo.AccountNumber).To(Equal("50100123456789"))
		})
	})
})
