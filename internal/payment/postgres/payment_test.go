package postgres

import (
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Abhinavnist/payment-system-backend/internal/core/datamodel/payment"
)

func TestPaymentRepository(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Payment Repository Suite")
}

// PaymentSQLite mirrors the payments table with text instead of jsonb for
// SQLite compatibility
type PaymentSQLite struct {
	ID                 string     `gorm:"primaryKey;size:36"`
	MerchantID         string     `gorm:"column:merchant_id;size:36;not null;index"`
	Reference          string     `gorm:"column:reference;not null;index"`
	TrxnHashKey        string     `gorm:"column:trxn_hash_key;not null;uniqueIndex"`
	PaymentType        string     `gorm:"column:payment_type;not null"`
	PaymentMethod      string     `gorm:"column:payment_method;not null"`
	Amount             int64      `gorm:"column:amount;not null"`
	Currency           string     `gorm:"column:currency;default:INR"`
	Status             string     `gorm:"column:status;default:PENDING;not null;index"`
	UPIID              *string    `gorm:"column:upi_id"`
	UPIPaymentString   *string    `gorm:"column:upi_payment_string"`
	BankName           *string    `gorm:"column:bank_name"`
	AccountName        *string    `gorm:"column:account_name"`
	AccountNumber      *string    `gorm:"column:account_number"`
	IFSCCode           *string    `gorm:"column:ifsc_code"`
	UTRNumber          *string    `gorm:"column:utr_number;index"`
	VerifiedBy         *string    `gorm:"column:verified_by;size:36"`
	VerificationMethod *string    `gorm:"column:verification_method"`
	RequestData        string     `gorm:"column:request_data;type:text"`
	ResponseData       string     `gorm:"column:response_data;type:text"`
	CallbackSent       bool       `gorm:"column:callback_sent;default:false"`
	Remarks            *string    `gorm:"column:remarks"`
	PaymentLinkID      *string    `gorm:"column:payment_link_id;size:36;index"`
	CustomerName       *string    `gorm:"column:customer_name"`
	CustomerEmail      *string    `gorm:"column:customer_email"`
	CustomerPhone      *string    `gorm:"column:customer_phone"`
	CreatedAt          time.Time  `gorm:"column:created_at"`
	UpdatedAt          time.Time  `gorm:"column:updated_at"`
}

func (PaymentSQLite) TableName() string {
	return "payments"
}

func newPending(id, hash string, amount int64) *payment.Payment {
	return &payment.Payment{
		ID:            id,
		MerchantID:    "merchant-1",
		Reference:     "REF-" + id,
		TrxnHashKey:   hash,
		PaymentType:   payment.TypeDeposit,
		PaymentMethod: payment.MethodUPI,
		Amount:        amount,
		Currency:      "INR",
		Status:        payment.StatusPending,
	}
}

var _ = ginkgo.Describe("PaymentRepository", func() {
	var (
		db   *gorm.DB
		repo *PaymentRepository
	)

	ginkgo.BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			TranslateError: true,
			NowFunc: func() time.Time {
				return time.Now().UTC()
			},
		})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		err = db.AutoMigrate(&PaymentSQLite{})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		repo = NewPaymentRepository(db)
	})

	ginkgo.Describe("Create", func() {
		ginkgo.It("should insert a payment", func() {
			err := repo.Create(newPending("p1", "hash-1", 50000))
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			got, err := repo.GetByID("p1")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(got.TrxnHashKey).To(gomega.Equal("hash-1"))
			gomega.Expect(got.Status).To(gomega.Equal(payment.StatusPending))
		})

		ginkgo.It("should surface a duplicate transaction hash as ErrDuplicatedKey", func() {
			gomega.Expect(repo.Create(newPending("p1", "hash-1", 50000))).To(gomega.Succeed())

			err := repo.Create(newPending("p2", "hash-1", 50000))

			gomega.Expect(err).To(gomega.MatchError(gorm.ErrDuplicatedKey))
		})
	})

	ginkgo.Describe("GetByHash", func() {
		ginkgo.It("should find a payment by its transaction hash", func() {
			gomega.Expect(repo.Create(newPending("p1", "hash-1", 50000))).To(gomega.Succeed())

			got, err := repo.GetByHash("hash-1")

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(got.ID).To(gomega.Equal("p1"))
		})

		ginkgo.It("should return ErrRecordNotFound for an unknown hash", func() {
			_, err := repo.GetByHash("missing")

			gomega.Expect(err).To(gomega.MatchError(gorm.ErrRecordNotFound))
		})
	})

	ginkgo.Describe("ConfirmPending", func() {
		ginkgo.It("should confirm a pending payment exactly once", func() {
			gomega.Expect(repo.Create(newPending("p1", "hash-1", 50000))).To(gomega.Succeed())

			ok, err := repo.ConfirmPending("p1", "UTR123456789", "admin-1", payment.VerificationManual)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(ok).To(gomega.BeTrue())

			got, err := repo.GetByID("p1")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(got.Status).To(gomega.Equal(payment.StatusConfirmed))
			gomega.Expect(*got.UTRNumber).To(gomega.Equal("UTR123456789"))
			gomega.Expect(*got.VerificationMethod).To(gomega.Equal(payment.VerificationManual))

			ok, err = repo.ConfirmPending("p1", "UTR999", "admin-2", payment.VerificationManual)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(ok).To(gomega.BeFalse())

			got, _ = repo.GetByID("p1")
			gomega.Expect(*got.UTRNumber).To(gomega.Equal("UTR123456789"), "losing confirmer must not overwrite the winner")
		})

		ginkgo.It("should not confirm an unknown payment", func() {
			ok, err := repo.ConfirmPending("missing", "UTR123456789", "admin-1", payment.VerificationManual)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(ok).To(gomega.BeFalse())
		})
	})

	ginkgo.Describe("DeclinePending", func() {
		ginkgo.It("should decline a pending payment and refuse a second transition", func() {
			gomega.Expect(repo.Create(newPending("p1", "hash-1", 50000))).To(gomega.Succeed())

			ok, err := repo.DeclinePending("p1", "no credit found", "admin-1")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(ok).To(gomega.BeTrue())

			ok, err = repo.ConfirmPending("p1", "UTR123456789", "admin-2", payment.VerificationManual)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(ok).To(gomega.BeFalse())

			got, _ := repo.GetByID("p1")
			gomega.Expect(got.Status).To(gomega.Equal(payment.StatusDeclined))
			gomega.Expect(*got.Remarks).To(gomega.Equal("no credit found"))
		})
	})

	ginkgo.Describe("SubmitUTRPending", func() {
		ginkgo.It("should record the UTR while keeping the payment pending", func() {
			gomega.Expect(repo.Create(newPending("p1", "hash-1", 50000))).To(gomega.Succeed())

			ok, err := repo.SubmitUTRPending("p1", "UTR555666777", "awaiting verification")

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(ok).To(gomega.BeTrue())

			got, _ := repo.GetByID("p1")
			gomega.Expect(got.Status).To(gomega.Equal(payment.StatusPending))
			gomega.Expect(*got.UTRNumber).To(gomega.Equal("UTR555666777"))
		})
	})

	ginkgo.Describe("ListPending", func() {
		ginkgo.It("should return only pending payments inside the window", func() {
			gomega.Expect(repo.Create(newPending("p1", "hash-1", 50000))).To(gomega.Succeed())
			gomega.Expect(repo.Create(newPending("p2", "hash-2", 60000))).To(gomega.Succeed())
			ok, err := repo.ConfirmPending("p2", "UTR123456789", "admin-1", payment.VerificationManual)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(ok).To(gomega.BeTrue())

			pending, err := repo.ListPending("", time.Now().UTC().AddDate(0, 0, -7))

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(pending).To(gomega.HaveLen(1))
			gomega.Expect(pending[0].ID).To(gomega.Equal("p1"))
		})

		ginkgo.It("should filter by merchant when one is given", func() {
			p := newPending("p1", "hash-1", 50000)
			p.MerchantID = "merchant-2"
			gomega.Expect(repo.Create(p)).To(gomega.Succeed())

			pending, err := repo.ListPending("merchant-1", time.Now().UTC().AddDate(0, 0, -7))

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(pending).To(gomega.BeEmpty())
		})
	})

	ginkgo.Describe("callback audit", func() {
		ginkgo.It("should flip callback_sent on MarkCallbackSent", func() {
			gomega.Expect(repo.Create(newPending("p1", "hash-1", 50000))).To(gomega.Succeed())

			err := repo.MarkCallbackSent("p1", []byte(`{"callback_status": 200}`))

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			got, _ := repo.GetByID("p1")
			gomega.Expect(got.CallbackSent).To(gomega.BeTrue())
		})

		ginkgo.It("should keep callback_sent false on RecordCallbackFailure", func() {
			gomega.Expect(repo.Create(newPending("p1", "hash-1", 50000))).To(gomega.Succeed())

			err := repo.RecordCallbackFailure("p1", []byte(`{"callback_error": "timeout"}`))

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			got, _ := repo.GetByID("p1")
			gomega.Expect(got.CallbackSent).To(gomega.BeFalse())
		})

		ginkgo.It("should list resolved payments whose callback never went out", func() {
			gomega.Expect(repo.Create(newPending("p1", "hash-1", 50000))).To(gomega.Succeed())
			gomega.Expect(repo.Create(newPending("p2", "hash-2", 60000))).To(gomega.Succeed())
			gomega.Expect(repo.Create(newPending("p3", "hash-3", 70000))).To(gomega.Succeed())

			ok, err := repo.ConfirmPending("p1", "UTR111", "admin-1", payment.VerificationManual)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(ok).To(gomega.BeTrue())
			ok, err = repo.DeclinePending("p2", "declined", "admin-1")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(ok).To(gomega.BeTrue())

			unsent, err := repo.ListResolvedUnsent(10)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(unsent).To(gomega.HaveLen(2))

			gomega.Expect(repo.MarkCallbackSent("p1", []byte(`{}`))).To(gomega.Succeed())

			unsent, err = repo.ListResolvedUnsent(10)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(unsent).To(gomega.HaveLen(1))
			gomega.Expect(unsent[0].ID).To(gomega.Equal("p2"))
		})
	})
})
