package identity_test

import (
	"errors"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/Abhinavnist/payment-system-backend/internal"
	"github.com/Abhinavnist/payment-system-backend/internal/identity"
)

func TestIdentity(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Identity Suite")
}

type mockCodeStore struct {
	taken      map[string]bool
	takeAll    bool
	checkError error
	checked    int
}

func (m *mockCodeStore) CodeExists(code string) (bool, error) {
	m.checked++
	if m.checkError != nil {
		return false, m.checkError
	}
	if m.takeAll {
		return true, nil
	}
	return m.taken[code], nil
}

var _ = Describe("Hasher", func() {
	var hasher *identity.Hasher

	BeforeEach(func() {
		hasher = identity.NewHasher("test-hash-secret")
	})

	Describe("TransactionHash", func() {
		It("should be deterministic for identical inputs", func() {
			first := hasher.TransactionHash("ORDER-1001", "merchant-1", 50000)
			second := hasher.TransactionHash("ORDER-1001", "merchant-1", 50000)

			Expect(first).To(Equal(second))
		})

		It("should produce a 64-character lowercase hex digest", func() {
			hash := hasher.TransactionHash("ORDER-1001", "merchant-1", 50000)

			Expect(hash).To(HaveLen(64))
			Expect(hash).To(MatchRegexp(`^[0-9a-f]{64}$`))
		})

		It("should change when any input changes", func() {
			base := hasher.TransactionHash("ORDER-1001", "merchant-1", 50000)

			Expect(hasher.TransactionHash("ORDER-1002", "merchant-1", 50000)).ToNot(Equal(base))
			Expect(hasher.TransactionHash("ORDER-1001", "merchant-2", 50000)).ToNot(Equal(base))
			Expect(hasher.TransactionHash("ORDER-1001", "merchant-1", 50001)).ToNot(Equal(base))
		})

		It("should depend on the secret", func() {
			other := identity.NewHasher("another-secret")

			Expect(other.TransactionHash("ORDER-1001", "merchant-1", 50000)).
				ToNot(Equal(hasher.TransactionHash("ORDER-1001", "merchant-1", 50000)))
		})
	})
})

var _ = Describe("CodeGenerator", func() {
	var store *mockCodeStore

	BeforeEach(func() {
		store = &mockCodeStore{taken: make(map[string]bool)}
	})

	Describe("UniqueCode", func() {
		It("should generate a code of the configured length", func() {
			gen := identity.NewCodeGenerator(store, 10, 5)

			code, err := gen.UniqueCode()

			Expect(err).ToNot(HaveOccurred())
			Expect(code).To(HaveLen(10))
		})

		It("should only use unambiguous characters", func() {
			gen := identity.NewCodeGenerator(store, 32, 5)

			code, err := gen.UniqueCode()

			Expect(err).ToNot(HaveOccurred())
			for _, c := range []string{"0", "O", "1", "I"} {
				Expect(strings.Contains(code, c)).To(BeFalse(), "code %q contains ambiguous character %s", code, c)
			}
		})

		It("should return CODE_EXHAUSTED when every candidate collides", func() {
			store.takeAll = true
			gen := identity.NewCodeGenerator(store, 10, 3)

			code, err := gen.UniqueCode()

			Expect(code).To(BeEmpty())
			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(apperrors.ErrCodeCodeExhausted))
			Expect(store.checked).To(Equal(3))
		})

		It("should surface store failures", func() {
			store.checkError = errors.New("connection refused")
			gen := identity.NewCodeGenerator(store, 10, 5)

			_, err := gen.UniqueCode()

			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(apperrors.ErrorTypeDependency))
		})

		It("should fall back to defaults for non-positive settings", func() {
			gen := identity.NewCodeGenerator(store, 0, 0)

			code, err := gen.UniqueCode()

			Expect(err).ToNot(HaveOccurred())
			Expect(code).To(HaveLen(10))
		})
	})
})
