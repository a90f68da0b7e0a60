package callback_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Abhinavnist/payment-system-backend/internal/callback"
	"github.com/Abhinavnist/payment-system-backend/internal/core/datamodel/merchant"
)

type mockMerchantStore struct {
	merchants map[string]*merchant.Merchant
}

func (m *mockMerchantStore) GetByID(id string) (*merchant.Merchant, error) {
	mc, exists := m.merchants[id]
	if !exists {
		return nil, io.EOF
	}
	return mc, nil
}

type mockAuditStore struct {
	mu       sync.Mutex
	sent     map[string][]byte
	failures map[string][]byte
}

func newMockAuditStore() *mockAuditStore {
	return &mockAuditStore{
		sent:     make(map[string][]byte),
		failures: make(map[string][]byte),
	}
}

func (m *mockAuditStore) MarkCallbackSent(id string, responseData []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent[id] = responseData
	return nil
}

func (m *mockAuditStore) RecordCallbackFailure(id string, responseData []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[id] = responseData
	return nil
}

func (m *mockAuditStore) sentIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sent))
	for id := range m.sent {
		ids = append(ids, id)
	}
	return ids
}

func (m *mockAuditStore) failureIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.failures))
	for id := range m.failures {
		ids = append(ids, id)
	}
	return ids
}

var _ = Describe("Dispatcher", func() {
	var (
		audit      *mockAuditStore
		merchants  *mockMerchantStore
		dispatcher *callback.Dispatcher
		logger     *slog.Logger

		receivedMu      sync.Mutex
		receivedBodies  [][]byte
		receivedHeaders []http.Header
		respondWith     int
		server          *httptest.Server
	)

	recordRequest := func(r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		receivedMu.Lock()
		defer receivedMu.Unlock()
		receivedBodies = append(receivedBodies, body)
		receivedHeaders = append(receivedHeaders, r.Header.Clone())
	}

	received := func() int {
		receivedMu.Lock()
		defer receivedMu.Unlock()
		return len(receivedBodies)
	}

	BeforeEach(func() {
		audit = newMockAuditStore()
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		receivedBodies = nil
		receivedHeaders = nil
		respondWith = http.StatusOK

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			recordRequest(r)
			w.WriteHeader(respondWith)
		}))

		callbackURL := server.URL
		secret := "webhook-secret"
		merchants = &mockMerchantStore{merchants: map[string]*merchant.Merchant{
			"merchant-1": {
				ID:            "merchant-1",
				BusinessName:  "Test Store",
				CallbackURL:   &callbackURL,
				WebhookSecret: &secret,
			},
			"merchant-2": {
				ID:           "merchant-2",
				BusinessName: "No Webhook Store",
			},
		}}

		dispatcher = callback.NewDispatcher(callback.Config{
			Timeout:      2 * time.Second,
			MaxWorkers:   2,
			JobQueueSize: 10,
		}, merchants, audit, logger)
	})

	AfterEach(func() {
		dispatcher.Shutdown()
		server.Close()
	})

	It("should deliver a signed confirmation payload", func() {
		dispatcher.Enqueue(callback.Job{
			PaymentID:  "pay-1",
			MerchantID: "merchant-1",
			Reference:  "ORDER-1",
			Status:     "CONFIRMED",
			Remarks:    "verified",
			Amount:     50000,
		})

		Eventually(audit.sentIDs, 3*time.Second).Should(ContainElement("pay-1"))
		Expect(received()).To(Equal(1))

		receivedMu.Lock()
		body := receivedBodies[0]
		header := receivedHeaders[0]
		receivedMu.Unlock()

		var payload map[string]interface{}
		Expect(json.Unmarshal(body, &payload)).To(Succeed())
		Expect(payload["reference_id"]).To(Equal("ORDER-1"))
		Expect(payload["status"]).To(BeNumerically("==", 2))
		Expect(payload["remarks"]).To(Equal("verified"))
		Expect(payload["amount"]).To(Equal("50000"))

		signature := header.Get("X-Webhook-Signature")
		Expect(signature).ToNot(BeEmpty())
		Expect(callback.VerifySignature(body, signature, "webhook-secret", time.Minute)).To(BeTrue())
	})

	It("should send status 3 for a declined payment", func() {
		dispatcher.Enqueue(callback.Job{
			PaymentID:  "pay-2",
			MerchantID: "merchant-1",
			Reference:  "ORDER-2",
			Status:     "DECLINED",
			Amount:     50000,
		})

		Eventually(audit.sentIDs, 3*time.Second).Should(ContainElement("pay-2"))

		receivedMu.Lock()
		body := receivedBodies[0]
		receivedMu.Unlock()

		var payload map[string]interface{}
		Expect(json.Unmarshal(body, &payload)).To(Succeed())
		Expect(payload["status"]).To(BeNumerically("==", 3))
		Expect(payload["remarks"]).To(Equal("Payment processed"))
	})

	It("should record a failure when the endpoint rejects the callback", func() {
		respondWith = http.StatusInternalServerError

		dispatcher.Enqueue(callback.Job{
			PaymentID:  "pay-3",
			MerchantID: "merchant-1",
			Reference:  "ORDER-3",
			Status:     "CONFIRMED",
			Amount:     50000,
		})

		Eventually(audit.failureIDs, 3*time.Second).Should(ContainElement("pay-3"))
		Expect(audit.sentIDs()).To(BeEmpty())
	})

	It("should shut down cleanly even immediately after starting", func() {
		// repeated start/stop cycles catch a dispatcher goroutine that
		// registers on the wait group only after Shutdown has observed it
		for i := 0; i < 20; i++ {
			d := callback.NewDispatcher(callback.Config{
				Timeout:      time.Second,
				MaxWorkers:   2,
				JobQueueSize: 10,
			}, merchants, audit, logger)

			done := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				d.Shutdown()
				close(done)
			}()

			Eventually(done, time.Second).Should(BeClosed())
		}
	})

	It("should skip merchants without a callback URL", func() {
		dispatcher.Enqueue(callback.Job{
			PaymentID:  "pay-4",
			MerchantID: "merchant-2",
			Reference:  "ORDER-4",
			Status:     "CONFIRMED",
			Amount:     50000,
		})

		Consistently(received, 500*time.Millisecond).Should(Equal(0))
		Expect(audit.sentIDs()).To(BeEmpty())
		Expect(audit.failureIDs()).To(BeEmpty())
	})
})
