// Package callback notifies merchants about resolved payments. Delivery is
// fire-and-forget through a bounded worker pool: a dead merchant endpoint
// slows nothing down and never rolls back a payment transition.
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Abhinavnist/payment-system-backend/internal/core/datamodel/merchant"
	"github.com/Abhinavnist/payment-system-backend/internal/core/events"
)

// Merchant-facing status codes carried in the callback body.
const (
	statusCodeConfirmed = 2
	statusCodeDeclined  = 3
)

type Job struct {
	PaymentID  string
	MerchantID string
	Reference  string
	Status     string
	Remarks    string
	Amount     int64
}

// MerchantStore resolves the callback destination and signing secret.
type MerchantStore interface {
	GetByID(id string) (*merchant.Merchant, error)
}

// AuditStore records delivery outcomes on the payment row.
type AuditStore interface {
	MarkCallbackSent(id string, responseData []byte) error
	RecordCallbackFailure(id string, responseData []byte) error
}

type Worker struct {
	ID         int
	WorkerPool chan chan Job
	JobChannel chan Job
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan Job, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Job),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(Job)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			w.WorkerPool <- w.JobChannel

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker delivering callback", "worker_id", w.ID, "payment_id", job.PaymentID)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type Config struct {
	Timeout      time.Duration
	MaxWorkers   int
	JobQueueSize int
}

type Dispatcher struct {
	merchants MerchantStore
	audit     AuditStore
	client    *http.Client
	timeout   time.Duration
	logger    *slog.Logger

	jobQueue   chan Job
	workerPool chan chan Job
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
}

func NewDispatcher(config Config, merchants MerchantStore, audit AuditStore, logger *slog.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 5
	}

	jobQueueSize := config.JobQueueSize
	if jobQueueSize <= 0 {
		jobQueueSize = 100
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	d := &Dispatcher{
		merchants: merchants,
		audit:     audit,
		client:    &http.Client{Timeout: timeout},
		timeout:   timeout,
		logger:    logger,

		maxWorkers: maxWorkers,
		jobQueue:   make(chan Job, jobQueueSize),
		workerPool: make(chan chan Job, maxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}

	d.startWorkerPool()

	return d
}

func (d *Dispatcher) startWorkerPool() {
	d.once.Do(func() {
		for i := 0; i < d.maxWorkers; i++ {
			worker := NewWorker(i, d.workerPool, d.logger)
			worker.Start(d.ctx, &d.wg, d.deliver)
		}

		d.wg.Add(1)
		go d.dispatch()

		d.logger.Info("callback worker pool started",
			"max_workers", d.maxWorkers,
			"queue_size", cap(d.jobQueue))
	})
}

// dispatch is registered on the WaitGroup by startWorkerPool before the
// goroutine launches, so Shutdown cannot observe an empty group mid-start.
func (d *Dispatcher) dispatch() {
	defer d.wg.Done()

	for {
		select {
		case job := <-d.jobQueue:
			select {
			case jobChannel := <-d.workerPool:
				select {
				case jobChannel <- job:
				case <-d.ctx.Done():
					d.logger.Info("callback dispatcher shutting down")
					return
				}
			case <-d.ctx.Done():
				d.logger.Info("callback dispatcher shutting down")
				return
			}
		case <-d.ctx.Done():
			d.logger.Info("callback dispatcher shutting down")
			return
		}
	}
}

func (d *Dispatcher) Shutdown() {
	d.logger.Info("shutting down callback dispatcher")
	d.cancel()
	d.wg.Wait()
	d.logger.Info("callback dispatcher shutdown complete")
}

// SubscribeTo registers the dispatcher on the terminal payment events.
func (d *Dispatcher) SubscribeTo(bus *events.EventBus) {
	bus.Subscribe(events.EventTypePaymentConfirmed, d.handleResolved)
	bus.Subscribe(events.EventTypePaymentDeclined, d.handleResolved)
}

func (d *Dispatcher) handleResolved(ctx context.Context, event events.Event) error {
	resolved, ok := event.(*events.PaymentResolvedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.EventType())
	}

	d.Enqueue(Job{
		PaymentID:  resolved.PaymentID,
		MerchantID: resolved.MerchantID,
		Reference:  resolved.Reference,
		Status:     resolved.Status,
		Remarks:    resolved.Remarks,
		Amount:     resolved.Amount,
	})
	return nil
}

// Enqueue queues a callback for delivery. A full queue drops the job with a
// log line; merchants can poll check-request, so a lost notification is an
// inconvenience, not data loss.
func (d *Dispatcher) Enqueue(job Job) {
	select {
	case d.jobQueue <- job:
		d.logger.Info("callback queued",
			"payment_id", job.PaymentID,
			"status", job.Status,
			"queue_length", len(d.jobQueue))
	default:
		d.logger.Warn("callback queue full, dropping notification",
			"payment_id", job.PaymentID,
			"queue_capacity", cap(d.jobQueue))
	}
}

func (d *Dispatcher) deliver(job Job) {
	m, err := d.merchants.GetByID(job.MerchantID)
	if err != nil {
		d.logger.Error("callback merchant lookup failed", "error", err, "payment_id", job.PaymentID)
		return
	}
	if m.CallbackURL == nil || *m.CallbackURL == "" {
		d.logger.Warn("no callback URL configured", "payment_id", job.PaymentID, "merchant_id", job.MerchantID)
		return
	}

	statusCode := statusCodeConfirmed
	if job.Status == "DECLINED" {
		statusCode = statusCodeDeclined
	}
	remarks := job.Remarks
	if remarks == "" {
		remarks = "Payment processed"
	}

	payload, err := json.Marshal(map[string]interface{}{
		"reference_id": job.Reference,
		"status":       statusCode,
		"remarks":      remarks,
		"amount":       fmt.Sprintf("%d", job.Amount),
	})
	if err != nil {
		d.logger.Error("failed to marshal callback payload", "error", err, "payment_id", job.PaymentID)
		return
	}

	ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, *m.CallbackURL, bytes.NewReader(payload))
	if err != nil {
		d.recordFailure(job.PaymentID, err.Error())
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if m.WebhookSecret != nil && *m.WebhookSecret != "" {
		req.Header.Set("X-Webhook-Signature", Signature(payload, *m.WebhookSecret, time.Now().Unix()))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Error("callback delivery failed", "error", err, "payment_id", job.PaymentID)
		d.recordFailure(job.PaymentID, err.Error())
		return
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	outcome := map[string]interface{}{
		"callback_status": resp.StatusCode,
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		outcome["callback_response"] = string(body)
		raw, _ := json.Marshal(outcome)
		if err := d.audit.MarkCallbackSent(job.PaymentID, raw); err != nil {
			d.logger.Error("failed to record callback outcome", "error", err, "payment_id", job.PaymentID)
		}
		d.logger.Info("callback delivered", "payment_id", job.PaymentID, "status_code", resp.StatusCode)
		return
	}

	d.logger.Warn("callback rejected by merchant endpoint",
		"payment_id", job.PaymentID,
		"status_code", resp.StatusCode)
	raw, _ := json.Marshal(outcome)
	if err := d.audit.RecordCallbackFailure(job.PaymentID, raw); err != nil {
		d.logger.Error("failed to record callback failure", "error", err, "payment_id", job.PaymentID)
	}
}

func (d *Dispatcher) recordFailure(paymentID, detail string) {
	raw, _ := json.Marshal(map[string]interface{}{"callback_error": detail})
	if err := d.audit.RecordCallbackFailure(paymentID, raw); err != nil {
		d.logger.Error("failed to record callback failure", "error", err, "payment_id", paymentID)
	}
}
