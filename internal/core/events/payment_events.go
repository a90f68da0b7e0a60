package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePaymentCreated   = "payment.created"
	EventTypePaymentConfirmed = "payment.confirmed"
	EventTypePaymentDeclined  = "payment.declined"
)

type PaymentCreatedEvent struct {
	BaseEvent
	PaymentID  string `json:"payment_id"`
	MerchantID string `json:"merchant_id"`
	Reference  string `json:"reference"`
	Amount     int64  `json:"amount"`
	Type       string `json:"payment_type"`
}

func NewPaymentCreatedEvent(paymentID, merchantID, reference string, amount int64, paymentType string) *PaymentCreatedEvent {
	return &PaymentCreatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentCreated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":   paymentID,
				"merchant_id":  merchantID,
				"reference":    reference,
				"amount":       amount,
				"payment_type": paymentType,
			},
		},
		PaymentID:  paymentID,
		MerchantID: merchantID,
		Reference:  reference,
		Amount:     amount,
		Type:       paymentType,
	}
}

// PaymentResolvedEvent covers both terminal transitions; Status carries the
// outcome (CONFIRMED or DECLINED).
type PaymentResolvedEvent struct {
	BaseEvent
	PaymentID  string `json:"payment_id"`
	MerchantID string `json:"merchant_id"`
	Reference  string `json:"reference"`
	Amount     int64  `json:"amount"`
	Status     string `json:"status"`
	Remarks    string `json:"remarks"`
}

func NewPaymentConfirmedEvent(paymentID, merchantID, reference string, amount int64, remarks string) *PaymentResolvedEvent {
	return newResolvedEvent(EventTypePaymentConfirmed, paymentID, merchantID, reference, amount, "CONFIRMED", remarks)
}

func NewPaymentDeclinedEvent(paymentID, merchantID, reference string, amount int64, remarks string) *PaymentResolvedEvent {
	return newResolvedEvent(EventTypePaymentDeclined, paymentID, merchantID, reference, amount, "DECLINED", remarks)
}

func newResolvedEvent(eventType, paymentID, merchantID, reference string, amount int64, status, remarks string) *PaymentResolvedEvent {
	return &PaymentResolvedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":  paymentID,
				"merchant_id": merchantID,
				"reference":   reference,
				"amount":      amount,
				"status":      status,
				"remarks":     remarks,
			},
		},
		PaymentID:  paymentID,
		MerchantID: merchantID,
		Reference:  reference,
		Amount:     amount,
		Status:     status,
		Remarks:    remarks,
	}
}
