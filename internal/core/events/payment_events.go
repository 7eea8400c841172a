package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePaymentApproved         = "payment.approved"
	EventTypePaymentPaid             = "payment.paid"
	EventTypePaymentFailed           = "payment.failed"
	EventTypePaymentSettlementFailed = "payment.settlement_failed"
)

type PaymentApprovedEvent struct {
	BaseEvent
	PaymentID  int64  `json:"payment_id"`
	ApprovedBy string `json:"approved_by"`
}

func NewPaymentApprovedEvent(paymentID int64, approvedBy string) *PaymentApprovedEvent {
	return &PaymentApprovedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentApproved,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":  paymentID,
				"approved_by": approvedBy,
			},
		},
		PaymentID:  paymentID,
		ApprovedBy: approvedBy,
	}
}

type PaymentPaidEvent struct {
	BaseEvent
	PaymentID         int64  `json:"payment_id"`
	InstrumentalistID int64  `json:"instrumentalist_id"`
	Amount            string `json:"amount"`
	Currency          string `json:"currency"`
	PayoutMethod      string `json:"payout_method"`
	TransferCode      string `json:"transfer_code,omitempty"`
}

func NewPaymentPaidEvent(paymentID, instrumentalistID int64, amount, currency, payoutMethod, transferCode string) *PaymentPaidEvent {
	return &PaymentPaidEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentPaid,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":         paymentID,
				"instrumentalist_id": instrumentalistID,
				"amount":             amount,
				"currency":           currency,
				"payout_method":      payoutMethod,
				"transfer_code":      transferCode,
			},
		},
		PaymentID:         paymentID,
		InstrumentalistID: instrumentalistID,
		Amount:            amount,
		Currency:          currency,
		PayoutMethod:      payoutMethod,
		TransferCode:      transferCode,
	}
}

type PaymentFailedEvent struct {
	BaseEvent
	PaymentID     int64  `json:"payment_id"`
	Code          string `json:"code"`
	FailureReason string `json:"failure_reason"`
	Attempts      int    `json:"attempts"`
}

func NewPaymentFailedEvent(paymentID int64, code, failureReason string, attempts int) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":     paymentID,
				"code":           code,
				"failure_reason": failureReason,
				"attempts":       attempts,
			},
		},
		PaymentID:     paymentID,
		Code:          code,
		FailureReason: failureReason,
		Attempts:      attempts,
	}
}

// PaymentSettlementFailedEvent marks a paid gateway transfer the gateway later reported as not settled.
type PaymentSettlementFailedEvent struct {
	BaseEvent
	PaymentID     int64  `json:"payment_id"`
	Reference     string `json:"reference"`
	GatewayStatus string `json:"gateway_status"`
	Reason        string `json:"reason"`
}

func NewPaymentSettlementFailedEvent(paymentID int64, reference, gatewayStatus, reason string) *PaymentSettlementFailedEvent {
	return &PaymentSettlementFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentSettlementFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":     paymentID,
				"reference":      reference,
				"gateway_status": gatewayStatus,
				"reason":         reason,
			},
		},
		PaymentID:     paymentID,
		Reference:     reference,
		GatewayStatus: gatewayStatus,
		Reason:        reason,
	}
}
