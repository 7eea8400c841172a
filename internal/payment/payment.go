package payment

import (
	"time"

	paymentDatamodel "github.com/frahmantamala/instrumentalist-payouts/internal/core/datamodel/payment"
	"github.com/shopspring/decimal"
)

const (
	StatusPending   = paymentDatamodel.StatusPending
	StatusApproved  = paymentDatamodel.StatusApproved
	StatusPaid      = paymentDatamodel.StatusPaid
	StatusFailed    = paymentDatamodel.StatusFailed
	StatusCancelled = paymentDatamodel.StatusCancelled
)

const (
	TypePerService  = "per_service"
	TypeHourly      = "hourly"
	TypeFixedAmount = "fixed_amount"
)

const (
	MethodCash            = "cash"
	MethodBankTransfer    = "bank_transfer"
	MethodCheck           = "check"
	MethodMobileMoney     = "mobile_money"
	MethodGatewayTransfer = "gateway_transfer"
	MethodOther           = "other"
)

var (
	Statuses      = []string{StatusPending, StatusApproved, StatusPaid, StatusFailed, StatusCancelled}
	PaymentTypes  = []string{TypePerService, TypeHourly, TypeFixedAmount}
	PayoutMethods = []string{MethodCash, MethodBankTransfer, MethodCheck, MethodMobileMoney, MethodGatewayTransfer, MethodOther}

	// OpenStatuses block a second payment for the same instrumentalist and service event.
	OpenStatuses = []string{StatusPending, StatusApproved, StatusFailed}
)

var transitions = map[string][]string{
	StatusPending:  {StatusApproved, StatusCancelled},
	StatusApproved: {StatusPaid, StatusFailed, StatusCancelled},
	StatusFailed:   {StatusApproved},
}

// CanTransition reports whether the state machine allows moving from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func IsTerminal(status string) bool {
	return status == StatusPaid || status == StatusCancelled
}

func IsValidStatus(status string) bool {
	return contains(Statuses, status)
}

func IsValidPayoutMethod(method string) bool {
	return contains(PayoutMethods, method)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

type Payment struct {
	ID                  int64           `json:"id"`
	InstrumentalistID   int64           `json:"instrumentalist_id"`
	ServiceEventID      int64           `json:"service_event_id"`
	Amount              decimal.Decimal `json:"amount"`
	Currency            string          `json:"currency"`
	PaymentType         string          `json:"payment_type"`
	Status              string          `json:"status"`
	PayoutMethod        *string         `json:"payout_method,omitempty"`
	ReferenceNumber     *string         `json:"reference_number,omitempty"`
	TransferCode        *string         `json:"transfer_code,omitempty"`
	TransferID          *string         `json:"transfer_id,omitempty"`
	TransferReference   *string         `json:"transfer_reference,omitempty"`
	GatewayStatus       *string         `json:"gateway_status,omitempty"`
	FailureReason       *string         `json:"failure_reason,omitempty"`
	RecipientCodeUsed   *string         `json:"recipient_code_used,omitempty"`
	SettlementCheckedAt *time.Time      `json:"settlement_checked_at,omitempty"`
	ApprovedBy          *string         `json:"approved_by,omitempty"`
	ApprovedAt          *time.Time      `json:"approved_at,omitempty"`
	PaidBy              *string         `json:"paid_by,omitempty"`
	PaidAt              *time.Time      `json:"paid_at,omitempty"`
	CancelledBy         *string         `json:"cancelled_by,omitempty"`
	CancelledAt         *time.Time      `json:"cancelled_at,omitempty"`
	Attempts            int             `json:"attempts"`
	Notes               *string         `json:"notes,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

func (p *Payment) CanBeProcessed() bool {
	return p.Status == StatusApproved
}

func (p *Payment) IsGatewayTransfer() bool {
	return p.PayoutMethod != nil && *p.PayoutMethod == MethodGatewayTransfer
}

// TransitionFields carries the columns written alongside a status change. Nil pointers are left untouched.
type TransitionFields struct {
	ApprovedBy        *string
	ApprovedAt        *time.Time
	PaidBy            *string
	PaidAt            *time.Time
	CancelledBy       *string
	CancelledAt       *time.Time
	PayoutMethod      *string
	ReferenceNumber   *string
	TransferCode      *string
	TransferID        *string
	TransferReference *string
	GatewayStatus     *string
	RecipientCodeUsed *string
	FailureReason     *string
	// Notes is appended to the existing notes on its own line.
	Notes *string
	// ClearFailure nulls failure_reason and gateway_status.
	ClearFailure bool
	// ClearGatewayAudit nulls every gateway transfer column not set in the same update.
	ClearGatewayAudit bool
	IncrementAttempts bool
}

func ToDataModel(p *Payment) *paymentDatamodel.InstrumentalistPayment {
	return &paymentDatamodel.InstrumentalistPayment{
		ID:                  p.ID,
		InstrumentalistID:   p.InstrumentalistID,
		ServiceEventID:      p.ServiceEventID,
		Amount:              p.Amount,
		Currency:            p.Currency,
		PaymentType:         p.PaymentType,
		Status:              p.Status,
		PayoutMethod:        p.PayoutMethod,
		ReferenceNumber:     p.ReferenceNumber,
		TransferCode:        p.TransferCode,
		TransferID:          p.TransferID,
		TransferReference:   p.TransferReference,
		GatewayStatus:       p.GatewayStatus,
		FailureReason:       p.FailureReason,
		RecipientCodeUsed:   p.RecipientCodeUsed,
		SettlementCheckedAt: p.SettlementCheckedAt,
		ApprovedBy:          p.ApprovedBy,
		ApprovedAt:          p.ApprovedAt,
		PaidBy:              p.PaidBy,
		PaidAt:              p.PaidAt,
		CancelledBy:         p.CancelledBy,
		CancelledAt:         p.CancelledAt,
		Attempts:            p.Attempts,
		Notes:               p.Notes,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

func FromDataModel(p *paymentDatamodel.InstrumentalistPayment) *Payment {
	return &Payment{
		ID:                  p.ID,
		InstrumentalistID:   p.InstrumentalistID,
		ServiceEventID:      p.ServiceEventID,
		Amount:              p.Amount,
		Currency:            p.Currency,
		PaymentType:         p.PaymentType,
		Status:              p.Status,
		PayoutMethod:        p.PayoutMethod,
		ReferenceNumber:     p.ReferenceNumber,
		TransferCode:        p.TransferCode,
		TransferID:          p.TransferID,
		TransferReference:   p.TransferReference,
		GatewayStatus:       p.GatewayStatus,
		FailureReason:       p.FailureReason,
		RecipientCodeUsed:   p.RecipientCodeUsed,
		SettlementCheckedAt: p.SettlementCheckedAt,
		ApprovedBy:          p.ApprovedBy,
		ApprovedAt:          p.ApprovedAt,
		PaidBy:              p.PaidBy,
		PaidAt:              p.PaidAt,
		CancelledBy:         p.CancelledBy,
		CancelledAt:         p.CancelledAt,
		Attempts:            p.Attempts,
		Notes:               p.Notes,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

func FromDataModelSlice(payments []*paymentDatamodel.InstrumentalistPayment) []*Payment {
	result := make([]*Payment, len(payments))
	for i, p := range payments {
		result[i] = FromDataModel(p)
	}
	return result
}
