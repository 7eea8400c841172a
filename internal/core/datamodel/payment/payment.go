package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusPaid      = "paid"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

type InstrumentalistPayment struct {
	ID                  int64           `gorm:"primaryKey"`
	InstrumentalistID   int64           `gorm:"column:instrumentalist_id;not null;index"`
	ServiceEventID      int64           `gorm:"column:service_event_id;not null;index"`
	Amount              decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency            string          `gorm:"column:currency;not null"`
	PaymentType         string          `gorm:"column:payment_type;not null"`
	Status              string          `gorm:"column:status;not null;index"`
	PayoutMethod        *string         `gorm:"column:payout_method"`
	ReferenceNumber     *string         `gorm:"column:reference_number"`
	TransferCode        *string         `gorm:"column:transfer_code"`
	TransferID          *string         `gorm:"column:transfer_id"`
	TransferReference   *string         `gorm:"column:transfer_reference"`
	GatewayStatus       *string         `gorm:"column:gateway_status"`
	FailureReason       *string         `gorm:"column:failure_reason"`
	RecipientCodeUsed   *string         `gorm:"column:recipient_code_used"`
	SettlementCheckedAt *time.Time      `gorm:"column:settlement_checked_at"`
	ApprovedBy          *string         `gorm:"column:approved_by"`
	ApprovedAt          *time.Time      `gorm:"column:approved_at"`
	PaidBy              *string         `gorm:"column:paid_by"`
	PaidAt              *time.Time      `gorm:"column:paid_at"`
	CancelledBy         *string         `gorm:"column:cancelled_by"`
	CancelledAt         *time.Time      `gorm:"column:cancelled_at"`
	Attempts            int             `gorm:"column:attempts;not null;default:0"`
	Notes               *string         `gorm:"column:notes"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (InstrumentalistPayment) TableName() string {
	return "instrumentalist_payments"
}
