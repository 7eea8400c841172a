package payment

import (
	errors "github.com/frahmantamala/instrumentalist-payouts/internal"
	"github.com/frahmantamala/instrumentalist-payouts/internal/core/common/validation"
	"github.com/shopspring/decimal"
)

type CreatePaymentDTO struct {
	InstrumentalistID int64           `json:"instrumentalist_id" validate:"required,gt=0"`
	ServiceEventID    int64           `json:"service_event_id" validate:"required,gt=0"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency,omitempty" validate:"omitempty,len=3"`
	PaymentType       string          `json:"payment_type,omitempty" validate:"omitempty,oneof=per_service hourly fixed_amount"`
	Notes             string          `json:"notes,omitempty" validate:"max=1000"`
}

// Validate applies the domain rules that struct tags cannot express.
func (d *CreatePaymentDTO) Validate() error {
	validator := validation.NewValidator()

	validator.Field("instrumentalist_id", d.InstrumentalistID).Required().MinInt(1, errors.ErrCodeInvalidInput)
	validator.Field("service_event_id", d.ServiceEventID).Required().MinInt(1, errors.ErrCodeInvalidInput)
	validator.Field("amount", d.Amount).Money()
	validator.Field("payment_type", d.PaymentType).OneOf(PaymentTypes...)
	validator.Field("notes", d.Notes).MaxLength(1000)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type CancelPaymentDTO struct {
	Reason string `json:"reason" validate:"max=500"`
}

type ListPaymentsQuery struct {
	Status string
	Limit  int
	Offset int
}
