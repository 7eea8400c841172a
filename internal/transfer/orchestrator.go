package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	errors "github.com/frahmantamala/instrumentalist-payouts/internal"
	"github.com/frahmantamala/instrumentalist-payouts/internal/balance"
	gatewaytypes "github.com/frahmantamala/instrumentalist-payouts/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/instrumentalist-payouts/internal/core/events"
	"github.com/frahmantamala/instrumentalist-payouts/internal/instrumentalist"
	"github.com/frahmantamala/instrumentalist-payouts/internal/lock"
	"github.com/frahmantamala/instrumentalist-payouts/internal/payment"
)

type PaymentStore interface {
	GetPayment(ctx context.Context, id int64) (*payment.Payment, error)
	MarkPaid(ctx context.Context, id int64, res payment.PaidResult) (*payment.Payment, error)
	MarkFailed(ctx context.Context, id int64, res payment.FailedResult) (*payment.Payment, error)
}

type InstrumentalistReader interface {
	GetByID(ctx context.Context, id int64) (*instrumentalist.Instrumentalist, error)
}

type RecipientRegistry interface {
	EnsureRecipient(ctx context.Context, i *instrumentalist.Instrumentalist) (string, error)
}

type Gateway interface {
	InitiateTransfer(ctx context.Context, req gatewaytypes.TransferRequest) (*gatewaytypes.TransferData, error)
}

type BalanceReader interface {
	GetBalance(ctx context.Context) (*balance.Balance, error)
}

type Config struct {
	// Reason is the transfer narration shown to the recipient.
	Reason string
	// Preflight checks the payout balance before initiating a transfer.
	Preflight bool
}

type ProcessRequest struct {
	Method          string `json:"method" validate:"required"`
	ReferenceNumber string `json:"reference_number,omitempty" validate:"max=100"`
	Notes           string `json:"notes,omitempty" validate:"max=1000"`
	Actor           string `json:"-"`
}

// Outcome is the result of one processing attempt. Failure is set when the
// payment ended in failed; Payment always reflects the stored record.
type Outcome struct {
	Payment *payment.Payment `json:"payment"`
	Failure *errors.AppError `json:"failure,omitempty"`
}

func (o *Outcome) Succeeded() bool {
	return o.Failure == nil
}

type Orchestrator struct {
	payments         PaymentStore
	instrumentalists InstrumentalistReader
	recipients       RecipientRegistry
	gateway          Gateway
	balance          BalanceReader
	locker           lock.Locker
	events           events.Publisher
	config           Config
	logger           *slog.Logger
}

func NewOrchestrator(
	payments PaymentStore,
	instrumentalists InstrumentalistReader,
	recipients RecipientRegistry,
	gateway Gateway,
	balanceReader BalanceReader,
	locker lock.Locker,
	publisher events.Publisher,
	config Config,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if locker == nil {
		locker = lock.NewLocal()
	}
	if config.Reason == "" {
		config.Reason = "Instrumentalist service payment"
	}
	return &Orchestrator{
		payments:         payments,
		instrumentalists: instrumentalists,
		recipients:       recipients,
		gateway:          gateway,
		balance:          balanceReader,
		locker:           locker,
		events:           publisher,
		config:           config,
		logger:           logger,
	}
}

// ProcessPayment pays out an approved payment with the requested method.
//
// The returned error is reserved for rejections that leave the payment untouched.
// Gateway and recipient failures move the payment to failed and are reported
// through Outcome.Failure.
func (o *Orchestrator) ProcessPayment(ctx context.Context, id int64, req ProcessRequest) (*Outcome, error) {
	req.Method = strings.TrimSpace(req.Method)
	if !payment.IsValidPayoutMethod(req.Method) {
		return nil, errors.NewValidationFieldError("method",
			fmt.Sprintf("method must be one of: %s", strings.Join(payment.PayoutMethods, ", ")),
			errors.ErrCodeInvalidInput)
	}
	if strings.TrimSpace(req.Actor) == "" {
		return nil, errors.NewValidationFieldError("paid_by", "actor is required", errors.ErrCodeInvalidInput)
	}

	release, ok, err := o.locker.TryLock(ctx, fmt.Sprintf("payment:%d", id))
	if err != nil {
		return nil, errors.NewInternalError("failed to acquire payment lock", err)
	}
	if !ok {
		o.logger.WarnContext(ctx, "payment already being processed", "payment_id", id)
		return nil, errors.NewConflictError("payment is already being processed", errors.ErrCodeInvalidStateTransition)
	}
	defer release()

	p, err := o.payments.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.CanBeProcessed() {
		return nil, errors.NewStateTransitionError(p.Status, payment.StatusPaid)
	}

	if req.Method != payment.MethodGatewayTransfer {
		return o.payManually(ctx, p, req)
	}
	return o.payByTransfer(ctx, p, req)
}

func (o *Orchestrator) payManually(ctx context.Context, p *payment.Payment, req ProcessRequest) (*Outcome, error) {
	paid, err := o.payments.MarkPaid(ctx, p.ID, payment.PaidResult{
		Actor:           req.Actor,
		Method:          req.Method,
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
	})
	if err != nil {
		return nil, err
	}

	o.logger.InfoContext(ctx, "payment recorded as paid",
		"payment_id", p.ID,
		"method", req.Method,
		"paid_by", req.Actor)
	o.publish(ctx, events.NewPaymentPaidEvent(p.ID, p.InstrumentalistID, p.Amount.StringFixed(2), p.Currency, req.Method, ""))
	return &Outcome{Payment: paid}, nil
}

func (o *Orchestrator) payByTransfer(ctx context.Context, p *payment.Payment, req ProcessRequest) (*Outcome, error) {
	// the transfer call and the writes after it run to completion even if the caller gave up
	storeCtx := context.WithoutCancel(ctx)

	recipientInfo, err := o.instrumentalists.GetByID(ctx, p.InstrumentalistID)
	if err != nil {
		return nil, err
	}

	recipientCode, err := o.recipients.EnsureRecipient(ctx, recipientInfo)
	if err != nil {
		return o.fail(storeCtx, p, err, "", "")
	}

	if o.config.Preflight && o.balance != nil {
		available, err := o.balance.GetBalance(ctx)
		if err != nil {
			return nil, err
		}
		if available.Amount.LessThan(p.Amount) {
			shortfall := errors.NewExternalError(
				fmt.Sprintf("insufficient payout balance: available %s %s, required %s",
					available.Amount.StringFixed(2), available.Currency, p.Amount.StringFixed(2)),
				errors.ErrCodeInsufficientBalance)
			return o.fail(storeCtx, p, shortfall, recipientCode, "")
		}
	}

	reference := Reference(p.ID)
	data, err := o.gateway.InitiateTransfer(storeCtx, gatewaytypes.TransferRequest{
		Amount:    balance.ToMinorUnits(p.Amount),
		Recipient: recipientCode,
		Reason:    o.config.Reason,
		Currency:  p.Currency,
		Reference: reference,
	})
	if err != nil {
		return o.fail(storeCtx, p, err, recipientCode, "")
	}
	if !data.Status.Initiated() {
		notInitiated := errors.NewExternalError(
			fmt.Sprintf("transfer not initiated: gateway status %q", data.Status),
			errors.ErrCodeGatewayRejected)
		return o.fail(storeCtx, p, notInitiated, recipientCode, string(data.Status))
	}

	paid, err := o.payments.MarkPaid(storeCtx, p.ID, payment.PaidResult{
		Actor:             req.Actor,
		Method:            payment.MethodGatewayTransfer,
		ReferenceNumber:   req.ReferenceNumber,
		TransferCode:      data.TransferCode,
		TransferID:        data.ID.String(),
		TransferReference: reference,
		GatewayStatus:     string(data.Status),
		RecipientCode:     recipientCode,
		Notes:             req.Notes,
	})
	if err != nil {
		o.logger.ErrorContext(ctx, "transfer initiated but payment record not updated",
			"payment_id", p.ID,
			"transfer_code", data.TransferCode,
			"reference", reference,
			"error", err)
		return nil, err
	}

	o.logger.InfoContext(ctx, "gateway transfer initiated",
		"payment_id", p.ID,
		"transfer_code", data.TransferCode,
		"gateway_status", data.Status,
		"amount", p.Amount.StringFixed(2))
	o.publish(ctx, events.NewPaymentPaidEvent(p.ID, p.InstrumentalistID, p.Amount.StringFixed(2), p.Currency,
		payment.MethodGatewayTransfer, data.TransferCode))
	return &Outcome{Payment: paid}, nil
}

func (o *Orchestrator) fail(ctx context.Context, p *payment.Payment, cause error, recipientCode, gatewayStatus string) (*Outcome, error) {
	appErr, ok := errors.IsAppError(cause)
	if !ok {
		appErr = errors.NewExternalError(cause.Error(), errors.ErrCodeGatewayRejected)
	}
	reason := appErr.GetDetailedMessage()
	if reason == "" {
		reason = string(appErr.Code)
	}

	failed, err := o.payments.MarkFailed(ctx, p.ID, payment.FailedResult{
		Method:            payment.MethodGatewayTransfer,
		Reason:            reason,
		GatewayStatus:     gatewayStatus,
		TransferReference: transferReference(appErr, p.ID),
		RecipientCode:     recipientCode,
	})
	if err != nil {
		o.logger.ErrorContext(ctx, "failed to record payment failure",
			"payment_id", p.ID,
			"reason", reason,
			"error", err)
		return nil, err
	}

	o.logger.WarnContext(ctx, "payment failed",
		"payment_id", p.ID,
		"code", appErr.Code,
		"reason", reason,
		"attempts", failed.Attempts)
	o.publish(ctx, events.NewPaymentFailedEvent(p.ID, string(appErr.Code), reason, failed.Attempts))
	return &Outcome{Payment: failed, Failure: appErr}, nil
}

// transferReference is kept on failures that happened at or after the transfer call.
func transferReference(appErr *errors.AppError, id int64) string {
	switch appErr.Code {
	case errors.ErrCodeGatewayUnreachable, errors.ErrCodeGatewayRejected, errors.ErrCodeGatewayMalformedResponse:
		return Reference(id)
	}
	return ""
}

func (o *Orchestrator) publish(ctx context.Context, event events.Event) {
	if o.events == nil {
		return
	}
	if err := o.events.Publish(ctx, event); err != nil {
		o.logger.WarnContext(ctx, "failed to publish event", "event_type", event.EventType(), "error", err)
	}
}
