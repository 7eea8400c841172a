package payment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	errors "github.com/frahmantamala/instrumentalist-payouts/internal"
	"github.com/frahmantamala/instrumentalist-payouts/internal/core/events"
)

type Repository interface {
	// CreateUnique inserts the payment unless an open payment exists for the same pair.
	CreateUnique(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id int64) (*Payment, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]*Payment, error)
	// CompareAndSetStatus moves a payment from expected to next in one conditional update.
	CompareAndSetStatus(ctx context.Context, id int64, expected, next string, fields TransitionFields) (*Payment, error)
	AnnotateSettlement(ctx context.Context, id int64, gatewayStatus string, reason *string, checkedAt time.Time) error
	ListUnsettled(ctx context.Context, limit int) ([]*Payment, error)
}

type ReferenceChecker interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

type Service struct {
	repo             Repository
	instrumentalists ReferenceChecker
	serviceEvents    ReferenceChecker
	events           events.Publisher
	currency         string
	logger           *slog.Logger
}

func NewService(repo Repository, instrumentalists, serviceEvents ReferenceChecker, publisher events.Publisher, currency string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:             repo,
		instrumentalists: instrumentalists,
		serviceEvents:    serviceEvents,
		events:           publisher,
		currency:         currency,
		logger:           logger,
	}
}

func (s *Service) CreatePayment(ctx context.Context, dto CreatePaymentDTO) (*Payment, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if err := s.checkReference(ctx, s.instrumentalists, "instrumentalist_id", dto.InstrumentalistID); err != nil {
		return nil, err
	}
	if err := s.checkReference(ctx, s.serviceEvents, "service_event_id", dto.ServiceEventID); err != nil {
		return nil, err
	}

	p := &Payment{
		InstrumentalistID: dto.InstrumentalistID,
		ServiceEventID:    dto.ServiceEventID,
		Amount:            dto.Amount.Round(2),
		Currency:          strings.ToUpper(dto.Currency),
		PaymentType:       dto.PaymentType,
		Status:            StatusPending,
	}
	if p.Currency == "" {
		p.Currency = s.currency
	}
	if p.PaymentType == "" {
		p.PaymentType = TypePerService
	}
	if dto.Notes != "" {
		notes := dto.Notes
		p.Notes = &notes
	}

	if err := s.repo.CreateUnique(ctx, p); err != nil {
		if _, ok := errors.IsAppError(err); ok {
			return nil, err
		}
		s.logger.ErrorContext(ctx, "failed to create payment record", "error", err, "instrumentalist_id", dto.InstrumentalistID)
		return nil, errors.NewInternalError("failed to create payment record", err)
	}

	s.logger.InfoContext(ctx, "payment record created",
		"payment_id", p.ID,
		"instrumentalist_id", p.InstrumentalistID,
		"service_event_id", p.ServiceEventID,
		"amount", p.Amount.StringFixed(2))
	return p, nil
}

func (s *Service) checkReference(ctx context.Context, checker ReferenceChecker, field string, id int64) error {
	ok, err := checker.Exists(ctx, id)
	if err != nil {
		return errors.NewInternalError(fmt.Sprintf("failed to check %s", field), err)
	}
	if !ok {
		return errors.NewValidationFieldError(field, fmt.Sprintf("%s %d does not exist", field, id), errors.ErrCodeInvalidInput)
	}
	return nil
}

func (s *Service) GetPayment(ctx context.Context, id int64) (*Payment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByStatus(ctx context.Context, query ListPaymentsQuery) ([]*Payment, error) {
	if !IsValidStatus(query.Status) {
		return nil, errors.NewValidationFieldError("status", fmt.Sprintf("unknown status %q", query.Status), errors.ErrCodeInvalidInput)
	}
	if query.Limit <= 0 || query.Limit > 500 {
		query.Limit = 100
	}
	if query.Offset < 0 {
		query.Offset = 0
	}
	return s.repo.ListByStatus(ctx, query.Status, query.Limit, query.Offset)
}

func (s *Service) Approve(ctx context.Context, id int64, approver string) (*Payment, error) {
	if strings.TrimSpace(approver) == "" {
		return nil, errors.NewValidationFieldError("approved_by", "approver is required", errors.ErrCodeInvalidInput)
	}

	now := time.Now().UTC()
	p, err := s.repo.CompareAndSetStatus(ctx, id, StatusPending, StatusApproved, TransitionFields{
		ApprovedBy: &approver,
		ApprovedAt: &now,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "payment approval rejected", "payment_id", id, "error", err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "payment approved", "payment_id", id, "approved_by", approver)
	s.publish(ctx, events.NewPaymentApprovedEvent(id, approver))
	return p, nil
}

// Retry re-opens a failed payment for processing. The original approval is kept.
func (s *Service) Retry(ctx context.Context, id int64, actor string) (*Payment, error) {
	p, err := s.repo.CompareAndSetStatus(ctx, id, StatusFailed, StatusApproved, TransitionFields{
		ClearFailure: true,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "payment retry rejected", "payment_id", id, "error", err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "payment queued for retry", "payment_id", id, "actor", actor, "attempts", p.Attempts)
	return p, nil
}

func (s *Service) Cancel(ctx context.Context, id int64, actor, reason string) (*Payment, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(current.Status, StatusCancelled) {
		return nil, errors.NewStateTransitionError(current.Status, StatusCancelled)
	}

	now := time.Now().UTC()
	fields := TransitionFields{
		CancelledBy: &actor,
		CancelledAt: &now,
	}
	if reason != "" {
		note := "cancelled: " + reason
		fields.Notes = &note
	}

	p, err := s.repo.CompareAndSetStatus(ctx, id, current.Status, StatusCancelled, fields)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "payment cancelled", "payment_id", id, "actor", actor, "previous_status", current.Status)
	return p, nil
}

// PaidResult describes a completed payout attempt.
type PaidResult struct {
	Actor             string
	Method            string
	ReferenceNumber   string
	TransferCode      string
	TransferID        string
	TransferReference string
	GatewayStatus     string
	RecipientCode     string
	Notes             string
}

func (s *Service) MarkPaid(ctx context.Context, id int64, res PaidResult) (*Payment, error) {
	now := time.Now().UTC()
	fields := TransitionFields{
		PaidBy:            &res.Actor,
		PaidAt:            &now,
		PayoutMethod:      &res.Method,
		ReferenceNumber:   optional(res.ReferenceNumber),
		TransferCode:      optional(res.TransferCode),
		TransferID:        optional(res.TransferID),
		TransferReference: optional(res.TransferReference),
		GatewayStatus:     optional(res.GatewayStatus),
		RecipientCodeUsed: optional(res.RecipientCode),
		Notes:             optional(res.Notes),
		ClearGatewayAudit: res.Method != MethodGatewayTransfer,
		IncrementAttempts: true,
	}
	return s.repo.CompareAndSetStatus(ctx, id, StatusApproved, StatusPaid, fields)
}

// FailedResult describes a payout attempt that did not move funds.
type FailedResult struct {
	Method            string
	Reason            string
	GatewayStatus     string
	TransferReference string
	RecipientCode     string
}

func (s *Service) MarkFailed(ctx context.Context, id int64, res FailedResult) (*Payment, error) {
	fields := TransitionFields{
		FailureReason:     &res.Reason,
		PayoutMethod:      optional(res.Method),
		GatewayStatus:     optional(res.GatewayStatus),
		TransferReference: optional(res.TransferReference),
		RecipientCodeUsed: optional(res.RecipientCode),
		IncrementAttempts: true,
	}
	return s.repo.CompareAndSetStatus(ctx, id, StatusApproved, StatusFailed, fields)
}

// AnnotateSettlement records the gateway's settlement verdict on a paid payment without changing its status.
func (s *Service) AnnotateSettlement(ctx context.Context, id int64, gatewayStatus, reason string) error {
	return s.repo.AnnotateSettlement(ctx, id, gatewayStatus, optional(reason), time.Now().UTC())
}

func (s *Service) ListUnsettled(ctx context.Context, limit int) ([]*Payment, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListUnsettled(ctx, limit)
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event", "event_type", event.EventType(), "error", err)
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
