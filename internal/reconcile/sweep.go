// Package reconcile checks paid gateway transfers against the gateway's final verdict.
//
// Payments stay paid once a transfer is initiated. The sweep only records the
// settlement outcome and raises an event when funds did not arrive.
package reconcile

import (
	"context"
	"log/slog"

	errors "github.com/frahmantamala/instrumentalist-payouts/internal"
	gatewaytypes "github.com/frahmantamala/instrumentalist-payouts/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/instrumentalist-payouts/internal/core/events"
	"github.com/frahmantamala/instrumentalist-payouts/internal/lock"
	"github.com/frahmantamala/instrumentalist-payouts/internal/payment"
	"github.com/frahmantamala/instrumentalist-payouts/pkg/metrics"
)

const sweepLockKey = "reconcile:settlement"

type PaymentStore interface {
	ListUnsettled(ctx context.Context, limit int) ([]*payment.Payment, error)
	AnnotateSettlement(ctx context.Context, id int64, gatewayStatus, reason string) error
}

type Verifier interface {
	VerifyTransfer(ctx context.Context, reference string) (*gatewaytypes.TransferVerification, error)
}

type Summary struct {
	Checked int  `json:"checked"`
	Settled int  `json:"settled"`
	Failed  int  `json:"failed"`
	Pending int  `json:"pending"`
	Errors  int  `json:"errors"`
	Skipped bool `json:"skipped,omitempty"`
}

type Sweeper struct {
	payments PaymentStore
	verifier Verifier
	locker   lock.Locker
	events   events.Publisher
	metrics  *metrics.PayoutMetrics
	limit    int
	logger   *slog.Logger
}

func NewSweeper(payments PaymentStore, verifier Verifier, locker lock.Locker, publisher events.Publisher, m *metrics.PayoutMetrics, limit int, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if limit <= 0 {
		limit = 50
	}
	return &Sweeper{
		payments: payments,
		verifier: verifier,
		locker:   locker,
		events:   publisher,
		metrics:  m,
		limit:    limit,
		logger:   logger,
	}
}

// Run verifies one page of unsettled transfers. A verification error on one
// payment is counted and the sweep moves on.
func (s *Sweeper) Run(ctx context.Context) (*Summary, error) {
	if s.locker != nil {
		release, ok, err := s.locker.TryLock(ctx, sweepLockKey)
		if err != nil {
			return nil, errors.NewInternalError("failed to acquire reconcile lock", err)
		}
		if !ok {
			s.logger.InfoContext(ctx, "reconcile sweep already running elsewhere; skipping")
			return &Summary{Skipped: true}, nil
		}
		defer release()
	}

	pending, err := s.payments.ListUnsettled(ctx, s.limit)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	for _, p := range pending {
		if ctx.Err() != nil {
			break
		}
		summary.Checked++
		s.check(ctx, p, summary)
	}

	s.logger.InfoContext(ctx, "reconcile sweep completed",
		"checked", summary.Checked,
		"settled", summary.Settled,
		"failed", summary.Failed,
		"pending", summary.Pending,
		"errors", summary.Errors)
	return summary, nil
}

func (s *Sweeper) check(ctx context.Context, p *payment.Payment, summary *Summary) {
	reference := ""
	if p.TransferReference != nil {
		reference = *p.TransferReference
	}

	verification, err := s.verifier.VerifyTransfer(ctx, reference)
	if err != nil {
		summary.Errors++
		s.metrics.IncSettlementCheck("error")
		s.logger.WarnContext(ctx, "transfer verification failed", "payment_id", p.ID, "reference", reference, "error", err)
		return
	}

	status := verification.Status
	var result string
	switch {
	case status.SettlementFailed():
		summary.Failed++
		result = "failed"
	case status.Final():
		summary.Settled++
		result = "settled"
	default:
		summary.Pending++
		result = "pending"
	}
	s.metrics.IncSettlementCheck(result)

	if err := s.payments.AnnotateSettlement(ctx, p.ID, string(status), verification.Reason); err != nil {
		summary.Errors++
		s.logger.ErrorContext(ctx, "failed to record settlement status", "payment_id", p.ID, "gateway_status", status, "error", err)
		return
	}

	if result == "failed" {
		s.logger.ErrorContext(ctx, "paid transfer failed to settle",
			"payment_id", p.ID,
			"reference", reference,
			"gateway_status", status,
			"reason", verification.Reason)
		if s.events != nil {
			_ = s.events.Publish(ctx, events.NewPaymentSettlementFailedEvent(p.ID, reference, string(status), verification.Reason))
		}
	}
}
