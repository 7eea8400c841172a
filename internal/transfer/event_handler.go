package transfer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/instrumentalist-payouts/internal/core/events"
	"github.com/frahmantamala/instrumentalist-payouts/internal/payment"
	"github.com/frahmantamala/instrumentalist-payouts/pkg/metrics"
)

// EventHandler turns payout events into metrics and an audit log trail.
type EventHandler struct {
	metrics *metrics.PayoutMetrics
	logger  *slog.Logger
}

func NewEventHandler(m *metrics.PayoutMetrics, logger *slog.Logger) *EventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventHandler{metrics: m, logger: logger}
}

func (h *EventHandler) HandlePaymentPaid(ctx context.Context, event events.Event) error {
	paid, ok := event.(*events.PaymentPaidEvent)
	if !ok {
		h.logger.Error("invalid event type for payment paid handler", "event_type", event.EventType())
		return fmt.Errorf("expected PaymentPaidEvent, got %T", event)
	}

	h.metrics.IncPayment(paid.PayoutMethod, payment.StatusPaid)
	h.logger.Info("payout completed",
		"payment_id", paid.PaymentID,
		"instrumentalist_id", paid.InstrumentalistID,
		"amount", paid.Amount,
		"currency", paid.Currency,
		"method", paid.PayoutMethod,
		"transfer_code", paid.TransferCode,
		"event_id", paid.EventID())
	return nil
}

func (h *EventHandler) HandlePaymentFailed(ctx context.Context, event events.Event) error {
	failed, ok := event.(*events.PaymentFailedEvent)
	if !ok {
		h.logger.Error("invalid event type for payment failed handler", "event_type", event.EventType())
		return fmt.Errorf("expected PaymentFailedEvent, got %T", event)
	}

	h.metrics.IncPayment(payment.MethodGatewayTransfer, payment.StatusFailed)
	h.logger.Warn("payout failed",
		"payment_id", failed.PaymentID,
		"code", failed.Code,
		"reason", failed.FailureReason,
		"attempts", failed.Attempts,
		"event_id", failed.EventID())
	return nil
}

func (h *EventHandler) HandleSettlementFailed(ctx context.Context, event events.Event) error {
	settlement, ok := event.(*events.PaymentSettlementFailedEvent)
	if !ok {
		h.logger.Error("invalid event type for settlement failed handler", "event_type", event.EventType())
		return fmt.Errorf("expected PaymentSettlementFailedEvent, got %T", event)
	}

	h.logger.Error("paid transfer did not settle; manual reconciliation required",
		"payment_id", settlement.PaymentID,
		"reference", settlement.Reference,
		"gateway_status", settlement.GatewayStatus,
		"reason", settlement.Reason,
		"event_id", settlement.EventID())
	return nil
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypePaymentPaid, h.HandlePaymentPaid)
	eventBus.Subscribe(events.EventTypePaymentFailed, h.HandlePaymentFailed)
	eventBus.Subscribe(events.EventTypePaymentSettlementFailed, h.HandleSettlementFailed)

	h.logger.Info("payout event handlers registered",
		"handlers", []string{
			events.EventTypePaymentPaid,
			events.EventTypePaymentFailed,
			events.EventTypePaymentSettlementFailed,
		})
}
