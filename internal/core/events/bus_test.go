package events_test

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/instrumentalist-payouts/internal/core/events"
)

var _ = Describe("EventBus", func() {
	var bus *events.EventBus

	BeforeEach(func() {
		bus = events.NewEventBus(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})))
	})

	It("should deliver an event to every subscriber of its type", func() {
		var paid, failed atomic.Int32
		bus.Subscribe(events.EventTypePaymentPaid, func(ctx context.Context, e events.Event) error {
			paid.Add(1)
			return nil
		})
		bus.Subscribe(events.EventTypePaymentPaid, func(ctx context.Context, e events.Event) error {
			paid.Add(1)
			return nil
		})
		bus.Subscribe(events.EventTypePaymentFailed, func(ctx context.Context, e events.Event) error {
			failed.Add(1)
			return nil
		})

		Expect(bus.Publish(context.Background(), events.NewPaymentPaidEvent(1, 2, "50.00", "GHS", "cash", ""))).To(Succeed())
		bus.Wait()

		Expect(paid.Load()).To(Equal(int32(2)))
		Expect(failed.Load()).To(BeZero())
		Expect(bus.HandlerCount(events.EventTypePaymentPaid)).To(Equal(2))
	})

	It("should hand handlers a context that outlives the publisher", func() {
		ctx, cancel := context.WithCancel(context.Background())
		var handlerErr atomic.Value
		bus.Subscribe(events.EventTypePaymentApproved, func(hctx context.Context, e events.Event) error {
			handlerErr.Store(hctx.Err() == nil)
			return nil
		})

		Expect(bus.Publish(ctx, events.NewPaymentApprovedEvent(7, "treasurer"))).To(Succeed())
		cancel()
		bus.Wait()

		Expect(handlerErr.Load()).To(Equal(true))
	})

	It("should survive a panicking handler", func() {
		var delivered atomic.Int32
		bus.Subscribe(events.EventTypePaymentFailed, func(ctx context.Context, e events.Event) error {
			panic("boom")
		})
		bus.Subscribe(events.EventTypePaymentFailed, func(ctx context.Context, e events.Event) error {
			delivered.Add(1)
			return nil
		})

		Expect(bus.Publish(context.Background(), events.NewPaymentFailedEvent(3, "GATEWAY_REJECTED", "declined", 1))).To(Succeed())
		bus.Wait()

		Expect(delivered.Load()).To(Equal(int32(1)))
	})

	It("should ignore events nobody subscribed to", func() {
		Expect(bus.Publish(context.Background(), events.NewPaymentSettlementFailedEvent(4, "ipay-x", "reversed", "bounced"))).To(Succeed())
		bus.Wait()
	})
})
