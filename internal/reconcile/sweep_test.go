package reconcile_test

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	gatewaytypes "github.com/frahmantamala/instrumentalist-payouts/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/instrumentalist-payouts/internal/core/events"
	"github.com/frahmantamala/instrumentalist-payouts/internal/lock"
	"github.com/frahmantamala/instrumentalist-payouts/internal/payment"
	"github.com/frahmantamala/instrumentalist-payouts/internal/reconcile"
)

type annotation struct {
	status string
	reason string
}

type fakeStore struct {
	unsettled   []*payment.Payment
	listErr     error
	annotations map[int64]annotation
}

func (f *fakeStore) ListUnsettled(ctx context.Context, limit int) ([]*payment.Payment, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.unsettled) > limit {
		return f.unsettled[:limit], nil
	}
	return f.unsettled, nil
}

func (f *fakeStore) AnnotateSettlement(ctx context.Context, id int64, gatewayStatus, reason string) error {
	f.annotations[id] = annotation{status: gatewayStatus, reason: reason}
	return nil
}

type fakeVerifier struct {
	results map[string]*gatewaytypes.TransferVerification
}

func (f *fakeVerifier) VerifyTransfer(ctx context.Context, reference string) (*gatewaytypes.TransferVerification, error) {
	v, ok := f.results[reference]
	if !ok {
		return nil, stderrors.New("gateway unreachable")
	}
	return v, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

var _ = Describe("Sweeper", func() {
	var (
		store     *fakeStore
		verifier  *fakeVerifier
		publisher *recordingPublisher
		sweeper   *reconcile.Sweeper
		locker    *lock.Local
	)

	paid := func(id int64, reference string) *payment.Payment {
		method := payment.MethodGatewayTransfer
		return &payment.Payment{ID: id, Status: payment.StatusPaid, PayoutMethod: &method, TransferReference: &reference}
	}

	BeforeEach(func() {
		store = &fakeStore{annotations: map[int64]annotation{}}
		verifier = &fakeVerifier{results: map[string]*gatewaytypes.TransferVerification{}}
		publisher = &recordingPublisher{}
		locker = lock.NewLocal()
		testLogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		sweeper = reconcile.NewSweeper(store, verifier, locker, publisher, nil, 10, testLogger)
	})

	It("should annotate each verdict and flag failed settlements", func() {
		store.unsettled = []*payment.Payment{paid(1, "ref-1"), paid(2, "ref-2"), paid(3, "ref-3")}
		verifier.results["ref-1"] = &gatewaytypes.TransferVerification{Status: gatewaytypes.TransferStatusSuccess}
		verifier.results["ref-2"] = &gatewaytypes.TransferVerification{Status: gatewaytypes.TransferStatusReversed, Reason: "Recipient wallet inactive"}
		verifier.results["ref-3"] = &gatewaytypes.TransferVerification{Status: gatewaytypes.TransferStatusProcessing}

		summary, err := sweeper.Run(context.Background())

		Expect(err).ToNot(HaveOccurred())
		Expect(*summary).To(Equal(reconcile.Summary{Checked: 3, Settled: 1, Failed: 1, Pending: 1}))
		Expect(store.annotations[2]).To(Equal(annotation{status: "reversed", reason: "Recipient wallet inactive"}))
		Expect(store.annotations[3].status).To(Equal("processing"))

		Expect(publisher.events).To(HaveLen(1))
		failed, ok := publisher.events[0].(*events.PaymentSettlementFailedEvent)
		Expect(ok).To(BeTrue())
		Expect(failed.PaymentID).To(Equal(int64(2)))
	})

	It("should count verification errors and carry on", func() {
		store.unsettled = []*payment.Payment{paid(1, "missing"), paid(2, "ref-2")}
		verifier.results["ref-2"] = &gatewaytypes.TransferVerification{Status: gatewaytypes.TransferStatusSuccess}

		summary, err := sweeper.Run(context.Background())

		Expect(err).ToNot(HaveOccurred())
		Expect(summary.Errors).To(Equal(1))
		Expect(summary.Settled).To(Equal(1))
		Expect(store.annotations).ToNot(HaveKey(int64(1)))
	})

	It("should skip when another sweep holds the lock", func() {
		release, ok, err := locker.TryLock(context.Background(), "reconcile:settlement")
		Expect(err).ToNot(HaveOccurred())
		Expect(ok).To(BeTrue())
		defer release()

		summary, err := sweeper.Run(context.Background())

		Expect(err).ToNot(HaveOccurred())
		Expect(summary.Skipped).To(BeTrue())
	})

	It("should return store errors", func() {
		store.listErr = stderrors.New("db down")

		_, err := sweeper.Run(context.Background())

		Expect(err).To(HaveOccurred())
	})
})
