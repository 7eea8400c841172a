package transfer_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	errors "github.com/frahmantamala/instrumentalist-payouts/internal"
	"github.com/frahmantamala/instrumentalist-payouts/internal/balance"
	instrumentalistDatamodel "github.com/frahmantamala/instrumentalist-payouts/internal/core/datamodel/instrumentalist"
	paymentDatamodel "github.com/frahmantamala/instrumentalist-payouts/internal/core/datamodel/payment"
	serviceeventDatamodel "github.com/frahmantamala/instrumentalist-payouts/internal/core/datamodel/serviceevent"
	"github.com/frahmantamala/instrumentalist-payouts/internal/core/events"
	"github.com/frahmantamala/instrumentalist-payouts/internal/instrumentalist"
	instrumentalistRepo "github.com/frahmantamala/instrumentalist-payouts/internal/instrumentalist/postgres"
	"github.com/frahmantamala/instrumentalist-payouts/internal/lock"
	"github.com/frahmantamala/instrumentalist-payouts/internal/payment"
	paymentRepo "github.com/frahmantamala/instrumentalist-payouts/internal/payment/postgres"
	"github.com/frahmantamala/instrumentalist-payouts/internal/paymentgateway"
	"github.com/frahmantamala/instrumentalist-payouts/internal/recipient"
	serviceeventRepo "github.com/frahmantamala/instrumentalist-payouts/internal/serviceevent/postgres"
	"github.com/frahmantamala/instrumentalist-payouts/internal/transfer"
)

// fakeGateway answers the transfer endpoints and records what it saw.
type fakeGateway struct {
	server             *httptest.Server
	recipientCalls     atomic.Int32
	transferCalls      atomic.Int32
	transferStatusCode int
	transferBody       string
	transferDelay      time.Duration
	balanceBody        string
	mu                 sync.Mutex
	references         []string
	amounts            []int64
}

func newFakeGateway() *fakeGateway {
	g := &fakeGateway{
		transferStatusCode: http.StatusOK,
		transferBody:       `{"status":true,"message":"Transfer has been queued","data":{"id":9001,"transfer_code":"TC123","status":"pending","amount":5000,"currency":"GHS"}}`,
		balanceBody:        `{"status":true,"data":[{"currency":"GHS","balance":1000000}]}`,
	}
	g.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case paymentgateway.EndpointTransferRecipient:
			g.recipientCalls.Add(1)
			_, _ = io.WriteString(w, `{"status":true,"data":{"recipient_code":"RCP_abc","active":true}}`)
		case paymentgateway.EndpointTransfer:
			g.transferCalls.Add(1)
			var body struct {
				Reference string `json:"reference"`
				Amount    int64  `json:"amount"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			g.mu.Lock()
			g.references = append(g.references, body.Reference)
			g.amounts = append(g.amounts, body.Amount)
			status, payload, delay := g.transferStatusCode, g.transferBody, g.transferDelay
			g.mu.Unlock()
			time.Sleep(delay)
			w.WriteHeader(status)
			_, _ = io.WriteString(w, payload)
		case paymentgateway.EndpointBalance:
			_, _ = io.WriteString(w, g.balanceBody)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"status":false,"message":"not found"}`)
		}
	}))
	return g
}

func (g *fakeGateway) slowTransfer(delay time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.transferDelay = delay
}

func (g *fakeGateway) respondTransfer(status int, body string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.transferStatusCode = status
	g.transferBody = body
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

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType()
	}
	return out
}

type staticBalance struct {
	amount decimal.Decimal
	err    error
}

func (s staticBalance) GetBalance(ctx context.Context) (*balance.Balance, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &balance.Balance{Amount: s.amount, Currency: "GHS", Mode: balance.ModeSimulated}, nil
}

type busyLocker struct{}

func (busyLocker) TryLock(ctx context.Context, key string) (func(), bool, error) {
	return nil, false, nil
}

var _ = Describe("Orchestrator", func() {
	var (
		ctx              context.Context
		db               *gorm.DB
		gateway          *fakeGateway
		publisher        *recordingPublisher
		payments         *payment.Service
		instrumentalists *instrumentalistRepo.InstrumentalistRepository
		registry         *recipient.Registry
		client           *paymentgateway.Client
		orchestrator     *transfer.Orchestrator
		testLogger       *slog.Logger
		serviceEventID   int64
	)

	newOrchestrator := func(balanceReader transfer.BalanceReader, locker lock.Locker, preflight bool) *transfer.Orchestrator {
		return transfer.NewOrchestrator(payments, instrumentalists, registry, client, balanceReader, locker, publisher,
			transfer.Config{Preflight: preflight}, testLogger)
	}

	BeforeEach(func() {
		ctx = context.Background()
		testLogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			NowFunc: func() time.Time { return time.Now().UTC() },
		})
		Expect(err).ToNot(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).ToNot(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		Expect(db.AutoMigrate(
			&instrumentalistDatamodel.Instrumentalist{},
			&serviceeventDatamodel.ServiceEvent{},
			&paymentDatamodel.InstrumentalistPayment{},
		)).To(Succeed())

		event := &serviceeventDatamodel.ServiceEvent{ServiceDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), ServiceType: "sunday_service"}
		Expect(db.Create(event).Error).ToNot(HaveOccurred())
		serviceEventID = event.ID

		gateway = newFakeGateway()
		DeferCleanup(gateway.server.Close)

		publisher = &recordingPublisher{}
		instrumentalists = instrumentalistRepo.NewInstrumentalistRepository(db)
		payments = payment.NewService(
			paymentRepo.NewPaymentRepository(db),
			instrumentalists,
			serviceeventRepo.NewServiceEventRepository(db),
			publisher,
			"GHS",
			testLogger,
		)
		client = paymentgateway.NewClient(paymentgateway.Config{BaseURL: gateway.server.URL, SecretKey: "sk_test", Timeout: 2 * time.Second}, testLogger, nil)
		registry = recipient.NewRegistry(client, instrumentalists, recipient.Config{Currency: "GHS"}, testLogger)
		orchestrator = newOrchestrator(nil, lock.NewLocal(), false)
	})

	strPtr := func(s string) *string { return &s }

	createInstrumentalist := func(complete bool) int64 {
		i := &instrumentalist.Instrumentalist{
			Name:                  "Kofi Mensah",
			IsActive:              true,
			PreferredPayoutMethod: instrumentalist.PayoutMethodMobileMoney,
			MobileMoneyNumber:     strPtr("0241234567"),
			MobileMoneyName:       strPtr("Kofi Mensah"),
		}
		if complete {
			i.MobileMoneyProvider = strPtr("MTN")
		}
		Expect(instrumentalists.Create(ctx, i)).To(Succeed())
		return i.ID
	}

	approvedPayment := func(instrumentalistID int64, amount string) *payment.Payment {
		p, err := payments.CreatePayment(ctx, payment.CreatePaymentDTO{
			InstrumentalistID: instrumentalistID,
			ServiceEventID:    serviceEventID,
			Amount:            decimal.RequireFromString(amount),
			PaymentType:       payment.TypePerService,
		})
		Expect(err).ToNot(HaveOccurred())
		p, err = payments.Approve(ctx, p.ID, "treasurer")
		Expect(err).ToNot(HaveOccurred())
		return p
	}

	gatewayRequest := transfer.ProcessRequest{Method: payment.MethodGatewayTransfer, Actor: "treasurer"}

	It("should mark the payment paid when the gateway accepts the transfer", func() {
		p := approvedPayment(createInstrumentalist(true), "50.00")

		outcome, err := orchestrator.ProcessPayment(ctx, p.ID, gatewayRequest)

		Expect(err).ToNot(HaveOccurred())
		Expect(outcome.Succeeded()).To(BeTrue())
		Expect(outcome.Payment.Status).To(Equal(payment.StatusPaid))
		Expect(*outcome.Payment.TransferCode).To(Equal("TC123"))
		Expect(*outcome.Payment.TransferID).To(Equal("9001"))
		Expect(*outcome.Payment.GatewayStatus).To(Equal("pending"))
		Expect(*outcome.Payment.RecipientCodeUsed).To(Equal("RCP_abc"))
		Expect(*outcome.Payment.TransferReference).To(Equal(transfer.Reference(p.ID)))
		Expect(outcome.Payment.PaidAt).ToNot(BeNil())
		Expect(gateway.amounts).To(Equal([]int64{5000}))
		Expect(publisher.types()).To(ContainElement(events.EventTypePaymentPaid))
	})

	It("should mark the payment failed when the gateway returns 500", func() {
		gateway.respondTransfer(http.StatusInternalServerError, `{"status":false,"message":"Transfer service unavailable"}`)
		p := approvedPayment(createInstrumentalist(true), "50.00")

		outcome, err := orchestrator.ProcessPayment(ctx, p.ID, gatewayRequest)

		Expect(err).ToNot(HaveOccurred())
		Expect(outcome.Succeeded()).To(BeFalse())
		Expect(outcome.Failure.Code).To(Equal(errors.ErrCodeGatewayRejected))

		stored, err := payments.GetPayment(ctx, p.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(stored.Status).To(Equal(payment.StatusFailed))
		Expect(*stored.FailureReason).To(Equal("Transfer service unavailable"))
		Expect(stored.TransferCode).To(BeNil())
		Expect(stored.ApprovedBy).ToNot(BeNil())
		Expect(publisher.types()).To(ContainElement(events.EventTypePaymentFailed))
	})

	It("should fail the payment when the gateway body is unreadable", func() {
		gateway.respondTransfer(http.StatusBadGateway, `<html>bad gateway</html>`)
		p := approvedPayment(createInstrumentalist(true), "20.00")

		outcome, err := orchestrator.ProcessPayment(ctx, p.ID, gatewayRequest)

		Expect(err).ToNot(HaveOccurred())
		Expect(outcome.Failure.Code).To(Equal(errors.ErrCodeGatewayMalformedResponse))
		Expect(outcome.Payment.Status).To(Equal(payment.StatusFailed))
		Expect(*outcome.Payment.FailureReason).ToNot(BeEmpty())
	})

	It("should fail the payment when the transfer is not initiated", func() {
		gateway.respondTransfer(http.StatusOK, `{"status":true,"data":{"id":1,"transfer_code":"TC9","status":"otp"}}`)
		p := approvedPayment(createInstrumentalist(true), "20.00")

		outcome, err := orchestrator.ProcessPayment(ctx, p.ID, gatewayRequest)

		Expect(err).ToNot(HaveOccurred())
		Expect(outcome.Payment.Status).To(Equal(payment.StatusFailed))
		Expect(*outcome.Payment.GatewayStatus).To(Equal("otp"))
		Expect(outcome.Payment.TransferCode).To(BeNil())
	})

	It("should fail without calling the transfer endpoint when the profile is incomplete", func() {
		p := approvedPayment(createInstrumentalist(false), "20.00")

		outcome, err := orchestrator.ProcessPayment(ctx, p.ID, gatewayRequest)

		Expect(err).ToNot(HaveOccurred())
		Expect(outcome.Failure.Code).To(Equal(errors.ErrCodeRecipientRegistrationFailed))
		Expect(*outcome.Payment.FailureReason).To(ContainSubstring("mobile_money_provider"))
		Expect(gateway.transferCalls.Load()).To(BeZero())
		Expect(gateway.recipientCalls.Load()).To(BeZero())
	})

	It("should register the recipient once across attempts and reuse the reference", func() {
		gateway.respondTransfer(http.StatusServiceUnavailable, `{"status":false,"message":"try later"}`)
		p := approvedPayment(createInstrumentalist(true), "50.00")

		outcome, err := orchestrator.ProcessPayment(ctx, p.ID, gatewayRequest)
		Expect(err).ToNot(HaveOccurred())
		Expect(outcome.Payment.Status).To(Equal(payment.StatusFailed))

		_, err = payments.Retry(ctx, p.ID, "treasurer")
		Expect(err).ToNot(HaveOccurred())
		gateway.respondTransfer(http.StatusOK, `{"status":true,"data":{"id":2,"transfer_code":"TC124","status":"success"}}`)

		outcome, err = orchestrator.ProcessPayment(ctx, p.ID, gatewayRequest)

		Expect(err).ToNot(HaveOccurred())
		Expect(outcome.Payment.Status).To(Equal(payment.StatusPaid))
		Expect(outcome.Payment.Attempts).To(Equal(2))
		Expect(gateway.recipientCalls.Load()).To(Equal(int32(1)))
		Expect(gateway.references).To(HaveLen(2))
		Expect(gateway.references[0]).To(Equal(gateway.references[1]))
	})

	It("should finish an issued transfer after the caller gives up", func() {
		gateway.slowTransfer(300 * time.Millisecond)
		p := approvedPayment(createInstrumentalist(true), "50.00")
		callerCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		defer cancel()

		outcome, err := orchestrator.ProcessPayment(callerCtx, p.ID, gatewayRequest)

		Expect(err).ToNot(HaveOccurred())
		Expect(callerCtx.Err()).To(HaveOccurred())
		Expect(outcome.Succeeded()).To(BeTrue())
		Expect(gateway.transferCalls.Load()).To(Equal(int32(1)))

		stored, err := payments.GetPayment(ctx, p.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(stored.Status).To(Equal(payment.StatusPaid))
		Expect(*stored.TransferCode).To(Equal("TC123"))
		Expect(stored.FailureReason).To(BeNil())
	})

	It("should drop gateway details when a failed transfer is later paid in cash", func() {
		gateway.respondTransfer(http.StatusInternalServerError, `{"status":false,"message":"Transfer service unavailable"}`)
		p := approvedPayment(createInstrumentalist(true), "50.00")

		outcome, err := orchestrator.ProcessPayment(ctx, p.ID, gatewayRequest)
		Expect(err).ToNot(HaveOccurred())
		Expect(*outcome.Payment.TransferReference).To(Equal(transfer.Reference(p.ID)))
		Expect(*outcome.Payment.RecipientCodeUsed).To(Equal("RCP_abc"))

		_, err = payments.Retry(ctx, p.ID, "treasurer")
		Expect(err).ToNot(HaveOccurred())

		outcome, err = orchestrator.ProcessPayment(ctx, p.ID, transfer.ProcessRequest{
			Method:          payment.MethodCash,
			ReferenceNumber: "RCPT-0107",
			Actor:           "treasurer",
		})

		Expect(err).ToNot(HaveOccurred())
		stored, err := payments.GetPayment(ctx, p.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(stored.Status).To(Equal(payment.StatusPaid))
		Expect(*stored.PayoutMethod).To(Equal(payment.MethodCash))
		Expect(stored.TransferReference).To(BeNil())
		Expect(stored.RecipientCodeUsed).To(BeNil())
		Expect(stored.TransferCode).To(BeNil())
		Expect(stored.TransferID).To(BeNil())
		Expect(stored.GatewayStatus).To(BeNil())
		Expect(stored.Attempts).To(Equal(2))
	})

	It("should record manual payouts without touching the gateway", func() {
		p := approvedPayment(createInstrumentalist(false), "80.00")

		outcome, err := orchestrator.ProcessPayment(ctx, p.ID, transfer.ProcessRequest{
			Method:          payment.MethodCash,
			ReferenceNumber: "RCPT-0042",
			Actor:           "treasurer",
		})

		Expect(err).ToNot(HaveOccurred())
		Expect(outcome.Payment.Status).To(Equal(payment.StatusPaid))
		Expect(*outcome.Payment.PayoutMethod).To(Equal(payment.MethodCash))
		Expect(*outcome.Payment.ReferenceNumber).To(Equal("RCPT-0042"))
		Expect(*outcome.Payment.PaidBy).To(Equal("treasurer"))
		Expect(gateway.recipientCalls.Load() + gateway.transferCalls.Load()).To(BeZero())
	})

	It("should reject payments that are not approved without mutating them", func() {
		p, err := payments.CreatePayment(ctx, payment.CreatePaymentDTO{
			InstrumentalistID: createInstrumentalist(true),
			ServiceEventID:    serviceEventID,
			Amount:            decimal.RequireFromString("10"),
		})
		Expect(err).ToNot(HaveOccurred())

		outcome, err := orchestrator.ProcessPayment(ctx, p.ID, gatewayRequest)

		Expect(outcome).To(BeNil())
		Expect(errors.HasCode(err, errors.ErrCodeInvalidStateTransition)).To(BeTrue())
		stored, _ := payments.GetPayment(ctx, p.ID)
		Expect(stored.Status).To(Equal(payment.StatusPending))
	})

	It("should reject reprocessing a paid payment", func() {
		p := approvedPayment(createInstrumentalist(true), "50.00")
		_, err := orchestrator.ProcessPayment(ctx, p.ID, gatewayRequest)
		Expect(err).ToNot(HaveOccurred())
		before, _ := payments.GetPayment(ctx, p.ID)

		_, err = orchestrator.ProcessPayment(ctx, p.ID, gatewayRequest)

		Expect(errors.HasCode(err, errors.ErrCodeInvalidStateTransition)).To(BeTrue())
		after, _ := payments.GetPayment(ctx, p.ID)
		Expect(after.Attempts).To(Equal(before.Attempts))
		Expect(gateway.transferCalls.Load()).To(Equal(int32(1)))
	})

	It("should reject unknown methods", func() {
		p := approvedPayment(createInstrumentalist(true), "50.00")

		_, err := orchestrator.ProcessPayment(ctx, p.ID, transfer.ProcessRequest{Method: "crypto", Actor: "treasurer"})

		Expect(errors.HasCode(err, errors.ErrCodeInvalidInput)).To(BeTrue())
	})

	It("should report contention on a locked payment", func() {
		orchestrator = newOrchestrator(nil, busyLocker{}, false)
		p := approvedPayment(createInstrumentalist(true), "50.00")

		_, err := orchestrator.ProcessPayment(ctx, p.ID, gatewayRequest)

		Expect(errors.HasCode(err, errors.ErrCodeInvalidStateTransition)).To(BeTrue())
		Expect(gateway.transferCalls.Load()).To(BeZero())
	})

	It("should let only one of two concurrent calls pay", func() {
		p := approvedPayment(createInstrumentalist(true), "50.00")

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
		)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				outcome, err := orchestrator.ProcessPayment(ctx, p.ID, gatewayRequest)
				if err == nil && outcome.Succeeded() {
					mu.Lock()
					successes++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		Expect(successes).To(Equal(1))
		Expect(gateway.transferCalls.Load()).To(Equal(int32(1)))
	})

	Describe("balance pre-flight", func() {
		It("should fail the payment when funds are short", func() {
			orchestrator = newOrchestrator(staticBalance{amount: decimal.RequireFromString("10")}, lock.NewLocal(), true)
			p := approvedPayment(createInstrumentalist(true), "50.00")

			outcome, err := orchestrator.ProcessPayment(ctx, p.ID, gatewayRequest)

			Expect(err).ToNot(HaveOccurred())
			Expect(outcome.Failure.Code).To(Equal(errors.ErrCodeInsufficientBalance))
			Expect(outcome.Payment.Status).To(Equal(payment.StatusFailed))
			Expect(gateway.transferCalls.Load()).To(BeZero())
		})

		It("should leave the payment approved when the balance is unavailable", func() {
			unavailable := errors.NewExternalError("payout balance unavailable", errors.ErrCodeBalanceUnavailable)
			orchestrator = newOrchestrator(staticBalance{err: unavailable}, lock.NewLocal(), true)
			p := approvedPayment(createInstrumentalist(true), "50.00")

			outcome, err := orchestrator.ProcessPayment(ctx, p.ID, gatewayRequest)

			Expect(outcome).To(BeNil())
			Expect(errors.HasCode(err, errors.ErrCodeBalanceUnavailable)).To(BeTrue())
			stored, _ := payments.GetPayment(ctx, p.ID)
			Expect(stored.Status).To(Equal(payment.StatusApproved))
		})
	})
})
