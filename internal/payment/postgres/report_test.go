package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/instrumentalist-payouts/internal/balance"
	paymentpkg "github.com/frahmantamala/instrumentalist-payouts/internal/payment"
)

var _ = Describe("ReportRepository", func() {
	var (
		repo    *PaymentRepository
		reports *ReportRepository
		ctx     context.Context
	)

	BeforeEach(func() {
		db := openTestDB()
		sqlDB, err := db.DB()
		Expect(err).ToNot(HaveOccurred())

		repo = NewPaymentRepository(db)
		reports = NewReportRepository(sqlx.NewDb(sqlDB, "sqlite3"))
		ctx = context.Background()
	})

	insert := func(instrumentalistID int64, amount, status, method string) {
		p := &paymentpkg.Payment{
			InstrumentalistID: instrumentalistID,
			ServiceEventID:    1,
			Amount:            decimal.RequireFromString(amount),
			Currency:          "GHS",
			PaymentType:       paymentpkg.TypePerService,
			Status:            status,
		}
		if method != "" {
			p.PayoutMethod = &method
		}
		Expect(repo.CreateUnique(ctx, p)).To(Succeed())
	}

	It("should return zero when nothing was paid", func() {
		total, err := reports.PaidGatewayTotal(ctx)

		Expect(err).ToNot(HaveOccurred())
		Expect(total.IsZero()).To(BeTrue())
	})

	It("should sum only paid gateway transfers", func() {
		insert(1, "30.00", paymentpkg.StatusPaid, paymentpkg.MethodGatewayTransfer)
		insert(2, "45.00", paymentpkg.StatusPaid, paymentpkg.MethodGatewayTransfer)
		insert(3, "20.00", paymentpkg.StatusPaid, paymentpkg.MethodCash)
		insert(4, "99.00", paymentpkg.StatusApproved, "")

		total, err := reports.PaidGatewayTotal(ctx)

		Expect(err).ToNot(HaveOccurred())
		Expect(total.Equal(decimal.RequireFromString("75"))).To(BeTrue())
	})

	It("should drive the simulated balance down to zero", func() {
		svc := balance.NewService(balance.NewSimulatedSource(decimal.RequireFromString("100"), reports), "GHS", nil)
		insert(1, "30.00", paymentpkg.StatusPaid, paymentpkg.MethodGatewayTransfer)
		insert(2, "45.00", paymentpkg.StatusPaid, paymentpkg.MethodGatewayTransfer)
		insert(3, "60.00", paymentpkg.StatusPaid, paymentpkg.MethodCash)

		current, err := svc.GetBalance(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(current.Amount.Equal(decimal.RequireFromString("25"))).To(BeTrue())

		insert(4, "40.00", paymentpkg.StatusPaid, paymentpkg.MethodGatewayTransfer)

		current, err = svc.GetBalance(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(current.Amount.IsZero()).To(BeTrue())
		Expect(current.Mode).To(Equal(balance.ModeSimulated))
	})

	It("should count payments by status", func() {
		insert(1, "10.00", paymentpkg.StatusPaid, paymentpkg.MethodCash)
		insert(2, "10.00", paymentpkg.StatusPending, "")
		insert(3, "10.00", paymentpkg.StatusPending, "")

		counts, err := reports.CountByStatus(ctx)

		Expect(err).ToNot(HaveOccurred())
		Expect(counts).To(Equal([]StatusCount{
			{Status: paymentpkg.StatusPaid, Count: 1},
			{Status: paymentpkg.StatusPending, Count: 2},
		}))
	})
})
