package balance_test

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	errors "github.com/frahmantamala/instrumentalist-payouts/internal"
	"github.com/frahmantamala/instrumentalist-payouts/internal/balance"
	gatewaytypes "github.com/frahmantamala/instrumentalist-payouts/internal/core/datamodel/paymentgateway"
)

type stubTotals struct {
	total decimal.Decimal
	err   error
}

func (s stubTotals) PaidGatewayTotal(ctx context.Context) (decimal.Decimal, error) {
	return s.total, s.err
}

type stubFetcher struct {
	entries []gatewaytypes.BalanceEntry
	err     error
}

func (s stubFetcher) FetchBalance(ctx context.Context) ([]gatewaytypes.BalanceEntry, error) {
	return s.entries, s.err
}

var _ = Describe("Service", func() {
	var logger *slog.Logger

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	})

	Context("in simulated mode", func() {
		It("should subtract paid gateway transfers from the starting balance", func() {
			source := balance.NewSimulatedSource(decimal.RequireFromString("100.00"), stubTotals{total: decimal.RequireFromString("75.00")})
			svc := balance.NewService(source, "GHS", logger)

			result, err := svc.GetBalance(context.Background())

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Amount.Equal(decimal.RequireFromString("25"))).To(BeTrue())
			Expect(result.Mode).To(Equal(balance.ModeSimulated))
			Expect(result.Currency).To(Equal("GHS"))
		})

		It("should never go below zero", func() {
			source := balance.NewSimulatedSource(decimal.RequireFromString("50"), stubTotals{total: decimal.RequireFromString("75")})
			svc := balance.NewService(source, "GHS", logger)

			result, err := svc.GetBalance(context.Background())

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Amount.IsZero()).To(BeTrue())
		})

		It("should report the balance unavailable when the store fails", func() {
			source := balance.NewSimulatedSource(decimal.RequireFromString("50"), stubTotals{err: stderrors.New("connection refused")})
			svc := balance.NewService(source, "GHS", logger)

			result, err := svc.GetBalance(context.Background())

			Expect(result).To(BeNil())
			Expect(errors.HasCode(err, errors.ErrCodeBalanceUnavailable)).To(BeTrue())
		})
	})

	Context("in live mode", func() {
		It("should convert the matching currency entry to major units", func() {
			source := balance.NewLiveSource(stubFetcher{entries: []gatewaytypes.BalanceEntry{
				{Currency: "NGN", Balance: 900},
				{Currency: "GHS", Balance: 1250050},
			}}, "ghs")
			svc := balance.NewService(source, "GHS", logger)

			result, err := svc.GetBalance(context.Background())

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Amount.Equal(decimal.RequireFromString("12500.50"))).To(BeTrue())
			Expect(result.Mode).To(Equal(balance.ModeLive))
		})

		It("should report the balance unavailable when the configured currency is missing", func() {
			source := balance.NewLiveSource(stubFetcher{entries: []gatewaytypes.BalanceEntry{{Currency: "NGN", Balance: 50000000}}}, "GHS")
			svc := balance.NewService(source, "GHS", logger)

			result, err := svc.GetBalance(context.Background())

			Expect(result).To(BeNil())
			Expect(errors.HasCode(err, errors.ErrCodeBalanceUnavailable)).To(BeTrue())
		})

		It("should report the balance unavailable when the gateway fails", func() {
			source := balance.NewLiveSource(stubFetcher{err: errors.NewExternalError("payment gateway unreachable", errors.ErrCodeGatewayUnreachable)}, "GHS")
			svc := balance.NewService(source, "GHS", logger)

			_, err := svc.GetBalance(context.Background())

			Expect(errors.HasCode(err, errors.ErrCodeBalanceUnavailable)).To(BeTrue())
		})

		It("should report the balance unavailable when no entries are returned", func() {
			svc := balance.NewService(balance.NewLiveSource(stubFetcher{}, "GHS"), "GHS", logger)

			_, err := svc.GetBalance(context.Background())

			Expect(errors.HasCode(err, errors.ErrCodeBalanceUnavailable)).To(BeTrue())
		})
	})
})

var _ = Describe("minor units", func() {
	It("should convert both ways", func() {
		Expect(balance.ToMinorUnits(decimal.RequireFromString("50.00"))).To(Equal(int64(5000)))
		Expect(balance.ToMinorUnits(decimal.RequireFromString("12.34"))).To(Equal(int64(1234)))
		Expect(balance.FromMinorUnits(1234).String()).To(Equal("12.34"))
	})
})
