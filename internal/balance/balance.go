package balance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	errors "github.com/frahmantamala/instrumentalist-payouts/internal"
	gatewaytypes "github.com/frahmantamala/instrumentalist-payouts/internal/core/datamodel/paymentgateway"
	"github.com/shopspring/decimal"
)

const (
	ModeLive      = "live"
	ModeSimulated = "simulated"
)

type Balance struct {
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Mode      string          `json:"mode"`
	CheckedAt time.Time       `json:"checked_at"`
}

// Source produces the available payout balance in major units.
type Source interface {
	Mode() string
	Available(ctx context.Context) (decimal.Decimal, error)
}

type Service struct {
	source   Source
	currency string
	logger   *slog.Logger
}

func NewService(source Source, currency string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, currency: currency, logger: logger}
}

func (s *Service) Mode() string { return s.source.Mode() }

func (s *Service) GetBalance(ctx context.Context) (*Balance, error) {
	amount, err := s.source.Available(ctx)
	if err != nil {
		s.logger.Error("payout balance unavailable", "mode", s.source.Mode(), "error", err)
		return nil, errors.NewExternalError("payout balance unavailable", errors.ErrCodeBalanceUnavailable).WithCause(err)
	}

	return &Balance{
		Amount:    amount,
		Currency:  s.currency,
		Mode:      s.source.Mode(),
		CheckedAt: time.Now().UTC(),
	}, nil
}

type BalanceFetcher interface {
	FetchBalance(ctx context.Context) ([]gatewaytypes.BalanceEntry, error)
}

// LiveSource reads the balance held at the payment gateway.
type LiveSource struct {
	gateway  BalanceFetcher
	currency string
}

func NewLiveSource(gateway BalanceFetcher, currency string) *LiveSource {
	return &LiveSource{gateway: gateway, currency: currency}
}

func (l *LiveSource) Mode() string { return ModeLive }

func (l *LiveSource) Available(ctx context.Context) (decimal.Decimal, error) {
	entries, err := l.gateway.FetchBalance(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	if len(entries) == 0 {
		return decimal.Zero, fmt.Errorf("gateway returned no balance entries")
	}

	for _, e := range entries {
		if strings.EqualFold(e.Currency, l.currency) {
			return FromMinorUnits(e.Balance), nil
		}
	}
	return decimal.Zero, fmt.Errorf("gateway holds no %s balance", strings.ToUpper(l.currency))
}

type TotalsReader interface {
	PaidGatewayTotal(ctx context.Context) (decimal.Decimal, error)
}

// SimulatedSource derives the balance from a starting float minus every paid gateway transfer.
type SimulatedSource struct {
	starting decimal.Decimal
	totals   TotalsReader
}

func NewSimulatedSource(starting decimal.Decimal, totals TotalsReader) *SimulatedSource {
	return &SimulatedSource{starting: starting, totals: totals}
}

func (s *SimulatedSource) Mode() string { return ModeSimulated }

func (s *SimulatedSource) Available(ctx context.Context) (decimal.Decimal, error) {
	paid, err := s.totals.PaidGatewayTotal(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	remaining := s.starting.Sub(paid)
	if remaining.IsNegative() {
		return decimal.Zero, nil
	}
	return remaining, nil
}

func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
