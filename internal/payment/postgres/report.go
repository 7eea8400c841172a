package postgres

import (
	"context"

	paymentpkg "github.com/frahmantamala/instrumentalist-payouts/internal/payment"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// ReportRepository runs aggregate read queries over payments.
type ReportRepository struct {
	db *sqlx.DB
}

func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// PaidGatewayTotal sums every payment paid out through the gateway.
func (r *ReportRepository) PaidGatewayTotal(ctx context.Context) (decimal.Decimal, error) {
	query := r.db.Rebind(`
		SELECT COALESCE(SUM(amount), 0)
		FROM instrumentalist_payments
		WHERE status = ? AND payout_method = ?`)

	var total decimal.NullDecimal
	if err := r.db.GetContext(ctx, &total, query, paymentpkg.StatusPaid, paymentpkg.MethodGatewayTransfer); err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

type StatusCount struct {
	Status string `db:"status"`
	Count  int64  `db:"count"`
}

func (r *ReportRepository) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	var counts []StatusCount
	err := r.db.SelectContext(ctx, &counts, `
		SELECT status, COUNT(*) AS count
		FROM instrumentalist_payments
		GROUP BY status
		ORDER BY status`)
	return counts, err
}
