package postgres

import (
	"context"
	stderrors "errors"
	"time"

	errors "github.com/frahmantamala/instrumentalist-payouts/internal"
	paymentDatamodel "github.com/frahmantamala/instrumentalist-payouts/internal/core/datamodel/payment"
	"github.com/frahmantamala/instrumentalist-payouts/internal/core/datamodel/paymentgateway"
	paymentpkg "github.com/frahmantamala/instrumentalist-payouts/internal/payment"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const uniqueViolation = "23505"

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{
		db: db,
	}
}

func (r *PaymentRepository) CreateUnique(ctx context.Context, p *paymentpkg.Payment) error {
	model := paymentpkg.ToDataModel(p)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var open int64
		err := tx.Model(&paymentDatamodel.InstrumentalistPayment{}).
			Where("instrumentalist_id = ? AND service_event_id = ? AND status IN ?",
				p.InstrumentalistID, p.ServiceEventID, paymentpkg.OpenStatuses).
			Count(&open).Error
		if err != nil {
			return err
		}
		if open > 0 {
			return duplicatePayment()
		}
		return tx.Create(model).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return duplicatePayment()
		}
		return err
	}

	p.ID = model.ID
	p.CreatedAt = model.CreatedAt
	p.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*paymentpkg.Payment, error) {
	var model paymentDatamodel.InstrumentalistPayment
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NewNotFoundError("Payment not found", errors.ErrCodePaymentNotFound)
		}
		return nil, err
	}
	return paymentpkg.FromDataModel(&model), nil
}

func (r *PaymentRepository) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*paymentpkg.Payment, error) {
	var models []*paymentDatamodel.InstrumentalistPayment
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return paymentpkg.FromDataModelSlice(models), nil
}

func (r *PaymentRepository) CompareAndSetStatus(ctx context.Context, id int64, expected, next string, fields paymentpkg.TransitionFields) (*paymentpkg.Payment, error) {
	updates := transitionColumns(fields)
	updates["status"] = next
	updates["updated_at"] = time.Now().UTC()

	result := r.db.WithContext(ctx).Model(&paymentDatamodel.InstrumentalistPayment{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, r.transitionError(ctx, id, next)
	}

	return r.GetByID(ctx, id)
}

func (r *PaymentRepository) AnnotateSettlement(ctx context.Context, id int64, gatewayStatus string, reason *string, checkedAt time.Time) error {
	updates := map[string]interface{}{
		"gateway_status":        gatewayStatus,
		"settlement_checked_at": checkedAt,
		"updated_at":            time.Now().UTC(),
	}
	if reason != nil {
		updates["failure_reason"] = *reason
	}

	result := r.db.WithContext(ctx).Model(&paymentDatamodel.InstrumentalistPayment{}).
		Where("id = ? AND status = ?", id, paymentpkg.StatusPaid).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.transitionError(ctx, id, paymentpkg.StatusPaid)
	}
	return nil
}

// ListUnsettled returns paid gateway transfers whose last known gateway status is not final, oldest first.
func (r *PaymentRepository) ListUnsettled(ctx context.Context, limit int) ([]*paymentpkg.Payment, error) {
	final := []string{
		string(paymentgateway.TransferStatusSuccess),
		string(paymentgateway.TransferStatusFailed),
		string(paymentgateway.TransferStatusReversed),
		string(paymentgateway.TransferStatusAbandoned),
		string(paymentgateway.TransferStatusRejected),
	}

	var models []*paymentDatamodel.InstrumentalistPayment
	err := r.db.WithContext(ctx).
		Where("status = ? AND payout_method = ?", paymentpkg.StatusPaid, paymentpkg.MethodGatewayTransfer).
		Where("transfer_reference IS NOT NULL").
		Where("(gateway_status IS NULL OR gateway_status NOT IN ?)", final).
		Order("paid_at ASC, id ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return paymentpkg.FromDataModelSlice(models), nil
}

func (r *PaymentRepository) transitionError(ctx context.Context, id int64, next string) error {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return errors.NewStateTransitionError(current.Status, next)
}

func transitionColumns(f paymentpkg.TransitionFields) map[string]interface{} {
	updates := map[string]interface{}{}
	set := func(column string, v *string) {
		if v != nil {
			updates[column] = *v
		}
	}
	setTime := func(column string, v *time.Time) {
		if v != nil {
			updates[column] = *v
		}
	}

	set("approved_by", f.ApprovedBy)
	setTime("approved_at", f.ApprovedAt)
	set("paid_by", f.PaidBy)
	setTime("paid_at", f.PaidAt)
	set("cancelled_by", f.CancelledBy)
	setTime("cancelled_at", f.CancelledAt)
	set("payout_method", f.PayoutMethod)
	set("reference_number", f.ReferenceNumber)
	set("transfer_code", f.TransferCode)
	set("transfer_id", f.TransferID)
	set("transfer_reference", f.TransferReference)
	set("gateway_status", f.GatewayStatus)
	set("recipient_code_used", f.RecipientCodeUsed)
	set("failure_reason", f.FailureReason)
	if f.Notes != nil {
		updates["notes"] = gorm.Expr("CASE WHEN notes IS NULL OR notes = '' THEN ? ELSE notes || ? END", *f.Notes, "\n"+*f.Notes)
	}

	if f.ClearFailure {
		updates["failure_reason"] = nil
		updates["gateway_status"] = nil
	}
	if f.ClearGatewayAudit {
		for _, column := range gatewayAuditColumns {
			if _, ok := updates[column]; !ok {
				updates[column] = nil
			}
		}
	}
	if f.IncrementAttempts {
		updates["attempts"] = gorm.Expr("attempts + 1")
	}
	return updates
}

var gatewayAuditColumns = []string{
	"transfer_code",
	"transfer_id",
	"transfer_reference",
	"gateway_status",
	"recipient_code_used",
}

func duplicatePayment() error {
	return errors.NewConflictError("an open payment already exists for this instrumentalist and service", errors.ErrCodeDuplicatePayment)
}

func isUniqueViolation(err error) bool {
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return stderrors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
