package postgres

import (
	"context"
	stderrors "errors"
	"time"

	errors "github.com/frahmantamala/instrumentalist-payouts/internal"
	instrumentalistDatamodel "github.com/frahmantamala/instrumentalist-payouts/internal/core/datamodel/instrumentalist"
	"github.com/frahmantamala/instrumentalist-payouts/internal/instrumentalist"
	"gorm.io/gorm"
)

type InstrumentalistRepository struct {
	db *gorm.DB
}

func NewInstrumentalistRepository(db *gorm.DB) *InstrumentalistRepository {
	return &InstrumentalistRepository{db: db}
}

func (r *InstrumentalistRepository) GetByID(ctx context.Context, id int64) (*instrumentalist.Instrumentalist, error) {
	var model instrumentalistDatamodel.Instrumentalist
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NewNotFoundError("Instrumentalist not found", errors.ErrCodeInstrumentalistNotFound)
		}
		return nil, err
	}
	return instrumentalist.FromDataModel(&model), nil
}

func (r *InstrumentalistRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&instrumentalistDatamodel.Instrumentalist{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *InstrumentalistRepository) SetRecipientCode(ctx context.Context, id int64, code string) error {
	result := r.db.WithContext(ctx).Model(&instrumentalistDatamodel.Instrumentalist{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"recipient_code":          code,
			"recipient_registered_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError("Instrumentalist not found", errors.ErrCodeInstrumentalistNotFound)
	}
	return nil
}

func (r *InstrumentalistRepository) Create(ctx context.Context, i *instrumentalist.Instrumentalist) error {
	model := instrumentalist.ToDataModel(i)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	i.ID = model.ID
	i.CreatedAt = model.CreatedAt
	i.UpdatedAt = model.UpdatedAt
	return nil
}
