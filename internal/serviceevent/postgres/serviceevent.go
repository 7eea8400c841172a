package postgres

import (
	"context"
	stderrors "errors"

	errors "github.com/frahmantamala/instrumentalist-payouts/internal"
	serviceEventDatamodel "github.com/frahmantamala/instrumentalist-payouts/internal/core/datamodel/serviceevent"
	"github.com/frahmantamala/instrumentalist-payouts/internal/serviceevent"
	"gorm.io/gorm"
)

type ServiceEventRepository struct {
	db *gorm.DB
}

func NewServiceEventRepository(db *gorm.DB) *ServiceEventRepository {
	return &ServiceEventRepository{db: db}
}

func (r *ServiceEventRepository) GetByID(ctx context.Context, id int64) (*serviceevent.ServiceEvent, error) {
	var model serviceEventDatamodel.ServiceEvent
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NewNotFoundError("Service event not found", errors.ErrCodeServiceEventNotFound)
		}
		return nil, err
	}
	return serviceevent.FromDataModel(&model), nil
}

func (r *ServiceEventRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&serviceEventDatamodel.ServiceEvent{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *ServiceEventRepository) Create(ctx context.Context, e *serviceevent.ServiceEvent) error {
	model := serviceevent.ToDataModel(e)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	e.ID = model.ID
	e.CreatedAt = model.CreatedAt
	return nil
}

func (r *ServiceEventRepository) ListRecent(ctx context.Context, limit int) ([]*serviceevent.ServiceEvent, error) {
	var models []*serviceEventDatamodel.ServiceEvent
	if err := r.db.WithContext(ctx).
		Order("service_date DESC, id DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}

	result := make([]*serviceevent.ServiceEvent, 0, len(models))
	for _, m := range models {
		result = append(result, serviceevent.FromDataModel(m))
	}
	return result, nil
}
