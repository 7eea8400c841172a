package serviceevent

import (
	"context"
	"time"

	serviceEventDatamodel "github.com/frahmantamala/instrumentalist-payouts/internal/core/datamodel/serviceevent"
)

type ServiceEvent struct {
	ID          int64     `json:"id"`
	ServiceDate time.Time `json:"service_date"`
	ServiceType string    `json:"service_type"`
	Title       string    `json:"title,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Repository interface {
	GetByID(ctx context.Context, id int64) (*ServiceEvent, error)
	Exists(ctx context.Context, id int64) (bool, error)
	Create(ctx context.Context, e *ServiceEvent) error
	// ListRecent returns events newest service date first.
	ListRecent(ctx context.Context, limit int) ([]*ServiceEvent, error)
}

func FromDataModel(e *serviceEventDatamodel.ServiceEvent) *ServiceEvent {
	return &ServiceEvent{
		ID:          e.ID,
		ServiceDate: e.ServiceDate,
		ServiceType: e.ServiceType,
		Title:       e.Title,
		CreatedAt:   e.CreatedAt,
	}
}

func ToDataModel(e *ServiceEvent) *serviceEventDatamodel.ServiceEvent {
	return &serviceEventDatamodel.ServiceEvent{
		ID:          e.ID,
		ServiceDate: e.ServiceDate,
		ServiceType: e.ServiceType,
		Title:       e.Title,
		CreatedAt:   e.CreatedAt,
	}
}
