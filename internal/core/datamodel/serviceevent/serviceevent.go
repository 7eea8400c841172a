package serviceevent

import "time"

type ServiceEvent struct {
	ID          int64     `gorm:"primaryKey"`
	ServiceDate time.Time `gorm:"column:service_date;type:date;not null"`
	ServiceType string    `gorm:"column:service_type;not null"`
	Title       string    `gorm:"column:title"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (ServiceEvent) TableName() string {
	return "service_events"
}
