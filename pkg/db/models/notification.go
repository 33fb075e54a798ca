package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification stores payment update payloads delivered to buyers.
type Notification struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null"`
	OrderID   uuid.UUID  `gorm:"type:uuid;not null"`
	Title     string     `gorm:"type:text;not null"`
	Message   string     `gorm:"type:text;not null"`
	ReadAt    *time.Time `gorm:"type:timestamptz"`
	CreatedAt time.Time  `gorm:"type:timestamptz;autoCreateTime"`
}
