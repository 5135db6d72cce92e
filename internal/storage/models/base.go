// internal/storage/models/base.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel заменяет gorm.Model для большего контроля
type BaseModel struct {
	ID        uint64         `gorm:"primarykey"`
	CreatedAt time.Time      `gorm:"default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time      `gorm:"default:CURRENT_TIMESTAMP"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}
