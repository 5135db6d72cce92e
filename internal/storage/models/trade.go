// internal/storage/models/trade.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type TradeRecord struct {
	BaseModel
	MarketID    uuid.UUID `gorm:"type:uuid;index;not null"`
	Trader      string    `gorm:"index;not null;type:varchar(44)"`
	Side        string    `gorm:"not null;type:varchar(4)"`
	Outcome     int16     `gorm:"not null"`
	Amount      uint64    `gorm:"not null"`
	Value       uint64    `gorm:"not null"`
	NewSupply   uint64    `gorm:"not null"`
	SlippageBps uint16    `gorm:"not null"`
	ExecutedAt  time.Time `gorm:"index;not null"`
}
