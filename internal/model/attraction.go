package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Attraction is a rentable item (inflatable castle, slide...).
// Dimensions are in metres.
type Attraction struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name        string    `gorm:"index;not null"`
	Description *string
	Width       decimal.Decimal `gorm:"type:decimal(6,2);not null;default:0"`
	Length      decimal.Decimal `gorm:"type:decimal(6,2);not null;default:0"`
	Height      decimal.Decimal `gorm:"type:decimal(6,2);not null;default:0"`
	DailyPrice  decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Active      bool            `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
