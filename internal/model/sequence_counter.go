package model

import "time"

// SequenceCounter holds the last number issued in one numbering partition,
// e.g. Kind="company_invoice", Period="2025/06".
type SequenceCounter struct {
	Kind      string `gorm:"type:varchar(32);primaryKey"`
	Period    string `gorm:"type:varchar(16);primaryKey"`
	LastValue int64  `gorm:"not null;default:0"`
	UpdatedAt time.Time
}
