package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog is an append-only record of an administrative action.
// Large Details payloads are stored zstd-compressed in DetailsCompressed.
type AuditLog struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID            *uuid.UUID `gorm:"type:uuid;index"`
	Action            string     `gorm:"type:varchar(64);not null;index"`
	Target            *string    `gorm:"type:varchar(128)"`
	Details           []byte     `gorm:"type:jsonb"`
	DetailsCompressed []byte     `gorm:"type:bytea"`
	IP                *string    `gorm:"type:varchar(64);column:ip"`
	CreatedAt         time.Time
}
