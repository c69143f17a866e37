package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reservation status values.
const (
	ReservationPending    = "pending"
	ReservationInProgress = "in_progress"
	ReservationCompleted  = "completed"
	ReservationCancelled  = "cancelled"
)

// Reservation books one or more attractions for a client over an inclusive
// date range. Code is minted once (REZ-<year>-<NNNN>) and never rewritten.
type Reservation struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Code       string          `gorm:"type:varchar(32);uniqueIndex;not null"`
	ClientID   uuid.UUID       `gorm:"type:uuid;index;not null"`
	StartDate  time.Time       `gorm:"not null;index"`
	EndDate    time.Time       `gorm:"not null;index"`
	Status     string          `gorm:"type:varchar(20);not null;default:'pending'"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Notes      *string
	// Cancellation metadata is only set while Status = "cancelled"
	CancelledAt   *time.Time
	CancelledByID *uuid.UUID `gorm:"type:uuid"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Client        *Client           `gorm:"foreignKey:ClientID"`
	CancelledBy   *User             `gorm:"foreignKey:CancelledByID"`
	Items         []ReservationItem `gorm:"foreignKey:ReservationID;constraint:OnDelete:CASCADE"`
	AssignedUsers []User            `gorm:"many2many:reservation_users"`
	Invoices      []Invoice         `gorm:"foreignKey:ReservationID"`
}

// ReservationItem is one (attraction, quantity) line. Lines are never patched
// individually: an update deletes and re-inserts the whole set.
type ReservationItem struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ReservationID uuid.UUID `gorm:"type:uuid;index;not null"`
	AttractionID  uuid.UUID `gorm:"type:uuid;index;not null"`
	Quantity      int       `gorm:"not null;default:1"`

	Attraction *Attraction `gorm:"foreignKey:AttractionID"`
}
