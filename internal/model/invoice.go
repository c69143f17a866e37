package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice status values.
const (
	InvoicePaid   = "paid"
	InvoiceUnpaid = "unpaid"
)

// Invoice is a billing document tied to a reservation.
// IsCompanyInvoice selects the FV series (formal VAT invoice), otherwise the
// PR series (simplified receipt). Reservation and Client are weak references.
type Invoice struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Number           string          `gorm:"type:varchar(32);uniqueIndex;not null"`
	ReservationID    uuid.UUID       `gorm:"type:uuid;index;not null"`
	ClientID         uuid.UUID       `gorm:"type:uuid;index;not null"`
	IssueDate        time.Time       `gorm:"not null;index"`
	DueDate          time.Time       `gorm:"not null"`
	Amount           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Status           string          `gorm:"type:varchar(20);not null;default:'unpaid'"`
	IsCompanyInvoice bool            `gorm:"not null;default:false"`
	CompanyName      *string
	TaxID            *string `gorm:"type:varchar(32);column:tax_id"`
	// PDFURL points at the generated document, relative to the API root
	PDFURL    *string `gorm:"column:pdf_url"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Reservation *Reservation `gorm:"foreignKey:ReservationID"`
	Client      *Client      `gorm:"foreignKey:ClientID"`
}
