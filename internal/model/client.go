package model

import (
	"time"

	"github.com/google/uuid"
)

// Client is a customer renting attractions. CompanyName/TaxID are used as
// billing defaults for company invoices.
type Client struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FirstName   string    `gorm:"not null"`
	LastName    string    `gorm:"index;not null"`
	Email       *string   `gorm:"index"`
	Phone       *string
	CompanyName *string
	TaxID       *string `gorm:"type:varchar(32);column:tax_id"`
	Address     *string
	Notes       *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FullName returns "First Last".
func (c *Client) FullName() string { return c.FirstName + " " + c.LastName }
