package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ─── Clients ─────────────────────────────────────────────────────────────────

type ClientRequest struct {
	FirstName   string  `json:"firstName"   validate:"required,min=1,max=100"`
	LastName    string  `json:"lastName"    validate:"required,min=1,max=100"`
	Email       *string `json:"email"       validate:"omitempty,email"`
	Phone       *string `json:"phone"       validate:"omitempty,max=32"`
	CompanyName *string `json:"companyName" validate:"omitempty,max=200"`
	TaxID       *string `json:"taxId"       validate:"omitempty,max=32"`
	Address     *string `json:"address"     validate:"omitempty,max=300"`
	Notes       *string `json:"notes"       validate:"omitempty,max=2000"`
}

type ClientResponse struct {
	ID          uuid.UUID `json:"id"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Email       *string   `json:"email"`
	Phone       *string   `json:"phone"`
	CompanyName *string   `json:"companyName"`
	TaxID       *string   `json:"taxId"`
	Address     *string   `json:"address"`
	Notes       *string   `json:"notes"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ─── Attractions ─────────────────────────────────────────────────────────────

type AttractionRequest struct {
	Name        string          `json:"name"        validate:"required,min=1,max=150"`
	Description *string         `json:"description" validate:"omitempty,max=2000"`
	Width       decimal.Decimal `json:"width"       validate:"min=0"`
	Length      decimal.Decimal `json:"length"      validate:"min=0"`
	Height      decimal.Decimal `json:"height"      validate:"min=0"`
	DailyPrice  decimal.Decimal `json:"dailyPrice"  validate:"min=0"`
	Active      *bool           `json:"active"`
}

type AttractionResponse struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Width       decimal.Decimal `json:"width"`
	Length      decimal.Decimal `json:"length"`
	Height      decimal.Decimal `json:"height"`
	DailyPrice  decimal.Decimal `json:"dailyPrice"`
	Active      bool            `json:"active"`
}
