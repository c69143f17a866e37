package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// CreateInvoiceRequest uses pointers for the required fields so that an
// absent value can be told apart from a zero one.
type CreateInvoiceRequest struct {
	ReservationID    *uuid.UUID       `json:"reservationId"    validate:"required"`
	IssueDate        *Date            `json:"issueDate"        validate:"required"`
	DueDate          *Date            `json:"dueDate"          validate:"required"`
	Amount           *decimal.Decimal `json:"amount"           validate:"required,min=0"`
	Status           string           `json:"status"           validate:"required,oneof=paid unpaid"`
	IsCompanyInvoice bool             `json:"isCompanyInvoice"`
	PDFURL           *string          `json:"pdfUrl"           validate:"omitempty,max=500"`
	CompanyName      *string          `json:"companyName"      validate:"omitempty,max=200"`
	TaxID            *string          `json:"taxId"            validate:"omitempty,max=32"`
	ClientID         *uuid.UUID       `json:"clientId"`
}

// UpdateInvoiceRequest is a partial patch: nil fields are left untouched.
type UpdateInvoiceRequest struct {
	ReservationID    *uuid.UUID       `json:"reservationId"`
	ClientID         *uuid.UUID       `json:"clientId"`
	IssueDate        *Date            `json:"issueDate"`
	DueDate          *Date            `json:"dueDate"`
	Amount           *decimal.Decimal `json:"amount"           validate:"omitempty,min=0"`
	Status           *string          `json:"status"           validate:"omitempty,oneof=paid unpaid"`
	IsCompanyInvoice *bool            `json:"isCompanyInvoice"`
	PDFURL           *string          `json:"pdfUrl"           validate:"omitempty,max=500"`
	CompanyName      *string          `json:"companyName"      validate:"omitempty,max=200"`
	TaxID            *string          `json:"taxId"            validate:"omitempty,max=32"`
}

// InvoiceFilter is bound from the query string of GET /v1/invoices.
type InvoiceFilter struct {
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
	Search string `form:"search"`
	Status string `form:"status"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type InvoiceReservation struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Status    string    `json:"status"`
}

// InvoiceSummary is embedded in reservation responses.
type InvoiceSummary struct {
	ID        uuid.UUID       `json:"id"`
	Number    string          `json:"number"`
	IssueDate time.Time       `json:"issueDate"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
}

type InvoiceResponse struct {
	ID               uuid.UUID           `json:"id"`
	Number           string              `json:"number"`
	ReservationID    uuid.UUID           `json:"reservationId"`
	ClientID         uuid.UUID           `json:"clientId"`
	IssueDate        time.Time           `json:"issueDate"`
	DueDate          time.Time           `json:"dueDate"`
	Amount           decimal.Decimal     `json:"amount"`
	Status           string              `json:"status"`
	IsCompanyInvoice bool                `json:"isCompanyInvoice"`
	CompanyName      *string             `json:"companyName"`
	TaxID            *string             `json:"taxId"`
	PDFURL           *string             `json:"pdfUrl"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
	Reservation      *InvoiceReservation `json:"reservation,omitempty"`
	Client           *ClientResponse     `json:"client,omitempty"`
}

type InvoiceListResponse struct {
	Data       []InvoiceResponse `json:"data"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"totalPages"`
}
