package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type ReservationLineRequest struct {
	AttractionID uuid.UUID `json:"attractionId" validate:"required"`
	Quantity     int       `json:"quantity"     validate:"required,min=1"`
}

// ReservationRequest is used for both create and full-replacement update.
type ReservationRequest struct {
	ClientID      uuid.UUID                `json:"clientId"      validate:"required"`
	StartDate     Date                     `json:"startDate"     validate:"required"`
	EndDate       Date                     `json:"endDate"       validate:"required"`
	TotalPrice    decimal.Decimal          `json:"totalPrice"    validate:"min=0"`
	Notes         *string                  `json:"notes"         validate:"omitempty,max=2000"`
	Status        string                   `json:"status"        validate:"omitempty,oneof=pending in_progress completed cancelled"`
	AssignedUsers []uuid.UUID              `json:"assignedUsers"`
	Attractions   []ReservationLineRequest `json:"attractions"   validate:"dive"`
}

type ReservationStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending in_progress completed cancelled"`
}

type AvailabilityRequest struct {
	AttractionID uuid.UUID `json:"attractionId" validate:"required"`
	StartDate    Date      `json:"startDate"    validate:"required"`
	EndDate      Date      `json:"endDate"      validate:"required"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ReservationLineResponse struct {
	ID           uuid.UUID           `json:"id"`
	AttractionID uuid.UUID           `json:"attractionId"`
	Quantity     int                 `json:"quantity"`
	Attraction   *AttractionResponse `json:"attraction,omitempty"`
}

type UserSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}

type ReservationResponse struct {
	ID            uuid.UUID                 `json:"id"`
	Code          string                    `json:"code"`
	ClientID      uuid.UUID                 `json:"clientId"`
	StartDate     time.Time                 `json:"startDate"`
	EndDate       time.Time                 `json:"endDate"`
	Status        string                    `json:"status"`
	TotalPrice    decimal.Decimal           `json:"totalPrice"`
	Notes         *string                   `json:"notes"`
	CancelledAt   *time.Time                `json:"cancelledAt,omitempty"`
	CancelledByID *uuid.UUID                `json:"cancelledById,omitempty"`
	CreatedAt     time.Time                 `json:"createdAt"`
	UpdatedAt     time.Time                 `json:"updatedAt"`
	Client        *ClientResponse           `json:"client,omitempty"`
	Attractions   []ReservationLineResponse `json:"attractions"`
	AssignedUsers []UserSummary             `json:"assignedUsers"`
	Invoices      []InvoiceSummary          `json:"invoices"`
}

type CancelReservationResponse struct {
	Success     bool                `json:"success"`
	Reservation ReservationResponse `json:"reservation"`
}

type CalendarClient struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type CalendarEntry struct {
	ID        uuid.UUID      `json:"id"`
	StartDate time.Time      `json:"startDate"`
	EndDate   time.Time      `json:"endDate"`
	Status    string         `json:"status"`
	Client    CalendarClient `json:"client"`
}

type AvailabilityResponse struct {
	Available bool `json:"available"`
}
