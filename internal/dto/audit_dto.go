package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditFilter is bound from the query string of GET /v1/audit-logs.
type AuditFilter struct {
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
	Action string `form:"action"`
	Target string `form:"target"`
}

type AuditLogResponse struct {
	ID        uuid.UUID       `json:"id"`
	UserID    *uuid.UUID      `json:"userId"`
	Action    string          `json:"action"`
	Target    *string         `json:"target"`
	Details   json.RawMessage `json:"details,omitempty"`
	IP        *string         `json:"ip"`
	CreatedAt time.Time       `json:"createdAt"`
}

type AuditListResponse struct {
	Data       []AuditLogResponse `json:"data"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalPages int                `json:"totalPages"`
}
