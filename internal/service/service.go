package service

import (
	"context"
	"errors"

	"rentalhub/internal/apierror"
	"rentalhub/internal/events"
	"rentalhub/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Actor is the authenticated caller of a mutating operation.
type Actor struct {
	ID    uuid.UUID
	Email string
	Role  string
	IP    string
}

// JobDispatcher enqueues background work. Implemented by *worker.Dispatcher.
type JobDispatcher interface {
	EnqueueReservationConfirmation(ctx context.Context, reservationID uuid.UUID) error
	EnqueueInvoicePDF(ctx context.Context, invoiceID uuid.UUID) error
}

// Collaborators are the optional side-effect sinks of the domain services.
// Any of them may be nil.
type Collaborators struct {
	Audit      AuditService
	Dispatcher JobDispatcher
	Publisher  events.Publisher
}

func (c Collaborators) record(ctx context.Context, actor Actor, action, target string, details interface{}) {
	if c.Audit == nil {
		return
	}
	entry := AuditEntry{Action: action, Target: target, Details: details, IP: actor.IP}
	if actor.ID != uuid.Nil {
		uid := actor.ID
		entry.UserID = &uid
	}
	c.Audit.Record(ctx, entry)
}

func (c Collaborators) publish(ctx context.Context, eventType, key string, payload interface{}) {
	if c.Publisher == nil {
		return
	}
	if err := c.Publisher.Publish(ctx, events.New(eventType, key, payload)); err != nil {
		log.Warn().Err(err).Str("event", eventType).Str("key", key).Msg("event publish failed")
	}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// lookupErr turns a repository read error into NotFound or Storage.
func lookupErr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierror.NotFound(what + " not found")
	}
	return apierror.Storage("load "+what, err)
}

// writeErr turns a repository write error into Conflict or Storage.
// Errors that are already typed pass through untouched.
func writeErr(err error, what string) error {
	var typed *apierror.Error
	if errors.As(err, &typed) {
		return err
	}
	if repository.IsUniqueViolation(err) {
		return apierror.Conflict(what + " conflicts with an existing record")
	}
	return apierror.Storage("save "+what, err)
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
