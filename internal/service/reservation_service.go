package service

import (
	"context"
	"fmt"
	"time"

	"rentalhub/internal/apierror"
	"rentalhub/internal/dto"
	"rentalhub/internal/events"
	"rentalhub/internal/model"
	"rentalhub/internal/numbering"
	"rentalhub/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ReservationPolicy switches between the historically observed behavior
// (all false) and stricter rules.
type ReservationPolicy struct {
	// EnforceAvailability rejects a create with 409 when any requested
	// attraction is already booked on an overlapping day.
	EnforceAvailability bool
	// IgnoreCancelled leaves cancelled reservations out of the overlap check.
	IgnoreCancelled bool
	// StrictTransitions rejects status changes outside the lifecycle table.
	StrictTransitions bool
}

type ReservationService interface {
	Create(ctx context.Context, actor Actor, req dto.ReservationRequest) (*dto.ReservationResponse, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, req dto.ReservationRequest) (*dto.ReservationResponse, error)
	Cancel(ctx context.Context, actor Actor, id uuid.UUID) (*dto.ReservationResponse, error)
	SetStatus(ctx context.Context, actor Actor, id uuid.UUID, status string) (*dto.ReservationResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.ReservationResponse, error)
	List(ctx context.Context) ([]dto.ReservationResponse, error)
	Calendar(ctx context.Context) ([]dto.CalendarEntry, error)
	CheckAvailability(ctx context.Context, attractionID uuid.UUID, start, end time.Time) (bool, error)
}

type reservationService struct {
	repo        repository.ReservationRepository
	clients     repository.ClientRepository
	attractions repository.AttractionRepository
	users       repository.UserRepository
	numbers     *numbering.Generator
	collab      Collaborators
	policy      ReservationPolicy
	now         func() time.Time
}

func NewReservationService(
	repo repository.ReservationRepository,
	clients repository.ClientRepository,
	attractions repository.AttractionRepository,
	users repository.UserRepository,
	numbers *numbering.Generator,
	collab Collaborators,
	policy ReservationPolicy,
) ReservationService {
	return &reservationService{
		repo:        repo,
		clients:     clients,
		attractions: attractions,
		users:       users,
		numbers:     numbers,
		collab:      collab,
		policy:      policy,
		now:         time.Now,
	}
}

// ── Status lifecycle ─────────────────────────────────────────────────────────

var forwardTransitions = map[string]string{
	model.ReservationPending:    model.ReservationInProgress,
	model.ReservationInProgress: model.ReservationCompleted,
}

// CanTransition reports whether a reservation may move from one status to
// another: pending -> in_progress -> completed, anything -> cancelled, and
// staying put.
func CanTransition(from, to string) bool {
	if from == to || to == model.ReservationCancelled {
		return true
	}
	return forwardTransitions[from] == to
}

func (s *reservationService) checkTransition(from, to string) error {
	if s.policy.StrictTransitions && !CanTransition(from, to) {
		return apierror.Conflict(fmt.Sprintf("status cannot change from %s to %s", from, to))
	}
	return nil
}

// ── Create ───────────────────────────────────────────────────────────────────

func (s *reservationService) Create(ctx context.Context, actor Actor, req dto.ReservationRequest) (*dto.ReservationResponse, error) {
	client, userIDs, err := s.validate(ctx, req)
	if err != nil {
		return nil, err
	}
	status := req.Status
	if status == "" {
		status = model.ReservationPending
	}

	if s.policy.EnforceAvailability {
		for _, line := range req.Attractions {
			free, err := s.CheckAvailability(ctx, line.AttractionID, req.StartDate.Time, req.EndDate.Time)
			if err != nil {
				return nil, err
			}
			if !free {
				return nil, apierror.Conflict(fmt.Sprintf("attraction %s is already booked in that period", line.AttractionID))
			}
		}
	}

	res := model.Reservation{
		ClientID:   req.ClientID,
		StartDate:  req.StartDate.Time,
		EndDate:    req.EndDate.Time,
		Status:     status,
		TotalPrice: req.TotalPrice,
		Notes:      req.Notes,
	}
	if status == model.ReservationCancelled {
		s.stampCancellation(&res, actor)
	}
	for _, line := range req.Attractions {
		res.Items = append(res.Items, model.ReservationItem{AttractionID: line.AttractionID, Quantity: line.Quantity})
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		code, err := s.numbers.Next(ctx, tx, numbering.KindReservation)
		if err != nil {
			return apierror.Storage("mint reservation code", err)
		}
		res.Code = code
		if err := s.repo.Create(ctx, tx, &res); err != nil {
			return err
		}
		return s.repo.ReplaceAssignedUsers(ctx, tx, res.ID, userIDs)
	})
	if txErr != nil {
		return nil, writeErr(txErr, "reservation")
	}

	resp, err := s.Get(ctx, res.ID)
	if err != nil {
		return nil, err
	}

	s.collab.record(ctx, actor, "reservation.create", res.Code, map[string]interface{}{
		"id": res.ID, "clientId": res.ClientID, "lines": len(res.Items),
	})
	s.collab.publish(ctx, events.ReservationCreated, res.Code, resp)
	if client.Email != nil && *client.Email != "" && s.collab.Dispatcher != nil {
		if err := s.collab.Dispatcher.EnqueueReservationConfirmation(ctx, res.ID); err != nil {
			log.Warn().Err(err).Str("code", res.Code).Msg("reservation: confirmation email not queued")
		}
	}
	return resp, nil
}

// ── Update ───────────────────────────────────────────────────────────────────

// Update replaces every mutable field, the assigned staff and the line items
// in one transaction. The code is kept.
func (s *reservationService) Update(ctx context.Context, actor Actor, id uuid.UUID, req dto.ReservationRequest) (*dto.ReservationResponse, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "reservation")
	}
	if _, _, err := s.validate(ctx, req); err != nil {
		return nil, err
	}
	userIDs := uniqueIDs(req.AssignedUsers)

	status := req.Status
	if status == "" {
		status = current.Status
	}
	if err := s.checkTransition(current.Status, status); err != nil {
		return nil, err
	}

	next := model.Reservation{
		ID:            current.ID,
		ClientID:      req.ClientID,
		StartDate:     req.StartDate.Time,
		EndDate:       req.EndDate.Time,
		Status:        status,
		TotalPrice:    req.TotalPrice,
		Notes:         req.Notes,
		CancelledAt:   current.CancelledAt,
		CancelledByID: current.CancelledByID,
	}
	switch {
	case status != model.ReservationCancelled:
		next.CancelledAt, next.CancelledByID = nil, nil
	case current.Status != model.ReservationCancelled:
		s.stampCancellation(&next, actor)
	}
	items := make([]model.ReservationItem, 0, len(req.Attractions))
	for _, line := range req.Attractions {
		items = append(items, model.ReservationItem{AttractionID: line.AttractionID, Quantity: line.Quantity})
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.Update(ctx, tx, &next); err != nil {
			return err
		}
		if err := s.repo.ReplaceAssignedUsers(ctx, tx, id, userIDs); err != nil {
			return err
		}
		return s.repo.ReplaceItems(ctx, tx, id, items)
	})
	if txErr != nil {
		return nil, writeErr(txErr, "reservation")
	}

	resp, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.collab.record(ctx, actor, "reservation.update", current.Code, map[string]interface{}{
		"before": reservationToResponse(current), "after": resp,
	})
	s.collab.publish(ctx, events.ReservationUpdated, current.Code, resp)
	return resp, nil
}

// ── Cancel / status ──────────────────────────────────────────────────────────

// Cancel stamps the cancellation with the acting user. Cancelling again
// overwrites the timestamp.
func (s *reservationService) Cancel(ctx context.Context, actor Actor, id uuid.UUID) (*dto.ReservationResponse, error) {
	if actor.ID == uuid.Nil {
		return nil, apierror.Unauthorized("authentication required")
	}
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "reservation")
	}
	if err := s.repo.MarkCancelled(ctx, id, actor.ID, s.now()); err != nil {
		return nil, apierror.Storage("cancel reservation", err)
	}

	resp, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.collab.record(ctx, actor, "reservation.cancel", current.Code, map[string]interface{}{
		"id": id, "previousStatus": current.Status,
	})
	s.collab.publish(ctx, events.ReservationCancelled, current.Code, resp)
	return resp, nil
}

func (s *reservationService) SetStatus(ctx context.Context, actor Actor, id uuid.UUID, status string) (*dto.ReservationResponse, error) {
	if !validStatus(status) {
		return nil, apierror.Validation("invalid status " + status)
	}
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "reservation")
	}
	if err := s.checkTransition(current.Status, status); err != nil {
		return nil, err
	}

	if status == model.ReservationCancelled {
		if actor.ID == uuid.Nil {
			return nil, apierror.Unauthorized("authentication required")
		}
		err = s.repo.MarkCancelled(ctx, id, actor.ID, s.now())
	} else {
		err = s.repo.UpdateStatus(ctx, id, status)
	}
	if err != nil {
		return nil, apierror.Storage("update reservation status", err)
	}

	resp, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.collab.record(ctx, actor, "reservation.status", current.Code, map[string]string{
		"from": current.Status, "to": status,
	})
	s.collab.publish(ctx, events.ReservationStatusChanged, current.Code, resp)
	return resp, nil
}

// ── Reads ────────────────────────────────────────────────────────────────────

func (s *reservationService) Get(ctx context.Context, id uuid.UUID) (*dto.ReservationResponse, error) {
	res, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "reservation")
	}
	return reservationToResponse(res), nil
}

func (s *reservationService) List(ctx context.Context) ([]dto.ReservationResponse, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, apierror.Storage("list reservations", err)
	}
	out := make([]dto.ReservationResponse, 0, len(list))
	for i := range list {
		out = append(out, *reservationToResponse(&list[i]))
	}
	return out, nil
}

func (s *reservationService) Calendar(ctx context.Context) ([]dto.CalendarEntry, error) {
	list, err := s.repo.ListCalendar(ctx)
	if err != nil {
		return nil, apierror.Storage("load calendar", err)
	}
	out := make([]dto.CalendarEntry, 0, len(list))
	for i := range list {
		out = append(out, calendarEntry(&list[i]))
	}
	return out, nil
}

// CheckAvailability is true when no reservation holds attractionID on any
// day of [start, end].
func (s *reservationService) CheckAvailability(ctx context.Context, attractionID uuid.UUID, start, end time.Time) (bool, error) {
	if start.After(end) {
		return false, apierror.Validation("startDate must not be after endDate")
	}
	n, err := s.repo.CountOverlapping(ctx, attractionID, start, end, !s.policy.IgnoreCancelled)
	if err != nil {
		return false, apierror.Storage("check availability", err)
	}
	return n == 0, nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

// validate checks the request against the store: the date range, the
// client, every attraction and every assigned user must exist.
func (s *reservationService) validate(ctx context.Context, req dto.ReservationRequest) (*model.Client, []uuid.UUID, error) {
	if req.StartDate.After(req.EndDate.Time) {
		return nil, nil, apierror.Validation("startDate must not be after endDate")
	}
	if req.Status != "" && !validStatus(req.Status) {
		return nil, nil, apierror.Validation("invalid status " + req.Status)
	}
	for _, line := range req.Attractions {
		if line.Quantity < 1 {
			return nil, nil, apierror.Validation("attraction quantity must be at least 1")
		}
	}

	client, err := s.clients.FindByID(ctx, req.ClientID)
	if err != nil {
		return nil, nil, lookupErr(err, "client")
	}

	attractionIDs := make([]uuid.UUID, 0, len(req.Attractions))
	for _, line := range req.Attractions {
		attractionIDs = append(attractionIDs, line.AttractionID)
	}
	attractionIDs = uniqueIDs(attractionIDs)
	found, err := s.attractions.FindByIDs(ctx, attractionIDs)
	if err != nil {
		return nil, nil, apierror.Storage("load attractions", err)
	}
	if len(found) != len(attractionIDs) {
		return nil, nil, apierror.NotFound("attraction not found")
	}

	userIDs := uniqueIDs(req.AssignedUsers)
	users, err := s.users.FindByIDs(ctx, userIDs)
	if err != nil {
		return nil, nil, apierror.Storage("load assigned users", err)
	}
	if len(users) != len(userIDs) {
		return nil, nil, apierror.NotFound("assigned user not found")
	}
	return client, userIDs, nil
}

func (s *reservationService) stampCancellation(r *model.Reservation, actor Actor) {
	at := s.now()
	r.CancelledAt = &at
	if actor.ID != uuid.Nil {
		by := actor.ID
		r.CancelledByID = &by
	}
}

func validStatus(status string) bool {
	switch status {
	case model.ReservationPending, model.ReservationInProgress,
		model.ReservationCompleted, model.ReservationCancelled:
		return true
	}
	return false
}
