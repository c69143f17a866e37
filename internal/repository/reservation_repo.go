package repository

import (
	"context"
	"time"

	"rentalhub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReservationRepository interface {
	Create(ctx context.Context, tx *gorm.DB, r *model.Reservation) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error)
	List(ctx context.Context) ([]model.Reservation, error)
	ListCalendar(ctx context.Context) ([]model.Reservation, error)
	Update(ctx context.Context, tx *gorm.DB, r *model.Reservation) error
	ReplaceItems(ctx context.Context, tx *gorm.DB, reservationID uuid.UUID, items []model.ReservationItem) error
	ReplaceAssignedUsers(ctx context.Context, tx *gorm.DB, reservationID uuid.UUID, userIDs []uuid.UUID) error
	MarkCancelled(ctx context.Context, id, by uuid.UUID, at time.Time) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	CountOverlapping(ctx context.Context, attractionID uuid.UUID, start, end time.Time, includeCancelled bool) (int64, error)
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type reservationRepo struct{ db *gorm.DB }

func NewReservationRepository(db *gorm.DB) ReservationRepository {
	return &reservationRepo{db: db}
}

func (r *reservationRepo) DB() *gorm.DB { return r.db }

func (r *reservationRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Create inserts the reservation and its line items. Assigned users are
// linked separately because they already exist.
func (r *reservationRepo) Create(ctx context.Context, tx *gorm.DB, res *model.Reservation) error {
	return r.conn(tx).WithContext(ctx).Omit("AssignedUsers", "Client", "CancelledBy", "Invoices").Create(res).Error
}

func (r *reservationRepo) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Client").
		Preload("Items.Attraction").
		Preload("AssignedUsers").
		Preload("Invoices", func(db *gorm.DB) *gorm.DB { return db.Order("issue_date DESC") })
}

func (r *reservationRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	var res model.Reservation
	err := r.preloaded(ctx).First(&res, "id = ?", id).Error
	return &res, err
}

func (r *reservationRepo) List(ctx context.Context) ([]model.Reservation, error) {
	var list []model.Reservation
	err := r.preloaded(ctx).Order("created_at DESC").Find(&list).Error
	return list, err
}

func (r *reservationRepo) ListCalendar(ctx context.Context) ([]model.Reservation, error) {
	var list []model.Reservation
	err := r.db.WithContext(ctx).
		Select("id", "client_id", "start_date", "end_date", "status").
		Preload("Client", func(db *gorm.DB) *gorm.DB { return db.Select("id", "first_name", "last_name") }).
		Order("start_date ASC").
		Find(&list).Error
	return list, err
}

// Update writes the replaceable fields. Code is never touched.
func (r *reservationRepo) Update(ctx context.Context, tx *gorm.DB, res *model.Reservation) error {
	return r.conn(tx).WithContext(ctx).Model(&model.Reservation{}).
		Where("id = ?", res.ID).
		Updates(map[string]interface{}{
			"client_id":       res.ClientID,
			"start_date":      res.StartDate,
			"end_date":        res.EndDate,
			"status":          res.Status,
			"total_price":     res.TotalPrice,
			"notes":           res.Notes,
			"cancelled_at":    res.CancelledAt,
			"cancelled_by_id": res.CancelledByID,
			"updated_at":      time.Now(),
		}).Error
}

func (r *reservationRepo) ReplaceItems(ctx context.Context, tx *gorm.DB, reservationID uuid.UUID, items []model.ReservationItem) error {
	db := r.conn(tx).WithContext(ctx)
	if err := db.Where("reservation_id = ?", reservationID).Delete(&model.ReservationItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].ReservationID = reservationID
	}
	return db.Omit("Attraction").Create(&items).Error
}

func (r *reservationRepo) ReplaceAssignedUsers(ctx context.Context, tx *gorm.DB, reservationID uuid.UUID, userIDs []uuid.UUID) error {
	db := r.conn(tx).WithContext(ctx)
	if err := db.Exec("DELETE FROM reservation_users WHERE reservation_id = ?", reservationID).Error; err != nil {
		return err
	}
	for _, uid := range userIDs {
		err := db.Exec(
			"INSERT INTO reservation_users (reservation_id, user_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
			reservationID, uid,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *reservationRepo) MarkCancelled(ctx context.Context, id, by uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Reservation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          model.ReservationCancelled,
			"cancelled_at":    at,
			"cancelled_by_id": by,
			"updated_at":      time.Now(),
		}).Error
}

// UpdateStatus moves a reservation to a non-cancelled status and drops any
// stale cancellation metadata. Cancelling goes through MarkCancelled.
func (r *reservationRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return r.db.WithContext(ctx).Model(&model.Reservation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          status,
			"cancelled_at":    nil,
			"cancelled_by_id": nil,
			"updated_at":      time.Now(),
		}).Error
}

// CountOverlapping counts reservations holding attractionID on any day of
// [start, end]. Both ends are inclusive.
func (r *reservationRepo) CountOverlapping(ctx context.Context, attractionID uuid.UUID, start, end time.Time, includeCancelled bool) (int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Reservation{}).
		Where("start_date <= ? AND end_date >= ?", end, start).
		Where("EXISTS (SELECT 1 FROM reservation_items ri WHERE ri.reservation_id = reservations.id AND ri.attraction_id = ?)", attractionID)
	if !includeCancelled {
		q = q.Where("status <> ?", model.ReservationCancelled)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}
