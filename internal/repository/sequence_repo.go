package repository

import (
	"context"
	"fmt"

	"rentalhub/internal/numbering"

	"gorm.io/gorm"
)

// SequenceRepository is the persisted numbering.Counter. One row per
// (kind, period) in sequence_counters; the UPDATE takes a row lock that
// serializes concurrent minting inside the same partition until the caller's
// transaction ends.
type SequenceRepository interface {
	Increment(ctx context.Context, tx *gorm.DB, kind numbering.Kind, period, prefix string) (int64, error)
}

type sequenceRepo struct{ db *gorm.DB }

func NewSequenceRepository(db *gorm.DB) SequenceRepository { return &sequenceRepo{db: db} }

func (r *sequenceRepo) Increment(ctx context.Context, tx *gorm.DB, kind numbering.Kind, period, prefix string) (int64, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	db = db.WithContext(ctx)

	if n, ok, err := bump(db, kind, period); err != nil || ok {
		return n, err
	}

	// First number of the partition: start after whatever was issued before
	// the counter row existed.
	seed, err := maxIssued(db, kind, prefix)
	if err != nil {
		return 0, err
	}
	err = db.Exec(
		`INSERT INTO sequence_counters (kind, period, last_value, updated_at)
		 VALUES (?, ?, ?, NOW())
		 ON CONFLICT (kind, period) DO NOTHING`,
		string(kind), period, seed,
	).Error
	if err != nil {
		return 0, fmt.Errorf("seed counter %s %s: %w", kind, period, err)
	}

	n, ok, err := bump(db, kind, period)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("counter %s %s missing after seed", kind, period)
	}
	return n, nil
}

func bump(db *gorm.DB, kind numbering.Kind, period string) (int64, bool, error) {
	var values []int64
	err := db.Raw(
		`UPDATE sequence_counters
		 SET last_value = last_value + 1, updated_at = NOW()
		 WHERE kind = ? AND period = ?
		 RETURNING last_value`,
		string(kind), period,
	).Scan(&values).Error
	if err != nil {
		return 0, false, fmt.Errorf("increment counter %s %s: %w", kind, period, err)
	}
	if len(values) == 0 {
		return 0, false, nil
	}
	return values[0], true, nil
}

// maxIssued parses every number already stored under prefix. Lexical MAX()
// would stop being correct once a partition goes past 9999.
func maxIssued(db *gorm.DB, kind numbering.Kind, prefix string) (int64, error) {
	table, column := "invoices", "number"
	if kind == numbering.KindReservation {
		table, column = "reservations", "code"
	}

	var issued []string
	err := db.Table(table).Where(column+" LIKE ?", prefix+"%").Pluck(column, &issued).Error
	if err != nil {
		return 0, fmt.Errorf("scan issued %s: %w", table, err)
	}

	var highest int64
	for _, s := range issued {
		if n, ok := numbering.ParseSequence(s); ok && n > highest {
			highest = n
		}
	}
	return highest, nil
}
