package infra

import (
	"fmt"
	"time"

	"rentalhub/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens a GORM connection backed by pgx. With autoMigrate set it
// creates or updates every table and then applies the patches GORM cannot
// express on its own.
func NewDatabase(dsn string, autoMigrate bool) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if autoMigrate {
		if err := RunMigrations(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// RunMigrations creates the schema. Also used by the integration tests.
func RunMigrations(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
		return fmt.Errorf("enable pgcrypto: %w", err)
	}
	if err := db.AutoMigrate(
		&model.User{},
		&model.Client{},
		&model.Attraction{},
		&model.Reservation{},
		&model.ReservationItem{},
		&model.Invoice{},
		&model.SequenceCounter{},
		&model.AuditLog{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot express.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		{"reservation date range check", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_reservations_date_range') THEN
    ALTER TABLE reservations ADD CONSTRAINT chk_reservations_date_range CHECK (start_date <= end_date);
  END IF;
END $$`},
		{"reservation item quantity check", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_reservation_items_quantity') THEN
    ALTER TABLE reservation_items ADD CONSTRAINT chk_reservation_items_quantity CHECK (quantity >= 1);
  END IF;
END $$`},
		// availability lookups go attraction -> reservation
		{"reservation_items attraction index",
			`CREATE INDEX IF NOT EXISTS idx_reservation_items_attraction_reservation
			   ON reservation_items (attraction_id, reservation_id)`},
		// sweeper query for invoices still missing a document; the predicate
		// must stay identical to InvoiceRepository.ListMissingPDF
		{"drop superseded missing pdf index",
			`DROP INDEX IF EXISTS idx_invoices_missing_pdf`},
		{"invoices pending pdf partial index",
			`CREATE INDEX IF NOT EXISTS idx_invoices_pending_pdf
			   ON invoices (created_at) WHERE (pdf_url IS NULL OR pdf_url = '')`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
