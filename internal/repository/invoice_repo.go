package repository

import (
	"context"
	"strings"
	"time"

	"rentalhub/internal/dto"
	"rentalhub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InvoiceRepository interface {
	Create(ctx context.Context, tx *gorm.DB, inv *model.Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, filter dto.InvoiceFilter) ([]model.Invoice, int64, error)
	ListMissingPDF(ctx context.Context, createdBefore time.Time, limit int) ([]uuid.UUID, error)
	SetPDFURL(ctx context.Context, id uuid.UUID, url string) error
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type invoiceRepo struct{ db *gorm.DB }

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository { return &invoiceRepo{db: db} }

func (r *invoiceRepo) DB() *gorm.DB { return r.db }

func (r *invoiceRepo) Create(ctx context.Context, tx *gorm.DB, inv *model.Invoice) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	return db.WithContext(ctx).Omit("Reservation", "Client").Create(inv).Error
}

func (r *invoiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var inv model.Invoice
	err := r.db.WithContext(ctx).Preload("Reservation").Preload("Client").First(&inv, "id = ?", id).Error
	return &inv, err
}

func (r *invoiceRepo) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Invoice{}).Where("id = ?", id).Updates(fields).Error
}

// Delete reports false when no row matched.
func (r *invoiceRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Invoice{})
	return res.RowsAffected > 0, res.Error
}

// List expects a normalized filter (page >= 1, 1 <= limit <= 100). Status
// values other than paid/unpaid are ignored.
func (r *invoiceRepo) List(ctx context.Context, filter dto.InvoiceFilter) ([]model.Invoice, int64, error) {
	var invoices []model.Invoice
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Invoice{}).
		Joins("LEFT JOIN clients ON clients.id = invoices.client_id")

	if filter.Status == model.InvoicePaid || filter.Status == model.InvoiceUnpaid {
		q = q.Where("invoices.status = ?", filter.Status)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + escapeLike(strings.ToLower(s)) + "%"
		q = q.Where(
			`(invoices.id::text ILIKE ? OR LOWER(invoices.number) LIKE ?
			 OR LOWER(clients.first_name) LIKE ? OR LOWER(clients.last_name) LIKE ?
			 OR LOWER(clients.email) LIKE ? OR LOWER(clients.company_name) LIKE ?
			 OR LOWER(clients.tax_id) LIKE ?)`,
			like, like, like, like, like, like, like,
		)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Preload("Reservation").Preload("Client").
		Order("invoices.issue_date DESC").Order("invoices.created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&invoices).Error

	return invoices, total, err
}

// ListMissingPDF returns invoices created before createdBefore that still
// have no generated document, oldest first. The predicate matches the
// idx_invoices_pending_pdf partial index.
func (r *invoiceRepo) ListMissingPDF(ctx context.Context, createdBefore time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&model.Invoice{}).
		Where("(pdf_url IS NULL OR pdf_url = '')").
		Where("created_at < ?", createdBefore).
		Order("created_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *invoiceRepo) SetPDFURL(ctx context.Context, id uuid.UUID, url string) error {
	return r.db.WithContext(ctx).Model(&model.Invoice{}).Where("id = ?", id).Update("pdf_url", url).Error
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
