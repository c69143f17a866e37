package service

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"

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

const (
	defaultInvoicePageSize = 10
	maxInvoicePageSize     = 100
)

type InvoiceService interface {
	Create(ctx context.Context, actor Actor, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, req dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*dto.InvoiceResponse, error)
	List(ctx context.Context, filter dto.InvoiceFilter) (*dto.InvoiceListResponse, error)
	PDFPath(ctx context.Context, id uuid.UUID) (string, error)
}

type invoiceService struct {
	repo         repository.InvoiceRepository
	reservations repository.ReservationRepository
	clients      repository.ClientRepository
	numbers      *numbering.Generator
	collab       Collaborators
	pdfDir       string
}

func NewInvoiceService(
	repo repository.InvoiceRepository,
	reservations repository.ReservationRepository,
	clients repository.ClientRepository,
	numbers *numbering.Generator,
	collab Collaborators,
	pdfDir string,
) InvoiceService {
	return &invoiceService{
		repo:         repo,
		reservations: reservations,
		clients:      clients,
		numbers:      numbers,
		collab:       collab,
		pdfDir:       pdfDir,
	}
}

// InvoicePDFURL is the API path that serves the generated document.
func InvoicePDFURL(id uuid.UUID) string { return "/v1/invoices/" + id.String() + "/pdf" }

// InvoicePDFFile is the on-disk name of the generated document.
func InvoicePDFFile(dir string, id uuid.UUID) string {
	return filepath.Join(dir, "invoice_"+id.String()+".pdf")
}

// ── Create ───────────────────────────────────────────────────────────────────

func (s *invoiceService) Create(ctx context.Context, actor Actor, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	switch {
	case req.ReservationID == nil:
		return nil, apierror.Validation("reservationId is required")
	case req.IssueDate == nil:
		return nil, apierror.Validation("issueDate is required")
	case req.DueDate == nil:
		return nil, apierror.Validation("dueDate is required")
	case req.Amount == nil:
		return nil, apierror.Validation("amount is required")
	case req.Status == "":
		return nil, apierror.Validation("status is required")
	case req.Status != model.InvoicePaid && req.Status != model.InvoiceUnpaid:
		return nil, apierror.Validation("status must be paid or unpaid")
	}

	reservation, err := s.reservations.FindByID(ctx, *req.ReservationID)
	if err != nil {
		return nil, lookupErr(err, "reservation")
	}

	client := reservation.Client
	clientID := reservation.ClientID
	if req.ClientID != nil && *req.ClientID != reservation.ClientID {
		client, err = s.clients.FindByID(ctx, *req.ClientID)
		if err != nil {
			return nil, lookupErr(err, "client")
		}
		clientID = *req.ClientID
	}

	inv := model.Invoice{
		ReservationID:    reservation.ID,
		ClientID:         clientID,
		IssueDate:        req.IssueDate.Time,
		DueDate:          req.DueDate.Time,
		Amount:           *req.Amount,
		Status:           req.Status,
		IsCompanyInvoice: req.IsCompanyInvoice,
		CompanyName:      req.CompanyName,
		TaxID:            req.TaxID,
		PDFURL:           req.PDFURL,
	}
	// Company invoices fall back to the client's billing identity.
	if inv.IsCompanyInvoice && client != nil {
		if inv.CompanyName == nil {
			inv.CompanyName = client.CompanyName
		}
		if inv.TaxID == nil {
			inv.TaxID = client.TaxID
		}
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		number, err := s.numbers.Next(ctx, tx, numbering.InvoiceKind(inv.IsCompanyInvoice))
		if err != nil {
			return apierror.Storage("mint invoice number", err)
		}
		inv.Number = number
		return s.repo.Create(ctx, tx, &inv)
	})
	if txErr != nil {
		return nil, writeErr(txErr, "invoice")
	}

	resp, err := s.Get(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	s.collab.record(ctx, actor, "invoice.create", inv.Number, map[string]interface{}{
		"id": inv.ID, "reservationId": inv.ReservationID, "amount": inv.Amount.String(),
	})
	s.collab.publish(ctx, events.InvoiceCreated, inv.Number, resp)
	if inv.PDFURL == nil {
		s.queuePDF(ctx, inv.ID)
	}
	return resp, nil
}

// ── Update ───────────────────────────────────────────────────────────────────

// Update applies only the fields present in req. The number is never
// re-derived, even when isCompanyInvoice flips.
func (s *invoiceService) Update(ctx context.Context, actor Actor, id uuid.UUID, req dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "invoice")
	}

	fields := map[string]interface{}{}
	if req.ReservationID != nil {
		if _, err := s.reservations.FindByID(ctx, *req.ReservationID); err != nil {
			return nil, lookupErr(err, "reservation")
		}
		fields["reservation_id"] = *req.ReservationID
	}
	if req.ClientID != nil {
		if _, err := s.clients.FindByID(ctx, *req.ClientID); err != nil {
			return nil, lookupErr(err, "client")
		}
		fields["client_id"] = *req.ClientID
	}
	if req.IssueDate != nil {
		fields["issue_date"] = req.IssueDate.Time
	}
	if req.DueDate != nil {
		fields["due_date"] = req.DueDate.Time
	}
	if req.Amount != nil {
		fields["amount"] = *req.Amount
	}
	if req.Status != nil {
		if *req.Status != model.InvoicePaid && *req.Status != model.InvoiceUnpaid {
			return nil, apierror.Validation("status must be paid or unpaid")
		}
		fields["status"] = *req.Status
	}
	if req.IsCompanyInvoice != nil {
		fields["is_company_invoice"] = *req.IsCompanyInvoice
	}
	if req.CompanyName != nil {
		fields["company_name"] = *req.CompanyName
	}
	if req.TaxID != nil {
		fields["tax_id"] = *req.TaxID
	}
	if req.PDFURL != nil {
		fields["pdf_url"] = *req.PDFURL
	}
	if len(fields) == 0 {
		return invoiceToResponse(current), nil
	}

	if err := s.repo.Update(ctx, id, fields); err != nil {
		return nil, writeErr(err, "invoice")
	}
	resp, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.collab.record(ctx, actor, "invoice.update", current.Number, map[string]interface{}{
		"before": invoiceToResponse(current), "after": resp,
	})
	s.collab.publish(ctx, events.InvoiceUpdated, current.Number, resp)
	// A document we generated ourselves is stale now; one supplied by the
	// caller is left alone.
	if req.PDFURL == nil && (current.PDFURL == nil || *current.PDFURL == InvoicePDFURL(id)) {
		s.queuePDF(ctx, id)
	}
	return resp, nil
}

// ── Delete ───────────────────────────────────────────────────────────────────

func (s *invoiceService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return lookupErr(err, "invoice")
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return apierror.Storage("delete invoice", err)
	}
	if !deleted {
		return apierror.NotFound("invoice not found")
	}

	if current.PDFURL != nil && *current.PDFURL == InvoicePDFURL(id) {
		if err := os.Remove(InvoicePDFFile(s.pdfDir, id)); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("invoice_id", id.String()).Msg("invoice: could not remove document")
		}
	}
	s.collab.record(ctx, actor, "invoice.delete", current.Number, map[string]interface{}{"id": id})
	s.collab.publish(ctx, events.InvoiceDeleted, current.Number, map[string]string{"id": id.String(), "number": current.Number})
	return nil
}

// ── Reads ────────────────────────────────────────────────────────────────────

func (s *invoiceService) Get(ctx context.Context, id uuid.UUID) (*dto.InvoiceResponse, error) {
	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "invoice")
	}
	return invoiceToResponse(inv), nil
}

func (s *invoiceService) List(ctx context.Context, filter dto.InvoiceFilter) (*dto.InvoiceListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = defaultInvoicePageSize
	}
	if filter.Limit > maxInvoicePageSize {
		filter.Limit = maxInvoicePageSize
	}

	list, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apierror.Storage("list invoices", err)
	}

	resp := &dto.InvoiceListResponse{
		Data:       make([]dto.InvoiceResponse, 0, len(list)),
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.Limit))),
	}
	for i := range list {
		resp.Data = append(resp.Data, *invoiceToResponse(&list[i]))
	}
	return resp, nil
}

// PDFPath returns the local file of a generated invoice document.
func (s *invoiceService) PDFPath(ctx context.Context, id uuid.UUID) (string, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return "", lookupErr(err, "invoice")
	}
	path := InvoicePDFFile(s.pdfDir, id)
	if _, err := os.Stat(path); err != nil {
		return "", apierror.NotFound("invoice document has not been generated yet")
	}
	return path, nil
}

func (s *invoiceService) queuePDF(ctx context.Context, id uuid.UUID) {
	if s.collab.Dispatcher == nil {
		return
	}
	if err := s.collab.Dispatcher.EnqueueInvoicePDF(ctx, id); err != nil {
		log.Warn().Err(err).Str("invoice_id", id.String()).Msg("invoice: document job not queued")
	}
}
