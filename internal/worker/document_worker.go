package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"rentalhub/internal/infra"
	"rentalhub/internal/model"
	"rentalhub/internal/repository"
	"rentalhub/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// renderFunc matches infra.GenerateInvoicePDF.
type renderFunc func(doc infra.InvoiceDocument, path string) error

// emailEnqueuer is satisfied by *Dispatcher.
type emailEnqueuer interface {
	EnqueueEmail(ctx context.Context, payload EmailJobPayload) error
}

// InvoicePDFWorker renders invoice documents, records their URL and mails
// the first rendition to the billed client.
type InvoicePDFWorker struct {
	invoices     repository.InvoiceRepository
	reservations repository.ReservationRepository
	emails       emailEnqueuer
	pdfDir       string
	issuer       string
	render       renderFunc
}

func NewInvoicePDFWorker(
	invoices repository.InvoiceRepository,
	reservations repository.ReservationRepository,
	emails emailEnqueuer,
	pdfDir, issuer string,
) *InvoicePDFWorker {
	return &InvoicePDFWorker{
		invoices:     invoices,
		reservations: reservations,
		emails:       emails,
		pdfDir:       pdfDir,
		issuer:       issuer,
		render:       infra.GenerateInvoicePDF,
	}
}

func (w *InvoicePDFWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload InvoiceJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.InvoiceID == uuid.Nil {
		return Permanent(fmt.Errorf("document_worker: invalid payload"))
	}
	id := payload.InvoiceID

	inv, err := w.invoices.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Permanent(fmt.Errorf("document_worker: invoice %s is gone", id))
		}
		return err
	}
	url := service.InvoicePDFURL(id)
	// a document supplied by the caller is never overwritten
	if inv.PDFURL != nil && *inv.PDFURL != "" && *inv.PDFURL != url {
		return nil
	}

	var res *model.Reservation
	if r, err := w.reservations.FindByID(ctx, inv.ReservationID); err == nil {
		res = r
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	firstRendition := inv.PDFURL == nil || *inv.PDFURL == ""
	path := service.InvoicePDFFile(w.pdfDir, id)
	doc := infra.InvoiceDocument{Issuer: w.issuer, Invoice: inv, Reservation: res}
	if err := w.render(doc, path); err != nil {
		return err
	}
	if err := w.invoices.SetPDFURL(ctx, id, url); err != nil {
		return err
	}
	log.Info().Str("invoice", inv.Number).Msg("document_worker: invoice document generated")

	// Regenerations after an edit are not re-sent.
	if firstRendition {
		w.mailInvoice(ctx, inv, path)
	}
	return nil
}

func (w *InvoicePDFWorker) mailInvoice(ctx context.Context, inv *model.Invoice, path string) {
	if w.emails == nil || inv.Client == nil || inv.Client.Email == nil || *inv.Client.Email == "" {
		return
	}
	body := fmt.Sprintf("Hello %s,\n\nplease find invoice %s attached.\nAmount due: %s by %s.\n\n%s\n",
		inv.Client.FirstName, inv.Number, inv.Amount.StringFixed(2), inv.DueDate.Format("2006-01-02"), w.issuer)
	job := EmailJobPayload{
		ToEmail:        *inv.Client.Email,
		Subject:        fmt.Sprintf("%s: invoice %s", w.issuer, inv.Number),
		Body:           body,
		AttachmentPath: path,
	}
	if err := w.emails.EnqueueEmail(ctx, job); err != nil {
		log.Warn().Err(err).Str("invoice", inv.Number).Msg("document_worker: failed to enqueue invoice email")
		return
	}
	log.Info().Str("invoice", inv.Number).Msg("document_worker: invoice email enqueued")
}
