package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"rentalhub/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	ToEmail        string `json:"to_email"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
	AttachmentPath string `json:"attachment_path,omitempty"`
}

// MailSender is satisfied by *infra.Mailer and *infra.MailerBreaker.
type MailSender interface {
	Send(to, subject, body, attachmentPath string) error
}

// EmailWorker delivers free-form email jobs.
type EmailWorker struct {
	mailer MailSender
}

func NewEmailWorker(mailer MailSender) *EmailWorker {
	return &EmailWorker{mailer: mailer}
}

func (w *EmailWorker) Process(_ context.Context, raw json.RawMessage) error {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Permanent(fmt.Errorf("email_worker: invalid payload: %w", err))
	}
	if payload.ToEmail == "" {
		log.Warn().Msg("email_worker: empty to_email, skipping")
		return nil
	}
	if err := w.mailer.Send(payload.ToEmail, payload.Subject, payload.Body, payload.AttachmentPath); err != nil {
		return fmt.Errorf("email_worker: send to %s: %w", payload.ToEmail, err)
	}
	log.Info().Str("to", payload.ToEmail).Msg("email_worker: message sent")
	return nil
}

// ConfirmationWorker emails the client a summary of a new reservation.
type ConfirmationWorker struct {
	reservations repository.ReservationRepository
	mailer       MailSender
	issuer       string
}

func NewConfirmationWorker(reservations repository.ReservationRepository, mailer MailSender, issuer string) *ConfirmationWorker {
	return &ConfirmationWorker{reservations: reservations, mailer: mailer, issuer: issuer}
}

func (w *ConfirmationWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload ReservationJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.ReservationID == uuid.Nil {
		return Permanent(fmt.Errorf("confirmation_worker: invalid payload"))
	}

	res, err := w.reservations.FindByID(ctx, payload.ReservationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Permanent(fmt.Errorf("confirmation_worker: reservation %s is gone", payload.ReservationID))
		}
		return err
	}
	if res.Client == nil || res.Client.Email == nil || *res.Client.Email == "" {
		log.Debug().Str("reservation", res.Code).Msg("confirmation_worker: client has no email")
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", res.Client.FirstName)
	fmt.Fprintf(&b, "your reservation %s from %s to %s is registered.\n\n",
		res.Code, res.StartDate.Format("2006-01-02"), res.EndDate.Format("2006-01-02"))
	for _, it := range res.Items {
		name := it.AttractionID.String()
		if it.Attraction != nil {
			name = it.Attraction.Name
		}
		fmt.Fprintf(&b, "  - %s x%d\n", name, it.Quantity)
	}
	fmt.Fprintf(&b, "\nTotal: %s\n\n%s\n", res.TotalPrice.StringFixed(2), w.issuer)

	subject := fmt.Sprintf("%s: reservation %s", w.issuer, res.Code)
	if err := w.mailer.Send(*res.Client.Email, subject, b.String(), ""); err != nil {
		return fmt.Errorf("confirmation_worker: send: %w", err)
	}
	log.Info().Str("reservation", res.Code).Msg("confirmation_worker: confirmation sent")
	return nil
}
