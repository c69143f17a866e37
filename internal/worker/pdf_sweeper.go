package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	sweepInterval  = 5 * time.Minute
	sweepBatchSize = 50
)

type missingPDFLister interface {
	ListMissingPDF(ctx context.Context, createdBefore time.Time, limit int) ([]uuid.UUID, error)
}

type pdfEnqueuer interface {
	EnqueueInvoicePDF(ctx context.Context, invoiceID uuid.UUID) error
}

// StartPDFSweeper periodically re-queues invoices that still have no
// document, covering jobs lost to a crash or moved to the DLQ. Invoices
// younger than one interval are left to their original job.
func StartPDFSweeper(ctx context.Context, invoices missingPDFLister, dispatcher pdfEnqueuer) {
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()

		log.Info().Msg("pdf_sweeper: started")
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("pdf_sweeper: shutting down")
				return
			case <-ticker.C:
				sweepMissingPDFs(ctx, invoices, dispatcher, time.Now().Add(-sweepInterval))
			}
		}
	}()
}

func sweepMissingPDFs(ctx context.Context, invoices missingPDFLister, dispatcher pdfEnqueuer, createdBefore time.Time) int {
	ids, err := invoices.ListMissingPDF(ctx, createdBefore, sweepBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("pdf_sweeper: query failed")
		return 0
	}
	queued := 0
	for _, id := range ids {
		if err := dispatcher.EnqueueInvoicePDF(ctx, id); err != nil {
			log.Warn().Err(err).Str("invoice_id", id.String()).Msg("pdf_sweeper: enqueue failed")
			continue
		}
		queued++
	}
	if queued > 0 {
		log.Info().Int("count", queued).Msg("pdf_sweeper: re-queued invoice documents")
	}
	return queued
}
