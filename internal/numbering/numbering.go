// Package numbering mints human-readable, per-period sequential identifiers:
//
//	reservation      REZ-<year>-<NNNN>
//	company invoice  FV/<year>/<MM>/<NNNN>
//	receipt          PR/<year>/<MM>/<NNNN>
//
// Reservations reset every year, invoices and receipts every month, and the
// FV and PR series are independent counters.
package numbering

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Kind selects a numbering series.
type Kind string

const (
	KindReservation    Kind = "reservation"
	KindCompanyInvoice Kind = "company_invoice"
	KindReceipt        Kind = "receipt"
)

// PadWidth is the minimum width of the numeric segment.
const PadWidth = 4

// InvoiceKind picks the series for an invoice.
func InvoiceKind(isCompanyInvoice bool) Kind {
	if isCompanyInvoice {
		return KindCompanyInvoice
	}
	return KindReceipt
}

// Period returns the partition key: "2025" for reservations, "2025/06" otherwise.
func Period(kind Kind, t time.Time) string {
	if kind == KindReservation {
		return strconv.Itoa(t.Year())
	}
	return fmt.Sprintf("%d/%02d", t.Year(), int(t.Month()))
}

// Prefix returns everything that precedes the numeric segment.
func Prefix(kind Kind, t time.Time) string {
	switch kind {
	case KindReservation:
		return fmt.Sprintf("REZ-%d-", t.Year())
	case KindCompanyInvoice:
		return "FV/" + Period(kind, t) + "/"
	default:
		return "PR/" + Period(kind, t) + "/"
	}
}

// Format renders number n of the series active at t.
func Format(kind Kind, t time.Time, n int64) string {
	return fmt.Sprintf("%s%0*d", Prefix(kind, t), PadWidth, n)
}

// ParseSequence extracts the trailing numeric segment of an issued number.
func ParseSequence(number string) (int64, bool) {
	i := strings.LastIndexAny(number, "-/")
	if i < 0 || i == len(number)-1 {
		return 0, false
	}
	n, err := strconv.ParseInt(number[i+1:], 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Counter atomically advances one partition and returns the new value.
// prefix lets implementations seed a missing partition from numbers that were
// issued before the counter existed. tx may be nil outside a transaction.
type Counter interface {
	Increment(ctx context.Context, tx *gorm.DB, kind Kind, period, prefix string) (int64, error)
}

// Generator formats values handed out by a Counter.
type Generator struct {
	counter Counter
	now     func() time.Time
}

func NewGenerator(counter Counter) *Generator {
	return &Generator{counter: counter, now: time.Now}
}

// WithClock replaces the clock used to pick the active period.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Next mints the next number of kind for the current period. Run it inside
// the transaction that persists the numbered entity so a failure leaves no
// orphan number behind.
func (g *Generator) Next(ctx context.Context, tx *gorm.DB, kind Kind) (string, error) {
	t := g.now()
	n, err := g.counter.Increment(ctx, tx, kind, Period(kind, t), Prefix(kind, t))
	if err != nil {
		return "", fmt.Errorf("numbering: next %s: %w", kind, err)
	}
	return Format(kind, t, n), nil
}
