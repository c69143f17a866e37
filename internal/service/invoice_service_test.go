package service

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"rentalhub/internal/apierror"
	"rentalhub/internal/dto"
	"rentalhub/internal/model"
	"rentalhub/internal/numbering"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type invFixture struct {
	store       *memStore
	svc         InvoiceService
	dispatcher  *recordingDispatcher
	client      *model.Client
	reservation *model.Reservation
	pdfDir      string
	actor       Actor
}

func newInvFixture(t *testing.T) *invFixture {
	t.Helper()
	store := newMemStore()
	audit, err := NewAuditService(memAuditRepo{store})
	require.NoError(t, err)

	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil)

	f := &invFixture{
		store:      store,
		dispatcher: &recordingDispatcher{},
		client:     store.addClient("Anna", "Nowak", strPtr("anna@example.com")),
		pdfDir:     t.TempDir(),
	}
	f.client.CompanyName = strPtr("Nowak Events")
	f.client.TaxID = strPtr("PL1234567890")
	admin := store.addUser("admin@example.com", model.RoleAdmin)
	f.actor = Actor{ID: admin.ID, Role: model.RoleAdmin}

	f.reservation = &model.Reservation{
		Code:      "REZ-2026-0001",
		ClientID:  f.client.ID,
		StartDate: day("2026-06-01").Time,
		EndDate:   day("2026-06-03").Time,
		Status:    model.ReservationPending,
	}
	require.NoError(t, memReservationRepo{store}.Create(context.Background(), nil, f.reservation))

	numbers := numbering.NewGenerator(memCounter{store}).WithClock(func() time.Time { return fixedClock })
	f.svc = NewInvoiceService(
		memInvoiceRepo{store}, memReservationRepo{store}, memClientRepo{s: store},
		numbers,
		Collaborators{Audit: audit, Dispatcher: f.dispatcher, Publisher: pub},
		f.pdfDir,
	)
	return f
}

func (f *invFixture) request(company bool) dto.CreateInvoiceRequest {
	issue, due := day("2026-06-10"), day("2026-06-24")
	amount := decimal.NewFromInt(1230)
	id := f.reservation.ID
	return dto.CreateInvoiceRequest{
		ReservationID:    &id,
		IssueDate:        &issue,
		DueDate:          &due,
		Amount:           &amount,
		Status:           model.InvoiceUnpaid,
		IsCompanyInvoice: company,
	}
}

func (f *invFixture) mustCreate(t *testing.T, req dto.CreateInvoiceRequest) *dto.InvoiceResponse {
	t.Helper()
	resp, err := f.svc.Create(context.Background(), f.actor, req)
	require.NoError(t, err)
	return resp
}

// ── Create ────────────────────────────────────────────────────────────────────

func TestInvoiceCreate_SeriesAreIndependent(t *testing.T) {
	f := newInvFixture(t)

	fv1 := f.mustCreate(t, f.request(true))
	pr1 := f.mustCreate(t, f.request(false))
	fv2 := f.mustCreate(t, f.request(true))

	assert.Equal(t, "FV/2026/06/0001", fv1.Number)
	assert.Equal(t, "FV/2026/06/0002", fv2.Number)
	assert.Equal(t, "PR/2026/06/0001", pr1.Number)
}

func TestInvoiceCreate_RequiredFields(t *testing.T) {
	f := newInvFixture(t)

	cases := map[string]func(*dto.CreateInvoiceRequest){
		"reservation": func(r *dto.CreateInvoiceRequest) { r.ReservationID = nil },
		"issue date":  func(r *dto.CreateInvoiceRequest) { r.IssueDate = nil },
		"due date":    func(r *dto.CreateInvoiceRequest) { r.DueDate = nil },
		"amount":      func(r *dto.CreateInvoiceRequest) { r.Amount = nil },
		"status":      func(r *dto.CreateInvoiceRequest) { r.Status = "" },
		"bad status":  func(r *dto.CreateInvoiceRequest) { r.Status = "overdue" },
	}
	for name, mut := range cases {
		t.Run(name, func(t *testing.T) {
			req := f.request(false)
			mut(&req)
			_, err := f.svc.Create(context.Background(), f.actor, req)
			assert.True(t, apierror.IsKind(err, apierror.KindValidation), "got %v", err)
		})
	}
	assert.Empty(t, f.store.invoices)
	assert.Empty(t, f.store.counters, "no number is consumed by a rejected request")
}

func TestInvoiceCreate_UnknownReferences(t *testing.T) {
	f := newInvFixture(t)

	req := f.request(false)
	missing := uuid.New()
	req.ReservationID = &missing
	_, err := f.svc.Create(context.Background(), f.actor, req)
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound))

	req = f.request(false)
	req.ClientID = &missing
	_, err = f.svc.Create(context.Background(), f.actor, req)
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound))
}

func TestInvoiceCreate_ClientDefaultsToReservation(t *testing.T) {
	f := newInvFixture(t)

	resp := f.mustCreate(t, f.request(false))
	assert.Equal(t, f.client.ID, resp.ClientID)
	require.NotNil(t, resp.Reservation)
	assert.Equal(t, "REZ-2026-0001", resp.Reservation.Code)
	require.NotNil(t, resp.Client)
	assert.Equal(t, "Nowak", resp.Client.LastName)
	assert.Nil(t, resp.CompanyName, "receipts do not inherit billing identity")

	other := f.store.addClient("Jan", "Kowalski", nil)
	req := f.request(false)
	req.ClientID = &other.ID
	resp = f.mustCreate(t, req)
	assert.Equal(t, other.ID, resp.ClientID)
}

func TestInvoiceCreate_CompanyIdentityFallback(t *testing.T) {
	f := newInvFixture(t)

	resp := f.mustCreate(t, f.request(true))
	require.NotNil(t, resp.CompanyName)
	assert.Equal(t, "Nowak Events", *resp.CompanyName)
	assert.Equal(t, "PL1234567890", *resp.TaxID)

	req := f.request(true)
	req.CompanyName = strPtr("Override Ltd")
	resp = f.mustCreate(t, req)
	assert.Equal(t, "Override Ltd", *resp.CompanyName)
	assert.Equal(t, "PL1234567890", *resp.TaxID)
}

func TestInvoiceCreate_QueuesDocumentUnlessSupplied(t *testing.T) {
	f := newInvFixture(t)

	generated := f.mustCreate(t, f.request(false))
	req := f.request(false)
	req.PDFURL = strPtr("https://files.example.com/inv.pdf")
	supplied := f.mustCreate(t, req)

	assert.Equal(t, []uuid.UUID{generated.ID}, f.dispatcher.pdfs)
	assert.Equal(t, "https://files.example.com/inv.pdf", *supplied.PDFURL)
	assert.Contains(t, f.store.auditActions(), "invoice.create")
}

// ── Update ────────────────────────────────────────────────────────────────────

func TestInvoiceUpdate_PartialPatch(t *testing.T) {
	f := newInvFixture(t)
	created := f.mustCreate(t, f.request(false))

	paid := model.InvoicePaid
	amount := decimal.RequireFromString("999.50")
	resp, err := f.svc.Update(context.Background(), f.actor, created.ID, dto.UpdateInvoiceRequest{
		Status: &paid,
		Amount: &amount,
	})
	require.NoError(t, err)

	assert.Equal(t, model.InvoicePaid, resp.Status)
	assert.True(t, resp.Amount.Equal(amount))
	assert.Equal(t, created.IssueDate, resp.IssueDate)
	assert.Equal(t, created.DueDate, resp.DueDate)
	assert.Equal(t, created.ReservationID, resp.ReservationID)
}

func TestInvoiceUpdate_NumberIsNeverRederived(t *testing.T) {
	f := newInvFixture(t)
	created := f.mustCreate(t, f.request(false))

	company := true
	resp, err := f.svc.Update(context.Background(), f.actor, created.ID, dto.UpdateInvoiceRequest{IsCompanyInvoice: &company})
	require.NoError(t, err)

	assert.True(t, resp.IsCompanyInvoice)
	assert.Equal(t, "PR/2026/06/0001", resp.Number)
}

func TestInvoiceUpdate_DocumentRequeue(t *testing.T) {
	f := newInvFixture(t)
	ctx := context.Background()
	paid := model.InvoicePaid

	generated := f.mustCreate(t, f.request(false))
	require.NoError(t, memInvoiceRepo{f.store}.SetPDFURL(ctx, generated.ID, InvoicePDFURL(generated.ID)))
	req := f.request(false)
	req.PDFURL = strPtr("https://files.example.com/inv.pdf")
	supplied := f.mustCreate(t, req)
	f.dispatcher.pdfs = nil

	_, err := f.svc.Update(ctx, f.actor, generated.ID, dto.UpdateInvoiceRequest{Status: &paid})
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, f.actor, supplied.ID, dto.UpdateInvoiceRequest{Status: &paid})
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{generated.ID}, f.dispatcher.pdfs)
}

func TestInvoiceUpdate_Errors(t *testing.T) {
	f := newInvFixture(t)
	created := f.mustCreate(t, f.request(false))
	ctx := context.Background()

	bad := "overdue"
	_, err := f.svc.Update(ctx, f.actor, created.ID, dto.UpdateInvoiceRequest{Status: &bad})
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))

	missing := uuid.New()
	_, err = f.svc.Update(ctx, f.actor, created.ID, dto.UpdateInvoiceRequest{ReservationID: &missing})
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound))

	_, err = f.svc.Update(ctx, f.actor, uuid.New(), dto.UpdateInvoiceRequest{})
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound))
}

func TestInvoiceUpdate_EmptyPatchIsNoop(t *testing.T) {
	f := newInvFixture(t)
	created := f.mustCreate(t, f.request(false))
	f.dispatcher.pdfs = nil

	resp, err := f.svc.Update(context.Background(), f.actor, created.ID, dto.UpdateInvoiceRequest{})
	require.NoError(t, err)
	assert.Equal(t, created.Number, resp.Number)
	assert.Empty(t, f.dispatcher.pdfs)
}

// ── Delete ────────────────────────────────────────────────────────────────────

func TestInvoiceDelete_RemovesGeneratedDocument(t *testing.T) {
	f := newInvFixture(t)
	ctx := context.Background()
	created := f.mustCreate(t, f.request(false))

	require.NoError(t, memInvoiceRepo{f.store}.SetPDFURL(ctx, created.ID, InvoicePDFURL(created.ID)))
	path := InvoicePDFFile(f.pdfDir, created.ID)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

	require.NoError(t, f.svc.Delete(ctx, f.actor, created.ID))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	_, err = f.svc.Get(ctx, created.ID)
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound))
	assert.Contains(t, f.store.auditActions(), "invoice.delete")
}

func TestInvoiceDelete_NotFound(t *testing.T) {
	f := newInvFixture(t)
	err := f.svc.Delete(context.Background(), f.actor, uuid.New())
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound))
}

// ── Reads ─────────────────────────────────────────────────────────────────────

func TestInvoiceList_Pagination(t *testing.T) {
	f := newInvFixture(t)
	for i := 0; i < 12; i++ {
		f.mustCreate(t, f.request(i%2 == 0))
	}
	ctx := context.Background()

	page, err := f.svc.List(ctx, dto.InvoiceFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(12), page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.Limit)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Data, 10)

	page, err = f.svc.List(ctx, dto.InvoiceFilter{Page: 2})
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)

	page, err = f.svc.List(ctx, dto.InvoiceFilter{Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 100, page.Limit)
	assert.Equal(t, 1, page.TotalPages)

	page, err = f.svc.List(ctx, dto.InvoiceFilter{Page: 9})
	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.NotNil(t, page.Data)
}

func TestInvoiceList_StatusAndSearch(t *testing.T) {
	f := newInvFixture(t)
	first := f.mustCreate(t, f.request(true))
	f.mustCreate(t, f.request(false))
	paid := model.InvoicePaid
	_, err := f.svc.Update(context.Background(), f.actor, first.ID, dto.UpdateInvoiceRequest{Status: &paid})
	require.NoError(t, err)

	page, err := f.svc.List(context.Background(), dto.InvoiceFilter{Status: model.InvoicePaid})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, first.ID, page.Data[0].ID)

	page, err = f.svc.List(context.Background(), dto.InvoiceFilter{Status: "all", Search: "PR/2026"})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "PR/2026/06/0001", page.Data[0].Number)
}

func TestInvoicePDFPath(t *testing.T) {
	f := newInvFixture(t)
	ctx := context.Background()
	created := f.mustCreate(t, f.request(false))

	_, err := f.svc.PDFPath(ctx, created.ID)
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound))

	path := InvoicePDFFile(f.pdfDir, created.ID)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
	got, err := f.svc.PDFPath(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, path, got)

	_, err = f.svc.PDFPath(ctx, uuid.New())
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound))
}

func TestInvoiceUpdate_AuditsBeforeAndAfter(t *testing.T) {
	f := newInvFixture(t)
	created := f.mustCreate(t, f.request(false))

	paid := model.InvoicePaid
	_, err := f.svc.Update(context.Background(), f.actor, created.ID, dto.UpdateInvoiceRequest{Status: &paid})
	require.NoError(t, err)

	audit, err := NewAuditService(memAuditRepo{f.store})
	require.NoError(t, err)
	page, err := audit.List(context.Background(), dto.AuditFilter{Action: "invoice.update"})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, created.Number, *page.Data[0].Target)

	var snapshot struct {
		Before dto.InvoiceResponse `json:"before"`
		After  dto.InvoiceResponse `json:"after"`
	}
	require.NoError(t, json.Unmarshal(page.Data[0].Details, &snapshot))
	assert.Equal(t, model.InvoiceUnpaid, snapshot.Before.Status)
	assert.Equal(t, model.InvoicePaid, snapshot.After.Status)
	assert.Equal(t, created.Number, snapshot.After.Number)
}
