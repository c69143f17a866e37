package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"rentalhub/internal/dto"
	"rentalhub/internal/events"
	"rentalhub/internal/model"
	"rentalhub/internal/numbering"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// ── In-memory store ───────────────────────────────────────────────────────────

// memStore backs every repository stub so that reads resolve relations the
// way the GORM preloads do.
type memStore struct {
	mu           sync.Mutex
	seq          int
	clients      map[uuid.UUID]*model.Client
	attractions  map[uuid.UUID]*model.Attraction
	users        map[uuid.UUID]*model.User
	reservations map[uuid.UUID]*model.Reservation
	assigned     map[uuid.UUID][]uuid.UUID
	invoices     map[uuid.UUID]*model.Invoice
	counters     map[string]int64
	audits       []model.AuditLog
	auditErr     error
}

func newMemStore() *memStore {
	return &memStore{
		clients:      map[uuid.UUID]*model.Client{},
		attractions:  map[uuid.UUID]*model.Attraction{},
		users:        map[uuid.UUID]*model.User{},
		reservations: map[uuid.UUID]*model.Reservation{},
		assigned:     map[uuid.UUID][]uuid.UUID{},
		invoices:     map[uuid.UUID]*model.Invoice{},
		counters:     map[string]int64{},
	}
}

var storeEpoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// stamp returns a strictly increasing creation time.
func (s *memStore) stamp() time.Time {
	s.seq++
	return storeEpoch.Add(time.Duration(s.seq) * time.Second)
}

func (s *memStore) addClient(first, last string, email *string) *model.Client {
	c := &model.Client{ID: uuid.New(), FirstName: first, LastName: last, Email: email}
	s.clients[c.ID] = c
	return c
}

func (s *memStore) addAttraction(name string) *model.Attraction {
	a := &model.Attraction{ID: uuid.New(), Name: name, Active: true}
	s.attractions[a.ID] = a
	return a
}

func (s *memStore) addUser(email, role string) *model.User {
	u := &model.User{ID: uuid.New(), Email: email, Name: email, Role: role, Active: true}
	s.users[u.ID] = u
	return u
}

// ── Reservations ─────────────────────────────────────────────────────────────

type memReservationRepo struct{ s *memStore }

func (r memReservationRepo) Create(_ context.Context, _ *gorm.DB, res *model.Reservation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.reservations {
		if other.Code == res.Code {
			return &pgconn.PgError{Code: "23505"}
		}
	}
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	res.CreatedAt = r.s.stamp()
	res.UpdatedAt = res.CreatedAt
	cp := *res
	cp.Items = nil
	for _, it := range res.Items {
		it.ID = uuid.New()
		it.ReservationID = res.ID
		cp.Items = append(cp.Items, it)
	}
	r.s.reservations[res.ID] = &cp
	return nil
}

func (r memReservationRepo) resolve(res *model.Reservation) *model.Reservation {
	cp := *res
	cp.Client = r.s.clients[res.ClientID]
	cp.Items = nil
	for _, it := range res.Items {
		it.Attraction = r.s.attractions[it.AttractionID]
		cp.Items = append(cp.Items, it)
	}
	cp.AssignedUsers = nil
	for _, uid := range r.s.assigned[res.ID] {
		if u, ok := r.s.users[uid]; ok {
			cp.AssignedUsers = append(cp.AssignedUsers, *u)
		}
	}
	cp.Invoices = nil
	for _, inv := range r.s.invoices {
		if inv.ReservationID == res.ID {
			cp.Invoices = append(cp.Invoices, *inv)
		}
	}
	return &cp
}

func (r memReservationRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Reservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	res, ok := r.s.reservations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r.resolve(res), nil
}

func (r memReservationRepo) List(_ context.Context) ([]model.Reservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.Reservation, 0, len(r.s.reservations))
	for _, res := range r.s.reservations {
		out = append(out, *r.resolve(res))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r memReservationRepo) ListCalendar(ctx context.Context) ([]model.Reservation, error) {
	out, _ := r.List(ctx)
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (r memReservationRepo) Update(_ context.Context, _ *gorm.DB, res *model.Reservation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.reservations[res.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	cur.ClientID = res.ClientID
	cur.StartDate = res.StartDate
	cur.EndDate = res.EndDate
	cur.Status = res.Status
	cur.TotalPrice = res.TotalPrice
	cur.Notes = res.Notes
	cur.CancelledAt = res.CancelledAt
	cur.CancelledByID = res.CancelledByID
	return nil
}

func (r memReservationRepo) ReplaceItems(_ context.Context, _ *gorm.DB, id uuid.UUID, items []model.ReservationItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur := r.s.reservations[id]
	cur.Items = nil
	for _, it := range items {
		it.ID = uuid.New()
		it.ReservationID = id
		cur.Items = append(cur.Items, it)
	}
	return nil
}

func (r memReservationRepo) ReplaceAssignedUsers(_ context.Context, _ *gorm.DB, id uuid.UUID, userIDs []uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.assigned[id] = append([]uuid.UUID(nil), userIDs...)
	return nil
}

func (r memReservationRepo) MarkCancelled(_ context.Context, id, by uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur := r.s.reservations[id]
	cur.Status = model.ReservationCancelled
	cur.CancelledAt = &at
	cur.CancelledByID = &by
	return nil
}

func (r memReservationRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur := r.s.reservations[id]
	cur.Status = status
	cur.CancelledAt, cur.CancelledByID = nil, nil
	return nil
}

func (r memReservationRepo) CountOverlapping(_ context.Context, attractionID uuid.UUID, start, end time.Time, includeCancelled bool) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, res := range r.s.reservations {
		if !includeCancelled && res.Status == model.ReservationCancelled {
			continue
		}
		if res.StartDate.After(end) || res.EndDate.Before(start) {
			continue
		}
		for _, it := range res.Items {
			if it.AttractionID == attractionID {
				n++
				break
			}
		}
	}
	return n, nil
}

func (r memReservationRepo) DB() *gorm.DB { return nil }

// ── Invoices ─────────────────────────────────────────────────────────────────

type memInvoiceRepo struct{ s *memStore }

func (r memInvoiceRepo) Create(_ context.Context, _ *gorm.DB, inv *model.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.invoices {
		if other.Number == inv.Number {
			return &pgconn.PgError{Code: "23505"}
		}
	}
	inv.ID = uuid.New()
	inv.CreatedAt = r.s.stamp()
	inv.UpdatedAt = inv.CreatedAt
	cp := *inv
	r.s.invoices[inv.ID] = &cp
	return nil
}

func (r memInvoiceRepo) resolve(inv *model.Invoice) *model.Invoice {
	cp := *inv
	cp.Reservation = r.s.reservations[inv.ReservationID]
	cp.Client = r.s.clients[inv.ClientID]
	return &cp
}

func (r memInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invoices[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r.resolve(inv), nil
}

func (r memInvoiceRepo) Update(_ context.Context, id uuid.UUID, fields map[string]interface{}) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invoices[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for k, v := range fields {
		switch k {
		case "reservation_id":
			inv.ReservationID = v.(uuid.UUID)
		case "client_id":
			inv.ClientID = v.(uuid.UUID)
		case "issue_date":
			inv.IssueDate = v.(time.Time)
		case "due_date":
			inv.DueDate = v.(time.Time)
		case "amount":
			inv.Amount = v.(decimal.Decimal)
		case "status":
			inv.Status = v.(string)
		case "is_company_invoice":
			inv.IsCompanyInvoice = v.(bool)
		case "company_name":
			s := v.(string)
			inv.CompanyName = &s
		case "tax_id":
			s := v.(string)
			inv.TaxID = &s
		case "pdf_url":
			s := v.(string)
			inv.PDFURL = &s
		default:
			return errors.New("unknown column " + k)
		}
	}
	return nil
}

func (r memInvoiceRepo) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.invoices[id]; !ok {
		return false, nil
	}
	delete(r.s.invoices, id)
	return true, nil
}

func (r memInvoiceRepo) List(_ context.Context, f dto.InvoiceFilter) ([]model.Invoice, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []model.Invoice
	needle := strings.ToLower(strings.TrimSpace(f.Search))
	for _, inv := range r.s.invoices {
		if (f.Status == model.InvoicePaid || f.Status == model.InvoiceUnpaid) && inv.Status != f.Status {
			continue
		}
		res := r.resolve(inv)
		if needle != "" {
			hay := strings.ToLower(inv.ID.String() + " " + inv.Number)
			if res.Client != nil {
				hay += " " + strings.ToLower(res.Client.FirstName+" "+res.Client.LastName)
			}
			if !strings.Contains(hay, needle) {
				continue
			}
		}
		all = append(all, *res)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].IssueDate.Equal(all[j].IssueDate) {
			return all[i].IssueDate.After(all[j].IssueDate)
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	total := int64(len(all))
	from := (f.Page - 1) * f.Limit
	if from > len(all) {
		from = len(all)
	}
	to := from + f.Limit
	if to > len(all) {
		to = len(all)
	}
	return all[from:to], total, nil
}

func (r memInvoiceRepo) ListMissingPDF(_ context.Context, _ time.Time, limit int) ([]uuid.UUID, error) {
	return nil, nil
}

func (r memInvoiceRepo) SetPDFURL(_ context.Context, id uuid.UUID, url string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.invoices[id].PDFURL = &url
	return nil
}

func (r memInvoiceRepo) DB() *gorm.DB { return nil }

// ── Catalog / users / audit ──────────────────────────────────────────────────

type memClientRepo struct {
	s         *memStore
	deleteErr error
}

func (r memClientRepo) Create(_ context.Context, c *model.Client) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.ID = uuid.New()
	c.CreatedAt = r.s.stamp()
	cp := *c
	r.s.clients[c.ID] = &cp
	return nil
}

func (r memClientRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Client, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.clients[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (r memClientRepo) List(_ context.Context, search string) ([]model.Client, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Client
	for _, c := range r.s.clients {
		if search == "" || strings.Contains(strings.ToLower(c.FullName()), strings.ToLower(search)) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r memClientRepo) Update(_ context.Context, c *model.Client) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *c
	r.s.clients[c.ID] = &cp
	return nil
}

func (r memClientRepo) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	if r.deleteErr != nil {
		return false, r.deleteErr
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.clients[id]; !ok {
		return false, nil
	}
	delete(r.s.clients, id)
	return true, nil
}

type memAttractionRepo struct{ s *memStore }

func (r memAttractionRepo) Create(_ context.Context, a *model.Attraction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a.ID = uuid.New()
	cp := *a
	r.s.attractions[a.ID] = &cp
	return nil
}

func (r memAttractionRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Attraction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.attractions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (r memAttractionRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]model.Attraction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Attraction
	for _, id := range ids {
		if a, ok := r.s.attractions[id]; ok {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r memAttractionRepo) List(_ context.Context, includeInactive bool) ([]model.Attraction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Attraction
	for _, a := range r.s.attractions {
		if includeInactive || a.Active {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r memAttractionRepo) Update(_ context.Context, a *model.Attraction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *a
	r.s.attractions[a.ID] = &cp
	return nil
}

func (r memAttractionRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.attractions[id].Active = false
	return nil
}

type memUserRepo struct{ s *memStore }

func (r memUserRepo) Create(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.users {
		if other.Email == u.Email {
			return &pgconn.PgError{Code: "23505"}
		}
	}
	u.ID = uuid.New()
	cp := *u
	r.s.users[u.ID] = &cp
	return nil
}

func (r memUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Active && strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r memUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (r memUserRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.User
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r memUserRepo) List(_ context.Context) ([]model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.User
	for _, u := range r.s.users {
		out = append(out, *u)
	}
	return out, nil
}

func (r memUserRepo) Count(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.users)), nil
}

type memAuditRepo struct{ s *memStore }

func (r memAuditRepo) Create(_ context.Context, e *model.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.auditErr != nil {
		return r.s.auditErr
	}
	r.s.audits = append(r.s.audits, *e)
	return nil
}

func (r memAuditRepo) List(_ context.Context, f dto.AuditFilter) ([]model.AuditLog, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var matched []model.AuditLog
	for i := len(r.s.audits) - 1; i >= 0; i-- {
		e := r.s.audits[i]
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		if f.Target != "" && (e.Target == nil || *e.Target != f.Target) {
			continue
		}
		matched = append(matched, e)
	}
	total := int64(len(matched))
	start := (f.Page - 1) * f.Limit
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *memStore) auditActions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.audits))
	for _, a := range s.audits {
		out = append(out, a.Action)
	}
	return out
}

// memCounter is a numbering.Counter keyed by (kind, period).
type memCounter struct{ s *memStore }

func (c memCounter) Increment(_ context.Context, _ *gorm.DB, kind numbering.Kind, period, _ string) (int64, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	key := string(kind) + "|" + period
	c.s.counters[key]++
	return c.s.counters[key], nil
}

// ── Collaborator doubles ─────────────────────────────────────────────────────

type recordingDispatcher struct {
	mu            sync.Mutex
	confirmations []uuid.UUID
	pdfs          []uuid.UUID
}

func (d *recordingDispatcher) EnqueueReservationConfirmation(_ context.Context, id uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.confirmations = append(d.confirmations, id)
	return nil
}

func (d *recordingDispatcher) EnqueueInvoicePDF(_ context.Context, id uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pdfs = append(d.pdfs, id)
	return nil
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, e events.Event) error {
	return m.Called(ctx, e).Error(0)
}

func (m *mockPublisher) Close() error { return nil }

func strPtr(s string) *string { return &s }

func day(d string) dto.Date {
	t, err := time.Parse("2006-01-02", d)
	if err != nil {
		panic(err)
	}
	return dto.NewDate(t)
}
