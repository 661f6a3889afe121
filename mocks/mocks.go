// Package mocks holds in-memory fakes of the repositories, the payment
// gateway and the mailer. Conditional updates run under one mutex so they
// are as atomic as their Mongo counterparts.
package mocks

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"collegeevents/mailer"
	"collegeevents/models"
	"collegeevents/payment"
)

/* -------------------- Users -------------------- */

type UserRepo struct {
	mu    sync.Mutex
	Users map[string]models.User // key 是 id
	// FailUpdate 讓 Update 回錯（測 claim 回滾）
	FailUpdate error
}

func NewUserRepo() *UserRepo { return &UserRepo{Users: map[string]models.User{}} }

func (m *UserRepo) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.Users {
		if x.Email == u.Email || x.USN == u.USN {
			return models.ErrDuplicate
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	m.Users[u.ID] = *u
	return nil
}

func (m *UserRepo) GetByID(_ context.Context, id string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return models.User{}, models.ErrNotFound
	}
	return u, nil
}

func (m *UserRepo) GetByEmail(_ context.Context, email string) (models.User, error) {
	return m.find(func(u models.User) bool { return u.Email == email })
}

func (m *UserRepo) GetByUSN(_ context.Context, usn string) (models.User, error) {
	return m.find(func(u models.User) bool { return u.USN == usn })
}

func (m *UserRepo) find(match func(models.User) bool) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Users {
		if match(u) {
			return u, nil
		}
	}
	return models.User{}, models.ErrNotFound
}

func (m *UserRepo) FindByIDs(_ context.Context, ids []string) (map[string]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]models.User, len(ids))
	for _, id := range ids {
		if u, ok := m.Users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (m *UserRepo) Update(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailUpdate != nil {
		return m.FailUpdate
	}
	if _, ok := m.Users[u.ID]; !ok {
		return models.ErrNotFound
	}
	m.Users[u.ID] = *u
	return nil
}

// Promote mirrors the conditional {_id, role: student} update.
func (m *UserRepo) Promote(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailUpdate != nil {
		return m.FailUpdate
	}
	cur, ok := m.Users[u.ID]
	if !ok || cur.Role != models.RoleStudent {
		return models.ErrNotFound
	}
	m.Users[u.ID] = *u
	return nil
}

/* -------------------- Clubs -------------------- */

type ClubRepo struct {
	mu    sync.Mutex
	Clubs []models.Club
}

func NewClubRepo(clubs ...models.Club) *ClubRepo { return &ClubRepo{Clubs: clubs} }

func (m *ClubRepo) ListActive(ctx context.Context) ([]models.Club, error) {
	all, _ := m.ListAll(ctx)
	out := all[:0]
	for _, c := range all {
		if c.IsActive {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *ClubRepo) ListAll(_ context.Context) ([]models.Club, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]models.Club(nil), m.Clubs...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].ClubName < out[j].ClubName
	})
	return out, nil
}

func (m *ClubRepo) FindActive(_ context.Context, name, category string) (models.Club, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.Clubs {
		if c.ClubName == name && c.Category == category && c.IsActive {
			return c, nil
		}
	}
	return models.Club{}, models.ErrNotFound
}

func (m *ClubRepo) Claim(_ context.Context, name, category string) (models.Club, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.Clubs {
		if c.ClubName == name && c.Category == category && c.IsActive {
			m.Clubs[i].IsActive = false
			m.Clubs[i].UpdatedAt = time.Now().UTC()
			return m.Clubs[i], nil
		}
	}
	return models.Club{}, models.ErrNotFound
}

func (m *ClubRepo) Release(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Clubs {
		if m.Clubs[i].ID == id {
			m.Clubs[i].IsActive = true
			return nil
		}
	}
	return models.ErrNotFound
}

func (m *ClubRepo) ReplaceAll(_ context.Context, clubs []models.Club) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Clubs = append([]models.Club(nil), clubs...)
	return nil
}

// Active reports whether the named club is still claimable.
func (m *ClubRepo) Active(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.Clubs {
		if c.ClubName == name {
			return c.IsActive
		}
	}
	return false
}

/* -------------------- Events -------------------- */

type EventRepo struct {
	mu    sync.Mutex
	Items map[string]models.Event
}

func NewEventRepo() *EventRepo { return &EventRepo{Items: map[string]models.Event{}} }

func (m *EventRepo) List(_ context.Context) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Event, 0, len(m.Items))
	for _, e := range m.Items {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventDate.Before(out[j].EventDate) })
	return out, nil
}

func (m *EventRepo) GetByID(_ context.Context, id string) (models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Items[id]
	if !ok {
		return models.Event{}, models.ErrNotFound
	}
	return e, nil
}

func (m *EventRepo) Create(_ context.Context, e *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	m.Items[e.ID] = *e
	return nil
}

func (m *EventRepo) Update(_ context.Context, e *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.Items[e.ID]
	if !ok {
		return models.ErrNotFound
	}
	// 計數器、建立者不從這裡改
	e.RegistrationCount = old.RegistrationCount
	e.CreatedBy = old.CreatedBy
	e.CreatedAt = old.CreatedAt
	m.Items[e.ID] = *e
	return nil
}

func (m *EventRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Items[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.Items, id)
	return nil
}

func (m *EventRepo) ReserveSeat(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Items[id]
	if !ok {
		return models.ErrNotFound
	}
	if e.IsFull() {
		return models.ErrEventFull
	}
	e.RegistrationCount++
	m.Items[id] = e
	return nil
}

func (m *EventRepo) ReleaseSeat(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.Items[id]; ok && e.RegistrationCount > 0 {
		e.RegistrationCount--
		m.Items[id] = e
	}
	return nil
}

func (m *EventRepo) IncrementRegistrations(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Items[id]
	if !ok {
		return models.ErrNotFound
	}
	e.RegistrationCount++
	m.Items[id] = e
	return nil
}

// Count returns the current registrationCount of an event.
func (m *EventRepo) Count(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Items[id].RegistrationCount
}

/* --------------- Registrations ------------------ */

type RegRepo struct {
	mu   sync.Mutex
	Rows map[string]models.Registration // key 是 id
}

func NewRegRepo() *RegRepo { return &RegRepo{Rows: map[string]models.Registration{}} }

func (m *RegRepo) GetByID(_ context.Context, id string) (models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.Rows[id]
	if !ok {
		return models.Registration{}, models.ErrNotFound
	}
	return r, nil
}

func (m *RegRepo) Find(_ context.Context, userID, eventID string) (models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.pair(userID, eventID); ok {
		return r, nil
	}
	return models.Registration{}, models.ErrNotFound
}

func (m *RegRepo) pair(userID, eventID string) (models.Registration, bool) {
	for _, r := range m.Rows {
		if r.UserID == userID && r.EventID == eventID {
			return r, true
		}
	}
	return models.Registration{}, false
}

func (m *RegRepo) CreateSettled(_ context.Context, r *models.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pair(r.UserID, r.EventID); ok {
		return models.ErrDuplicate
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	m.Rows[r.ID] = *r
	return nil
}

func (m *RegRepo) UpsertPending(_ context.Context, userID, eventID, orderID string, amount float64) (models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	r, ok := m.pair(userID, eventID)
	if ok && r.PaymentStatus.Settled() {
		return models.Registration{}, models.ErrDuplicate
	}
	if !ok {
		r = models.Registration{ID: uuid.NewString(), UserID: userID, EventID: eventID, CreatedAt: now}
	}
	r.PaymentStatus = models.StatusPending
	r.RazorpayOrderID = orderID
	r.RazorpayPaymentID = ""
	r.RazorpaySignature = ""
	r.AmountPaid = amount
	r.UpdatedAt = now
	m.Rows[r.ID] = r
	return r, nil
}

func (m *RegRepo) MarkPaid(_ context.Context, userID, eventID, orderID, paymentID, signature string) (models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.pair(userID, eventID)
	if !ok || r.PaymentStatus != models.StatusPending || r.RazorpayOrderID != orderID {
		return models.Registration{}, models.ErrNotFound
	}
	r.PaymentStatus = models.StatusPaid
	r.RazorpayPaymentID = paymentID
	r.RazorpaySignature = signature
	r.UpdatedAt = time.Now().UTC()
	m.Rows[r.ID] = r
	return r, nil
}

func (m *RegRepo) MarkFailed(_ context.Context, userID, eventID, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.pair(userID, eventID)
	if !ok || r.PaymentStatus != models.StatusPending || r.RazorpayOrderID != orderID {
		return nil
	}
	r.PaymentStatus = models.StatusFailed
	r.UpdatedAt = time.Now().UTC()
	m.Rows[r.ID] = r
	return nil
}

func (m *RegRepo) ListByUser(_ context.Context, userID string, statuses ...models.PaymentStatus) ([]models.Registration, error) {
	return m.list(func(r models.Registration) bool { return r.UserID == userID }, statuses), nil
}

func (m *RegRepo) ListByEvent(_ context.Context, eventID string, statuses ...models.PaymentStatus) ([]models.Registration, error) {
	return m.list(func(r models.Registration) bool { return r.EventID == eventID }, statuses), nil
}

func (m *RegRepo) list(match func(models.Registration) bool, statuses []models.PaymentStatus) []models.Registration {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Registration
	for _, r := range m.Rows {
		if !match(r) {
			continue
		}
		if len(statuses) > 0 && !hasStatus(statuses, r.PaymentStatus) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func hasStatus(list []models.PaymentStatus, s models.PaymentStatus) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// Status returns the payment status of the (user, event) pair, "" if none.
func (m *RegRepo) Status(userID, eventID string) models.PaymentStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, _ := m.pair(userID, eventID)
	return r.PaymentStatus
}

/* --------------- Gateway / Mailer ------------------ */

// FakeGateway signs with Secret like the real gateway does.
type FakeGateway struct {
	Secret string
	Key    string
	Fail   error
	mu     sync.Mutex
	Orders []payment.OrderRequest
}

func (g *FakeGateway) CreateOrder(_ context.Context, req payment.OrderRequest) (payment.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Fail != nil {
		return payment.Order{}, g.Fail
	}
	g.Orders = append(g.Orders, req)
	return payment.Order{
		ID:       "order_" + uuid.NewString()[:8],
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
	}, nil
}

func (g *FakeGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return payment.VerifySignature(g.Secret, orderID, paymentID, signature)
}

func (g *FakeGateway) KeyID() string { return g.Key }

var ErrMailDown = errors.New("smtp down")

type FakeMailer struct {
	mu   sync.Mutex
	Sent []mailer.Message
	Fail bool
}

func (f *FakeMailer) Send(_ context.Context, msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail {
		return ErrMailDown
	}
	f.Sent = append(f.Sent, msg)
	return nil
}

func (f *FakeMailer) Last() (mailer.Message, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Sent) == 0 {
		return mailer.Message{}, false
	}
	return f.Sent[len(f.Sent)-1], true
}
