package models

import (
	"context"
	"errors"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
	ErrEventFull = errors.New("event is full")
)

// ===== Users =====
type UserRepository interface {
	Create(ctx context.Context, u *User) error // email / usn 重複 → ErrDuplicate
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByUSN(ctx context.Context, usn string) (User, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]User, error)
	Update(ctx context.Context, u *User) error
	// Promote writes an already promoted user only while the stored record
	// is still a student; ErrNotFound when it is gone or already an admin.
	Promote(ctx context.Context, u *User) error
}

// ===== Clubs =====
type ClubRepository interface {
	ListActive(ctx context.Context) ([]Club, error) // category, clubName 排序
	ListAll(ctx context.Context) ([]Club, error)
	FindActive(ctx context.Context, clubName, category string) (Club, error)
	// Claim flips an active club to inactive in one step; ErrNotFound when
	// the club does not exist or someone else got there first.
	Claim(ctx context.Context, clubName, category string) (Club, error)
	Release(ctx context.Context, id string) error
	ReplaceAll(ctx context.Context, clubs []Club) error
}

// ===== Events =====
type EventRepository interface {
	List(ctx context.Context) ([]Event, error) // eventDate 由近到遠
	GetByID(ctx context.Context, id string) (Event, error)
	Create(ctx context.Context, e *Event) error
	Update(ctx context.Context, e *Event) error // 只改可編輯欄位
	Delete(ctx context.Context, id string) error
	// ReserveSeat increments registrationCount only while the event has
	// room (or is unlimited). Returns ErrEventFull or ErrNotFound.
	ReserveSeat(ctx context.Context, id string) error
	ReleaseSeat(ctx context.Context, id string) error
	IncrementRegistrations(ctx context.Context, id string) error
}

// ===== Registrations =====
type RegistrationRepository interface {
	GetByID(ctx context.Context, id string) (Registration, error)
	Find(ctx context.Context, userID, eventID string) (Registration, error)
	// CreateSettled inserts a free registration; ErrDuplicate if (user, event) exists.
	CreateSettled(ctx context.Context, r *Registration) error
	// UpsertPending resets a pending/failed row (or inserts one) with a new
	// order. ErrDuplicate when the pair is already paid or free.
	UpsertPending(ctx context.Context, userID, eventID, orderID string, amount float64) (Registration, error)
	// MarkPaid settles the pending row for this order; ErrNotFound otherwise.
	MarkPaid(ctx context.Context, userID, eventID, orderID, paymentID, signature string) (Registration, error)
	MarkFailed(ctx context.Context, userID, eventID, orderID string) error
	ListByUser(ctx context.Context, userID string, statuses ...PaymentStatus) ([]Registration, error)
	ListByEvent(ctx context.Context, eventID string, statuses ...PaymentStatus) ([]Registration, error)
}
