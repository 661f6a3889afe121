package models

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	StatusPending PaymentStatus = "pending"
	StatusPaid    PaymentStatus = "paid"
	StatusFree    PaymentStatus = "free"
	StatusFailed  PaymentStatus = "failed"
)

// Settled 代表已報名成功（算名額）
func (s PaymentStatus) Settled() bool { return s == StatusPaid || s == StatusFree }

type Registration struct {
	ID                string        `bson:"_id" json:"_id"`
	UserID            string        `bson:"user" json:"user"`
	EventID           string        `bson:"event" json:"event"`
	PaymentStatus     PaymentStatus `bson:"paymentStatus" json:"paymentStatus"`
	RazorpayOrderID   string        `bson:"razorpayOrderId,omitempty" json:"razorpayOrderId,omitempty"`
	RazorpayPaymentID string        `bson:"razorpayPaymentId,omitempty" json:"razorpayPaymentId,omitempty"`
	RazorpaySignature string        `bson:"razorpaySignature,omitempty" json:"-"`
	AmountPaid        float64       `bson:"amountPaid" json:"amountPaid"`
	CreatedAt         time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time     `bson:"updatedAt" json:"updatedAt"`
}

func NewRegistration(userID, eventID string, status PaymentStatus, amount float64) Registration {
	now := time.Now().UTC()
	return Registration{
		ID:            uuid.NewString(),
		UserID:        userID,
		EventID:       eventID,
		PaymentStatus: status,
		AmountPaid:    amount,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Attendee is the registrant shown to the event owner.
type Attendee struct {
	ID       string `json:"_id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	USN      string `json:"usn"`
}

type MyRegistration struct {
	Registration
	Event *EventSummary `json:"event"`
}

type EventRegistration struct {
	Registration
	User *Attendee `json:"user"`
}
