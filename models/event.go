package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type Event struct {
	ID                string    `bson:"_id" json:"_id"` // UUID，跨 Mongo / Postgres 共用
	EventName         string    `bson:"eventName" json:"eventName"`
	ClubName          string    `bson:"clubName" json:"clubName"`
	Category          string    `bson:"category" json:"category"`
	Description       string    `bson:"description" json:"description"`
	EventDate         time.Time `bson:"eventDate" json:"eventDate"`
	Venue             string    `bson:"venue" json:"venue"`
	PhoneNumber       string    `bson:"phoneNumber" json:"phoneNumber"`
	ImageURL          string    `bson:"imageURL" json:"imageURL"`
	RegistrationFee   float64   `bson:"registrationFee" json:"registrationFee"`
	MaxRegistrations  int       `bson:"maxRegistrations" json:"maxRegistrations"` // 0 = 不限
	RegistrationCount int       `bson:"registrationCount" json:"registrationCount"`
	CreatedBy         string    `bson:"createdBy" json:"-"`
	CreatedAt         time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time `bson:"updatedAt" json:"updatedAt"`
}

// NewEvent takes club name and category from the creating admin's profile.
func NewEvent(name, description string, when time.Time, admin *User) Event {
	now := time.Now().UTC()
	e := Event{
		ID:          uuid.NewString(),
		EventName:   name,
		Description: description,
		EventDate:   when,
		CreatedBy:   admin.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if admin.Admin != nil {
		e.ClubName = admin.Admin.ClubName
		e.Category = admin.Admin.ClubCategory
	}
	return e
}

func (e *Event) IsFree() bool { return e.RegistrationFee <= 0 }

func (e *Event) IsFull() bool {
	return e.MaxRegistrations > 0 && e.RegistrationCount >= e.MaxRegistrations
}

// AmountMinor is the fee in the smallest currency unit (paise).
func (e *Event) AmountMinor() int64 {
	return int64(math.Round(e.RegistrationFee * 100))
}

// Creator is the populated createdBy of an event.
type Creator struct {
	ID       string `json:"_id"`
	FullName string `json:"fullName"`
	ClubName string `json:"clubName"`
}

type EventView struct {
	Event
	CreatedBy *Creator `json:"createdBy"`
}

// EventSummary is what a registration shows about its event.
type EventSummary struct {
	ID              string    `json:"_id"`
	EventName       string    `json:"eventName"`
	ClubName        string    `json:"clubName"`
	Category        string    `json:"category"`
	EventDate       time.Time `json:"eventDate"`
	Venue           string    `json:"venue"`
	ImageURL        string    `json:"imageURL"`
	RegistrationFee float64   `json:"registrationFee"`
}

func (e *Event) Summary() EventSummary {
	return EventSummary{
		ID:              e.ID,
		EventName:       e.EventName,
		ClubName:        e.ClubName,
		Category:        e.Category,
		EventDate:       e.EventDate,
		Venue:           e.Venue,
		ImageURL:        e.ImageURL,
		RegistrationFee: e.RegistrationFee,
	}
}
