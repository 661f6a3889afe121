package services

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"time"

	"go.uber.org/zap"

	"collegeevents/exports"
	"collegeevents/logger"
	"collegeevents/models"
	"collegeevents/utils"
)

type EventService struct {
	events       models.EventRepository
	users        models.UserRepository
	uploads      *utils.Uploader
	cache        *utils.CacheInvalidator
	defaultVenue string
}

func NewEventService(events models.EventRepository, users models.UserRepository, uploads *utils.Uploader, cache *utils.CacheInvalidator, defaultVenue string) *EventService {
	return &EventService{events: events, users: users, uploads: uploads, cache: cache, defaultVenue: defaultVenue}
}

// EventInput carries create and update fields. On update a nil field is
// left untouched.
type EventInput struct {
	EventName        *string  `json:"eventName" form:"eventName"`
	Description      *string  `json:"description" form:"description"`
	EventDate        *string  `json:"eventDate" form:"eventDate"`
	Venue            *string  `json:"venue" form:"venue"`
	PhoneNumber      *string  `json:"phoneNumber" form:"phoneNumber"`
	RegistrationFee  *float64 `json:"registrationFee" form:"registrationFee"`
	MaxRegistrations *int     `json:"maxRegistrations" form:"maxRegistrations"`
}

var eventDateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

func parseEventDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range eventDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, utils.Validation("Invalid event date")
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func checkLimits(fee float64, capacity int) error {
	if fee < 0 {
		return utils.Validation("Registration fee cannot be negative")
	}
	if capacity < 0 {
		return utils.Validation("Max registrations cannot be negative")
	}
	return nil
}

func (s *EventService) List(ctx context.Context) ([]models.EventView, error) {
	events, err := s.events.List(ctx)
	if err != nil {
		return nil, utils.Internal("Failed to fetch events", err)
	}
	return s.withCreators(ctx, events)
}

func (s *EventService) Get(ctx context.Context, id string) (models.EventView, error) {
	e, err := s.load(ctx, id)
	if err != nil {
		return models.EventView{}, err
	}
	views, err := s.withCreators(ctx, []models.Event{e})
	if err != nil {
		return models.EventView{}, err
	}
	return views[0], nil
}

func (s *EventService) load(ctx context.Context, id string) (models.Event, error) {
	e, err := s.events.GetByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return models.Event{}, utils.NotFound("Event not found")
	}
	if err != nil {
		return models.Event{}, utils.Internal("Failed to fetch event", err)
	}
	return e, nil
}

// withCreators resolves createdBy to the creator's public fields.
func (s *EventService) withCreators(ctx context.Context, events []models.Event) ([]models.EventView, error) {
	seen := map[string]bool{}
	var ids []string
	for _, e := range events {
		if e.CreatedBy != "" && !seen[e.CreatedBy] {
			seen[e.CreatedBy] = true
			ids = append(ids, e.CreatedBy)
		}
	}
	creators, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, utils.Internal("Failed to fetch events", err)
	}

	out := make([]models.EventView, 0, len(events))
	for _, e := range events {
		v := models.EventView{Event: e}
		if u, ok := creators[e.CreatedBy]; ok {
			v.CreatedBy = &models.Creator{ID: u.ID, FullName: u.FullName, ClubName: u.ClubName()}
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *EventService) Create(ctx context.Context, admin *models.User, in EventInput, image *multipart.FileHeader) (models.EventView, error) {
	name, desc, date := str(in.EventName), str(in.Description), str(in.EventDate)
	if name == "" || desc == "" || date == "" {
		return models.EventView{}, utils.Validation("Event name, description, and date are required")
	}
	when, err := parseEventDate(date)
	if err != nil {
		return models.EventView{}, err
	}

	e := models.NewEvent(name, desc, when, admin)
	e.Venue = str(in.Venue)
	if e.Venue == "" {
		e.Venue = s.defaultVenue
	}
	e.PhoneNumber = str(in.PhoneNumber)
	if in.RegistrationFee != nil {
		e.RegistrationFee = *in.RegistrationFee
	}
	if in.MaxRegistrations != nil {
		e.MaxRegistrations = *in.MaxRegistrations
	}
	if err := checkLimits(e.RegistrationFee, e.MaxRegistrations); err != nil {
		return models.EventView{}, err
	}

	if image != nil {
		if e.ImageURL, err = s.uploads.SaveImage(image); err != nil {
			return models.EventView{}, err
		}
	}
	if err := s.events.Create(ctx, &e); err != nil {
		s.uploads.Remove(e.ImageURL)
		return models.EventView{}, utils.Internal("Failed to create event", err)
	}

	s.cache.PurgeEvent(ctx, e.ID)
	logger.Log.Info("event created", zap.String("eventId", e.ID), zap.String("club", e.ClubName))
	return models.EventView{
		Event:     e,
		CreatedBy: &models.Creator{ID: admin.ID, FullName: admin.FullName, ClubName: admin.ClubName()},
	}, nil
}

func (s *EventService) Update(ctx context.Context, admin *models.User, id string, in EventInput, image *multipart.FileHeader) (models.EventView, error) {
	e, err := s.load(ctx, id)
	if err != nil {
		return models.EventView{}, err
	}
	if e.CreatedBy != admin.ID {
		return models.EventView{}, utils.Forbidden("You can only edit your own events")
	}

	if in.EventName != nil {
		if e.EventName = str(in.EventName); e.EventName == "" {
			return models.EventView{}, utils.Validation("Event name cannot be empty")
		}
	}
	if in.Description != nil {
		if e.Description = str(in.Description); e.Description == "" {
			return models.EventView{}, utils.Validation("Description cannot be empty")
		}
	}
	if in.EventDate != nil {
		if e.EventDate, err = parseEventDate(*in.EventDate); err != nil {
			return models.EventView{}, err
		}
	}
	if in.Venue != nil {
		e.Venue = str(in.Venue)
	}
	if in.PhoneNumber != nil {
		e.PhoneNumber = str(in.PhoneNumber)
	}
	if in.RegistrationFee != nil {
		e.RegistrationFee = *in.RegistrationFee
	}
	if in.MaxRegistrations != nil {
		e.MaxRegistrations = *in.MaxRegistrations
	}
	if err := checkLimits(e.RegistrationFee, e.MaxRegistrations); err != nil {
		return models.EventView{}, err
	}

	oldImage := e.ImageURL
	if image != nil {
		if e.ImageURL, err = s.uploads.SaveImage(image); err != nil {
			return models.EventView{}, err
		}
	}
	e.UpdatedAt = time.Now().UTC()
	if err := s.events.Update(ctx, &e); err != nil {
		if image != nil {
			s.uploads.Remove(e.ImageURL)
		}
		if errors.Is(err, models.ErrNotFound) {
			return models.EventView{}, utils.NotFound("Event not found")
		}
		return models.EventView{}, utils.Internal("Failed to update event", err)
	}
	if image != nil && oldImage != "" {
		s.uploads.Remove(oldImage)
	}

	s.cache.PurgeEvent(ctx, e.ID)
	return s.Get(ctx, e.ID)
}

func (s *EventService) Delete(ctx context.Context, admin *models.User, id string) error {
	e, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if e.CreatedBy != admin.ID {
		return utils.Forbidden("You can only delete your own events")
	}
	if err := s.events.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return utils.NotFound("Event not found")
		}
		return utils.Internal("Failed to delete event", err)
	}
	s.uploads.Remove(e.ImageURL)
	s.cache.PurgeEvent(ctx, id)
	logger.Log.Info("event deleted", zap.String("eventId", id))
	return nil
}

// Calendar renders the event as an .ics document.
func (s *EventService) Calendar(ctx context.Context, id string) (models.Event, string, error) {
	e, err := s.load(ctx, id)
	if err != nil {
		return models.Event{}, "", err
	}
	organizer := ""
	if u, err := s.users.GetByID(ctx, e.CreatedBy); err == nil {
		organizer = "mailto:" + u.Email
	}
	return e, exports.EventCalendar(e, organizer), nil
}
