package services

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"collegeevents/exports"
	"collegeevents/logger"
	"collegeevents/models"
	"collegeevents/payment"
	"collegeevents/utils"
)

const (
	msgEventIDRequired    = "Event ID is required"
	msgAlreadyRegistered  = "You are already registered for this event"
	msgRegistrationFull   = "Registration is full for this event"
	msgVerificationFailed = "Payment verification failed"
	msgFetchRegistrations = "Failed to fetch registrations"
)

type RegistrationDeps struct {
	Events   models.EventRepository
	Regs     models.RegistrationRepository
	Users    models.UserRepository
	Gateway  payment.Gateway // nil = 金流未設定
	Cache    *utils.CacheInvalidator
	Currency string
}

// RegistrationService runs free sign-ups and the order → verify payment flow.
// The event counter only moves for settled registrations.
type RegistrationService struct {
	RegistrationDeps
}

func NewRegistrationService(d RegistrationDeps) *RegistrationService {
	if d.Currency == "" {
		d.Currency = "INR"
	}
	return &RegistrationService{RegistrationDeps: d}
}

func (s *RegistrationService) event(ctx context.Context, eventID string) (models.Event, error) {
	if strings.TrimSpace(eventID) == "" {
		return models.Event{}, utils.Validation(msgEventIDRequired)
	}
	e, err := s.Events.GetByID(ctx, eventID)
	if errors.Is(err, models.ErrNotFound) {
		return models.Event{}, utils.NotFound("Event not found")
	}
	if err != nil {
		return models.Event{}, utils.Internal("Failed to fetch event", err)
	}
	return e, nil
}

/* -------------------- Free -------------------- */

func (s *RegistrationService) RegisterFree(ctx context.Context, user *models.User, eventID string) (models.Registration, error) {
	e, err := s.event(ctx, eventID)
	if err != nil {
		return models.Registration{}, err
	}
	if !e.IsFree() {
		return models.Registration{}, utils.Conflict("This is a paid event. Please use payment registration.")
	}
	if _, err := s.Regs.Find(ctx, user.ID, e.ID); err == nil {
		return models.Registration{}, utils.Conflict(msgAlreadyRegistered)
	} else if !errors.Is(err, models.ErrNotFound) {
		return models.Registration{}, utils.Internal("Failed to register for event", err)
	}

	// 先佔位再寫報名，寫失敗就把位子還回去
	switch err := s.Events.ReserveSeat(ctx, e.ID); {
	case errors.Is(err, models.ErrEventFull):
		return models.Registration{}, utils.Conflict(msgRegistrationFull)
	case errors.Is(err, models.ErrNotFound):
		return models.Registration{}, utils.NotFound("Event not found")
	case err != nil:
		return models.Registration{}, utils.Internal("Failed to register for event", err)
	}

	reg := models.NewRegistration(user.ID, e.ID, models.StatusFree, 0)
	if err := s.Regs.CreateSettled(ctx, &reg); err != nil {
		s.releaseSeat(ctx, e.ID)
		if errors.Is(err, models.ErrDuplicate) {
			return models.Registration{}, utils.Conflict(msgAlreadyRegistered)
		}
		return models.Registration{}, utils.Internal("Failed to register for event", err)
	}

	s.Cache.PurgeEvent(ctx, e.ID)
	logger.Log.Info("free registration",
		zap.String("eventId", e.ID),
		zap.String("userId", user.ID),
	)
	return reg, nil
}

func (s *RegistrationService) releaseSeat(ctx context.Context, eventID string) {
	if err := s.Events.ReleaseSeat(ctx, eventID); err != nil {
		logger.Log.Error("release seat failed", zap.String("eventId", eventID), zap.Error(err))
	}
}

/* -------------------- Paid -------------------- */

type OrderResult struct {
	Order     payment.Order
	EventName string
	ClubName  string
	Key       string
}

func (s *RegistrationService) CreateOrder(ctx context.Context, user *models.User, eventID string) (OrderResult, error) {
	e, err := s.event(ctx, eventID)
	if err != nil {
		return OrderResult{}, err
	}
	if e.IsFree() {
		return OrderResult{}, utils.Conflict("This is a free event. Use free registration instead.")
	}
	if r, err := s.Regs.Find(ctx, user.ID, e.ID); err == nil && r.PaymentStatus.Settled() {
		return OrderResult{}, utils.Conflict(msgAlreadyRegistered)
	} else if err != nil && !errors.Is(err, models.ErrNotFound) {
		return OrderResult{}, utils.Internal("Failed to create payment order", err)
	}
	if e.IsFull() {
		return OrderResult{}, utils.Conflict(msgRegistrationFull)
	}
	if s.Gateway == nil {
		return OrderResult{}, utils.Unavailable("Payment system is not configured yet. Please contact the administrator.")
	}

	order, err := s.Gateway.CreateOrder(ctx, payment.OrderRequest{
		Amount:   e.AmountMinor(),
		Currency: s.Currency,
		Receipt:  receipt(e.ID, user.ID),
		Notes: map[string]string{
			"eventId":   e.ID,
			"eventName": e.EventName,
			"userId":    user.ID,
			"userName":  user.FullName,
		},
	})
	if err != nil {
		return OrderResult{}, utils.Internal("Failed to create payment order", err)
	}

	if _, err := s.Regs.UpsertPending(ctx, user.ID, e.ID, order.ID, e.RegistrationFee); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return OrderResult{}, utils.Conflict(msgAlreadyRegistered)
		}
		return OrderResult{}, utils.Internal("Failed to create payment order", err)
	}

	logger.Log.Info("payment order created",
		zap.String("eventId", e.ID),
		zap.String("userId", user.ID),
		zap.String("orderId", order.ID),
		zap.Int64("amount", order.Amount),
	)
	return OrderResult{Order: order, EventName: e.EventName, ClubName: e.ClubName, Key: s.Gateway.KeyID()}, nil
}

// receipt fits the gateway's 40 character limit.
func receipt(eventID, userID string) string {
	short := func(id string) string {
		id = strings.ReplaceAll(id, "-", "")
		if len(id) > 12 {
			id = id[:12]
		}
		return id
	}
	return "evt_" + short(eventID) + "_usr_" + short(userID)
}

type VerifyInput struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
	EventID   string `json:"eventId" validate:"required"`
}

// VerifyPayment settles a pending registration once the checkout signature
// checks out. A captured payment is honoured even if the event filled up in
// the meantime.
func (s *RegistrationService) VerifyPayment(ctx context.Context, user *models.User, in VerifyInput) (models.Registration, error) {
	if err := utils.Validate(in, utils.Rule{Tag: "required", Message: "Missing payment verification data"}); err != nil {
		return models.Registration{}, err
	}
	if s.Gateway == nil {
		return models.Registration{}, utils.Unavailable("Payment system is not configured yet. Please contact the administrator.")
	}

	if !s.Gateway.VerifySignature(in.OrderID, in.PaymentID, in.Signature) {
		if err := s.Regs.MarkFailed(ctx, user.ID, in.EventID, in.OrderID); err != nil {
			logger.Log.Error("mark registration failed", zap.String("orderId", in.OrderID), zap.Error(err))
		}
		logger.Log.Warn("payment signature mismatch",
			zap.String("orderId", in.OrderID),
			zap.String("userId", user.ID),
		)
		return models.Registration{}, utils.Validation(msgVerificationFailed)
	}

	reg, err := s.Regs.MarkPaid(ctx, user.ID, in.EventID, in.OrderID, in.PaymentID, in.Signature)
	if errors.Is(err, models.ErrNotFound) {
		return models.Registration{}, utils.NotFound("Registration not found")
	}
	if err != nil {
		return models.Registration{}, utils.Internal(msgVerificationFailed, err)
	}

	switch err := s.Events.ReserveSeat(ctx, in.EventID); {
	case errors.Is(err, models.ErrEventFull):
		logger.Log.Warn("paid registration over capacity",
			zap.String("eventId", in.EventID),
			zap.String("registrationId", reg.ID),
		)
		if err := s.Events.IncrementRegistrations(ctx, in.EventID); err != nil {
			logger.Log.Error("increment registrations failed", zap.String("eventId", in.EventID), zap.Error(err))
		}
	case err != nil:
		// 錢已收，計數失敗只記錄
		logger.Log.Error("reserve seat after payment failed", zap.String("eventId", in.EventID), zap.Error(err))
	}

	s.Cache.PurgeEvent(ctx, in.EventID)
	logger.Log.Info("payment verified",
		zap.String("eventId", in.EventID),
		zap.String("userId", user.ID),
		zap.String("paymentId", in.PaymentID),
	)
	return reg, nil
}

/* -------------------- Listings -------------------- */

func (s *RegistrationService) MyRegistrations(ctx context.Context, userID string) ([]models.MyRegistration, error) {
	regs, err := s.Regs.ListByUser(ctx, userID, models.StatusPaid, models.StatusFree)
	if err != nil {
		return nil, utils.Internal(msgFetchRegistrations, err)
	}

	summaries := map[string]*models.EventSummary{}
	out := make([]models.MyRegistration, 0, len(regs))
	for _, r := range regs {
		sum, ok := summaries[r.EventID]
		if !ok {
			e, err := s.Events.GetByID(ctx, r.EventID)
			switch {
			case err == nil:
				v := e.Summary()
				sum = &v
			case !errors.Is(err, models.ErrNotFound):
				return nil, utils.Internal(msgFetchRegistrations, err)
			}
			summaries[r.EventID] = sum
		}
		out = append(out, models.MyRegistration{Registration: r, Event: sum})
	}
	return out, nil
}

type EventRoster struct {
	EventName     string
	Registrations []models.EventRegistration
}

// EventRegistrations lists settled registrants; only the event's creator may look.
func (s *RegistrationService) EventRegistrations(ctx context.Context, admin *models.User, eventID string) (EventRoster, error) {
	e, err := s.event(ctx, eventID)
	if err != nil {
		return EventRoster{}, err
	}
	if e.CreatedBy != admin.ID {
		return EventRoster{}, utils.Forbidden("You can only view registrations for your own events")
	}

	regs, err := s.Regs.ListByEvent(ctx, e.ID, models.StatusPaid, models.StatusFree)
	if err != nil {
		return EventRoster{}, utils.Internal(msgFetchRegistrations, err)
	}
	ids := make([]string, 0, len(regs))
	for _, r := range regs {
		ids = append(ids, r.UserID)
	}
	users, err := s.Users.FindByIDs(ctx, ids)
	if err != nil {
		return EventRoster{}, utils.Internal(msgFetchRegistrations, err)
	}

	out := make([]models.EventRegistration, 0, len(regs))
	for _, r := range regs {
		er := models.EventRegistration{Registration: r}
		if u, ok := users[r.UserID]; ok {
			er.User = &models.Attendee{ID: u.ID, FullName: u.FullName, Email: u.Email, USN: u.USN}
		}
		out = append(out, er)
	}
	return EventRoster{EventName: e.EventName, Registrations: out}, nil
}

// ExportRegistrations renders the roster as an .xlsx workbook.
func (s *RegistrationService) ExportRegistrations(ctx context.Context, admin *models.User, eventID string) (string, *bytes.Buffer, error) {
	roster, err := s.EventRegistrations(ctx, admin, eventID)
	if err != nil {
		return "", nil, err
	}
	buf, err := exports.RegistrantsWorkbook(roster.EventName, roster.Registrations)
	if err != nil {
		return "", nil, utils.Internal("Failed to export registrations", err)
	}
	return roster.EventName, buf, nil
}

// Ticket returns a PNG QR code for one of the caller's settled registrations.
func (s *RegistrationService) Ticket(ctx context.Context, user *models.User, registrationID string) ([]byte, error) {
	r, err := s.Regs.GetByID(ctx, registrationID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, utils.NotFound("Registration not found")
	}
	if err != nil {
		return nil, utils.Internal("Failed to fetch registration", err)
	}
	if r.UserID != user.ID {
		return nil, utils.Forbidden("You can only view your own tickets")
	}
	if !r.PaymentStatus.Settled() {
		return nil, utils.Conflict("Registration is not confirmed yet")
	}
	png, err := exports.TicketQR(r.ID)
	if err != nil {
		return nil, utils.Internal("Failed to generate ticket", err)
	}
	return png, nil
}
