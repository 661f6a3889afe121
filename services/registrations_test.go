package services

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collegeevents/models"
	"collegeevents/payment"
	"collegeevents/utils"
)

func TestRegisterFree(t *testing.T) {
	f := newRegFixture(t, false)
	ctx := context.Background()
	admin := f.admin(t, "ACM")
	ev := f.event(t, admin, 0, 0)
	asha := f.student(t, "asha")

	_, err := f.svc.RegisterFree(ctx, asha, "")
	assert.Equal(t, "Event ID is required", messageOf(err))
	_, err = f.svc.RegisterFree(ctx, asha, "missing")
	assert.Equal(t, utils.KindNotFound, kindOf(err))

	reg, err := f.svc.RegisterFree(ctx, asha, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFree, reg.PaymentStatus)
	assert.Zero(t, reg.AmountPaid)
	assert.Equal(t, 1, f.events.Count(ev.ID))

	_, err = f.svc.RegisterFree(ctx, asha, ev.ID)
	assert.Equal(t, "You are already registered for this event", messageOf(err))
	assert.Equal(t, 1, f.events.Count(ev.ID))

	paid := f.event(t, admin, 100, 0)
	_, err = f.svc.RegisterFree(ctx, asha, paid.ID)
	assert.Equal(t, "This is a paid event. Please use payment registration.", messageOf(err))
}

func TestRegisterFree_CapacityUnderContention(t *testing.T) {
	f := newRegFixture(t, false)
	admin := f.admin(t, "ACM")
	ev := f.event(t, admin, 0, 3)

	const callers = 10
	students := make([]*models.User, callers)
	for i := range students {
		students[i] = f.student(t, "s"+string(rune('a'+i)))
	}

	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.RegisterFree(context.Background(), students[i], ev.ID)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.Equal(t, "Registration is full for this event", messageOf(err))
	}
	assert.Equal(t, 3, ok)
	assert.Equal(t, 3, f.events.Count(ev.ID))

	settled, _ := f.regs.ListByEvent(context.Background(), ev.ID, models.StatusFree)
	assert.Len(t, settled, 3)
}

// dupRegs 模擬唯一索引擋下第二筆
type dupRegs struct{ models.RegistrationRepository }

func (dupRegs) Find(context.Context, string, string) (models.Registration, error) {
	return models.Registration{}, models.ErrNotFound
}

func (dupRegs) CreateSettled(context.Context, *models.Registration) error {
	return models.ErrDuplicate
}

func TestRegisterFree_DuplicateInsertReleasesSeat(t *testing.T) {
	f := newRegFixture(t, false)
	admin := f.admin(t, "ACM")
	ev := f.event(t, admin, 0, 5)
	f.svc.Regs = dupRegs{f.regs}

	_, err := f.svc.RegisterFree(context.Background(), f.student(t, "asha"), ev.ID)
	assert.Equal(t, "You are already registered for this event", messageOf(err))
	assert.Equal(t, 0, f.events.Count(ev.ID))
}

func TestCreateOrder(t *testing.T) {
	f := newRegFixture(t, true)
	ctx := context.Background()
	admin := f.admin(t, "ACM")
	ev := f.event(t, admin, 149.5, 0)
	asha := f.student(t, "asha")

	res, err := f.svc.CreateOrder(ctx, asha, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(14950), res.Order.Amount)
	assert.Equal(t, "INR", res.Order.Currency)
	assert.Equal(t, "rzp_test_key", res.Key)
	assert.Equal(t, "Hack Night", res.EventName)
	assert.Equal(t, "ACM", res.ClubName)

	require.Len(t, f.gw.Orders, 1)
	req := f.gw.Orders[0]
	assert.LessOrEqual(t, len(req.Receipt), 40)
	assert.Equal(t, ev.ID, req.Notes["eventId"])
	assert.Equal(t, asha.ID, req.Notes["userId"])
	assert.Equal(t, asha.FullName, req.Notes["userName"])

	reg, err := f.regs.Find(ctx, asha.ID, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, reg.PaymentStatus)
	assert.Equal(t, res.Order.ID, reg.RazorpayOrderID)
	assert.Equal(t, 149.5, reg.AmountPaid)
	assert.Equal(t, 0, f.events.Count(ev.ID), "order alone does not take a seat")

	// 再下一次單：同一列覆寫，不會多一筆
	res2, err := f.svc.CreateOrder(ctx, asha, ev.ID)
	require.NoError(t, err)
	reg, _ = f.regs.Find(ctx, asha.ID, ev.ID)
	assert.Equal(t, res2.Order.ID, reg.RazorpayOrderID)
	assert.Len(t, f.regs.Rows, 1)
}

func TestCreateOrder_Rejections(t *testing.T) {
	ctx := context.Background()

	f := newRegFixture(t, false)
	admin := f.admin(t, "ACM")
	paid := f.event(t, admin, 50, 0)
	asha := f.student(t, "asha")
	_, err := f.svc.CreateOrder(ctx, asha, paid.ID)
	assert.Equal(t, utils.KindUnavailable, kindOf(err))
	assert.Equal(t, 503, kindOf(err).Status())

	f = newRegFixture(t, true)
	admin = f.admin(t, "ACM")
	asha = f.student(t, "asha")
	free := f.event(t, admin, 0, 0)
	_, err = f.svc.CreateOrder(ctx, asha, free.ID)
	assert.Equal(t, "This is a free event. Use free registration instead.", messageOf(err))

	full := f.event(t, admin, 50, 1)
	require.NoError(t, f.events.ReserveSeat(ctx, full.ID))
	_, err = f.svc.CreateOrder(ctx, asha, full.ID)
	assert.Equal(t, "Registration is full for this event", messageOf(err))

	paid = f.event(t, admin, 50, 0)
	settled := models.NewRegistration(asha.ID, paid.ID, models.StatusPaid, 50)
	require.NoError(t, f.regs.CreateSettled(ctx, &settled))
	_, err = f.svc.CreateOrder(ctx, asha, paid.ID)
	assert.Equal(t, "You are already registered for this event", messageOf(err))

	f.gw.Fail = errors.New("gateway down")
	other := f.event(t, admin, 50, 0)
	_, err = f.svc.CreateOrder(ctx, asha, other.ID)
	assert.Equal(t, "Failed to create payment order", messageOf(err))
	_, err = f.regs.Find(ctx, asha.ID, other.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func pay(t *testing.T, f *regFixture, user *models.User, ev models.Event) VerifyInput {
	t.Helper()
	res, err := f.svc.CreateOrder(context.Background(), user, ev.ID)
	require.NoError(t, err)
	return VerifyInput{
		OrderID:   res.Order.ID,
		PaymentID: "pay_" + user.FullName,
		Signature: payment.Signature(f.gw.Secret, res.Order.ID, "pay_"+user.FullName),
		EventID:   ev.ID,
	}
}

func TestVerifyPayment(t *testing.T) {
	f := newRegFixture(t, true)
	ctx := context.Background()
	admin := f.admin(t, "ACM")
	ev := f.event(t, admin, 100, 0)
	asha := f.student(t, "asha")

	in := pay(t, f, asha, ev)

	_, err := f.svc.VerifyPayment(ctx, asha, VerifyInput{OrderID: in.OrderID, EventID: ev.ID})
	assert.Equal(t, "Missing payment verification data", messageOf(err))

	reg, err := f.svc.VerifyPayment(ctx, asha, in)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, reg.PaymentStatus)
	assert.Equal(t, in.PaymentID, reg.RazorpayPaymentID)
	assert.Equal(t, 1, f.events.Count(ev.ID))

	// 同一張單不能再結一次
	_, err = f.svc.VerifyPayment(ctx, asha, in)
	assert.Equal(t, utils.KindNotFound, kindOf(err))
	assert.Equal(t, 1, f.events.Count(ev.ID))
}

func TestVerifyPayment_SignatureMismatchMarksFailed(t *testing.T) {
	f := newRegFixture(t, true)
	ctx := context.Background()
	admin := f.admin(t, "ACM")
	ev := f.event(t, admin, 100, 0)
	asha := f.student(t, "asha")

	in := pay(t, f, asha, ev)
	bad := in
	bad.Signature = payment.Signature("wrong-secret", in.OrderID, in.PaymentID)

	_, err := f.svc.VerifyPayment(ctx, asha, bad)
	assert.Equal(t, "Payment verification failed", messageOf(err))
	assert.Equal(t, 400, kindOf(err).Status())
	assert.Equal(t, models.StatusFailed, f.regs.Status(asha.ID, ev.ID))
	assert.Equal(t, 0, f.events.Count(ev.ID))

	// failed 之後可以重新下單，列會回到 pending
	retry := pay(t, f, asha, ev)
	assert.Equal(t, models.StatusPending, f.regs.Status(asha.ID, ev.ID))
	_, err = f.svc.VerifyPayment(ctx, asha, retry)
	require.NoError(t, err)
	assert.Len(t, f.regs.Rows, 1)
}

func TestVerifyPayment_HonoursPaymentWhenEventFilled(t *testing.T) {
	f := newRegFixture(t, true)
	ctx := context.Background()
	admin := f.admin(t, "ACM")
	ev := f.event(t, admin, 100, 1)
	asha, ravi := f.student(t, "asha"), f.student(t, "ravi")

	inAsha := pay(t, f, asha, ev)
	inRavi := pay(t, f, ravi, ev)

	_, err := f.svc.VerifyPayment(ctx, asha, inAsha)
	require.NoError(t, err)
	_, err = f.svc.VerifyPayment(ctx, ravi, inRavi)
	require.NoError(t, err)

	assert.Equal(t, models.StatusPaid, f.regs.Status(ravi.ID, ev.ID))
	assert.Equal(t, 2, f.events.Count(ev.ID))
}

func TestVerifyPayment_NoGateway(t *testing.T) {
	f := newRegFixture(t, false)
	_, err := f.svc.VerifyPayment(context.Background(), f.student(t, "asha"),
		VerifyInput{OrderID: "o", PaymentID: "p", Signature: "s", EventID: "e"})
	assert.Equal(t, utils.KindUnavailable, kindOf(err))
}

func TestListings(t *testing.T) {
	f := newRegFixture(t, true)
	ctx := context.Background()
	acm, ieee := f.admin(t, "ACM"), f.admin(t, "IEEE")
	freeEv := f.event(t, acm, 0, 0)
	paidEv := f.event(t, acm, 100, 0)
	pendingEv := f.event(t, acm, 100, 0)
	asha := f.student(t, "asha")

	_, err := f.svc.RegisterFree(ctx, asha, freeEv.ID)
	require.NoError(t, err)
	_, err = f.svc.VerifyPayment(ctx, asha, pay(t, f, asha, paidEv))
	require.NoError(t, err)
	pay(t, f, asha, pendingEv)

	mine, err := f.svc.MyRegistrations(ctx, asha.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, r := range mine {
		assert.True(t, r.PaymentStatus.Settled())
		require.NotNil(t, r.Event)
		assert.Equal(t, "ACM", r.Event.ClubName)
	}

	_, err = f.svc.EventRegistrations(ctx, ieee, paidEv.ID)
	assert.Equal(t, "You can only view registrations for your own events", messageOf(err))
	assert.Equal(t, utils.KindForbidden, kindOf(err))

	roster, err := f.svc.EventRegistrations(ctx, acm, paidEv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hack Night", roster.EventName)
	require.Len(t, roster.Registrations, 1)
	require.NotNil(t, roster.Registrations[0].User)
	assert.Equal(t, asha.USN, roster.Registrations[0].User.USN)

	roster, err = f.svc.EventRegistrations(ctx, acm, pendingEv.ID)
	require.NoError(t, err)
	assert.Empty(t, roster.Registrations)

	name, buf, err := f.svc.ExportRegistrations(ctx, acm, paidEv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hack Night", name)
	assert.NotZero(t, buf.Len())
}

func TestTicket(t *testing.T) {
	f := newRegFixture(t, true)
	ctx := context.Background()
	acm := f.admin(t, "ACM")
	asha, ravi := f.student(t, "asha"), f.student(t, "ravi")
	freeEv := f.event(t, acm, 0, 0)
	paidEv := f.event(t, acm, 100, 0)

	reg, err := f.svc.RegisterFree(ctx, asha, freeEv.ID)
	require.NoError(t, err)

	img, err := f.svc.Ticket(ctx, asha, reg.ID)
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(img))
	require.NoError(t, err)

	_, err = f.svc.Ticket(ctx, ravi, reg.ID)
	assert.Equal(t, utils.KindForbidden, kindOf(err))

	pay(t, f, asha, paidEv)
	pending, _ := f.regs.Find(ctx, asha.ID, paidEv.ID)
	_, err = f.svc.Ticket(ctx, asha, pending.ID)
	assert.Equal(t, "Registration is not confirmed yet", messageOf(err))

	_, err = f.svc.Ticket(ctx, asha, "nope")
	assert.Equal(t, utils.KindNotFound, kindOf(err))
}
