package models

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Postgres 版報名帳本；event_id / user_id 直接存 Mongo 的 UUID 字串（跨庫統一鍵）
type sqlRegistrationRepo struct{ db *sql.DB }

func NewSQLRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &sqlRegistrationRepo{db}
}

const regColumns = `id, user_id, event_id, payment_status, razorpay_order_id, razorpay_payment_id,
	razorpay_signature, amount_paid, created_at, updated_at`

type rowScanner interface{ Scan(dest ...any) error }

func scanRegistration(row rowScanner) (Registration, error) {
	var (
		reg                     Registration
		status                  string
		orderID, paymentID, sig sql.NullString
	)
	err := row.Scan(&reg.ID, &reg.UserID, &reg.EventID, &status, &orderID, &paymentID,
		&sig, &reg.AmountPaid, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		return Registration{}, err
	}
	reg.PaymentStatus = PaymentStatus(status)
	reg.RazorpayOrderID, reg.RazorpayPaymentID, reg.RazorpaySignature = orderID.String, paymentID.String, sig.String
	return reg, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (r *sqlRegistrationRepo) one(ctx context.Context, query string, args ...any) (Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	reg, err := scanRegistration(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Registration{}, ErrNotFound
	}
	return reg, err
}

func (r *sqlRegistrationRepo) GetByID(ctx context.Context, id string) (Registration, error) {
	return r.one(ctx, `SELECT `+regColumns+` FROM registrations WHERE id=$1`, id)
}

func (r *sqlRegistrationRepo) Find(ctx context.Context, userID, eventID string) (Registration, error) {
	return r.one(ctx, `SELECT `+regColumns+` FROM registrations WHERE user_id=$1 AND event_id=$2`, userID, eventID)
}

func (r *sqlRegistrationRepo) CreateSettled(ctx context.Context, reg *Registration) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	reg.CreatedAt, reg.UpdatedAt = now, now
	// 依賴 UNIQUE(user_id, event_id) 來杜絕重複
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO registrations (id, user_id, event_id, payment_status, amount_paid, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$6)`,
		reg.ID, reg.UserID, reg.EventID, string(reg.PaymentStatus), reg.AmountPaid, now)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *sqlRegistrationRepo) UpsertPending(ctx context.Context, userID, eventID, orderID string, amount float64) (Registration, error) {
	// 衝突時只在 pending / failed 才覆寫；已 paid / free → 沒有 RETURNING row
	reg, err := r.one(ctx,
		`INSERT INTO registrations (id, user_id, event_id, payment_status, razorpay_order_id, amount_paid)
		 VALUES ($1,$2,$3,'pending',$4,$5)
		 ON CONFLICT (user_id, event_id) DO UPDATE SET
		     payment_status = 'pending',
		     razorpay_order_id = EXCLUDED.razorpay_order_id,
		     razorpay_payment_id = NULL,
		     razorpay_signature = NULL,
		     amount_paid = EXCLUDED.amount_paid,
		     updated_at = now()
		 WHERE registrations.payment_status IN ('pending','failed')
		 RETURNING `+regColumns,
		uuid.NewString(), userID, eventID, orderID, amount)
	if errors.Is(err, ErrNotFound) {
		return Registration{}, ErrDuplicate
	}
	return reg, err
}

func (r *sqlRegistrationRepo) MarkPaid(ctx context.Context, userID, eventID, orderID, paymentID, signature string) (Registration, error) {
	return r.one(ctx,
		`UPDATE registrations
		    SET payment_status='paid', razorpay_payment_id=$4, razorpay_signature=$5, updated_at=now()
		  WHERE user_id=$1 AND event_id=$2 AND razorpay_order_id=$3 AND payment_status='pending'
		  RETURNING `+regColumns,
		userID, eventID, orderID, paymentID, signature)
}

func (r *sqlRegistrationRepo) MarkFailed(ctx context.Context, userID, eventID, orderID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := r.db.ExecContext(ctx,
		`UPDATE registrations SET payment_status='failed', updated_at=now()
		  WHERE user_id=$1 AND event_id=$2 AND razorpay_order_id=$3 AND payment_status='pending'`,
		userID, eventID, orderID)
	return err
}

// column 只會是固定的欄位名，不是使用者輸入
func (r *sqlRegistrationRepo) list(ctx context.Context, column, value string, statuses []PaymentStatus) ([]Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := `SELECT ` + regColumns + ` FROM registrations WHERE ` + column + `=$1`
	args := []any{value}
	if len(statuses) > 0 {
		ss := make([]string, len(statuses))
		for i, s := range statuses {
			ss[i] = string(s)
		}
		query += ` AND payment_status = ANY($2)`
		args = append(args, pq.Array(ss))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Registration{}
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, reg)
	}
	return out, rows.Err()
}

func (r *sqlRegistrationRepo) ListByUser(ctx context.Context, userID string, statuses ...PaymentStatus) ([]Registration, error) {
	return r.list(ctx, "user_id", userID, statuses)
}

func (r *sqlRegistrationRepo) ListByEvent(ctx context.Context, eventID string, statuses ...PaymentStatus) ([]Registration, error) {
	return r.list(ctx, "event_id", eventID, statuses)
}
