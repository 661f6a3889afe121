package models

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoRegistrationRepo struct {
	col *mongo.Collection
}

// NewMongoRegistrationRepository relies on the unique (user, event) index
// created by db.EnsureIndexes.
func NewMongoRegistrationRepository(col *mongo.Collection) RegistrationRepository {
	return &mongoRegistrationRepo{col: col}
}

func (r *mongoRegistrationRepo) findOne(ctx context.Context, filter bson.M) (Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var reg Registration
	if err := r.col.FindOne(ctx, filter).Decode(&reg); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Registration{}, ErrNotFound
		}
		return Registration{}, err
	}
	return reg, nil
}

func (r *mongoRegistrationRepo) GetByID(ctx context.Context, id string) (Registration, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoRegistrationRepo) Find(ctx context.Context, userID, eventID string) (Registration, error) {
	return r.findOne(ctx, bson.M{"user": userID, "event": eventID})
}

func (r *mongoRegistrationRepo) CreateSettled(ctx context.Context, reg *Registration) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	reg.CreatedAt, reg.UpdatedAt = now, now
	_, err := r.col.InsertOne(ctx, reg)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (r *mongoRegistrationRepo) UpsertPending(ctx context.Context, userID, eventID, orderID string, amount float64) (Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := time.Now().UTC()
	// 只覆蓋 pending / failed；已 paid / free 的那筆不會 match，
	// upsert 會撞 (user, event) unique index → ErrDuplicate
	filter := bson.M{
		"user":          userID,
		"event":         eventID,
		"paymentStatus": bson.M{"$in": bson.A{StatusPending, StatusFailed}},
	}
	update := bson.M{
		"$set": bson.M{
			"paymentStatus":   StatusPending,
			"razorpayOrderId": orderID,
			"amountPaid":      amount,
			"updatedAt":       now,
		},
		"$unset":       bson.M{"razorpayPaymentId": "", "razorpaySignature": ""},
		"$setOnInsert": bson.M{"_id": uuid.NewString(), "createdAt": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var reg Registration
	err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&reg)
	if mongo.IsDuplicateKeyError(err) {
		return Registration{}, ErrDuplicate
	}
	if err != nil {
		return Registration{}, err
	}
	return reg, nil
}

func (r *mongoRegistrationRepo) MarkPaid(ctx context.Context, userID, eventID, orderID, paymentID, signature string) (Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var reg Registration
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"user": userID, "event": eventID, "razorpayOrderId": orderID, "paymentStatus": StatusPending},
		bson.M{"$set": bson.M{
			"paymentStatus":     StatusPaid,
			"razorpayPaymentId": paymentID,
			"razorpaySignature": signature,
			"updatedAt":         time.Now().UTC(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&reg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Registration{}, ErrNotFound
	}
	return reg, err
}

func (r *mongoRegistrationRepo) MarkFailed(ctx context.Context, userID, eventID, orderID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := r.col.UpdateOne(ctx,
		bson.M{"user": userID, "event": eventID, "razorpayOrderId": orderID, "paymentStatus": StatusPending},
		bson.M{"$set": bson.M{"paymentStatus": StatusFailed, "updatedAt": time.Now().UTC()}},
	)
	return err
}

func (r *mongoRegistrationRepo) list(ctx context.Context, filter bson.M, statuses []PaymentStatus) ([]Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if len(statuses) > 0 {
		filter["paymentStatus"] = bson.M{"$in": statuses}
	}
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	out := []Registration{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mongoRegistrationRepo) ListByUser(ctx context.Context, userID string, statuses ...PaymentStatus) ([]Registration, error) {
	return r.list(ctx, bson.M{"user": userID}, statuses)
}

func (r *mongoRegistrationRepo) ListByEvent(ctx context.Context, eventID string, statuses ...PaymentStatus) ([]Registration, error) {
	return r.list(ctx, bson.M{"event": eventID}, statuses)
}
