package models

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoClubRepo struct {
	col *mongo.Collection
}

func NewMongoClubRepository(col *mongo.Collection) ClubRepository {
	return &mongoClubRepo{col: col}
}

var clubSort = options.Find().SetSort(bson.D{{Key: "category", Value: 1}, {Key: "clubName", Value: 1}})

func (r *mongoClubRepo) list(ctx context.Context, filter bson.M) ([]Club, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, filter, clubSort)
	if err != nil {
		return nil, err
	}
	out := []Club{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mongoClubRepo) ListActive(ctx context.Context) ([]Club, error) {
	return r.list(ctx, bson.M{"isActive": true})
}

func (r *mongoClubRepo) ListAll(ctx context.Context) ([]Club, error) {
	return r.list(ctx, bson.M{})
}

func (r *mongoClubRepo) FindActive(ctx context.Context, clubName, category string) (Club, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var c Club
	err := r.col.FindOne(ctx, bson.M{"clubName": clubName, "category": category, "isActive": true}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Club{}, ErrNotFound
	}
	return c, err
}

// Claim 用 findOneAndUpdate 一次完成「檢查 + 關閉」，兩個人同時認領只有一個會成功
func (r *mongoClubRepo) Claim(ctx context.Context, clubName, category string) (Club, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var c Club
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"clubName": clubName, "category": category, "isActive": true},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Club{}, ErrNotFound
	}
	return c, err
}

func (r *mongoClubRepo) Release(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"isActive": true, "updatedAt": time.Now().UTC()}})
	return err
}

func (r *mongoClubRepo) ReplaceAll(ctx context.Context, clubs []Club) error {
	ctx, cancel := context.WithTimeout(ctx, 3*opTimeout)
	defer cancel()

	if _, err := r.col.DeleteMany(ctx, bson.M{}); err != nil {
		return err
	}
	if len(clubs) == 0 {
		return nil
	}
	docs := make([]any, 0, len(clubs))
	for _, c := range clubs {
		docs = append(docs, c)
	}
	_, err := r.col.InsertMany(ctx, docs)
	return err
}
