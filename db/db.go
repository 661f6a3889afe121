package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"collegeevents/logger"
)

const (
	UsersCollection         = "users"
	ClubsCollection         = "clubs"
	EventsCollection        = "events"
	RegistrationsCollection = "registrations"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ConnectMongo 連線 + ping，失敗就等 wait 再試，最多 attempts 次
func ConnectMongo(ctx context.Context, uri string, attempts int, wait time.Duration) (*mongo.Client, error) {
	var lastErr error
	for i := 1; i <= attempts; i++ {
		client, err := tryConnect(ctx, uri)
		if err == nil {
			logger.Log.Info("mongodb connected", zap.Int("attempt", i))
			return client, nil
		}
		lastErr = err
		logger.Log.Warn("mongodb connection failed",
			zap.Int("attempt", i), zap.Int("of", attempts), zap.Error(err))
		if i < attempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return nil, fmt.Errorf("mongodb: all %d attempts failed: %w", attempts, lastErr)
}

func tryConnect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// EnsureIndexes creates the unique indexes the repositories depend on.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	unique := options.Index().SetUnique(true)
	specs := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "usn", Value: 1}}, Options: unique},
		},
		ClubsCollection: {
			{Keys: bson.D{{Key: "clubName", Value: 1}}, Options: unique},
		},
		EventsCollection: {
			{Keys: bson.D{{Key: "eventDate", Value: 1}}},
		},
		RegistrationsCollection: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "event", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "event", Value: 1}, {Key: "paymentStatus", Value: 1}}},
		},
	}
	for col, models := range specs {
		if _, err := database.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", col, err)
		}
	}
	return nil
}

func OpenPostgres(dsn string) (*sql.DB, error) {
	sqldb, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqldb.PingContext(ctx); err != nil {
		sqldb.Close()
		return nil, err
	}
	sqldb.SetMaxOpenConns(20)
	sqldb.SetMaxIdleConns(10)
	return sqldb, nil
}

// MigratePostgres applies the embedded migrations; already up to date is fine.
func MigratePostgres(dsn string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}
