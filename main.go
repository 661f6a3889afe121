package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"collegeevents/config"
	"collegeevents/db"
	"collegeevents/logger"
	"collegeevents/mailer"
	"collegeevents/middlewares"
	"collegeevents/models"
	"collegeevents/payment"
	"collegeevents/routes"
	"collegeevents/services"
	"collegeevents/utils"
)

func main() {
	seed := flag.Bool("seed", false, "replace the clubs collection with the built-in list and exit")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("config error:", err)
	}
	if err := logger.Init(&logger.Config{
		Level:      cfg.LogLevel,
		Filename:   cfg.LogFilename,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
		Compress:   cfg.LogCompress,
	}); err != nil {
		log.Fatal("logger init error:", err)
	}
	defer logger.Sync()

	// Mongo
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	mg, err := db.ConnectMongo(ctx, cfg.MongoURI, 5, 3*time.Second)
	if err != nil {
		logger.Log.Fatal("mongo connect failed", zap.Error(err))
	}
	defer func() { _ = mg.Disconnect(context.Background()) }()

	database := mg.Database(cfg.MongoDatabase)
	if err := db.EnsureIndexes(ctx, database); err != nil {
		logger.Log.Fatal("ensure indexes failed", zap.Error(err))
	}

	users := models.NewMongoUserRepository(database.Collection(db.UsersCollection))
	clubs := models.NewMongoClubRepository(database.Collection(db.ClubsCollection))
	events := models.NewMongoEventRepository(database.Collection(db.EventsCollection))
	regs := ledger(cfg, database)

	// Redis（沒設就不快取）
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Log.Warn("redis unavailable, running without cache", zap.Error(err))
			_ = rdb.Close()
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}
	inv := utils.NewCacheInvalidator(rdb)

	clubSvc := services.NewClubService(clubs, inv)
	if *seed {
		n, err := clubSvc.Seed(ctx)
		if err != nil {
			logger.Log.Fatal("seed clubs failed", zap.Error(err))
		}
		logger.Log.Info("clubs seeded", zap.Int("count", n))
		return
	}

	vault, err := utils.NewPasswordVault(cfg.EncryptionKey())
	if err != nil {
		logger.Log.Fatal("password vault", zap.Error(err))
	}
	gateway := payment.New(payment.RazorpayConfig{
		KeyID:     cfg.RazorpayKeyID,
		KeySecret: cfg.RazorpayKeySecret,
		BaseURL:   cfg.RazorpayBaseURL,
	})
	if gateway == nil {
		logger.Log.Warn("razorpay keys missing, paid registration disabled")
	}
	mail := mailer.New(mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.EmailUser,
		Password: cfg.EmailPass,
		From:     cfg.MailFrom(),
		FromName: cfg.MailFromName,
	})
	if mail == nil {
		logger.Log.Warn("smtp credentials missing, password recovery disabled")
	}

	uploads := &utils.Uploader{Dir: cfg.UploadDir, MaxBytes: cfg.MaxUploadBytes, MaxWidth: cfg.ImageMaxWidth}

	gin.SetMode(cfg.GinMode)
	server := gin.New()
	stop := routes.RegisterRoutes(server, routes.Deps{
		Auth: services.NewAuthService(services.AuthDeps{
			Users:              users,
			Clubs:              clubs,
			Tokens:             utils.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiresIn),
			Vault:              vault,
			Mailer:             mail,
			Uploads:            uploads,
			Cache:              inv,
			BcryptCost:         cfg.BcryptCost,
			TempPasswordPrefix: cfg.TempPasswordPrefix,
		}),
		Clubs:  clubSvc,
		Events: services.NewEventService(events, users, uploads, inv, cfg.DefaultVenue),
		Registrations: services.NewRegistrationService(services.RegistrationDeps{
			Events:   events,
			Regs:     regs,
			Users:    users,
			Gateway:  gateway,
			Cache:    inv,
			Currency: cfg.PaymentCurrency,
		}),
		Redis:          rdb,
		CacheTTL:       cfg.CacheTTL,
		ClientURL:      cfg.ClientURL,
		UploadDir:      cfg.UploadDir,
		MaxUploadBytes: cfg.MaxUploadBytes,
		AuthRate:       middlewares.LimiterConfig{RPS: cfg.AuthRateRPS, Burst: cfg.AuthRateBurst, IdleTTL: 10 * time.Minute},
		OrderQuota:     cfg.OrderQuotaPerDay,
	})
	defer stop()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: server, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("graceful shutdown failed", zap.Error(err))
	}
}

// ledger 報名表預設放 Mongo；LEDGER_BACKEND=postgres 時改用 Postgres
func ledger(cfg *config.Config, database *mongo.Database) models.RegistrationRepository {
	if cfg.LedgerBackend != "postgres" {
		return models.NewMongoRegistrationRepository(database.Collection(db.RegistrationsCollection))
	}
	if err := db.MigratePostgres(cfg.PostgresDSN); err != nil {
		logger.Log.Fatal("postgres migrate failed", zap.Error(err))
	}
	sqldb, err := db.OpenPostgres(cfg.PostgresDSN)
	if err != nil {
		logger.Log.Fatal("postgres connect failed", zap.Error(err))
	}
	logger.Log.Info("registration ledger on postgres")
	return models.NewSQLRegistrationRepository(sqldb)
}
