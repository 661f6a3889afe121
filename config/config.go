package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	GinMode string

	// Mongo 為主資料庫；Postgres 只在 LEDGER_BACKEND=postgres 時用來存報名
	MongoURI      string
	MongoDatabase string
	LedgerBackend string
	PostgresDSN   string

	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration

	JWTSecret             string
	JWTExpiresIn          time.Duration
	PasswordEncryptionKey string
	BcryptCost            int
	TempPasswordPrefix    string

	RazorpayKeyID     string
	RazorpayKeySecret string
	RazorpayBaseURL   string
	PaymentCurrency   string

	SMTPHost     string
	SMTPPort     int
	EmailUser    string
	EmailPass    string
	MailFromName string

	ClientURL      string
	UploadDir      string
	MaxUploadBytes int64
	ImageMaxWidth  uint
	DefaultVenue   string

	AuthRateRPS      float64
	AuthRateBurst    int
	OrderQuotaPerDay int

	LogLevel      string
	LogFilename   string
	LogMaxSize    int
	LogMaxBackups int
	LogMaxAge     int
	LogCompress   bool
}

// LoadConfig reads the environment, optionally seeded from a .env file.
func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		// Ignore error if .env file is not found
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	jwtTTL, err := ParseExpiry(getEnv("JWT_EXPIRES_IN", "7d"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:    getEnv("PORT", "5000"),
		GinMode: getEnv("GIN_MODE", "release"),

		MongoURI:      os.Getenv("MONGO_URI"),
		MongoDatabase: getEnv("MONGO_DB", "college_events"),
		LedgerBackend: strings.ToLower(getEnv("LEDGER_BACKEND", "mongo")),
		PostgresDSN:   os.Getenv("PG_DSN"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		CacheTTL:      time.Duration(getEnvAsInt("CACHE_TTL_SECONDS", 30)) * time.Second,

		JWTSecret:             os.Getenv("JWT_SECRET"),
		JWTExpiresIn:          jwtTTL,
		PasswordEncryptionKey: os.Getenv("PASSWORD_ENCRYPTION_KEY"),
		BcryptCost:            getEnvAsInt("BCRYPT_COST", 12),
		TempPasswordPrefix:    getEnv("TEMP_PASSWORD_PREFIX", "BMSCE@"),

		RazorpayKeyID:     os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret: os.Getenv("RAZORPAY_KEY_SECRET"),
		RazorpayBaseURL:   getEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com"),
		PaymentCurrency:   getEnv("PAYMENT_CURRENCY", "INR"),

		SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		EmailUser:    os.Getenv("EMAIL_USER"),
		EmailPass:    os.Getenv("EMAIL_PASS"),
		MailFromName: getEnv("MAIL_FROM_NAME", "BMSCE Events"),

		ClientURL:      getEnv("CLIENT_URL", "http://localhost:5173"),
		UploadDir:      getEnv("UPLOAD_DIR", "uploads"),
		MaxUploadBytes: int64(getEnvAsInt("MAX_UPLOAD_MB", 5)) << 20,
		ImageMaxWidth:  uint(getEnvAsInt("IMAGE_MAX_WIDTH", 1600)),
		DefaultVenue:   getEnv("DEFAULT_VENUE", "BMSCE Campus"),

		AuthRateRPS:      getEnvAsFloat("AUTH_RATE_RPS", 0.5),
		AuthRateBurst:    getEnvAsInt("AUTH_RATE_BURST", 5),
		OrderQuotaPerDay: getEnvAsInt("ORDER_QUOTA_PER_DAY", 50),

		LogLevel:      getEnv("LOG_LEVEL", "INFO"),
		LogFilename:   getEnv("LOG_FILENAME", "logs/app.log"),
		LogMaxSize:    getEnvAsInt("LOG_MAX_SIZE", 100),
		LogMaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 3),
		LogMaxAge:     getEnvAsInt("LOG_MAX_AGE", 28),
		LogCompress:   getEnvAsBool("LOG_COMPRESS", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.MongoURI == "" {
		return errors.New("MONGO_URI is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.LedgerBackend {
	case "mongo":
	case "postgres":
		if c.PostgresDSN == "" {
			return errors.New("PG_DSN is required when LEDGER_BACKEND=postgres")
		}
	default:
		return errors.New("LEDGER_BACKEND must be mongo or postgres")
	}
	return nil
}

// EncryptionKey falls back to the JWT secret when no dedicated key is set.
func (c *Config) EncryptionKey() string {
	if c.PasswordEncryptionKey != "" {
		return c.PasswordEncryptionKey
	}
	return c.JWTSecret
}

func (c *Config) MailFrom() string {
	return c.EmailUser
}

// ParseExpiry accepts Go durations ("72h") plus a day suffix ("7d").
func ParseExpiry(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "d") {
		n, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil || n <= 0 {
			return 0, errors.New("invalid JWT_EXPIRES_IN: " + s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, errors.New("invalid JWT_EXPIRES_IN: " + s)
	}
	return d, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
