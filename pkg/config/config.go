package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	JWT        JWTConfig
	PagBank    PagBankConfig
	CreditCard CreditCardConfig
	Boleto     BoletoConfig
	Pix        PixConfig
	Webhook    WebhookConfig
	RateLimit  RateLimitConfig
	Store      StoreConfig
	Flags      FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"PAGBANK_APP_ENV" required:"true"`
	Port         string   `envconfig:"PAGBANK_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"PAGBANK_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"PAGBANK_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"PAGBANK_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PAGBANK_DB_DSN"`
	Driver string `envconfig:"PAGBANK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PAGBANK_DB_HOST"`
	LegacyPort     int    `envconfig:"PAGBANK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PAGBANK_DB_USER"`
	LegacyPassword string `envconfig:"PAGBANK_DB_PASSWORD"`
	LegacyName     string `envconfig:"PAGBANK_DB_NAME"`
	LegacySSLMode  string `envconfig:"PAGBANK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PAGBANK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PAGBANK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PAGBANK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PAGBANK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PAGBANK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PAGBANK_REDIS_ADDR"`
	Password     string        `envconfig:"PAGBANK_REDIS_PASSWORD"`
	DB           int           `envconfig:"PAGBANK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PAGBANK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PAGBANK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PAGBANK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PAGBANK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PAGBANK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig protects the admin surface (connect, refunds, forced renewals).
type JWTConfig struct {
	Secret            string `envconfig:"PAGBANK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PAGBANK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PAGBANK_JWT_EXPIRATION_MINUTES" default:"60"`
}

// PagBankConfig selects the connect application and environment used when
// talking to the provider.
type PagBankConfig struct {
	Environment   string `envconfig:"PAGBANK_ENVIRONMENT" default:"sandbox"`
	ApplicationID string `envconfig:"PAGBANK_APPLICATION_ID" default:"pagbank-demo-sandbox"`
	// RedirectURL is where the provider sends the merchant back after the
	// OAuth consent screen. Must match the URL registered with the
	// application.
	RedirectURL string `envconfig:"PAGBANK_CONNECT_REDIRECT_URL"`
}

type CreditCardConfig struct {
	Enabled bool `envconfig:"PAGBANK_CC_ENABLED" default:"true"`
	// MaxAmountCents of zero means no cap.
	MaxAmountCents         int64 `envconfig:"PAGBANK_CC_MAX_AMOUNT_CENTS" default:"0"`
	MaxInstallments        int   `envconfig:"PAGBANK_CC_MAX_INSTALLMENTS" default:"12"`
	InstallmentsFreeOfFee  int   `envconfig:"PAGBANK_CC_INSTALLMENTS_FREE_OF_FEE" default:"1"`
	MinInstallmentCents    int64 `envconfig:"PAGBANK_CC_MIN_INSTALLMENT_CENTS" default:"500"`
	TransferOfInterestFee  bool  `envconfig:"PAGBANK_CC_TRANSFER_OF_INTEREST" default:"false"`
	AllowTokenizedPayments bool  `envconfig:"PAGBANK_CC_ALLOW_SAVED_CARDS" default:"true"`
}

type BoletoConfig struct {
	Enabled        bool  `envconfig:"PAGBANK_BOLETO_ENABLED" default:"true"`
	MaxAmountCents int64 `envconfig:"PAGBANK_BOLETO_MAX_AMOUNT_CENTS" default:"0"`
	ExpirationDays int   `envconfig:"PAGBANK_BOLETO_EXPIRATION_DAYS" default:"3"`
}

type PixConfig struct {
	Enabled           bool  `envconfig:"PAGBANK_PIX_ENABLED" default:"true"`
	MaxAmountCents    int64 `envconfig:"PAGBANK_PIX_MAX_AMOUNT_CENTS" default:"0"`
	ExpirationMinutes int   `envconfig:"PAGBANK_PIX_EXPIRATION_MINUTES" default:"1440"`
}

type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"PAGBANK_WEBHOOK_IDEMPOTENCY_TTL" default:"24h"`
	// NotificationURL is the public callback registered on every charge.
	NotificationURL string `envconfig:"PAGBANK_WEBHOOK_NOTIFICATION_URL"`
}

// RateLimitConfig throttles the public payment surfaces. The per-order
// webhook limit slows password guessing against a single order.
type RateLimitConfig struct {
	Window          time.Duration `envconfig:"PAGBANK_RATE_LIMIT_WINDOW" default:"1m"`
	CheckoutIPLimit int           `envconfig:"PAGBANK_RATE_LIMIT_CHECKOUT_IP" default:"30"`
	WebhookIPLimit  int           `envconfig:"PAGBANK_RATE_LIMIT_WEBHOOK_IP" default:"120"`
	WebhookOrder    int           `envconfig:"PAGBANK_RATE_LIMIT_WEBHOOK_ORDER" default:"20"`
}

// StoreConfig carries the host-shop identity surfaced in provider payloads
// (boleto instruction lines, charge descriptions).
type StoreConfig struct {
	Name     string `envconfig:"PAGBANK_STORE_NAME" default:"Loja"`
	Currency string `envconfig:"PAGBANK_STORE_CURRENCY" default:"BRL"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PAGBANK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PAGBANK_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
