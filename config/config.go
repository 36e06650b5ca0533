package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	App       AppConfig       `mapstructure:"app"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	AES       AESConfig       `mapstructure:"aes"`
	Stripe    StripeConfig    `mapstructure:"stripe"`
	PayPal    PayPalConfig    `mapstructure:"paypal"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Checkout  CheckoutConfig  `mapstructure:"checkout"`
	Streak    StreakConfig    `mapstructure:"streak"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
	Admin     AdminConfig     `mapstructure:"admin"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // debug, release, test
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type AppConfig struct {
	PublicURL string `mapstructure:"public_url"` // storefront base URL used in provider redirects
	Currency  string `mapstructure:"currency"`
}

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverStore    = "store" // registry lives next to the wallet state
)

type StorageConfig struct {
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
	Seal       bool   `mapstructure:"seal"` // encrypt persisted state with aes.key
}

type RegistryConfig struct {
	Driver string `mapstructure:"driver"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type AESConfig struct {
	Key string `mapstructure:"key"` // 32-byte hex-encoded key for AES-256
}

type StripeConfig struct {
	SecretKey        string        `mapstructure:"secret_key"`
	WebhookSecret    string        `mapstructure:"webhook_secret"`
	BaseURL          string        `mapstructure:"base_url"`
	APIVersion       string        `mapstructure:"api_version"`
	WebhookTolerance time.Duration `mapstructure:"webhook_tolerance"`
}

type PayPalConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	BaseURL      string `mapstructure:"base_url"`
	CheckoutURL  string `mapstructure:"checkout_url"`
	Simulate     bool   `mapstructure:"simulate"` // resolve SANDBOX-* orders locally
	BrandName    string `mapstructure:"brand_name"`
}

type ProviderConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type CheckoutConfig struct {
	MinAmount int64 `mapstructure:"min_amount"`
	MaxAmount int64 `mapstructure:"max_amount"`
}

type StreakConfig struct {
	BonusAmount  int64  `mapstructure:"bonus_amount"`
	IntervalDays int    `mapstructure:"interval_days"`
	Timezone     string `mapstructure:"timezone"`
}

type ReconcileConfig struct {
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	StaleAfter    time.Duration `mapstructure:"stale_after"`
	BatchSize     int           `mapstructure:"batch_size"`
}

type AdminConfig struct {
	TokenHash string `mapstructure:"token_hash"` // argon2id encoded hash of the admin token
}

type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int64         `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Validate rejects driver combinations the app cannot wire.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite, DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Registry.Driver {
	case DriverStore, DriverRedis:
	default:
		return fmt.Errorf("unknown registry driver %q", c.Registry.Driver)
	}
	if c.Storage.Seal && c.AES.Key == "" {
		return errors.New("storage.seal requires aes.key")
	}
	if c.Checkout.MaxAmount > 0 && c.Checkout.MaxAmount < c.Checkout.MinAmount {
		return errors.New("checkout.max_amount must not be below checkout.min_amount")
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	return nil
}

// Load reads configuration from .env, file and environment variables.
// Environment variables override file values. Prefix: SFW_ (StoreFront Wallet).
// Nested keys use underscore: SFW_STRIPE_SECRET_KEY, SFW_JWT_SECRET, etc.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: SFW_STRIPE_SECRET_KEY -> stripe.secret_key
	v.SetEnvPrefix("SFW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Simulated PayPal orders are only on by default in debug mode.
	if v.IsSet("paypal.simulate") {
		cfg.PayPal.Simulate = v.GetBool("paypal.simulate")
	} else {
		cfg.PayPal.Simulate = cfg.Server.Mode == "debug"
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("app.public_url", "http://localhost:3000")
	v.SetDefault("app.currency", "jpy")
	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.sqlite_path", "data/wallet.db")
	v.SetDefault("storage.seal", false)
	v.SetDefault("registry.driver", DriverStore)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "storefront_wallet")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "720h")
	v.SetDefault("jwt.issuer", "storefront-wallet")
	v.SetDefault("aes.key", "")
	v.SetDefault("stripe.secret_key", "")
	v.SetDefault("stripe.webhook_secret", "")
	v.SetDefault("stripe.base_url", "https://api.stripe.com")
	v.SetDefault("stripe.api_version", "2023-10-16")
	v.SetDefault("stripe.webhook_tolerance", "5m")
	v.SetDefault("paypal.client_id", "")
	v.SetDefault("paypal.client_secret", "")
	v.SetDefault("paypal.base_url", "https://api-m.sandbox.paypal.com")
	v.SetDefault("paypal.checkout_url", "https://www.sandbox.paypal.com")
	v.SetDefault("paypal.brand_name", "Storefront")
	v.SetDefault("provider.timeout", "5s")
	v.SetDefault("checkout.min_amount", 100)
	v.SetDefault("checkout.max_amount", 1_000_000)
	v.SetDefault("streak.bonus_amount", 100)
	v.SetDefault("streak.interval_days", 7)
	v.SetDefault("streak.timezone", "UTC")
	v.SetDefault("reconcile.sweep_interval", "1m")
	v.SetDefault("reconcile.stale_after", "2m")
	v.SetDefault("reconcile.batch_size", 100)
	v.SetDefault("admin.token_hash", "")
	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.requests", 30)
	v.SetDefault("ratelimit.window", "1m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}
