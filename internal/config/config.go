package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
)

type Config struct {
	Port  string `env:"PORT" envDefault:"8080"`
	GoEnv string `env:"GO_ENV" envDefault:"development"`

	DBUser                 string `env:"DB_USER,required"`
	DBPassword             string `env:"DB_PASSWORD,required"`
	DBHost                 string `env:"DB_HOST,required"` // e.g. tcp(host:3306) or unix(/cloudsql/instance)
	DBName                 string `env:"DB_NAME,required"`
	DBPort                 string `env:"DB_PORT" envDefault:"3306"`
	InstanceConnectionName string `env:"INSTANCE_CONNECTION_NAME"`

	JWTSecret   string        `env:"JWT_SECRET,required,notEmpty"`
	JWTIssuer   string        `env:"JWT_ISSUER" envDefault:"internship-market"`
	JWTAudience string        `env:"JWT_AUDIENCE" envDefault:"internship-market-employees"`
	JWTTTL      time.Duration `env:"JWT_TTL" envDefault:"72h"`

	// FirebaseProjectID switches employee auth to Firebase ID tokens.
	FirebaseProjectID string `env:"FIREBASE_PROJECT_ID"`

	// No default: production ran with a week, a test build with seconds.
	NegotiationGracePeriod time.Duration `env:"NEGOTIATION_GRACE_PERIOD,required,notEmpty"`
	SweepHour              int           `env:"SWEEP_HOUR" envDefault:"2"`
	SweepTimezone          string        `env:"SWEEP_TIMEZONE" envDefault:"Local"`

	RedisAddr       string        `env:"REDIS_ADDR"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisDB         int           `env:"REDIS_DB" envDefault:"0"`
	ProductCacheTTL time.Duration `env:"PRODUCT_CACHE_TTL" envDefault:"10m"`

	ArchiveBucket         string `env:"ARCHIVE_BUCKET"`
	ArchivePrefix         string `env:"ARCHIVE_PREFIX" envDefault:"sweeps"`
	GoogleCredentialsFile string `env:"GOOGLE_CREDENTIALS_FILE"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`

	PublicRateLimit float64 `env:"PUBLIC_RATE_LIMIT" envDefault:"5"`
	PublicRateBurst int     `env:"PUBLIC_RATE_BURST" envDefault:"10"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.NegotiationGracePeriod <= 0 {
		return fmt.Errorf("NEGOTIATION_GRACE_PERIOD must be positive, got %s", c.NegotiationGracePeriod)
	}
	if c.SweepHour < 0 || c.SweepHour > 23 {
		return fmt.Errorf("SWEEP_HOUR must be within 0-23, got %d", c.SweepHour)
	}
	if c.PublicRateLimit <= 0 || c.PublicRateBurst < 1 {
		return fmt.Errorf("PUBLIC_RATE_LIMIT and PUBLIC_RATE_BURST must be positive")
	}
	if _, err := c.SweepLocation(); err != nil {
		return err
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

func (c *Config) SweepLocation() (*time.Location, error) {
	if c.SweepTimezone == "" || c.SweepTimezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.SweepTimezone)
	if err != nil {
		return nil, fmt.Errorf("SWEEP_TIMEZONE: %w", err)
	}
	return loc, nil
}
