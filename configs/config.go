package configs

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port           string        `env:"PORT" envDefault:"5000"`
	MongoURI       string        `env:"MONGO_URI"`
	DBName         string        `env:"DB_NAME" envDefault:"conductor"`
	JWTSecret      string        `env:"JWT_SECRET"`
	CommonsOrgID   string        `env:"COMMONS_ORG_ID" envDefault:"libretexts"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"5s"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	OpenAIAPIKey   string        `env:"OPENAI_API_KEY"`
	OpenAIModel    string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	LibraryAPIBase string        `env:"LIBRARY_API_BASE" envDefault:"https://api.libretexts.org/endpoint"`
	AIPacingDelay  time.Duration `env:"AI_PACING_DELAY" envDefault:"1s"`

	DefaultRubricFile   string        `env:"DEFAULT_RUBRIC_FILE"`
	AuditExportInterval time.Duration `env:"AUDIT_EXPORT_INTERVAL" envDefault:"30s"`
}

// LoadConfig reads an optional .env file and then the process environment.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.MongoURI) == "" {
		return fmt.Errorf("config: MONGO_URI is required")
	}
	if strings.TrimSpace(c.DBName) == "" {
		return fmt.Errorf("config: DB_NAME is required")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("config: REQUEST_TIMEOUT must be positive")
	}
	if c.AIPacingDelay < 0 {
		return fmt.Errorf("config: AI_PACING_DELAY must not be negative")
	}
	return nil
}
