package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"trivia-arena"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres Postgres
	Redis    Redis
	Security Security
	Engine   Engine
	CORS     CORS
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
}

// Redis holds the connection used for the question-pool cache and the
// dependency ping.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Security stores secrets consumed by the Identity Gate.
type Security struct {
	JWTSecret string `env:"JWT_SECRET,notEmpty"`
}

// Engine groups the recognized match engine options of spec §6.
type Engine struct {
	QuestionDurationSec    int           `env:"QUESTION_DURATION_SEC" envDefault:"20"`
	AutoAdvanceDelaySec    int           `env:"AUTO_ADVANCE_DELAY_SEC" envDefault:"3"`
	MaxQuestionsPerMatch   int           `env:"MAX_QUESTIONS_PER_MATCH" envDefault:"50"`
	BroadcastQueueCap      int           `env:"BROADCAST_QUEUE_CAP" envDefault:"256"`
	SettlementRetries      int           `env:"SETTLEMENT_RETRIES" envDefault:"5"`
	ExecutorAcquireTimeout time.Duration `env:"EXECUTOR_ACQUIRE_TIMEOUT_MS" envDefault:"2000ms"`
	ShutdownGrace          time.Duration `env:"SHUTDOWN_GRACE_MS" envDefault:"5000ms"`
}

// CORS holds Cross-Origin Resource Sharing configuration for the thin HTTP surface.
type CORS struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS" envSeparator:"," envDefault:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS" envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE" envDefault:"3600"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
