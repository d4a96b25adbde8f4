package configs

import (
	"time"

	"dreambot/game"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	BotToken      string  `env:"BOT_TOKEN,required,notEmpty"`
	AdminIds      []int64 `env:"ADMIN_IDS" envSeparator:","`
	AdminNotifyId int64   `env:"ADMIN_NOTIFY_ID"`

	PostgresURL   string `env:"POSTGRES_URL,required,notEmpty"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	HTTPAddr       string   `env:"HTTP_ADDR" envDefault:":5000"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	Debug          bool     `env:"DEBUG_LOGGING" envDefault:"false"`

	RoundDuration  time.Duration `env:"ROUND_DURATION" envDefault:"2m"`
	AnswerCooldown time.Duration `env:"ANSWER_COOLDOWN" envDefault:"5s"`
	LockTTL        time.Duration `env:"LOCK_TTL" envDefault:"1s"`
	LockPoll       time.Duration `env:"LOCK_POLL" envDefault:"50ms"`
	LockWait       time.Duration `env:"LOCK_WAIT" envDefault:"10s"`

	UserRateLimit float64 `env:"USER_RATE_LIMIT" envDefault:"1"`
	UserRateBurst int     `env:"USER_RATE_BURST" envDefault:"5"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return env.ParseAs[Config]()
}

func (c Config) GameParams() game.Params {
	return game.Params{
		RoundDuration:  c.RoundDuration,
		AnswerCooldown: c.AnswerCooldown,
		LockTTL:        c.LockTTL,
		LockPoll:       c.LockPoll,
		LockWait:       c.LockWait,
	}
}
