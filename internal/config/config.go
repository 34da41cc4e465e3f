package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel  string          `yaml:"log_level" env:"LOG_LEVEL" env-default:"INFO"`
	HelpDir   string          `yaml:"help_dir" env:"HELP_DIR" env-default:"./help"`
	HTTP      HTTPConfig      `yaml:"http"`
	DB        DBConfig        `yaml:"db"`
	JWT       JWTConfig       `yaml:"jwt"`
	Redis     RedisConfig     `yaml:"redis"`
	Push      PushConfig      `yaml:"push"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type HTTPConfig struct {
	Address         string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	GinMode         string        `yaml:"gin_mode" env:"GIN_MODE" env-default:"debug"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

type DBConfig struct {
	Driver     string `yaml:"driver" env:"DB_DRIVER" env-default:"mysql"`
	Host       string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port       string `yaml:"port" env:"DB_PORT" env-default:"3306"`
	User       string `yaml:"user" env:"DB_USER" env-default:"todo"`
	Password   string `yaml:"password" env:"DB_PASSWORD" env-default:"todopassword"`
	Name       string `yaml:"name" env:"DB_NAME" env-default:"todo"`
	SQLitePath string `yaml:"sqlite_path" env:"DB_SQLITE_PATH" env-default:"todo.db"`
}

type JWTConfig struct {
	Secret   string        `yaml:"secret" env:"JWT_SECRET" env-default:"change-me-please"`
	Issuer   string        `yaml:"issuer" env:"JWT_ISSUER" env-default:"team-todo-api"`
	Audience string        `yaml:"audience" env:"JWT_AUDIENCE" env-default:"team-todo-clients"`
	TTL      time.Duration `yaml:"ttl" env:"JWT_TTL" env-default:"12h"`
}

// RedisConfig configures the token denylist. An empty address keeps revocations in memory.
type RedisConfig struct {
	Address  string `yaml:"address" env:"REDIS_ADDRESS"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type PushConfig struct {
	Provider       string `yaml:"provider" env:"PUSH_PROVIDER" env-default:"log"`
	FCMCredentials string `yaml:"fcm_credentials" env:"FCM_CREDENTIALS_FILE" env-default:"firebase-adminsdk.json"`
	NATSURL        string `yaml:"nats_url" env:"NATS_URL" env-default:"nats://localhost:4222"`
	NATSSubject    string `yaml:"nats_subject" env:"NATS_PUSH_SUBJECT" env-default:"push.notifications"`
}

type RateLimitConfig struct {
	LoginPerMinute int `yaml:"login_per_minute" env:"LOGIN_RATE_PER_MINUTE" env-default:"20"`
	LoginBurst     int `yaml:"login_burst" env:"LOGIN_RATE_BURST" env-default:"5"`
}

// MustLoad reads configPath when it exists and falls back to the environment otherwise.
func MustLoad(configPath string) Config {
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot load config: %s", err)
	}
	return cfg
}

func Load(configPath string) (Config, error) {
	var cfg Config

	// a missing .env is fine, variables may come from the process environment
	_ = godotenv.Load()

	if configPath == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return cfg, fmt.Errorf("cannot read env: %w", err)
		}
		return cfg, cfg.validate()
	}

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		var pe *os.PathError
		if !errors.As(err, &pe) {
			return cfg, fmt.Errorf("cannot read config %q: %w", configPath, err)
		}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return cfg, fmt.Errorf("cannot read env: %w", err)
		}
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.DB.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported db driver %q", c.DB.Driver)
	}
	switch c.Push.Provider {
	case "fcm", "nats", "log":
	default:
		return fmt.Errorf("unsupported push provider %q", c.Push.Provider)
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt secret is required")
	}
	return nil
}
