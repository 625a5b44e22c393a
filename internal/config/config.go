package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName     string
	AppEnv      string
	AppPort     string
	DatabaseURL string
	RedisURL    string
	NATSURL     string
	JWTSecret   string

	Judge0URL        string
	Judge0AuthToken  string
	Judge0AuthHeader string
	Judge0Timeout    time.Duration

	PollInitialInterval time.Duration
	PollMaxInterval     time.Duration
	PollMaxAttempts     int
	PollMaxWait         time.Duration

	DefaultTimeLimitMs   int
	DefaultMemoryLimitKB int
	MaxSourceBytes       int

	ProblemCacheTTL  time.Duration
	EventChannelBase string

	SubmitRateLimit  int
	SubmitRateWindow time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PREPCODE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "PrepCode API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("judge0.auth_header", "X-Auth-Token")
	v.SetDefault("judge0.timeout", "10s")
	v.SetDefault("poll.initial_interval", "500ms")
	v.SetDefault("poll.max_interval", "2s")
	v.SetDefault("poll.max_attempts", 30)
	v.SetDefault("poll.max_wait", "60s")
	v.SetDefault("judge.default_time_limit_ms", 2000)
	v.SetDefault("judge.default_memory_limit_kb", 262144)
	v.SetDefault("judge.max_source_bytes", 65536)
	v.SetDefault("problem.cache_ttl", "5m")
	v.SetDefault("events.channel", "prepcode")
	v.SetDefault("submit.rate_limit", 10)
	v.SetDefault("submit.rate_window", "1m")
}

func fromViper(v *viper.Viper) (Config, error) {
	setDefaults(v)

	cfg := Config{
		AppName:     v.GetString("app.name"),
		AppEnv:      v.GetString("app.env"),
		AppPort:     v.GetString("app.port"),
		DatabaseURL: v.GetString("database.url"),
		RedisURL:    v.GetString("redis.url"),
		NATSURL:     v.GetString("nats.url"),
		JWTSecret:   v.GetString("jwt.secret"),

		Judge0URL:        strings.TrimSpace(v.GetString("judge0.url")),
		Judge0AuthToken:  v.GetString("judge0.auth_token"),
		Judge0AuthHeader: v.GetString("judge0.auth_header"),

		PollMaxAttempts:      v.GetInt("poll.max_attempts"),
		DefaultTimeLimitMs:   v.GetInt("judge.default_time_limit_ms"),
		DefaultMemoryLimitKB: v.GetInt("judge.default_memory_limit_kb"),
		MaxSourceBytes:       v.GetInt("judge.max_source_bytes"),
		EventChannelBase:     strings.TrimSpace(v.GetString("events.channel")),
		SubmitRateLimit:      v.GetInt("submit.rate_limit"),
	}

	durations := []struct {
		key    string
		target *time.Duration
	}{
		{"judge0.timeout", &cfg.Judge0Timeout},
		{"poll.initial_interval", &cfg.PollInitialInterval},
		{"poll.max_interval", &cfg.PollMaxInterval},
		{"poll.max_wait", &cfg.PollMaxWait},
		{"problem.cache_ttl", &cfg.ProblemCacheTTL},
		{"submit.rate_window", &cfg.SubmitRateWindow},
	}

	for _, item := range durations {
		value, err := time.ParseDuration(v.GetString(item.key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", item.key, err)
		}
		*item.target = value
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.Judge0URL == "" {
		return Config{}, fmt.Errorf("judge0 url must be provided")
	}

	if cfg.PollMaxAttempts <= 0 {
		cfg.PollMaxAttempts = 30
	}

	if cfg.DefaultTimeLimitMs <= 0 {
		cfg.DefaultTimeLimitMs = 2000
	}

	if cfg.DefaultMemoryLimitKB <= 0 {
		cfg.DefaultMemoryLimitKB = 262144
	}

	if cfg.MaxSourceBytes <= 0 {
		cfg.MaxSourceBytes = 65536
	}

	if cfg.SubmitRateLimit <= 0 {
		cfg.SubmitRateLimit = 10
	}

	if cfg.EventChannelBase == "" {
		cfg.EventChannelBase = "prepcode"
	}

	return cfg, nil
}
