package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server       ServerConfig
	API          APIConfig
	Polling      PollingConfig
	Cache        CacheConfig
	Cancellation CancellationConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	Observ       ObservabilityConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	LogLevel     string
	Version      string
	SessionLease time.Duration
}

// APIConfig describes the order/payment backend the portal talks to.
type APIConfig struct {
	BaseURL        string
	Timeout        time.Duration
	RetryAttempts  int
	RateLimitRPS   float64
	RateLimitBurst int
}

type PollingConfig struct {
	Fast time.Duration
	Slow time.Duration
}

type CacheConfig struct {
	DetailStale    time.Duration
	ListStale      time.Duration
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

type CancellationConfig struct {
	SettleDelay time.Duration
	LockTTL     time.Duration
}

// RedisConfig is optional; an empty Addr disables the cross-instance cancel guard.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig is optional; no brokers disables transition events.
type KafkaConfig struct {
	Brokers       []string
	TopicStatus   string
	ConsumerGroup string
}

type ObservabilityConfig struct {
	JaegerEndpoint string
}

func Load() *Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	rps, _ := strconv.ParseFloat(getEnv("API_RATE_LIMIT_RPS", "20"), 64)

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "3000"),
			Env:          getEnv("ENV", "development"),
			LogLevel:     getEnv("LOG_LEVEL", ""),
			Version:      getEnv("APP_VERSION", "1.0.0"),
			SessionLease: seconds("SESSION_LEASE_SECONDS", 60),
		},
		API: APIConfig{
			BaseURL:        strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8080"), "/"),
			Timeout:        seconds("API_TIMEOUT_SECONDS", 10),
			RetryAttempts:  getEnvInt("API_RETRY_ATTEMPTS", 3),
			RateLimitRPS:   rps,
			RateLimitBurst: getEnvInt("API_RATE_LIMIT_BURST", 10),
		},
		Polling: PollingConfig{
			Fast: seconds("POLL_FAST_SECONDS", 5),
			Slow: seconds("POLL_SLOW_SECONDS", 30),
		},
		Cache: CacheConfig{
			DetailStale:    seconds("DETAIL_STALE_SECONDS", 600),
			ListStale:      seconds("LIST_STALE_SECONDS", 60),
			RetryBaseDelay: time.Duration(getEnvInt("RETRY_BASE_DELAY_MS", 1000)) * time.Millisecond,
			RetryMaxDelay:  time.Duration(getEnvInt("RETRY_MAX_DELAY_MS", 30000)) * time.Millisecond,
		},
		Cancellation: CancellationConfig{
			SettleDelay: seconds("CANCEL_SETTLE_SECONDS", 10),
			LockTTL:     seconds("CANCEL_LOCK_SECONDS", 30),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Kafka: KafkaConfig{
			Brokers:       splitList(getEnv("KAFKA_BROKERS", "")),
			TopicStatus:   getEnv("KAFKA_TOPIC_STATUS_EVENTS", "order-portal-status-events"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "order-portal"),
		},
		Observ: ObservabilityConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", ""),
		},
	}

	log.Printf("Config loaded: env=%s, port=%s, api=%s", cfg.Server.Env, cfg.Server.Port, cfg.API.BaseURL)
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultVal
	}
	return n
}

func seconds(key string, defaultVal int) time.Duration {
	return time.Duration(getEnvInt(key, defaultVal)) * time.Second
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
