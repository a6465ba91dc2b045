package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env                 string
	HTTPPort            string
	BackendURL          string
	BackendTimeout      time.Duration
	BackendServiceToken string
	SessionSigningKey   string
	SessionIssuer       string
	SessionTTL          time.Duration
	CSRFKey             string
	RedisAddr           string
	CacheTTL            time.Duration
	QueueBackend        string
	AuditDSN            string
	RateLimitPerMin     int
	LoginLimitPerMin    int
	HistoryBatchSize    int
	InstitutionalDomain string
	CalendarURL         string
	AllowedOrigins      []string
}

// Production reports whether the app runs with production settings.
func (a App) Production() bool { return a.Env == "production" || a.Env == "prod" }

// Load returns application config populated from environment variables with
// sensible defaults. A .env file in the working directory is read first when
// present; real environment variables win over it.
func Load() App {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("ignoring .env: %v", err)
	}
	return App{
		Env:                 getEnv("APP_ENV", "dev"),
		HTTPPort:            getEnv("HTTP_PORT", "8080"),
		BackendURL:          getEnv("BACKEND_URL", "http://localhost:3000"),
		BackendTimeout:      durationEnv("BACKEND_TIMEOUT", 15*time.Second),
		BackendServiceToken: getEnv("BACKEND_SERVICE_TOKEN", ""),
		SessionSigningKey:   getEnv("SESSION_SIGNING_KEY", "dev-session-secret-change"),
		SessionIssuer:       getEnv("SESSION_ISSUER", "classaccess-dashboard"),
		SessionTTL:          durationEnv("SESSION_TTL", 8*time.Hour),
		CSRFKey:             getEnv("CSRF_KEY", "dev-csrf-key-change-me-32-bytes!"),
		RedisAddr:           getEnv("REDIS_ADDR", "localhost:6379"),
		CacheTTL:            durationEnv("CACHE_TTL", time.Minute),
		QueueBackend:        getEnv("QUEUE_BACKEND", "memory"),
		AuditDSN:            getEnv("AUDIT_DSN", "classaccess-audit.db"),
		RateLimitPerMin:     intEnv("RATE_LIMIT_PER_MIN", 240),
		LoginLimitPerMin:    intEnv("LOGIN_LIMIT_PER_MIN", 10),
		HistoryBatchSize:    intEnv("HISTORY_BATCH_SIZE", 10),
		InstitutionalDomain: getEnv("INSTITUTIONAL_DOMAIN", "uteq.edu.mx"),
		CalendarURL:         getEnv("CALENDAR_URL", "https://www.uteq.edu.mx/calendario"),
		AllowedOrigins:      listEnv("ALLOWED_ORIGINS"),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// listEnv splits a comma-separated variable, dropping blanks.
func listEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using fallback %s", key, err, fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		log.Printf("invalid int for %s, using fallback %d", key, fallback)
	}
	return fallback
}
