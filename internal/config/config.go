package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env        string
	AppPort    string
	AppVersion string

	DBDSN          string
	DBMaxRetries   int
	DBRetryInitial time.Duration
	DBRetryMax     time.Duration

	JWTSecret         string
	JWTRefreshSecret  string
	JWTExpires        time.Duration
	JWTRefreshExpires time.Duration
	BcryptCost        int

	FrontendURL    string
	AllowedOrigins []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	NATSURL string

	GoogleClientID string
	GoogleSecret   string
	GoogleRedirect string

	RateLimitEnabled bool
}

// defaultOrigins are always allowed; FRONTEND_URL is appended to them.
var defaultOrigins = []string{
	"http://localhost:3000",
	"http://localhost:3001",
	"https://mkhedmin.ma",
	"https://www.mkhedmin.ma",
}

func Load() Config {
	jwtSecret := must("JWT_SECRET")
	frontend := get("FRONTEND_URL", "http://localhost:3000")

	return Config{
		Env:        get("APP_ENV", "development"),
		AppPort:    get("APP_PORT", "5000"),
		AppVersion: get("APP_VERSION", "1.0.0"),

		DBDSN:          must("DB_DSN"),
		DBMaxRetries:   getInt("DB_MAX_RETRIES", 10),
		DBRetryInitial: getDuration("DB_RETRY_INITIAL", time.Second),
		DBRetryMax:     getDuration("DB_RETRY_MAX", 30*time.Second),

		JWTSecret:         jwtSecret,
		JWTRefreshSecret:  get("JWT_REFRESH_SECRET", jwtSecret),
		JWTExpires:        getDuration("JWT_EXPIRES_IN", 7*24*time.Hour),
		JWTRefreshExpires: getDuration("JWT_REFRESH_EXPIRES_IN", 30*24*time.Hour),
		BcryptCost:        getInt("BCRYPT_COST", 12),

		FrontendURL:    frontend,
		AllowedOrigins: origins(frontend),

		RedisAddr:     get("REDIS_ADDR", "localhost:6379"),
		RedisPassword: get("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),

		NATSURL: get("NATS_URL", ""),

		GoogleClientID: get("GOOGLE_CLIENT_ID", ""),
		GoogleSecret:   get("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirect: get("GOOGLE_REDIRECT_URL", ""),

		RateLimitEnabled: getBool("RATE_LIMIT_ENABLED", true),
	}
}

func (c Config) IsProduction() bool { return c.Env == "production" }

func (c Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleSecret != "" && c.GoogleRedirect != ""
}

func origins(frontend string) []string {
	out := append([]string(nil), defaultOrigins...)
	for _, o := range strings.Split(frontend, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" {
			continue
		}
		dup := false
		for _, existing := range out {
			if existing == o {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, o)
		}
	}
	return out
}

// ParseDuration accepts time.ParseDuration syntax plus a whole-day suffix ("7d").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil || days < 0 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

func get(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}

func getInt(k string, def int) int {
	n, err := strconv.Atoi(get(k, ""))
	if err != nil {
		return def
	}
	return n
}

func getBool(k string, def bool) bool {
	b, err := strconv.ParseBool(get(k, ""))
	if err != nil {
		return def
	}
	return b
}

func getDuration(k string, def time.Duration) time.Duration {
	v := get(k, "")
	if v == "" {
		return def
	}
	d, err := ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
