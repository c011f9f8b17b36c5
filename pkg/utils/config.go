package utils

import (
	"os"
	"strconv"
	"time"
)

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration
}

func LoadAuthConfig() AuthConfig {
	secret := os.Getenv("SEGMENTHUB_JWT_SECRET")
	if secret == "" {
		// dev default (change for demo / production)
		secret = "dev-secret-change-me"
	}

	issuer := os.Getenv("SEGMENTHUB_JWT_ISSUER")
	if issuer == "" {
		issuer = "segmenthub"
	}

	hours := 24
	if ttl := os.Getenv("SEGMENTHUB_JWT_TTL_HOURS"); ttl != "" {
		if n, err := strconv.Atoi(ttl); err == nil && n > 0 {
			hours = n
		}
	}

	return AuthConfig{
		JWTSecret:   secret,
		JWTIssuer:   issuer,
		JWTDuration: time.Duration(hours) * time.Hour,
	}
}

// ReviewConfig carries the review server's tunables: where the memory
// service lives and how the interaction loop is paced.
type ReviewConfig struct {
	MemoryBaseURL  string
	LookupTimeout  time.Duration
	DebounceWindow time.Duration
}

func LoadReviewConfig() ReviewConfig {
	base := os.Getenv("SEGMENTHUB_MEMORY_URL")
	if base == "" {
		base = "http://localhost:8090"
	}

	return ReviewConfig{
		MemoryBaseURL:  base,
		LookupTimeout:  envDuration("SEGMENTHUB_LOOKUP_TIMEOUT_MS", 10*time.Second),
		DebounceWindow: envDuration("SEGMENTHUB_DEBOUNCE_MS", time.Second),
	}
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms <= 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}
