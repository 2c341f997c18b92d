package client

import (
	"os"
	"time"
)

// LoadConfig reads client configuration from environment variables with
// defaults. This is the whole configuration surface of the core: the server
// URL, a request timeout and the bearer token.
func LoadConfig() Config {
	return Config{
		BaseURL:   envOr("SKYDESK_SERVER_URL", "http://localhost:8080"),
		Timeout:   envDuration("SKYDESK_REQUEST_TIMEOUT", 30*time.Second),
		AuthToken: envOr("SKYDESK_AUTH_TOKEN", ""),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
