package config

import "os"

// Config carries the environment-driven settings of the server.
type Config struct {
	Port        string
	DBPath      string
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	// OrgTimezone is the fixed organizational timezone used to compute
	// "today" for planning, independent of client timezone.
	OrgTimezone string
}

// Load reads the configuration from the environment with development
// fallbacks.
func Load() Config {
	return Config{
		Port:        getEnv("PORT", "8008"),
		DBPath:      getEnv("DB_PATH", "sales-ops.db"),
		JWTSecret:   getEnv("JWT_SECRET", "development-insecure-secret-change-me"),
		JWTIssuer:   getEnv("JWT_ISSUER", "sales-ops-api"),
		JWTAudience: getEnv("JWT_AUDIENCE", "sales-ops-clients"),
		OrgTimezone: getEnv("ORG_TIMEZONE", "Europe/Istanbul"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
