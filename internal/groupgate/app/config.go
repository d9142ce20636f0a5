package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DatabaseFile         string        // Optional: path to SQLite database file (default: ./groupgate.db)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)

	// Authorization policy
	AllowUnregisteredClients bool     // Permit dynamic client registration (default: false)
	AllowAllScopes           bool     // Skip the supported-scope check (default: false)
	SupportedScopes          string   // Scope tokens requests must stay within (default: "read write")
	AdminResourceOwnerIDs    []string // Owners permitted the admin scope (default: none)
	AccessTokenExpiry        int64    // Access token lifetime in seconds (default: 3600)
	AllowScopeFiltering      bool     // Offer per-scope checkboxes on the consent page (default: true)

	// Resource owner authentication
	AuthMechanism  string // "remote" (trusted proxy headers) or "static" (dev) (default: remote)
	StaticOwnerID  string // Owner id for the static mechanism (default: dev)
	RemoteUserHdr  string // Header carrying the owner id (default: X-Remote-User)
	RemoteNameHdr  string // Header carrying the display name (default: X-Remote-Name)
}

func LoadConfig() Config {
	return Config{
		DatabaseFile:         getEnvOrDefault("OAUTH_DATABASE_FILE", "groupgate.db"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),

		AllowUnregisteredClients: getEnvBoolOrDefault("OAUTH_ALLOW_UNREGISTERED_CLIENTS", false),
		AllowAllScopes:           getEnvBoolOrDefault("OAUTH_ALLOW_ALL_SCOPES", false),
		SupportedScopes:          getEnvOrDefault("OAUTH_SUPPORTED_SCOPES", "read write"),
		AdminResourceOwnerIDs:    getEnvListOrDefault("OAUTH_ADMIN_RESOURCE_OWNERS", nil),
		AccessTokenExpiry:        int64(getEnvIntOrDefault("OAUTH_ACCESS_TOKEN_EXPIRY", 3600)),
		AllowScopeFiltering:      getEnvBoolOrDefault("OAUTH_ALLOW_SCOPE_FILTERING", true),

		AuthMechanism: getEnvOrDefault("AUTH_MECHANISM", "remote"),
		StaticOwnerID: getEnvOrDefault("AUTH_STATIC_OWNER_ID", "dev"),
		RemoteUserHdr: getEnvOrDefault("AUTH_REMOTE_USER_HEADER", ""),
		RemoteNameHdr: getEnvOrDefault("AUTH_REMOTE_NAME_HEADER", ""),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}

// getEnvListOrDefault parses a comma-separated list.
func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
