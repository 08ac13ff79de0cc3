package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"
)

// Store drivers accepted in STORE_DRIVER
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
)

// Config holds all application configuration values
type Config struct {
	Port           string
	GinMode        string
	AllowedOrigins []string
	TrustedProxies []string

	EmailJSPublicKey  string
	EmailJSPrivateKey string
	EmailJSServiceID  string
	EmailJSTemplateID string
	EmailJSBaseURL    string
	RelayTimeout      time.Duration

	StoreDriver     string
	SQLitePath      string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
	ConnectTimeout  time.Duration
	CookieFallback  bool
	CookieSecure    bool
	ClientHashSalt  string

	PolicyFile string
	Timezone   string

	AirtableAPIKey  string
	AirtableBaseID  string
	AirtableTable   string
	AirtableBaseURL string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string
	OwnerPhone       string

	SideEffectTimeout time.Duration
}

// LoadConfig reads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Port:           envOrDefault("PORT", "8080"),
		GinMode:        envOrDefault("GIN_MODE", "release"),
		AllowedOrigins: parseList("ALLOWED_ORIGINS", []string{"*"}),
		TrustedProxies: parseList("TRUSTED_PROXIES", nil),

		EmailJSPublicKey:  os.Getenv("EMAILJS_PUBLIC_KEY"),
		EmailJSPrivateKey: os.Getenv("EMAILJS_PRIVATE_KEY"),
		EmailJSServiceID:  envOrDefault("EMAILJS_SERVICE_ID", "service_site_web"),
		EmailJSTemplateID: os.Getenv("EMAILJS_TEMPLATE_ID"),
		EmailJSBaseURL:    os.Getenv("EMAILJS_BASE_URL"),
		RelayTimeout:      parseDuration("RELAY_TIMEOUT", 10*time.Second),

		StoreDriver:     strings.ToLower(envOrDefault("STORE_DRIVER", StoreMemory)),
		SQLitePath:      envOrDefault("SQLITE_PATH", "contact-guard.db"),
		MongoURI:        envOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:   envOrDefault("MONGO_DB", "contact-guard"),
		MongoCollection: envOrDefault("MONGO_COLLECTION", "rate_limits"),
		ConnectTimeout:  parseDuration("STORE_CONNECT_TIMEOUT", 10*time.Second),
		CookieFallback:  parseBool("COOKIE_FALLBACK", true),
		CookieSecure:    parseBool("COOKIE_SECURE", true),
		ClientHashSalt:  os.Getenv("CLIENT_HASH_SALT"),

		PolicyFile: os.Getenv("POLICY_FILE"),
		Timezone:   envOrDefault("TIMEZONE", "Europe/Paris"),

		AirtableAPIKey:  os.Getenv("AIRTABLE_API_KEY"),
		AirtableBaseID:  os.Getenv("AIRTABLE_BASE_ID"),
		AirtableTable:   envOrDefault("AIRTABLE_TABLE", "Contact Requests"),
		AirtableBaseURL: os.Getenv("AIRTABLE_BASE_URL"),

		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:       os.Getenv("TWILIO_FROM"),
		OwnerPhone:       os.Getenv("OWNER_PHONE"),

		SideEffectTimeout: parseDuration("SIDE_EFFECT_TIMEOUT", 15*time.Second),
	}
}

// Validate reports settings the server cannot start without
func (c *Config) Validate() error {
	if c.EmailJSPublicKey == "" || c.EmailJSTemplateID == "" {
		return fmt.Errorf("EMAILJS_PUBLIC_KEY and EMAILJS_TEMPLATE_ID must be configured")
	}

	switch c.StoreDriver {
	case StoreMemory, StoreSQLite, StoreMongo:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}

	return nil
}

// ArchiveEnabled reports whether dispatched submissions go to Airtable
func (c *Config) ArchiveEnabled() bool {
	return c.AirtableAPIKey != "" && c.AirtableBaseID != ""
}

// SMSAlertEnabled reports whether the site owner gets an SMS per submission
func (c *Config) SMSAlertEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFrom != "" && c.OwnerPhone != ""
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key string, fallback time.Duration) time.Duration {
	if raw := strings.TrimSpace(os.Getenv(key)); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			return parsed
		}
	}
	return fallback
}

func parseBool(key string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return fallback
}

func parseList(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			values = append(values, part)
		}
	}

	if len(values) == 0 {
		return fallback
	}
	return values
}
