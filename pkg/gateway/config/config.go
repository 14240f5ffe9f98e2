package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr string

	// PublicStreamURL is the wss:// endpoint the telephony provider is told to
	// open its media stream against. It must resolve back to this process.
	PublicStreamURL string

	// Telephony provider credentials.
	TwilioAccountSID string
	TwilioAuthToken  string

	// Reject inbound webhooks whose provider signature does not verify.
	// Disable only for local development behind a tunnel.
	ValidateTwilioSignature bool

	// Model stream.
	OpenAIAPIKey      string
	RealtimeURL       string
	Voice             string
	Temperature       float64
	ModelDialTimeout  time.Duration
	ModelWriteTimeout time.Duration

	// How long an accepted media connection may sit silent before its start
	// frame arrives.
	StreamHandshakeTimeout time.Duration

	// Account store: Postgres when set, otherwise the env-seeded memory store.
	DatabaseURL string

	// Memory-store seed for single-tenant deployments.
	AccountEmail            string
	AccountDisplayName      string
	AccountTwilioNumber     string
	AccountForwardingNumber string
	AccountSchedulingURL    string
	AccountTimezone         string

	// Calendar provider. Token and calendar URL overrides exist for tests.
	GoogleClientID     string
	GoogleClientSecret string
	GoogleTokenURL     string
	GoogleCalendarURL  string

	// Operational defaults
	ReadHeaderTimeout   time.Duration
	ReadTimeout         time.Duration
	ShutdownGracePeriod time.Duration
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                    envOr("CALLSCREEN_ADDR", ":8080"),
		PublicStreamURL:         strings.TrimSpace(os.Getenv("CALLSCREEN_PUBLIC_STREAM_URL")),
		TwilioAccountSID:        strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID")),
		TwilioAuthToken:         strings.TrimSpace(os.Getenv("TWILIO_AUTH_TOKEN")),
		ValidateTwilioSignature: envBoolOr("CALLSCREEN_VALIDATE_TWILIO_SIGNATURE", true),
		OpenAIAPIKey:            strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		RealtimeURL:             envOr("CALLSCREEN_REALTIME_URL", "wss://api.openai.com/v1/realtime?model=gpt-4o-realtime-preview-2024-10-01"),
		Voice:                   envOr("CALLSCREEN_VOICE", "alloy"),
		Temperature:             envFloat64Or("CALLSCREEN_TEMPERATURE", 0.8),
		ModelDialTimeout:        envDurationOr("CALLSCREEN_MODEL_DIAL_TIMEOUT", 10*time.Second),
		ModelWriteTimeout:       envDurationOr("CALLSCREEN_MODEL_WRITE_TIMEOUT", 5*time.Second),
		StreamHandshakeTimeout:  envDurationOr("CALLSCREEN_STREAM_HANDSHAKE_TIMEOUT", 10*time.Second),
		DatabaseURL:             strings.TrimSpace(os.Getenv("CALLSCREEN_DATABASE_URL")),
		AccountEmail:            strings.TrimSpace(os.Getenv("CALLSCREEN_ACCOUNT_EMAIL")),
		AccountDisplayName:      envOr("CALLSCREEN_ACCOUNT_DISPLAY_NAME", "the recipient"),
		AccountTwilioNumber:     strings.TrimSpace(os.Getenv("CALLSCREEN_ACCOUNT_TWILIO_NUMBER")),
		AccountForwardingNumber: strings.TrimSpace(os.Getenv("CALLSCREEN_ACCOUNT_FORWARDING_NUMBER")),
		AccountSchedulingURL:    strings.TrimSpace(os.Getenv("CALLSCREEN_ACCOUNT_SCHEDULING_URL")),
		AccountTimezone:         envOr("CALLSCREEN_ACCOUNT_TIMEZONE", "UTC"),
		GoogleClientID:          strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_ID")),
		GoogleClientSecret:      strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_SECRET")),
		GoogleTokenURL:          strings.TrimSpace(os.Getenv("CALLSCREEN_GOOGLE_TOKEN_URL")),
		GoogleCalendarURL:       strings.TrimSpace(os.Getenv("CALLSCREEN_GOOGLE_CALENDAR_URL")),
		ReadHeaderTimeout:       envDurationOr("CALLSCREEN_READ_HEADER_TIMEOUT", 10*time.Second),
		ReadTimeout:             envDurationOr("CALLSCREEN_READ_TIMEOUT", 30*time.Second),
		ShutdownGracePeriod:     envDurationOr("CALLSCREEN_SHUTDOWN_GRACE_PERIOD", 30*time.Second),
	}

	if cfg.PublicStreamURL == "" {
		return Config{}, fmt.Errorf("CALLSCREEN_PUBLIC_STREAM_URL must be set")
	}
	u, err := url.Parse(cfg.PublicStreamURL)
	if err != nil || (u.Scheme != "wss" && u.Scheme != "ws") {
		return Config{}, fmt.Errorf("CALLSCREEN_PUBLIC_STREAM_URL must be a ws:// or wss:// URL")
	}
	if cfg.TwilioAccountSID == "" {
		return Config{}, fmt.Errorf("TWILIO_ACCOUNT_SID must be set")
	}
	if cfg.TwilioAuthToken == "" {
		return Config{}, fmt.Errorf("TWILIO_AUTH_TOKEN must be set")
	}
	if cfg.OpenAIAPIKey == "" {
		return Config{}, fmt.Errorf("OPENAI_API_KEY must be set")
	}
	if cfg.RealtimeURL == "" {
		return Config{}, fmt.Errorf("CALLSCREEN_REALTIME_URL must not be empty")
	}
	if cfg.Voice == "" {
		return Config{}, fmt.Errorf("CALLSCREEN_VOICE must not be empty")
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return Config{}, fmt.Errorf("CALLSCREEN_TEMPERATURE must be in [0, 2]")
	}
	if cfg.ModelDialTimeout <= 0 {
		return Config{}, fmt.Errorf("CALLSCREEN_MODEL_DIAL_TIMEOUT must be > 0")
	}
	if cfg.ModelWriteTimeout <= 0 {
		return Config{}, fmt.Errorf("CALLSCREEN_MODEL_WRITE_TIMEOUT must be > 0")
	}
	if cfg.StreamHandshakeTimeout <= 0 {
		return Config{}, fmt.Errorf("CALLSCREEN_STREAM_HANDSHAKE_TIMEOUT must be > 0")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("CALLSCREEN_READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.ReadTimeout <= 0 {
		return Config{}, fmt.Errorf("CALLSCREEN_READ_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("CALLSCREEN_SHUTDOWN_GRACE_PERIOD must be > 0")
	}
	if _, err := time.LoadLocation(cfg.AccountTimezone); err != nil {
		return Config{}, fmt.Errorf("CALLSCREEN_ACCOUNT_TIMEZONE must be an IANA timezone name")
	}
	if cfg.DatabaseURL == "" {
		if cfg.AccountTwilioNumber == "" {
			return Config{}, fmt.Errorf("CALLSCREEN_ACCOUNT_TWILIO_NUMBER must be set when CALLSCREEN_DATABASE_URL is empty")
		}
		if cfg.AccountForwardingNumber == "" {
			return Config{}, fmt.Errorf("CALLSCREEN_ACCOUNT_FORWARDING_NUMBER must be set when CALLSCREEN_DATABASE_URL is empty")
		}
	}

	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envFloat64Or(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return n
}

func envBoolOr(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	switch strings.ToLower(raw) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
