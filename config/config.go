package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	DatabaseURL      string // empty means the in-memory store
	DatabaseURLEnv   string
	DBPoolSize       int32
	JWTSecret        string
	JWTTTL           time.Duration
	GoogleClientID   string
	GoogleSecret     string
	FrontendURL      string
	PublicBackendURL string
	ExtraCORSOrigins []string
	AdminEmails      []string
	GeminiAPIKey     string
	GeminiModel      string
	MPAccessToken    string
	MPSandbox        bool
	MPWebhookURL     string
	MPWebhookSecret  string
	PlansFile        string
	EnableDevRoutes  bool
}

var databaseURLKeys = []string{"DATABASE_URL", "DATABASE_PUBLIC_URL", "POSTGRES_URL", "POSTGRESQL_URL"}

var defaultCORSOrigins = []string{
	"http://localhost:5173",
	"http://127.0.0.1:5173",
	"https://compareeeconomize.com.br",
	"https://www.compareeeconomize.com.br",
	"https://compareeeconomize.com",
	"https://www.compareeeconomize.com",
	"https://compare-economize-frontend.vercel.app",
}

// Load reads .env (when present) and the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:             get("PORT", "8080"),
		JWTSecret:        strings.TrimSpace(os.Getenv("JWT_SECRET")),
		GoogleClientID:   strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_ID")),
		GoogleSecret:     strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_SECRET")),
		FrontendURL:      NormalizeFrontendURL(get("FRONTEND_URL", "http://localhost:5173")),
		PublicBackendURL: strings.TrimRight(strings.TrimSpace(os.Getenv("PUBLIC_BACKEND_URL")), "/"),
		ExtraCORSOrigins: parseCSV(os.Getenv("EXTRA_CORS_ORIGINS")),
		AdminEmails:      lowerAll(parseCSV(os.Getenv("ADMIN_EMAILS"))),
		GeminiAPIKey:     strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:      get("GEMINI_MODEL", "gemini-1.5-flash"),
		MPAccessToken:    strings.TrimSpace(os.Getenv("MP_ACCESS_TOKEN")),
		MPSandbox:        getBool("MP_SANDBOX", false),
		MPWebhookURL:     strings.TrimSpace(os.Getenv("MP_WEBHOOK_URL")),
		MPWebhookSecret:  strings.TrimSpace(os.Getenv("MP_WEBHOOK_SECRET")),
		PlansFile:        strings.TrimSpace(os.Getenv("PLANS_FILE")),
		EnableDevRoutes:  getBool("ENABLE_DEV_ROUTES", false),
	}

	cfg.DatabaseURLEnv, cfg.DatabaseURL = resolveDatabaseURL(os.Getenv)

	cfg.DBPoolSize = 5
	if n, err := strconv.Atoi(get("DB_POOL_SIZE", "5")); err == nil && n > 0 {
		cfg.DBPoolSize = int32(n)
	}

	cfg.JWTTTL = 7 * 24 * time.Hour
	if h, err := strconv.Atoi(get("JWT_TTL_HOURS", "168")); err == nil && h > 0 {
		cfg.JWTTTL = time.Duration(h) * time.Hour
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations that would fail later in confusing ways.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	tok := c.MPAccessToken
	if strings.HasPrefix(tok, "eyJ") {
		return errors.New("MP_ACCESS_TOKEN looks like a JWT (eyJ...); use the Mercado Pago access token (TEST-... or APP_USR-...)")
	}
	if strings.HasPrefix(tok, "TEST-") && !c.MPSandbox {
		return errors.New("MP_ACCESS_TOKEN is a test token (TEST-...); set MP_SANDBOX=true or use an APP_USR-... token")
	}
	return nil
}

// BillingEnabled reports whether a payment gateway token is configured.
func (c Config) BillingEnabled() bool {
	return c.MPAccessToken != ""
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

// CORSOrigins returns the exact-match origin allow list.
func (c Config) CORSOrigins() []string {
	out := append([]string{}, defaultCORSOrigins...)
	if c.FrontendURL != "" {
		out = append(out, c.FrontendURL)
	}
	return append(out, c.ExtraCORSOrigins...)
}

// NormalizeDatabaseURL strips quotes, ignores unresolved ${{...}} placeholders
// and rewrites the postgres:// scheme.
func NormalizeDatabaseURL(raw string) string {
	url := strings.TrimSpace(raw)
	if strings.HasPrefix(url, "${{") && strings.HasSuffix(url, "}}") {
		return ""
	}
	if len(url) >= 2 && (url[0] == '"' && url[len(url)-1] == '"' || url[0] == '\'' && url[len(url)-1] == '\'') {
		url = strings.TrimSpace(url[1 : len(url)-1])
	}
	if strings.HasPrefix(url, "postgres://") {
		url = "postgresql://" + strings.TrimPrefix(url, "postgres://")
	}
	return url
}

// RedactDatabaseURL hides the password component of a connection string.
func RedactDatabaseURL(url string) string {
	scheme, rest, ok := strings.Cut(url, "://")
	if !ok {
		return url
	}
	creds, tail, ok := strings.Cut(rest, "@")
	if !ok {
		return scheme + "://***"
	}
	if user, _, ok := strings.Cut(creds, ":"); ok {
		return fmt.Sprintf("%s://%s:***@%s", scheme, user, tail)
	}
	return fmt.Sprintf("%s://***@%s", scheme, tail)
}

// NormalizeFrontendURL trims trailing slashes and prefixes http:// when no scheme is set.
func NormalizeFrontendURL(raw string) string {
	url := strings.TrimRight(strings.TrimSpace(raw), "/")
	if url == "" {
		return url
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + strings.TrimLeft(url, "/")
	}
	return url
}

func resolveDatabaseURL(getenv func(string) string) (string, string) {
	for _, key := range databaseURLKeys {
		if url := NormalizeDatabaseURL(getenv(key)); url != "" {
			return key, url
		}
	}
	return "", ""
}

func get(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getBool(k string, def bool) bool {
	v, err := strconv.ParseBool(get(k, strconv.FormatBool(def)))
	if err != nil {
		return def
	}
	return v
}

func parseCSV(input string) []string {
	var out []string
	for _, part := range strings.Split(input, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func lowerAll(in []string) []string {
	for i := range in {
		in[i] = strings.ToLower(in[i])
	}
	return in
}
