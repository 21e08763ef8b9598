// Package config loads the typed, validated configuration the submitter
// service needs at start-up. Every field is sourced from an environment
// variable; there is no config file for the core service (workflow.yaml is
// a separate, static asset loaded by the schemacatalog/workflow packages).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Deployment selects the project-service flavor and which PID provider
// backs DOI minting.
type Deployment string

const (
	DeploymentCSC  Deployment = "CSC"
	DeploymentNBIS Deployment = "NBIS"
)

// Config is the fully-resolved, validated process configuration.
type Config struct {
	// Core
	PGDatabaseURL string `validate:"required"`
	BaseURL       string `validate:"required,url"`
	LogLevel      string `validate:"required,oneof=debug info warn error"`
	Deployment    Deployment `validate:"required,oneof=CSC NBIS"`

	// Auth
	JWTSecret        string        `validate:"required,min=32"`
	OIDCIssuer       string        `validate:"required"`
	OIDCClientID     string        `validate:"required"`
	OIDCClientSecret string        `validate:"required"`
	OIDCRedirectURL  string        `validate:"required,url"`
	OIDCSecureCookie bool
	SessionTTL       time.Duration `validate:"required"`
	DPoPReplayCacheSize int        `validate:"required,min=1"`

	// External services
	DataciteURL  string
	PIDURL       string
	MetaxURL     string `validate:"required,url"`
	RemsURL      string `validate:"required,url"`
	AdminURL     string `validate:"required,url"`
	S3Endpoint   string `validate:"required"`
	KeystoneURL  string `validate:"required,url"`
	HealthCheckInterval time.Duration `validate:"required"`

	// CSC deployment only
	CSCLDAPURL    string
	CSCLDAPBindDN string
	CSCLDAPPassword string
	CSCLDAPBaseDN string

	// BigPicture
	BPCenterID string `validate:"required"`

	// Poller
	PollingInterval time.Duration `validate:"required"`

	// Local observability SQLite path
	ObservabilityDBPath string `validate:"required"`

	// Directory of <object_type>.json / <provider>.<object_type>.xsd pairs
	SchemaDir string `validate:"required"`

	// HTTP
	Port string `validate:"required"`

	// Admin bearer token expected on X-Authorization for POST .../ingest
	AdminToken string

	// CORS
	AllowedOrigins []string

	// Test-only escape hatch (spec: DELETE of a submission with a minted DOI)
	AllowUnsafe bool
}

// Load reads and validates configuration from the process environment.
// Fatal: callers should exit non-zero if this returns an error.
func Load() (*Config, error) {
	cfg := &Config{
		PGDatabaseURL:       getenv("PG_DATABASE_URL", ""),
		BaseURL:             getenv("BASE_URL", ""),
		LogLevel:            getenv("LOG_LEVEL", "info"),
		Deployment:          Deployment(getenv("DEPLOYMENT", "CSC")),

		JWTSecret:           getenv("JWT_SECRET", ""),
		OIDCIssuer:          getenv("OIDC_ISSUER", ""),
		OIDCClientID:        getenv("OIDC_CLIENT_ID", ""),
		OIDCClientSecret:    getenv("OIDC_CLIENT_SECRET", ""),
		OIDCRedirectURL:     getenv("OIDC_REDIRECT_URL", ""),
		OIDCSecureCookie:    getenvBool("OIDC_SECURE_COOKIE", true),
		SessionTTL:          getenvDuration("SESSION_TTL", time.Hour),
		DPoPReplayCacheSize: getenvInt("DPOP_REPLAY_CACHE_SIZE", 10000),

		DataciteURL: getenv("DATACITE_URL", ""),
		PIDURL:      getenv("PID_URL", ""),
		MetaxURL:    getenv("METAX_URL", ""),
		RemsURL:     getenv("REMS_URL", ""),
		AdminURL:    getenv("ADMIN_URL", ""),
		S3Endpoint:  getenv("S3_ENDPOINT", ""),
		KeystoneURL: getenv("KEYSTONE_ENDPOINT", ""),
		HealthCheckInterval: getenvDuration("HEALTH_CHECK_INTERVAL", 30*time.Second),

		CSCLDAPURL:      getenv("CSC_LDAP_URL", ""),
		CSCLDAPBindDN:   getenv("CSC_LDAP_BIND_DN", ""),
		CSCLDAPPassword: getenv("CSC_LDAP_PASSWORD", ""),
		CSCLDAPBaseDN:   getenv("CSC_LDAP_BASE_DN", ""),

		BPCenterID: getenv("BP_CENTER_ID", ""),

		PollingInterval: getenvDuration("POLLING_INTERVAL", 60*time.Second),

		ObservabilityDBPath: getenv("OBSERVABILITY_DB_PATH", "observability.db"),

		SchemaDir: getenv("SCHEMA_DIR", "schemas"),

		Port:       getenv("PORT", "8080"),
		AdminToken: getenv("ADMIN_TOKEN", ""),

		AllowedOrigins: splitCSV(getenv("ALLOWED_ORIGINS", "")),

		AllowUnsafe: getenvBool("ALLOW_UNSAFE", false),
	}

	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if cfg.Deployment == DeploymentCSC {
		if cfg.CSCLDAPURL == "" || cfg.CSCLDAPBaseDN == "" {
			return nil, fmt.Errorf("config: CSC_LDAP_URL and CSC_LDAP_BASE_DN are required when DEPLOYMENT=CSC")
		}
	}
	if cfg.DataciteURL == "" && cfg.PIDURL == "" {
		return nil, fmt.Errorf("config: one of DATACITE_URL or PID_URL is required")
	}

	return cfg, nil
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
