package config

import "testing"

func setBaseEnv(t *testing.T) {
	t.Helper()
	vars := map[string]string{
		"PG_DATABASE_URL":    "postgres://localhost/submitter",
		"BASE_URL":           "https://submit.example.org",
		"JWT_SECRET":         "01234567890123456789012345678901",
		"OIDC_ISSUER":        "https://idp.example.org",
		"OIDC_CLIENT_ID":     "client",
		"OIDC_CLIENT_SECRET": "secret",
		"OIDC_REDIRECT_URL":  "https://submit.example.org/callback",
		"METAX_URL":          "https://metax.example.org",
		"REMS_URL":           "https://rems.example.org",
		"ADMIN_URL":          "https://admin.example.org",
		"S3_ENDPOINT":        "https://s3.example.org",
		"KEYSTONE_ENDPOINT":  "https://keystone.example.org",
		"BP_CENTER_ID":       "csc",
		"DATACITE_URL":       "https://datacite.example.org",
		"DEPLOYMENT":         "NBIS",
	}
	for k, v := range vars {
		t.Setenv(k, v)
	}
}

func TestLoad_Valid(t *testing.T) {
	setBaseEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Deployment != DeploymentNBIS {
		t.Fatalf("deployment: got %q", cfg.Deployment)
	}
	if cfg.DPoPReplayCacheSize != 10000 {
		t.Fatalf("default dpop cache size: got %d", cfg.DPoPReplayCacheSize)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing JWT_SECRET")
	}
}

func TestLoad_CSCRequiresLDAP(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DEPLOYMENT", "CSC")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for CSC deployment without LDAP config")
	}
}

func TestLoad_RequiresDOIProvider(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DATACITE_URL", "")
	t.Setenv("PID_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when neither DATACITE_URL nor PID_URL set")
	}
}
