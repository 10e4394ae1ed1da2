package tests

import (
	"errors"
	"testing"

	"airlink/internal/config"
)

func TestConfigValidate_DefaultSessionSecret(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		env     string
		secret  string
		wantErr error
	}{
		{name: "development default", env: "development", secret: config.DefaultSessionSecret},
		{name: "unset env default", env: "", secret: config.DefaultSessionSecret},
		{name: "production default", env: "production", secret: config.DefaultSessionSecret, wantErr: config.ErrDefaultSessionSecret},
		{name: "staging default", env: "staging", secret: config.DefaultSessionSecret, wantErr: config.ErrDefaultSessionSecret},
		{name: "production configured", env: "production", secret: "s3cr3t-from-vault"},
	}

	for _, tc := range testCases {
		cfg := &config.Config{}
		cfg.Server.Environment = tc.env
		cfg.Checkout.SessionSecret = tc.secret

		if err := cfg.Validate(); !errors.Is(err, tc.wantErr) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.wantErr, err)
		}
	}
}

func TestConfigLoad_ProductionWithoutSecretFailsValidation(t *testing.T) {
	t.Setenv("APP_ENV", "Production")
	t.Setenv("CHECKOUT_SESSION_SECRET", "")

	cfg := config.Load()
	if cfg.Server.Environment != "production" {
		t.Errorf("expected normalized environment, got %q", cfg.Server.Environment)
	}
	if err := cfg.Validate(); !errors.Is(err, config.ErrDefaultSessionSecret) {
		t.Errorf("expected ErrDefaultSessionSecret, got %v", err)
	}
}
