package config

import (
	"testing"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := NewDefault()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got := cfg.Defaults()["ledger.append_retries"]; got != 5 {
		t.Errorf("ledger.append_retries default: got %v, want 5", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"memory needs no dsn", func(c *Config) { c.Database = DatabaseConfig{Driver: "memory"} }, false},
		{"postgres without dsn", func(c *Config) { c.Database = DatabaseConfig{Driver: "postgres"} }, true},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, true},
		{"negative retries", func(c *Config) { c.Ledger.AppendRetries = -1 }, true},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, true},
		{"debug level", func(c *Config) { c.Log.Level = "debug" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefault()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
