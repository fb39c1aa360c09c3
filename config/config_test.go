package config

import (
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
		check   func(t *testing.T, cfg Config)
	}{
		{
			name: "Defaults in local mode",
			env:  map[string]string{"JWT_SECRET_KEY": "secret"},
			check: func(t *testing.T, cfg Config) {
				if cfg.Mode != StoreLocal {
					t.Errorf("Expected mode %s, got %s", StoreLocal, cfg.Mode)
				}
				if cfg.Reminders.CheckInterval != time.Minute {
					t.Errorf("Expected 1m check interval, got %v", cfg.Reminders.CheckInterval)
				}
				if cfg.Reminders.Lookahead != 5*time.Minute {
					t.Errorf("Expected 5m lookahead, got %v", cfg.Reminders.Lookahead)
				}
				if cfg.Redis.KeyPrefix != "projectManager" {
					t.Errorf("Unexpected key prefix %q", cfg.Redis.KeyPrefix)
				}
			},
		},
		{
			name: "Token TTL in seconds",
			env:  map[string]string{"JWT_SECRET_KEY": "secret", "JWT_EXPIRATION_TIME": "3600"},
			check: func(t *testing.T, cfg Config) {
				if cfg.Auth.TokenTTL != time.Hour {
					t.Errorf("Expected 1h TTL, got %v", cfg.Auth.TokenTTL)
				}
			},
		},
		{
			name: "Sessions expire with the token",
			env:  map[string]string{"JWT_SECRET_KEY": "secret", "JWT_EXPIRATION_TIME": "2h", "SESSION_REAP_INTERVAL": "30s"},
			check: func(t *testing.T, cfg Config) {
				if cfg.Sessions.TTL != 2*time.Hour {
					t.Errorf("Expected session TTL 2h, got %v", cfg.Sessions.TTL)
				}
				if cfg.Sessions.ReapInterval != 30*time.Second {
					t.Errorf("Expected 30s reap interval, got %v", cfg.Sessions.ReapInterval)
				}
			},
		},
		{
			name:    "Non-positive reap interval",
			env:     map[string]string{"JWT_SECRET_KEY": "secret", "SESSION_REAP_INTERVAL": "0"},
			wantErr: true,
		},
		{
			name:    "Missing JWT secret",
			env:     map[string]string{"JWT_SECRET_KEY": ""},
			wantErr: true,
		},
		{
			name:    "Remote mode requires Mongo URI",
			env:     map[string]string{"JWT_SECRET_KEY": "secret", "STORE_MODE": "remote", "MONGO_URI": ""},
			wantErr: true,
		},
		{
			name: "Remote mode",
			env: map[string]string{
				"JWT_SECRET_KEY": "secret",
				"STORE_MODE":     "remote",
				"MONGO_URI":      "mongodb://localhost:27017",
				"MONGO_DB":       "tracker_test",
			},
			check: func(t *testing.T, cfg Config) {
				if cfg.Mode != StoreRemote || cfg.Database.DatabaseName != "tracker_test" {
					t.Errorf("Unexpected config: %+v", cfg)
				}
			},
		},
		{
			name:    "Unknown mode",
			env:     map[string]string{"JWT_SECRET_KEY": "secret", "STORE_MODE": "firebase"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "90s")
	if got := GetEnvAsDuration("TEST_DURATION", time.Second); got != 90*time.Second {
		t.Errorf("Expected 90s, got %v", got)
	}
	t.Setenv("TEST_DURATION", "120")
	if got := GetEnvAsDuration("TEST_DURATION", time.Second); got != 2*time.Minute {
		t.Errorf("Expected 2m, got %v", got)
	}
	t.Setenv("TEST_DURATION", "soon")
	if got := GetEnvAsDuration("TEST_DURATION", time.Second); got != time.Second {
		t.Errorf("Expected fallback, got %v", got)
	}
}
