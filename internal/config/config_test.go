package config

import (
	"os"
	"testing"
	"time"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		wantErr     bool
		errorString string
	}{
		{
			name: "valid local-only config",
			config: Config{
				DBPath:           "./test.db",
				RequestTimeout:   30 * time.Second,
				SyncInterval:     5 * time.Minute,
				ProbeInterval:    time.Minute,
				SummaryCacheSize: 24,
				SummaryCacheTTL:  10 * time.Minute,
			},
			wantErr: false,
		},
		{
			name: "valid remote config",
			config: Config{
				DBPath:           "./test.db",
				RemoteBaseURL:    "https://kakebo.example.com/api",
				APIToken:         "secret",
				RequestTimeout:   30 * time.Second,
				SyncInterval:     5 * time.Minute,
				SummaryCacheSize: 24,
				SummaryCacheTTL:  10 * time.Minute,
			},
			wantErr: false,
		},
		{
			name: "missing database path",
			config: Config{
				DBPath:           "",
				RequestTimeout:   30 * time.Second,
				SyncInterval:     5 * time.Minute,
				SummaryCacheSize: 24,
				SummaryCacheTTL:  10 * time.Minute,
			},
			wantErr:     true,
			errorString: "database path cannot be empty",
		},
		{
			name: "invalid remote URL scheme",
			config: Config{
				DBPath:           "./test.db",
				RemoteBaseURL:    "ftp://kakebo.example.com",
				APIToken:         "secret",
				RequestTimeout:   30 * time.Second,
				SyncInterval:     5 * time.Minute,
				SummaryCacheSize: 24,
				SummaryCacheTTL:  10 * time.Minute,
			},
			wantErr:     true,
			errorString: "invalid remote URL scheme 'ftp': must be 'http' or 'https'",
		},
		{
			name: "remote URL without token",
			config: Config{
				DBPath:           "./test.db",
				RemoteBaseURL:    "https://kakebo.example.com",
				APIToken:         "",
				RequestTimeout:   30 * time.Second,
				SyncInterval:     5 * time.Minute,
				SummaryCacheSize: 24,
				SummaryCacheTTL:  10 * time.Minute,
			},
			wantErr:     true,
			errorString: "API token is required when a remote URL is configured",
		},
		{
			name: "request timeout too short",
			config: Config{
				DBPath:           "./test.db",
				RequestTimeout:   500 * time.Millisecond,
				SyncInterval:     5 * time.Minute,
				SummaryCacheSize: 24,
				SummaryCacheTTL:  10 * time.Minute,
			},
			wantErr:     true,
			errorString: "invalid request timeout 500ms: must be at least 1 second",
		},
		{
			name: "sync interval too short",
			config: Config{
				DBPath:           "./test.db",
				RequestTimeout:   30 * time.Second,
				SyncInterval:     500 * time.Millisecond,
				SummaryCacheSize: 24,
				SummaryCacheTTL:  10 * time.Minute,
			},
			wantErr:     true,
			errorString: "invalid sync interval 500ms: must be at least 1 second",
		},
		{
			name: "sync interval too long",
			config: Config{
				DBPath:           "./test.db",
				RequestTimeout:   30 * time.Second,
				SyncInterval:     25 * time.Hour,
				SummaryCacheSize: 24,
				SummaryCacheTTL:  10 * time.Minute,
			},
			wantErr:     true,
			errorString: "invalid sync interval 25h0m0s: must be at most 24 hours",
		},
		{
			name: "probe interval disabled is valid",
			config: Config{
				DBPath:           "./test.db",
				RequestTimeout:   30 * time.Second,
				SyncInterval:     5 * time.Minute,
				ProbeInterval:    0,
				SummaryCacheSize: 24,
				SummaryCacheTTL:  10 * time.Minute,
			},
			wantErr: false,
		},
		{
			name: "probe interval too short",
			config: Config{
				DBPath:           "./test.db",
				RequestTimeout:   30 * time.Second,
				SyncInterval:     5 * time.Minute,
				ProbeInterval:    100 * time.Millisecond,
				SummaryCacheSize: 24,
				SummaryCacheTTL:  10 * time.Minute,
			},
			wantErr:     true,
			errorString: "invalid probe interval 100ms",
		},
		{
			name: "summary cache size too small",
			config: Config{
				DBPath:           "./test.db",
				RequestTimeout:   30 * time.Second,
				SyncInterval:     5 * time.Minute,
				SummaryCacheSize: 0,
				SummaryCacheTTL:  10 * time.Minute,
			},
			wantErr:     true,
			errorString: "invalid summary cache size 0: must be at least 1",
		},
		{
			name: "summary cache size too large",
			config: Config{
				DBPath:           "./test.db",
				RequestTimeout:   30 * time.Second,
				SyncInterval:     5 * time.Minute,
				SummaryCacheSize: 2000,
				SummaryCacheTTL:  10 * time.Minute,
			},
			wantErr:     true,
			errorString: "invalid summary cache size 2000: must be at most 1000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Config.Validate() error = nil, wantErr %v", tt.wantErr)
					return
				}
				if tt.errorString != "" && !contains(err.Error(), tt.errorString) {
					t.Errorf("Config.Validate() error = %v, want error containing %v", err.Error(), tt.errorString)
				}
			} else {
				if err != nil {
					t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
				}
			}
		})
	}
}

func TestLoad(t *testing.T) {
	// Save original env vars
	originalVars := map[string]string{
		"KAKEBO_DB_PATH":          os.Getenv("KAKEBO_DB_PATH"),
		"KAKEBO_REMOTE_URL":       os.Getenv("KAKEBO_REMOTE_URL"),
		"KAKEBO_API_TOKEN":        os.Getenv("KAKEBO_API_TOKEN"),
		"KAKEBO_REQUEST_TIMEOUT":  os.Getenv("KAKEBO_REQUEST_TIMEOUT"),
		"KAKEBO_SYNC_INTERVAL":    os.Getenv("KAKEBO_SYNC_INTERVAL"),
		"KAKEBO_PULL_AFTER_DRAIN": os.Getenv("KAKEBO_PULL_AFTER_DRAIN"),
	}

	// Clean environment
	for key := range originalVars {
		os.Unsetenv(key)
	}

	// Restore env vars at end of test
	defer func() {
		for key, value := range originalVars {
			if value != "" {
				os.Setenv(key, value)
			} else {
				os.Unsetenv(key)
			}
		}
	}()

	t.Run("default values", func(t *testing.T) {
		cfg := Load()

		if cfg.DBPath != "./data/kakebo.db" {
			t.Errorf("Load() DBPath = %v, want ./data/kakebo.db", cfg.DBPath)
		}
		if cfg.RemoteBaseURL != "" {
			t.Errorf("Load() RemoteBaseURL = %v, want empty", cfg.RemoteBaseURL)
		}
		if cfg.RequestTimeout != 30*time.Second {
			t.Errorf("Load() RequestTimeout = %v, want 30s", cfg.RequestTimeout)
		}
		if cfg.SyncInterval != 5*time.Minute {
			t.Errorf("Load() SyncInterval = %v, want 5m", cfg.SyncInterval)
		}
		if cfg.PullAfterDrain {
			t.Error("Load() PullAfterDrain = true, want false")
		}
		if cfg.SummaryCacheSize != 24 {
			t.Errorf("Load() SummaryCacheSize = %v, want 24", cfg.SummaryCacheSize)
		}
	})

	t.Run("environment variables", func(t *testing.T) {
		os.Setenv("KAKEBO_DB_PATH", "/tmp/test.db")
		os.Setenv("KAKEBO_REMOTE_URL", "https://kakebo.example.com/api")
		os.Setenv("KAKEBO_API_TOKEN", "secret")
		os.Setenv("KAKEBO_SYNC_INTERVAL", "45s")
		os.Setenv("KAKEBO_PULL_AFTER_DRAIN", "true")

		cfg := Load()

		if cfg.DBPath != "/tmp/test.db" {
			t.Errorf("Load() DBPath = %v, want /tmp/test.db", cfg.DBPath)
		}
		if cfg.RemoteBaseURL != "https://kakebo.example.com/api" {
			t.Errorf("Load() RemoteBaseURL = %v, want https://kakebo.example.com/api", cfg.RemoteBaseURL)
		}
		if cfg.SyncInterval != 45*time.Second {
			t.Errorf("Load() SyncInterval = %v, want 45s", cfg.SyncInterval)
		}
		if !cfg.PullAfterDrain {
			t.Error("Load() PullAfterDrain = false, want true")
		}
	})

	t.Run("invalid environment variables use defaults", func(t *testing.T) {
		os.Setenv("KAKEBO_SYNC_INTERVAL", "invalid")
		os.Setenv("KAKEBO_PULL_AFTER_DRAIN", "invalid")

		cfg := Load()

		if cfg.SyncInterval != 5*time.Minute {
			t.Errorf("Load() SyncInterval = %v, want 5m (default for invalid input)", cfg.SyncInterval)
		}
		if cfg.PullAfterDrain {
			t.Error("Load() PullAfterDrain = true, want false (default for invalid input)")
		}
	})
}

// Helper function to check if string contains substring
func contains(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || func() bool {
		for i := 0; i <= len(s)-len(substr); i++ {
			if s[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	}())
}
