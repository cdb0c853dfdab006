package types

import (
	"errors"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty backend returns ErrBackendEmpty",
			config:  Config{Backend: "", DataDir: "/tmp/data"},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  Config{Backend: "postgres", DataDir: "/tmp/data"},
			wantErr: ErrBackendUnknown,
		},
		{
			name:    "valid sqlite config",
			config:  Config{Backend: "sqlite", DataDir: "/tmp/data"},
			wantErr: nil,
		},
		{
			name:    "sqlite with empty DataDir is valid at config level",
			config:  Config{Backend: "sqlite", DataDir: ""},
			wantErr: nil,
		},
		{
			name:    "unknown notifier",
			config:  Config{Backend: "sqlite", Notifier: "kafka"},
			wantErr: ErrNotifierUnknown,
		},
		{
			name:    "redis notifier without url",
			config:  Config{Backend: "sqlite", Notifier: NotifierRedis},
			wantErr: ErrRedisURLMissing,
		},
		{
			name:    "redis notifier with url",
			config:  Config{Backend: "sqlite", Notifier: NotifierRedis, RedisURL: "redis://localhost:6379"},
			wantErr: nil,
		},
		{
			name:    "negative poll interval",
			config:  Config{Backend: "sqlite", PollInterval: -time.Second},
			wantErr: ErrPollIntervalNegative,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	if got := c.GetNotifier(); got != NotifierLocal {
		t.Fatalf("expected local notifier, got %s", got)
	}
	if got := c.GetRedisChannel(); got != DefaultChannel {
		t.Fatalf("expected default channel, got %s", got)
	}
}
