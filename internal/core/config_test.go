package core

import (
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/illarion/recvault/internal/storage"
)

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    Config
		wantErr bool
	}{
		{
			name: "defaults",
			env:  map[string]string{},
			want: Config{Backend: storage.BackendBolt, LogLevel: logrus.WarnLevel},
		},
		{
			name: "all set",
			env: map[string]string{
				EnvStore:       "sqlite",
				EnvLogLevel:    "debug",
				EnvSessionIdle: "5m",
			},
			want: Config{Backend: storage.BackendSQLite, LogLevel: logrus.DebugLevel, SessionIdle: 5 * time.Minute},
		},
		{name: "bad store", env: map[string]string{EnvStore: "mysql"}, wantErr: true},
		{name: "bad level", env: map[string]string{EnvLogLevel: "loud"}, wantErr: true},
		{name: "bad idle", env: map[string]string{EnvSessionIdle: "soon"}, wantErr: true},
		{name: "negative idle", env: map[string]string{EnvSessionIdle: "-1s"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(func(key string) string { return tt.env[key] })
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error, got config %+v", cfg)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadConfig failed: %v", err)
			}
			if cfg != tt.want {
				t.Errorf("Got %+v, want %+v", cfg, tt.want)
			}
		})
	}
}

func TestLoadConfigStoreError(t *testing.T) {
	_, err := LoadConfig(func(key string) string {
		if key == EnvStore {
			return "mysql"
		}
		return ""
	})
	if !errors.Is(err, storage.ErrUnknownBackend) {
		t.Errorf("Expected ErrUnknownBackend, got %v", err)
	}
}

func TestConfigOptions(t *testing.T) {
	cfg := Config{Backend: storage.BackendSQLite, LogLevel: logrus.ErrorLevel, SessionIdle: time.Minute}
	v, err := New(t.TempDir(), cfg.Options()...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer v.Close()

	if v.Backend() != storage.BackendSQLite {
		t.Errorf("Expected sqlite backend, got %s", v.Backend())
	}
	if v.idle != time.Minute {
		t.Errorf("Expected idle timeout to be applied, got %v", v.idle)
	}
	if cfg.Logger().GetLevel() != logrus.ErrorLevel {
		t.Error("Logger level not applied")
	}
}
