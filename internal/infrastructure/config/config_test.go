package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeConfig writes content to a config file in a temporary directory.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
database:
  path: "/tmp/test.db"
  migrations_dir: "./sql"
logging:
  level: "debug"
  format: "json"
mqtt:
  enabled: true
  broker:
    host: "broker.local"
    port: 8883
    client_id: "test-client"
  qos: 2
  topic_prefix: "lab"
influxdb:
  enabled: true
  url: "http://influx:8086"
  org: "lab"
  bucket: "events"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}
	if cfg.Database.MigrationsDir != "./sql" {
		t.Errorf("Database.MigrationsDir = %q, want %q", cfg.Database.MigrationsDir, "./sql")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if !cfg.MQTT.Enabled || cfg.MQTT.Broker.Host != "broker.local" || cfg.MQTT.TopicPrefix != "lab" {
		t.Errorf("MQTT = %+v", cfg.MQTT)
	}
	if cfg.InfluxDB.Bucket != "events" {
		t.Errorf("InfluxDB.Bucket = %q, want %q", cfg.InfluxDB.Bucket, "events")
	}

	// Unset keys keep their defaults.
	if cfg.InfluxDB.BatchSize != 100 {
		t.Errorf("InfluxDB.BatchSize = %d, want default 100", cfg.InfluxDB.BatchSize)
	}
	if cfg.Database.BackupPath == "" {
		t.Error("Database.BackupPath lost its default")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoadOptional_MissingFile(t *testing.T) {
	t.Setenv("SQLEZ_DATABASE_PATH", "/env/path.db")

	cfg, err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadOptional() error = %v", err)
	}
	if cfg.Database.Path != "/env/path.db" {
		t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want default info", cfg.Logging.Level)
	}
}

func TestLoadOptional_InvalidFile(t *testing.T) {
	configPath := writeConfig(t, "invalid: [yaml: content")

	if _, err := LoadOptional(configPath); err == nil {
		t.Error("LoadOptional() expected error for invalid YAML, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	configPath := writeConfig(t, `
database:
  path: ""
`)

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty database.path, got nil")
	}
}

func TestLoad_InvalidEnvBool(t *testing.T) {
	t.Setenv("SQLEZ_MQTT_ENABLED", "sometimes")

	if _, err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadOptional() expected error for invalid SQLEZ_MQTT_ENABLED, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "defaults",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name: "memory store only",
			mutate: func(c *Config) {
				c.Database.Path = ""
				c.Database.MemoryName = "scratch"
			},
			wantErr: false,
		},
		{
			name:    "no store",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "invalid log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: true,
		},
		{
			name:    "invalid QoS - negative",
			mutate:  func(c *Config) { c.MQTT.QoS = -1 },
			wantErr: true,
		},
		{
			name:    "invalid QoS - too high",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name: "mqtt enabled without host",
			mutate: func(c *Config) {
				c.MQTT.Enabled = true
				c.MQTT.Broker.Host = ""
			},
			wantErr: true,
		},
		{
			name: "mqtt enabled with bad port",
			mutate: func(c *Config) {
				c.MQTT.Enabled = true
				c.MQTT.Broker.Port = 70000
			},
			wantErr: true,
		},
		{
			name: "mqtt disabled ignores broker",
			mutate: func(c *Config) {
				c.MQTT.Broker.Host = ""
				c.MQTT.Broker.Port = 0
			},
			wantErr: false,
		},
		{
			name:    "influxdb enabled without org",
			mutate:  func(c *Config) { c.InfluxDB.Enabled = true },
			wantErr: true,
		},
		{
			name: "influxdb enabled",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.Org = "lab"
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetFlushInterval(t *testing.T) {
	cfg := &Config{InfluxDB: InfluxDBConfig{FlushInterval: 15}}

	if got := cfg.GetFlushInterval(); got != 15*time.Second {
		t.Errorf("GetFlushInterval() = %v, want 15s", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("SQLEZ_DATABASE_PATH", "/custom/path.db")
	t.Setenv("SQLEZ_DATABASE_MEMORY_NAME", "scratch")
	t.Setenv("SQLEZ_MIGRATIONS_DIR", "/custom/sql")
	t.Setenv("SQLEZ_BACKUP_PATH", "/custom/backup.db")
	t.Setenv("SQLEZ_LOG_LEVEL", "debug")
	t.Setenv("SQLEZ_LOG_FORMAT", "json")
	t.Setenv("SQLEZ_MQTT_ENABLED", "true")
	t.Setenv("SQLEZ_MQTT_HOST", "mqtt.example.com")
	t.Setenv("SQLEZ_MQTT_USERNAME", "testuser")
	t.Setenv("SQLEZ_MQTT_PASSWORD", "testpass")
	t.Setenv("SQLEZ_INFLUXDB_ENABLED", "1")
	t.Setenv("SQLEZ_INFLUXDB_URL", "http://influx:8086")
	t.Setenv("SQLEZ_INFLUXDB_TOKEN", "secret-token")

	if err := applyEnvOverrides(cfg); err != nil {
		t.Fatalf("applyEnvOverrides() error = %v", err)
	}

	checks := []struct {
		name string
		got  string
		want string
	}{
		{"Database.Path", cfg.Database.Path, "/custom/path.db"},
		{"Database.MemoryName", cfg.Database.MemoryName, "scratch"},
		{"Database.MigrationsDir", cfg.Database.MigrationsDir, "/custom/sql"},
		{"Database.BackupPath", cfg.Database.BackupPath, "/custom/backup.db"},
		{"Logging.Level", cfg.Logging.Level, "debug"},
		{"Logging.Format", cfg.Logging.Format, "json"},
		{"MQTT.Broker.Host", cfg.MQTT.Broker.Host, "mqtt.example.com"},
		{"MQTT.Auth.Username", cfg.MQTT.Auth.Username, "testuser"},
		{"MQTT.Auth.Password", cfg.MQTT.Auth.Password, "testpass"},
		{"InfluxDB.URL", cfg.InfluxDB.URL, "http://influx:8086"},
		{"InfluxDB.Token", cfg.InfluxDB.Token, "secret-token"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.name, c.got, c.want)
		}
	}

	if !cfg.MQTT.Enabled {
		t.Error("MQTT.Enabled = false, want true")
	}
	if !cfg.InfluxDB.Enabled {
		t.Error("InfluxDB.Enabled = false, want true")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Database.Path == "" {
		t.Error("defaultConfig should have non-empty Database.Path")
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}

	if cfg.MQTT.Enabled || cfg.InfluxDB.Enabled {
		t.Error("defaultConfig should leave event sinks disabled")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaultConfig should validate, got %v", err)
	}
}
