package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATABASE_URL", "LOG_LEVEL", "TIMEZONE", "TELEGRAM_BOT_TOKEN", "SLACK_BOT_TOKEN",
		"SLACK_CHANNEL_ID", "DIGEST_SCHEDULE", "CLASSIFIER_PROVIDER", "CLASSIFIER_URL",
		"CLASSIFIER_API_KEY", "CLASSIFIER_MODEL", "GEMINI_PROJECT", "GEMINI_LOCATION",
		"CLASSIFIER_TIMEOUT_SECONDS", "POLL_INTERVAL_SECONDS", "INITIAL_DELAY_SECONDS",
		"JPEG_QUALITY", "MONITOR_AUTO_START", "SITE_LOCATION", "ADMIN_CHAT_IDS",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, defaultDatabaseURL, cfg.DatabaseURL)
	assert.Equal(t, ProviderGateway, cfg.Classifier.Provider)
	assert.Equal(t, defaultGatewayURL, cfg.Classifier.URL)
	assert.Equal(t, defaultGatewayModel, cfg.Classifier.Model)
	assert.Equal(t, 60*time.Second, cfg.Classifier.Timeout())
	assert.Equal(t, 30*time.Second, cfg.Monitor.PollInterval())
	assert.Equal(t, 3*time.Second, cfg.Monitor.InitialDelay())
	assert.Equal(t, defaultJPEGQuality, cfg.Monitor.JPEGQuality)
	assert.Equal(t, defaultMaxBackoffFactor, cfg.Monitor.MaxBackoffFactor)
	assert.Equal(t, defaultDigestSchedule, cfg.DigestSchedule)
	assert.Equal(t, 15000.0, cfg.Payroll.DefaultSalary)
	assert.Equal(t, 4.0, cfg.Payroll.InitialHolidays)
	assert.Equal(t, 15000.0, cfg.Payroll.SalaryTable["Construction Worker"])
	assert.Equal(t, time.Local, cfg.Location())
}

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
database_url: site.db
timezone: UTC
admin_chat_ids: [11, 22]
classifier:
  provider: anthropic
  api_key: sk-test
monitor:
  poll_interval_seconds: 45
  auto_start: true
payroll:
  salary_table:
    Welder: 16500
cameras:
  - id: gate
    path: /var/lib/ppe/gate
    enabled: true
  - id: crane
    name: Tower crane
    source: http
    url: http://10.0.0.5/snapshot.jpg
roster:
  - employee_id: W001
    name: Rajesh Sharma
    role: Welder
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "site.db", cfg.DatabaseURL)
	assert.Equal(t, defaultAnthropicModel, cfg.Classifier.Model)
	assert.Equal(t, 45*time.Second, cfg.Monitor.PollInterval())
	assert.True(t, cfg.Monitor.AutoStart)
	assert.Equal(t, map[string]float64{"Welder": 16500}, cfg.Payroll.SalaryTable)
	assert.True(t, cfg.IsAdmin(22))
	assert.False(t, cfg.IsAdmin(33))
	assert.Equal(t, "UTC", cfg.Location().String())

	gate, ok := cfg.Camera("gate")
	require.True(t, ok)
	assert.Equal(t, SourceDirectory, gate.Source)
	assert.Equal(t, "gate", gate.Name)

	crane, ok := cfg.Camera("crane")
	require.True(t, ok)
	assert.Equal(t, "Tower crane", crane.Name)

	_, ok = cfg.Camera("roof")
	assert.False(t, ok)

	require.Len(t, cfg.Roster, 1)
	assert.Equal(t, 4.0, cfg.Roster[0].TotalHolidays)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
database_url: site.db
classifier:
  url: https://example.invalid/v1/chat
monitor:
  poll_interval_seconds: 45
`)
	t.Setenv("DATABASE_URL", "override.db")
	t.Setenv("POLL_INTERVAL_SECONDS", "10")
	t.Setenv("ADMIN_CHAT_IDS", "5, 6,bad")
	t.Setenv("MONITOR_AUTO_START", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "override.db", cfg.DatabaseURL)
	assert.Equal(t, 10*time.Second, cfg.Monitor.PollInterval())
	assert.Equal(t, []int64{5, 6}, cfg.AdminChatIDs)
	assert.True(t, cfg.Monitor.AutoStart)
	assert.Equal(t, "https://example.invalid/v1/chat", cfg.Classifier.URL)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown provider", "classifier:\n  provider: ollama\n"},
		{"gemini without project", "classifier:\n  provider: gemini\n"},
		{"camera without id", "cameras:\n  - path: /tmp\n"},
		{"duplicate camera", "cameras:\n  - id: a\n    path: /tmp\n  - id: a\n    path: /tmp\n"},
		{"directory without path", "cameras:\n  - id: a\n"},
		{"http without url", "cameras:\n  - id: a\n    source: http\n"},
		{"unknown source", "cameras:\n  - id: a\n    source: rtsp\n"},
		{"bad timezone", "timezone: Mars/Olympus\n"},
		{"bad log level", "log_level: loud\n"},
		{"malformed yaml", "cameras: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
