package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	ProviderGateway   = "gateway"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"

	SourceDirectory = "dir"
	SourceHTTP      = "http"
)

const (
	defaultDatabaseURL      = "ppe-monitor.db"
	defaultGatewayURL       = "https://ai.gateway.lovable.dev/v1/chat/completions"
	defaultGatewayModel     = "google/gemini-2.5-flash"
	defaultGeminiModel      = "gemini-2.0-flash"
	defaultAnthropicModel   = "claude-sonnet-4-5-20250929"
	defaultTimeoutSeconds   = 60
	defaultPollInterval     = 30
	defaultInitialDelay     = 3
	defaultJPEGQuality      = 80
	defaultMaxBackoffFactor = 8
	defaultSiteLocation     = "Devbhoomi University Construction Site"
	defaultDigestSchedule   = "0 18 * * *"
	defaultSalary           = 15000
	defaultInitialHolidays  = 4
	defaultLogLevel         = "info"
	defaultConfigPath       = "config.yaml"
)

// DefaultSalaryTable is the monthly base salary per role used when the YAML config
// does not provide one.
var DefaultSalaryTable = map[string]float64{
	"Site Supervisor":     20000,
	"Safety Inspector":    18000,
	"Safety Officer":      18000,
	"Construction Worker": 15000,
	"Equipment Operator":  17000,
	"Electrician":         16500,
	"Welder":              16000,
	"Quality Control":     17500,
	"Crane Operator":      18500,
	"Plumber":             15500,
}

type Config struct {
	DatabaseURL string `yaml:"database_url"`
	LogLevel    string `yaml:"log_level"`
	Timezone    string `yaml:"timezone"`

	TelegramToken string  `yaml:"telegram_token"`
	AdminChatIDs  []int64 `yaml:"admin_chat_ids"`

	SlackBotToken  string `yaml:"slack_bot_token"`
	SlackChannelID string `yaml:"slack_channel_id"`

	Classifier ClassifierConfig `yaml:"classifier"`
	Monitor    MonitorConfig    `yaml:"monitor"`
	Payroll    PayrollConfig    `yaml:"payroll"`

	DigestSchedule string `yaml:"digest_schedule"`

	Cameras []CameraConfig `yaml:"cameras"`
	Roster  []RosterWorker `yaml:"roster"`
}

type ClassifierConfig struct {
	Provider       string `yaml:"provider"`
	URL            string `yaml:"url"`
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	GeminiProject  string `yaml:"gemini_project"`
	GeminiLocation string `yaml:"gemini_location"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type MonitorConfig struct {
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	InitialDelaySeconds int    `yaml:"initial_delay_seconds"`
	JPEGQuality         int    `yaml:"jpeg_quality"`
	MaxBackoffFactor    int    `yaml:"max_backoff_factor"`
	SiteLocation        string `yaml:"site_location"`
	AutoStart           bool   `yaml:"auto_start"`
}

type PayrollConfig struct {
	DefaultSalary   float64            `yaml:"default_salary"`
	InitialHolidays float64            `yaml:"initial_holidays"`
	SalaryTable     map[string]float64 `yaml:"salary_table"`
}

type CameraConfig struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Zone    string `yaml:"zone"`
	Source  string `yaml:"source"`
	Path    string `yaml:"path"`
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

type RosterWorker struct {
	EmployeeID    string  `yaml:"employee_id"`
	Name          string  `yaml:"name"`
	Role          string  `yaml:"role"`
	TotalHolidays float64 `yaml:"total_holidays"`
}

func (c ClassifierConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (m MonitorConfig) PollInterval() time.Duration {
	return time.Duration(m.PollIntervalSeconds) * time.Second
}

func (m MonitorConfig) InitialDelay() time.Duration {
	return time.Duration(m.InitialDelaySeconds) * time.Second
}

// Camera returns the configured camera with the given id.
func (c *Config) Camera(id string) (CameraConfig, bool) {
	for _, cam := range c.Cameras {
		if cam.ID == id {
			return cam, true
		}
	}
	return CameraConfig{}, false
}

// IsAdmin reports whether chatID belongs to an administrator.
func (c *Config) IsAdmin(chatID int64) bool {
	for _, id := range c.AdminChatIDs {
		if id == chatID {
			return true
		}
	}
	return false
}

// FromEnvironment loads an optional .env file and then the configuration at path.
// An empty path falls back to CONFIG_PATH and then to config.yaml.
func FromEnvironment(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debugf("no .env file loaded: %s", err.Error())
	}

	if path == "" {
		path = getEnv("CONFIG_PATH", defaultConfigPath)
	}
	return Load(path)
}

// Load reads the optional YAML file at path, applies environment overrides and
// defaults, and validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	envOverride(&cfg.DatabaseURL, "DATABASE_URL")
	envOverride(&cfg.LogLevel, "LOG_LEVEL")
	envOverride(&cfg.Timezone, "TIMEZONE")
	envOverride(&cfg.TelegramToken, "TELEGRAM_BOT_TOKEN")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")
	envOverride(&cfg.DigestSchedule, "DIGEST_SCHEDULE")

	envOverride(&cfg.Classifier.Provider, "CLASSIFIER_PROVIDER")
	envOverride(&cfg.Classifier.URL, "CLASSIFIER_URL")
	envOverride(&cfg.Classifier.APIKey, "CLASSIFIER_API_KEY")
	envOverride(&cfg.Classifier.Model, "CLASSIFIER_MODEL")
	envOverride(&cfg.Classifier.GeminiProject, "GEMINI_PROJECT")
	envOverride(&cfg.Classifier.GeminiLocation, "GEMINI_LOCATION")
	cfg.Classifier.TimeoutSeconds = int(getEnvAsInt("CLASSIFIER_TIMEOUT_SECONDS", int64(cfg.Classifier.TimeoutSeconds)))

	cfg.Monitor.PollIntervalSeconds = int(getEnvAsInt("POLL_INTERVAL_SECONDS", int64(cfg.Monitor.PollIntervalSeconds)))
	cfg.Monitor.InitialDelaySeconds = int(getEnvAsInt("INITIAL_DELAY_SECONDS", int64(cfg.Monitor.InitialDelaySeconds)))
	cfg.Monitor.JPEGQuality = int(getEnvAsInt("JPEG_QUALITY", int64(cfg.Monitor.JPEGQuality)))
	cfg.Monitor.AutoStart = getEnvAsBool("MONITOR_AUTO_START", cfg.Monitor.AutoStart)
	envOverride(&cfg.Monitor.SiteLocation, "SITE_LOCATION")

	if ids := getEnv("ADMIN_CHAT_IDS", ""); ids != "" {
		cfg.AdminChatIDs = parseChatIDs(ids)
	}
}

func applyDefaults(cfg *Config) {
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultDatabaseURL
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	if cfg.DigestSchedule == "" {
		cfg.DigestSchedule = defaultDigestSchedule
	}

	if cfg.Classifier.Provider == "" {
		cfg.Classifier.Provider = ProviderGateway
	}
	if cfg.Classifier.TimeoutSeconds <= 0 {
		cfg.Classifier.TimeoutSeconds = defaultTimeoutSeconds
	}
	switch cfg.Classifier.Provider {
	case ProviderGateway:
		if cfg.Classifier.URL == "" {
			cfg.Classifier.URL = defaultGatewayURL
		}
		if cfg.Classifier.Model == "" {
			cfg.Classifier.Model = defaultGatewayModel
		}
	case ProviderGemini:
		if cfg.Classifier.Model == "" {
			cfg.Classifier.Model = defaultGeminiModel
		}
	case ProviderAnthropic:
		if cfg.Classifier.Model == "" {
			cfg.Classifier.Model = defaultAnthropicModel
		}
	}

	if cfg.Monitor.PollIntervalSeconds <= 0 {
		cfg.Monitor.PollIntervalSeconds = defaultPollInterval
	}
	if cfg.Monitor.InitialDelaySeconds <= 0 {
		cfg.Monitor.InitialDelaySeconds = defaultInitialDelay
	}
	if cfg.Monitor.JPEGQuality <= 0 || cfg.Monitor.JPEGQuality > 100 {
		cfg.Monitor.JPEGQuality = defaultJPEGQuality
	}
	if cfg.Monitor.MaxBackoffFactor < 1 {
		cfg.Monitor.MaxBackoffFactor = defaultMaxBackoffFactor
	}
	if cfg.Monitor.SiteLocation == "" {
		cfg.Monitor.SiteLocation = defaultSiteLocation
	}

	if cfg.Payroll.DefaultSalary <= 0 {
		cfg.Payroll.DefaultSalary = defaultSalary
	}
	if cfg.Payroll.InitialHolidays <= 0 {
		cfg.Payroll.InitialHolidays = defaultInitialHolidays
	}
	if len(cfg.Payroll.SalaryTable) == 0 {
		cfg.Payroll.SalaryTable = make(map[string]float64, len(DefaultSalaryTable))
		for role, amount := range DefaultSalaryTable {
			cfg.Payroll.SalaryTable[role] = amount
		}
	}

	for i := range cfg.Cameras {
		if cfg.Cameras[i].Source == "" {
			cfg.Cameras[i].Source = SourceDirectory
		}
		if cfg.Cameras[i].Name == "" {
			cfg.Cameras[i].Name = cfg.Cameras[i].ID
		}
	}
	for i := range cfg.Roster {
		if cfg.Roster[i].TotalHolidays <= 0 {
			cfg.Roster[i].TotalHolidays = cfg.Payroll.InitialHolidays
		}
	}
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Classifier.Provider {
	case ProviderGateway:
		if c.Classifier.URL == "" {
			return fmt.Errorf("classifier.url is required when classifier.provider=%s", ProviderGateway)
		}
	case ProviderGemini:
		if c.Classifier.GeminiProject == "" || c.Classifier.GeminiLocation == "" {
			return fmt.Errorf("classifier.gemini_project and classifier.gemini_location are required when classifier.provider=%s", ProviderGemini)
		}
	case ProviderAnthropic:
	default:
		return fmt.Errorf("classifier.provider must be one of %s, %s, %s; got %q",
			ProviderGateway, ProviderGemini, ProviderAnthropic, c.Classifier.Provider)
	}

	seen := make(map[string]bool, len(c.Cameras))
	for _, cam := range c.Cameras {
		if cam.ID == "" {
			return fmt.Errorf("camera without id")
		}
		if seen[cam.ID] {
			return fmt.Errorf("duplicate camera id %q", cam.ID)
		}
		seen[cam.ID] = true

		switch cam.Source {
		case SourceDirectory:
			if cam.Path == "" {
				return fmt.Errorf("camera %q: path is required for source %q", cam.ID, SourceDirectory)
			}
		case SourceHTTP:
			if cam.URL == "" {
				return fmt.Errorf("camera %q: url is required for source %q", cam.ID, SourceHTTP)
			}
		default:
			return fmt.Errorf("camera %q: unknown source %q", cam.ID, cam.Source)
		}
	}

	if c.Timezone != "" && !strings.EqualFold(c.Timezone, "Local") {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
		}
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return nil
}

// Location returns the configured timezone, defaulting to time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "Local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func envOverride(field *string, key string) {
	if val := getEnv(key, ""); val != "" {
		*field = val
	}
}

func getEnv(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultVal
}

func getEnvAsBool(name string, defaultVal bool) bool {
	valStr := getEnv(name, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}

	return defaultVal
}

func getEnvAsInt(name string, defaultVal int64) int64 {
	valStr := getEnv(name, "")
	if val, err := strconv.Atoi(valStr); err == nil {
		return int64(val)
	}

	return defaultVal
}

func parseChatIDs(raw string) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
