package service

import (
	"encoding/json"
	"fmt"
	"net/url"
	"ppe-monitor/internal/logging"
	"ppe-monitor/internal/models"
	"ppe-monitor/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

const (
	DefaultHolidayRate      = 0.5
	DefaultViolationPenalty = 2.0
)

// DefaultPenalties are the per-category amounts used until an administrator changes them.
var DefaultPenalties = models.PenaltySetting{
	Helmet:     500,
	Vest:       300,
	Gloves:     200,
	Boots:      300,
	ChestGuard: 400,
}

// Settings is a snapshot of every persisted setting.
type Settings struct {
	Webhook          models.WebhookSetting `json:"webhook"`
	Penalties        models.PenaltySetting `json:"penalties"`
	HolidayRate      float64               `json:"holiday_rate"`
	ViolationPenalty float64               `json:"violation_penalty"`
}

// SettingsService reads and writes the system_settings table. Missing or malformed
// values fall back to the defaults above.
type SettingsService struct {
	repo   repository.SettingRepository
	logger *logrus.Logger
}

func NewSettingsService(repo repository.SettingRepository) *SettingsService {
	return &SettingsService{
		repo:   repo,
		logger: logging.New(),
	}
}

// load decodes the stored value over dst and reports whether it did.
func (s *SettingsService) load(key string, dst interface{}) bool {
	setting, err := s.repo.Get(key)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Failed to read setting, using default")
		return false
	}
	if setting == nil || len(setting.Value) == 0 {
		return false
	}
	if err := json.Unmarshal(setting.Value, dst); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Malformed setting, using default")
		return false
	}
	return true
}

func (s *SettingsService) save(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.repo.Upsert(key, datatypes.JSON(data)); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (s *SettingsService) Webhook() models.WebhookSetting {
	var w models.WebhookSetting
	if !s.load(models.SettingWebhook, &w) {
		return models.WebhookSetting{}
	}
	return w
}

// SetWebhookURL stores the URL and keeps the enabled flag. An empty URL disables the webhook.
func (s *SettingsService) SetWebhookURL(raw string) error {
	w := s.Webhook()
	if raw == "" {
		w = models.WebhookSetting{}
		return s.save(models.SettingWebhook, w)
	}

	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid webhook url %q", raw)
	}
	w.URL = raw
	return s.save(models.SettingWebhook, w)
}

func (s *SettingsService) SetWebhookEnabled(enabled bool) error {
	w := s.Webhook()
	if enabled && w.URL == "" {
		return fmt.Errorf("set a webhook url before enabling it")
	}
	w.Enabled = enabled
	return s.save(models.SettingWebhook, w)
}

func (s *SettingsService) Penalties() models.PenaltySetting {
	p := DefaultPenalties
	if !s.load(models.SettingPenalties, &p) {
		return DefaultPenalties
	}
	for _, category := range []string{models.PenaltyHelmet, models.PenaltyVest, models.PenaltyGloves, models.PenaltyBoots, models.PenaltyChestGuard} {
		if amount, _ := p.Amount(category); amount < 0 {
			return DefaultPenalties
		}
	}
	return p
}

func (s *SettingsService) SetPenalty(category string, amount float64) error {
	p := s.Penalties()
	if err := p.Set(category, amount); err != nil {
		return err
	}
	return s.save(models.SettingPenalties, p)
}

// HolidayRate is the number of leave days deducted per violation.
func (s *SettingsService) HolidayRate() float64 {
	return s.rate(models.SettingHolidayRate, DefaultHolidayRate)
}

func (s *SettingsService) SetHolidayRate(days float64) error {
	if days < 0 {
		return fmt.Errorf("holiday rate must not be negative, got %v", days)
	}
	return s.save(models.SettingHolidayRate, models.RateSetting{PerViolation: days})
}

// ViolationPenalty is the flat salary deduction per violation used by payroll.
func (s *SettingsService) ViolationPenalty() float64 {
	return s.rate(models.SettingViolationPenalty, DefaultViolationPenalty)
}

func (s *SettingsService) SetViolationPenalty(amount float64) error {
	if amount < 0 {
		return fmt.Errorf("violation penalty must not be negative, got %v", amount)
	}
	return s.save(models.SettingViolationPenalty, models.RateSetting{PerViolation: amount})
}

func (s *SettingsService) rate(key string, def float64) float64 {
	r := models.RateSetting{PerViolation: def}
	if !s.load(key, &r) || r.PerViolation < 0 {
		return def
	}
	return r.PerViolation
}

func (s *SettingsService) Current() Settings {
	return Settings{
		Webhook:          s.Webhook(),
		Penalties:        s.Penalties(),
		HolidayRate:      s.HolidayRate(),
		ViolationPenalty: s.ViolationPenalty(),
	}
}

// FormatSettings renders the settings for chat and terminal output.
func FormatSettings(st Settings) string {
	status := "disabled"
	if st.Webhook.Enabled {
		status = "enabled"
	}
	target := st.Webhook.URL
	if target == "" {
		target = "not set"
	}

	return fmt.Sprintf(`Settings:

Webhook: %s (%s)
Per-violation salary deduction: %.2f
Holiday deduction per violation: %.2f days

Category penalties:
  helmet: %.0f
  vest: %.0f
  gloves: %.0f
  boots: %.0f
  chest_guard: %.0f`,
		target, status,
		st.ViolationPenalty,
		st.HolidayRate,
		st.Penalties.Helmet, st.Penalties.Vest, st.Penalties.Gloves, st.Penalties.Boots, st.Penalties.ChestGuard)
}
