package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

const (
	SettingWebhook          = "n8n_webhook_url"
	SettingPenalties        = "violation_penalties"
	SettingHolidayRate      = "holiday_deduction_rate"
	SettingViolationPenalty = "violation_penalty"
)

type SystemSetting struct {
	Key       string         `gorm:"primarykey;type:varchar(64)" json:"key"`
	Value     datatypes.JSON `json:"value"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (SystemSetting) TableName() string {
	return "system_settings"
}

type WebhookSetting struct {
	URL     string `json:"url"`
	Enabled bool   `json:"enabled"`
}

// Active reports whether notifications should be posted.
func (w WebhookSetting) Active() bool {
	return w.Enabled && w.URL != ""
}

type PenaltySetting struct {
	Helmet     float64 `json:"helmet"`
	Vest       float64 `json:"vest"`
	Gloves     float64 `json:"gloves"`
	Boots      float64 `json:"boots"`
	ChestGuard float64 `json:"chest_guard"`
}

type RateSetting struct {
	PerViolation float64 `json:"per_violation"`
}

const (
	PenaltyHelmet     = "helmet"
	PenaltyVest       = "vest"
	PenaltyGloves     = "gloves"
	PenaltyBoots      = "boots"
	PenaltyChestGuard = "chest_guard"
)

var penaltyKeywords = []struct {
	category string
	words    []string
}{
	{PenaltyHelmet, []string{"helmet", "hard hat", "hardhat"}},
	{PenaltyVest, []string{"vest", "jacket", "hi-vis", "high-visibility", "high visibility"}},
	{PenaltyGloves, []string{"glove"}},
	{PenaltyBoots, []string{"boot", "shoe", "footwear"}},
	{PenaltyChestGuard, []string{"chest"}},
}

// PenaltyCategory maps free-text equipment names such as "Safety Helmet" to a penalty
// category. It returns "" for items without a category (eye protection, for instance).
func PenaltyCategory(item string) string {
	lower := strings.ToLower(item)
	for _, entry := range penaltyKeywords {
		for _, w := range entry.words {
			if strings.Contains(lower, w) {
				return entry.category
			}
		}
	}
	return ""
}

func (p PenaltySetting) Amount(category string) (float64, bool) {
	switch category {
	case PenaltyHelmet:
		return p.Helmet, true
	case PenaltyVest:
		return p.Vest, true
	case PenaltyGloves:
		return p.Gloves, true
	case PenaltyBoots:
		return p.Boots, true
	case PenaltyChestGuard:
		return p.ChestGuard, true
	}
	return 0, false
}

func (p *PenaltySetting) Set(category string, amount float64) error {
	if amount < 0 {
		return fmt.Errorf("penalty must not be negative, got %v", amount)
	}
	switch category {
	case PenaltyHelmet:
		p.Helmet = amount
	case PenaltyVest:
		p.Vest = amount
	case PenaltyGloves:
		p.Gloves = amount
	case PenaltyBoots:
		p.Boots = amount
	case PenaltyChestGuard:
		p.ChestGuard = amount
	default:
		return fmt.Errorf("unknown penalty category %q", category)
	}
	return nil
}

// Itemized sums the category penalties of the missing items, counting each category once.
func (p PenaltySetting) Itemized(items []string) float64 {
	seen := make(map[string]bool, len(items))
	var total float64
	for _, item := range items {
		category := PenaltyCategory(item)
		if category == "" || seen[category] {
			continue
		}
		seen[category] = true
		amount, _ := p.Amount(category)
		total += amount
	}
	return total
}
