package models

import (
	"strings"
	"time"
)

const (
	ViolationTypePPE = "ppe_violation"

	SeverityHigh   = "high"
	SeverityMedium = "medium"
)

// Violation is an append-only record of one worker seen without required PPE.
type Violation struct {
	ID               uint      `gorm:"primarykey" json:"id"`
	AnalysisID       string    `gorm:"type:varchar(36);index" json:"analysis_id"`
	CameraID         string    `gorm:"index" json:"camera_id"`
	WorkerName       string    `gorm:"not null;index" json:"worker_name"`
	ViolationType    string    `gorm:"type:varchar(32);not null;default:'ppe_violation'" json:"violation_type"`
	MissingPPE       string    `gorm:"not null" json:"missing_ppe"`
	Location         string    `json:"location"`
	Zone             string    `json:"zone"`
	Severity         string    `gorm:"type:varchar(10);not null;index" json:"severity"`
	SalaryDeduction  float64   `gorm:"not null;default:0" json:"salary_deduction"`
	HolidayDeduction float64   `gorm:"not null;default:0" json:"holiday_deduction"`
	CategoryPenalty  float64   `gorm:"not null;default:0" json:"category_penalty"`
	CreatedAt        time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Violation) TableName() string {
	return "violations"
}

// SeverityFor maps the number of missing items to a severity label.
func SeverityFor(missingCount int) string {
	if missingCount > 2 {
		return SeverityHigh
	}
	return SeverityMedium
}

// JoinMissing renders the missing equipment list the way it is stored.
func JoinMissing(items []string) string {
	return strings.Join(items, ", ")
}

// MissingItems splits the stored missing equipment back into a list.
func (v *Violation) MissingItems() []string {
	if strings.TrimSpace(v.MissingPPE) == "" {
		return nil
	}
	parts := strings.Split(v.MissingPPE, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	return items
}

func (v *Violation) IsHigh() bool {
	return v.Severity == SeverityHigh
}
