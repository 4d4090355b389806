package models

import "time"

// Worker is a roster entry. Violation records reference workers by free-text name only.
type Worker struct {
	ID                uint      `gorm:"primarykey" json:"id"`
	EmployeeID        string    `gorm:"uniqueIndex;not null" json:"employee_id"`
	Name              string    `gorm:"not null;index" json:"name"`
	Role              string    `gorm:"not null" json:"role"`
	TotalHolidays     float64   `gorm:"not null;default:4" json:"total_holidays"`
	RemainingHolidays float64   `gorm:"not null;default:4" json:"remaining_holidays"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Worker) TableName() string {
	return "workers"
}

// IsValid checks the leave balance bounds.
func (w *Worker) IsValid() bool {
	if w.EmployeeID == "" || w.Name == "" {
		return false
	}
	if w.TotalHolidays < 0 || w.RemainingHolidays < 0 {
		return false
	}
	return w.RemainingHolidays <= w.TotalHolidays
}
