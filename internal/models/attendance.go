package models

import "time"

const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
	AttendanceLeave   = "leave"
)

type Attendance struct {
	ID          uint       `gorm:"primarykey" json:"id"`
	WorkerID    uint       `gorm:"not null;uniqueIndex:idx_attendance_worker_date" json:"worker_id"`
	Date        string     `gorm:"type:varchar(10);not null;uniqueIndex:idx_attendance_worker_date" json:"date"`
	Status      string     `gorm:"type:varchar(10);not null" json:"status"`
	Notes       string     `json:"notes"`
	CheckInTime *time.Time `json:"check_in_time"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Worker Worker `gorm:"foreignKey:WorkerID"`
}

func (Attendance) TableName() string {
	return "attendance"
}

func ValidAttendanceStatus(s string) bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLeave:
		return true
	}
	return false
}

// DateKey formats t as the attendance date column.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
