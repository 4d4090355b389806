package service

import (
	"fmt"
	"ppe-monitor/internal/logging"
	"ppe-monitor/internal/models"
	"ppe-monitor/internal/repository"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type AttendanceService struct {
	attendance repository.AttendanceRepository
	workers    repository.WorkerRepository
	loc        *time.Location
	now        func() time.Time
	logger     *logrus.Logger
}

func NewAttendanceService(attendance repository.AttendanceRepository, workers repository.WorkerRepository, loc *time.Location) *AttendanceService {
	if loc == nil {
		loc = time.Local
	}
	return &AttendanceService{
		attendance: attendance,
		workers:    workers,
		loc:        loc,
		now:        time.Now,
		logger:     logging.New(),
	}
}

// Mark records today's status for a worker. Check-in time is only kept for present marks.
func (s *AttendanceService) Mark(employeeID, status, notes string) (*models.Attendance, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !models.ValidAttendanceStatus(status) {
		return nil, fmt.Errorf("unknown attendance status %q (use present, absent or leave)", status)
	}

	worker, err := s.workers.GetByEmployeeID(employeeID)
	if err != nil {
		return nil, err
	}
	if worker == nil {
		return nil, fmt.Errorf("worker %s not found", employeeID)
	}

	now := s.now().In(s.loc)
	mark := &models.Attendance{
		WorkerID: worker.ID,
		Date:     models.DateKey(now),
		Status:   status,
		Notes:    strings.TrimSpace(notes),
	}
	if status == models.AttendancePresent {
		mark.CheckInTime = &now
	}

	if err := s.attendance.Upsert(mark); err != nil {
		return nil, fmt.Errorf("mark attendance: %w", err)
	}
	mark.Worker = *worker

	s.logger.WithFields(logrus.Fields{
		"employee_id": employeeID,
		"status":      status,
	}).Info("Attendance marked")
	return mark, nil
}

type AttendanceSummary struct {
	Date     string
	Present  int
	Absent   int
	Leave    int
	Unmarked int
	Marks    []*models.Attendance
}

// Summary counts the marks for date (YYYY-MM-DD, today when empty).
func (s *AttendanceService) Summary(date string) (*AttendanceSummary, error) {
	if date == "" {
		date = models.DateKey(s.now().In(s.loc))
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	marks, err := s.attendance.GetByDate(date)
	if err != nil {
		return nil, err
	}
	total, err := s.workers.Count()
	if err != nil {
		return nil, err
	}

	summary := &AttendanceSummary{Date: date, Marks: marks}
	for _, m := range marks {
		switch m.Status {
		case models.AttendancePresent:
			summary.Present++
		case models.AttendanceAbsent:
			summary.Absent++
		case models.AttendanceLeave:
			summary.Leave++
		}
	}
	if unmarked := int(total) - len(marks); unmarked > 0 {
		summary.Unmarked = unmarked
	}
	return summary, nil
}

func FormatAttendance(s *AttendanceSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Attendance %s\n", s.Date)
	fmt.Fprintf(&b, "Present: %d  Absent: %d  Leave: %d  Unmarked: %d\n", s.Present, s.Absent, s.Leave, s.Unmarked)
	for _, m := range s.Marks {
		line := fmt.Sprintf("\n%s %s: %s", m.Worker.EmployeeID, m.Worker.Name, m.Status)
		if m.CheckInTime != nil {
			line += " at " + m.CheckInTime.Format("15:04")
		}
		if m.Notes != "" {
			line += " (" + m.Notes + ")"
		}
		b.WriteString(line)
	}
	return b.String()
}
