package repository

import (
	"errors"
	"ppe-monitor/internal/logging"
	"ppe-monitor/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttendanceRepository interface {
	Upsert(a *models.Attendance) error
	GetByWorkerAndDate(workerID uint, date string) (*models.Attendance, error)
	GetByDate(date string) ([]*models.Attendance, error)
	CountByStatus(date string) (map[string]int, error)
}

type GormAttendanceRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormAttendanceRepository(db *gorm.DB) (*GormAttendanceRepository, error) {
	logger := logging.New()

	if err := db.AutoMigrate(&models.Attendance{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate attendance table")
		return nil, err
	}

	logger.Info("Attendance repository initialized")

	return &GormAttendanceRepository{
		db:     db,
		logger: logger,
	}, nil
}

// Upsert writes one attendance mark per worker per day; a later mark replaces the earlier one.
func (r *GormAttendanceRepository) Upsert(a *models.Attendance) error {
	if a.WorkerID == 0 || a.Date == "" || !models.ValidAttendanceStatus(a.Status) {
		return errors.New("invalid attendance data")
	}

	result := r.db.Omit("Worker").Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "worker_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "notes", "check_in_time", "updated_at"}),
	}).Create(a)
	if result.Error != nil {
		r.logger.WithError(result.Error).WithFields(logrus.Fields{
			"worker_id": a.WorkerID,
			"date":      a.Date,
		}).Error("Failed to mark attendance")
		return result.Error
	}

	r.logger.WithFields(logrus.Fields{
		"worker_id": a.WorkerID,
		"date":      a.Date,
		"status":    a.Status,
	}).Info("Attendance marked")
	return nil
}

func (r *GormAttendanceRepository) GetByWorkerAndDate(workerID uint, date string) (*models.Attendance, error) {
	var a models.Attendance
	result := r.db.Where("worker_id = ? AND date = ?", workerID, date).First(&a)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &a, nil
}

func (r *GormAttendanceRepository) GetByDate(date string) ([]*models.Attendance, error) {
	var marks []*models.Attendance
	result := r.db.Preload("Worker").
		Where("date = ?", date).
		Order("worker_id ASC").
		Find(&marks)
	if result.Error != nil {
		return nil, result.Error
	}
	return marks, nil
}

func (r *GormAttendanceRepository) CountByStatus(date string) (map[string]int, error) {
	var rows []struct {
		Status string
		Total  int
	}
	result := r.db.Model(&models.Attendance{}).
		Select("status, COUNT(*) AS total").
		Where("date = ?", date).
		Group("status").
		Scan(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}
