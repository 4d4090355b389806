package repository

import (
	"errors"
	"ppe-monitor/internal/logging"
	"ppe-monitor/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WorkerRepository interface {
	Upsert(worker *models.Worker) error
	GetByEmployeeID(employeeID string) (*models.Worker, error)
	GetByName(name string) (*models.Worker, error)
	GetAll() ([]*models.Worker, error)
	UpdateLeave(employeeID string, total, remaining float64) error
	Count() (int64, error)
}

type GormWorkerRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormWorkerRepository(db *gorm.DB) (*GormWorkerRepository, error) {
	logger := logging.New()

	if err := db.AutoMigrate(&models.Worker{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate workers table")
		return nil, err
	}

	logger.Info("Worker repository initialized")

	return &GormWorkerRepository{
		db:     db,
		logger: logger,
	}, nil
}

// Upsert inserts the worker or updates name and role of an existing employee id.
// The leave balance of an existing worker is left untouched.
func (r *GormWorkerRepository) Upsert(worker *models.Worker) error {
	if !worker.IsValid() {
		r.logger.WithField("employee_id", worker.EmployeeID).Warn("Invalid worker data")
		return errors.New("invalid worker data")
	}

	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "employee_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "role", "updated_at"}),
	}).Create(worker)
	if result.Error != nil {
		r.logger.WithError(result.Error).WithField("employee_id", worker.EmployeeID).Error("Failed to upsert worker")
		return result.Error
	}

	r.logger.WithFields(logrus.Fields{
		"employee_id": worker.EmployeeID,
		"name":        worker.Name,
		"role":        worker.Role,
	}).Debug("Worker upserted")
	return nil
}

func (r *GormWorkerRepository) GetByEmployeeID(employeeID string) (*models.Worker, error) {
	var worker models.Worker
	result := r.db.Where("employee_id = ?", employeeID).First(&worker)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &worker, nil
}

func (r *GormWorkerRepository) GetByName(name string) (*models.Worker, error) {
	var worker models.Worker
	result := r.db.Where("name = ?", name).First(&worker)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &worker, nil
}

func (r *GormWorkerRepository) GetAll() ([]*models.Worker, error) {
	var workers []*models.Worker
	if err := r.db.Order("employee_id ASC").Find(&workers).Error; err != nil {
		return nil, err
	}
	return workers, nil
}

func (r *GormWorkerRepository) UpdateLeave(employeeID string, total, remaining float64) error {
	result := r.db.Model(&models.Worker{}).
		Where("employee_id = ?", employeeID).
		Updates(map[string]interface{}{
			"total_holidays":     total,
			"remaining_holidays": remaining,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("worker not found")
	}

	r.logger.WithFields(logrus.Fields{
		"employee_id": employeeID,
		"total":       total,
		"remaining":   remaining,
	}).Info("Leave balance updated")
	return nil
}

func (r *GormWorkerRepository) Count() (int64, error) {
	var count int64
	if err := r.db.Model(&models.Worker{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
