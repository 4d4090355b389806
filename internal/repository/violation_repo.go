package repository

import (
	"errors"
	"ppe-monitor/internal/logging"
	"ppe-monitor/internal/models"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ViolationRepository is append-only: records are never updated or deleted.
type ViolationRepository interface {
	Create(v *models.Violation) error
	GetByID(id uint) (*models.Violation, error)
	List(limit int) ([]*models.Violation, error)
	ListSince(since time.Time) ([]*models.Violation, error)
	GetByWorkerName(name string, limit int) ([]*models.Violation, error)
	CountByWorker() (map[string]int, error)
	CountByWorkerSince(since time.Time) (map[string]int, error)
	CountByAnalysis(analysisID string) (int64, error)
}

type GormViolationRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormViolationRepository(db *gorm.DB) (*GormViolationRepository, error) {
	logger := logging.New()

	if err := db.AutoMigrate(&models.Violation{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate violations table")
		return nil, err
	}

	logger.Info("Violation repository initialized")

	return &GormViolationRepository{
		db:     db,
		logger: logger,
	}, nil
}

func (r *GormViolationRepository) Create(v *models.Violation) error {
	if v.WorkerName == "" {
		return errors.New("violation without worker name")
	}
	if v.ViolationType == "" {
		v.ViolationType = models.ViolationTypePPE
	}

	if !v.CreatedAt.IsZero() {
		v.CreatedAt = v.CreatedAt.UTC()
	}

	result := r.db.Create(v)
	if result.Error != nil {
		r.logger.WithError(result.Error).WithFields(logrus.Fields{
			"worker":      v.WorkerName,
			"analysis_id": v.AnalysisID,
		}).Error("Failed to create violation")
		return result.Error
	}

	r.logger.WithFields(logrus.Fields{
		"id":       v.ID,
		"worker":   v.WorkerName,
		"severity": v.Severity,
		"camera":   v.CameraID,
	}).Info("Violation recorded")

	return nil
}

func (r *GormViolationRepository) GetByID(id uint) (*models.Violation, error) {
	var v models.Violation
	result := r.db.First(&v, id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}

	return &v, nil
}

// List returns the newest violations first.
func (r *GormViolationRepository) List(limit int) ([]*models.Violation, error) {
	var violations []*models.Violation
	query := r.db.Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&violations).Error; err != nil {
		return nil, err
	}
	return violations, nil
}

func (r *GormViolationRepository) ListSince(since time.Time) ([]*models.Violation, error) {
	var violations []*models.Violation
	result := r.db.Where("created_at >= ?", since.UTC()).
		Order("created_at ASC, id ASC").
		Find(&violations)

	if result.Error != nil {
		return nil, result.Error
	}
	return violations, nil
}

func (r *GormViolationRepository) GetByWorkerName(name string, limit int) ([]*models.Violation, error) {
	var violations []*models.Violation
	query := r.db.Where("worker_name = ?", name).Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&violations).Error; err != nil {
		return nil, err
	}
	return violations, nil
}

type workerCount struct {
	WorkerName string
	Total      int
}

func (r *GormViolationRepository) CountByWorker() (map[string]int, error) {
	return r.countByWorker(r.db.Model(&models.Violation{}))
}

func (r *GormViolationRepository) CountByWorkerSince(since time.Time) (map[string]int, error) {
	return r.countByWorker(r.db.Model(&models.Violation{}).Where("created_at >= ?", since.UTC()))
}

func (r *GormViolationRepository) countByWorker(query *gorm.DB) (map[string]int, error) {
	var rows []workerCount
	result := query.Select("worker_name, COUNT(*) AS total").
		Group("worker_name").
		Scan(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.WorkerName] = row.Total
	}
	return counts, nil
}

func (r *GormViolationRepository) CountByAnalysis(analysisID string) (int64, error) {
	var count int64
	result := r.db.Model(&models.Violation{}).Where("analysis_id = ?", analysisID).Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}
	return count, nil
}
