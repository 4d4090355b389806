package repository

import (
	"errors"
	"ppe-monitor/internal/logging"
	"ppe-monitor/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingRepository interface {
	Get(key string) (*models.SystemSetting, error)
	Upsert(key string, value datatypes.JSON) error
	GetAll() ([]*models.SystemSetting, error)
}

type GormSettingRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormSettingRepository(db *gorm.DB) (*GormSettingRepository, error) {
	logger := logging.New()

	if err := db.AutoMigrate(&models.SystemSetting{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate system_settings table")
		return nil, err
	}

	logger.Info("Setting repository initialized")

	return &GormSettingRepository{
		db:     db,
		logger: logger,
	}, nil
}

func (r *GormSettingRepository) Get(key string) (*models.SystemSetting, error) {
	var setting models.SystemSetting
	result := r.db.Where("key = ?", key).First(&setting)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &setting, nil
}

func (r *GormSettingRepository) Upsert(key string, value datatypes.JSON) error {
	setting := &models.SystemSetting{Key: key, Value: value}
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(setting)
	if result.Error != nil {
		r.logger.WithError(result.Error).WithField("key", key).Error("Failed to save setting")
		return result.Error
	}

	r.logger.WithField("key", key).Info("Setting saved")
	return nil
}

func (r *GormSettingRepository) GetAll() ([]*models.SystemSetting, error) {
	var settings []*models.SystemSetting
	if err := r.db.Order("key ASC").Find(&settings).Error; err != nil {
		return nil, err
	}
	return settings, nil
}
