package cli

import (
	"fmt"

	"ppe-monitor/internal/config"
	"ppe-monitor/internal/database"
	"ppe-monitor/internal/repository"
	"ppe-monitor/internal/service"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// app is the storage layer and the services built on it.
type app struct {
	cfg *config.Config
	db  *gorm.DB

	violations     *repository.GormViolationRepository
	workerRepo     *repository.GormWorkerRepository
	attendanceRepo *repository.GormAttendanceRepository

	settings   *service.SettingsService
	workers    *service.WorkerService
	payroll    *service.PayrollService
	attendance *service.AttendanceService
}

func openApp(cfg *config.Config) (*app, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, db: db}
	if err := a.init(); err != nil {
		_ = database.Close(db)
		return nil, err
	}
	return a, nil
}

func (a *app) init() error {
	var err error
	if a.violations, err = repository.NewGormViolationRepository(a.db); err != nil {
		return fmt.Errorf("violation repository: %w", err)
	}
	if a.workerRepo, err = repository.NewGormWorkerRepository(a.db); err != nil {
		return fmt.Errorf("worker repository: %w", err)
	}
	if a.attendanceRepo, err = repository.NewGormAttendanceRepository(a.db); err != nil {
		return fmt.Errorf("attendance repository: %w", err)
	}
	settingRepo, err := repository.NewGormSettingRepository(a.db)
	if err != nil {
		return fmt.Errorf("setting repository: %w", err)
	}

	a.settings = service.NewSettingsService(settingRepo)
	a.workers = service.NewWorkerService(a.workerRepo, a.cfg.Payroll.InitialHolidays)
	a.payroll = service.NewPayrollService(a.violations, a.workerRepo, a.settings, a.cfg.Payroll)
	a.attendance = service.NewAttendanceService(a.attendanceRepo, a.workerRepo, a.cfg.Location())
	return nil
}

func (a *app) Close() {
	if err := database.Close(a.db); err != nil {
		logrus.Infof("Error closing database: %v", err)
	}
}
