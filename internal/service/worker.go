package service

import (
	"fmt"
	"ppe-monitor/internal/config"
	"ppe-monitor/internal/logging"
	"ppe-monitor/internal/models"
	"ppe-monitor/internal/repository"
	"strings"

	"github.com/sirupsen/logrus"
)

type WorkerService struct {
	repo            repository.WorkerRepository
	initialHolidays float64
	logger          *logrus.Logger
}

func NewWorkerService(repo repository.WorkerRepository, initialHolidays float64) *WorkerService {
	return &WorkerService{
		repo:            repo,
		initialHolidays: initialHolidays,
		logger:          logging.New(),
	}
}

// ImportRoster upserts every roster entry by employee id. New workers start with a
// full leave balance; existing balances are kept.
func (s *WorkerService) ImportRoster(roster []config.RosterWorker) (int, error) {
	imported := 0
	for _, entry := range roster {
		holidays := entry.TotalHolidays
		if holidays <= 0 {
			holidays = s.initialHolidays
		}
		worker := &models.Worker{
			EmployeeID:        strings.TrimSpace(entry.EmployeeID),
			Name:              strings.TrimSpace(entry.Name),
			Role:              strings.TrimSpace(entry.Role),
			TotalHolidays:     holidays,
			RemainingHolidays: holidays,
		}
		if err := s.repo.Upsert(worker); err != nil {
			return imported, fmt.Errorf("import %s: %w", entry.EmployeeID, err)
		}
		imported++
	}

	s.logger.WithField("workers", imported).Info("Roster imported")
	return imported, nil
}

func (s *WorkerService) List() ([]*models.Worker, error) {
	return s.repo.GetAll()
}

func (s *WorkerService) Get(employeeID string) (*models.Worker, error) {
	worker, err := s.repo.GetByEmployeeID(employeeID)
	if err != nil {
		return nil, err
	}
	if worker == nil {
		return nil, fmt.Errorf("worker %s not found", employeeID)
	}
	return worker, nil
}

// SetLeave updates a worker's leave balance; 0 <= remaining <= total must hold.
func (s *WorkerService) SetLeave(employeeID string, total, remaining float64) error {
	if total < 0 || remaining < 0 {
		return fmt.Errorf("leave balance must not be negative")
	}
	if remaining > total {
		return fmt.Errorf("remaining leave %.1f exceeds total %.1f", remaining, total)
	}
	if _, err := s.Get(employeeID); err != nil {
		return err
	}
	return s.repo.UpdateLeave(employeeID, total, remaining)
}

func FormatWorkers(workers []*models.Worker) string {
	if len(workers) == 0 {
		return "No workers in the roster."
	}
	var b strings.Builder
	b.WriteString("Workers:\n")
	for _, w := range workers {
		fmt.Fprintf(&b, "\n%s %s (%s) leave %.1f/%.1f", w.EmployeeID, w.Name, w.Role, w.RemainingHolidays, w.TotalHolidays)
	}
	return b.String()
}
