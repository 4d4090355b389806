package service

import (
	"context"
	"errors"
	"fmt"
	"ppe-monitor/internal/logging"
	"ppe-monitor/internal/models"
	"ppe-monitor/internal/notify"
	"ppe-monitor/internal/repository"

	"github.com/sirupsen/logrus"
)

// ErrPersistence marks violations that could not be stored.
var ErrPersistence = errors.New("persistence failure")

// Detection is one validated classifier verdict together with where it came from.
type Detection struct {
	AnalysisID string
	CameraID   string
	Zone       string
	Result     *models.AnalysisResult
}

// Recorder turns a verdict into violation records and alerts.
type Recorder struct {
	violations repository.ViolationRepository
	settings   *SettingsService
	dispatcher notify.Dispatcher
	location   string
	logger     *logrus.Logger
}

func NewRecorder(
	violations repository.ViolationRepository,
	settings *SettingsService,
	dispatcher notify.Dispatcher,
	location string,
) *Recorder {
	return &Recorder{
		violations: violations,
		settings:   settings,
		dispatcher: dispatcher,
		location:   location,
		logger:     logging.New(),
	}
}

// Record persists one violation per entry when the verdict is violations_detected and
// dispatches an alert for each stored record. Every cycle writes its own records even
// when the same worker was reported by the previous cycle.
// A failed insert is logged and the remaining entries are still stored; the returned
// error then wraps ErrPersistence.
func (r *Recorder) Record(ctx context.Context, d Detection) ([]*models.Violation, error) {
	if !d.Result.HasViolations() {
		return nil, nil
	}

	salaryRate := r.settings.ViolationPenalty()
	holidayRate := r.settings.HolidayRate()
	penalties := r.settings.Penalties()

	recorded := make([]*models.Violation, 0, len(d.Result.Violations))
	var failed int
	for _, entry := range d.Result.Violations {
		v := &models.Violation{
			AnalysisID:       d.AnalysisID,
			CameraID:         d.CameraID,
			WorkerName:       entry.WorkerDescription,
			ViolationType:    models.ViolationTypePPE,
			MissingPPE:       models.JoinMissing(entry.MissingPPE),
			Location:         r.location,
			Zone:             d.Zone,
			Severity:         models.SeverityFor(len(entry.MissingPPE)),
			SalaryDeduction:  salaryRate,
			HolidayDeduction: holidayRate,
			CategoryPenalty:  penalties.Itemized(entry.MissingPPE),
		}

		if err := r.violations.Create(v); err != nil {
			failed++
			r.logger.WithError(err).WithFields(logrus.Fields{
				"analysis_id": d.AnalysisID,
				"worker":      v.WorkerName,
			}).Error("Failed to persist violation")
			continue
		}
		recorded = append(recorded, v)
	}

	for _, v := range recorded {
		r.dispatcher.Dispatch(notify.AlertFor(v))
	}

	r.logger.WithFields(logrus.Fields{
		"analysis_id": d.AnalysisID,
		"camera":      d.CameraID,
		"recorded":    len(recorded),
		"failed":      failed,
	}).Info("Violations recorded")

	if failed > 0 {
		return recorded, fmt.Errorf("%w: %d of %d violations not stored", ErrPersistence, failed, len(d.Result.Violations))
	}
	return recorded, nil
}
