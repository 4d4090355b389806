package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"ppe-monitor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLocation = "Devbhoomi University Construction Site"

func newTestRecorder(t *testing.T) (*Recorder, testRepos, *fakeDispatcher) {
	t.Helper()
	repos := newTestRepos(t)
	dispatcher := &fakeDispatcher{}
	rec := NewRecorder(repos.violations, NewSettingsService(repos.settings), dispatcher, testLocation)
	return rec, repos, dispatcher
}

func TestRecorder_CompliantWritesNothing(t *testing.T) {
	rec, repos, dispatcher := newTestRecorder(t)

	for _, verdict := range []string{models.ComplianceCompliant, models.ComplianceNoWorkers} {
		got, err := rec.Record(context.Background(), Detection{
			AnalysisID: "a1",
			Result: &models.AnalysisResult{
				WorkersDetected:   2,
				Violations:        []models.ViolationEntry{{WorkerDescription: "x", MissingPPE: []string{"Gloves"}}},
				OverallCompliance: verdict,
			},
		})
		require.NoError(t, err)
		assert.Empty(t, got)
	}

	all, err := repos.violations.List(0)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Empty(t, dispatcher.alerts)
}

func TestRecorder_OneRecordPerEntry(t *testing.T) {
	rec, repos, dispatcher := newTestRecorder(t)

	result := &models.AnalysisResult{
		WorkersDetected: 3,
		Violations: []models.ViolationEntry{
			{WorkerDescription: "Worker in blue shirt near crane", MissingPPE: []string{"Safety Helmet", "Gloves"}},
			{WorkerDescription: "Worker on scaffold", MissingPPE: []string{"Safety Helmet", "High-Visibility Vest", "Safety Boots"}},
		},
		OverallCompliance: models.ComplianceViolationsDetected,
	}

	got, err := rec.Record(context.Background(), Detection{AnalysisID: "a1", CameraID: "cam-1", Zone: "Zone A", Result: result})
	require.NoError(t, err)
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, "Worker in blue shirt near crane", first.WorkerName)
	assert.Equal(t, models.ViolationTypePPE, first.ViolationType)
	assert.Equal(t, "Safety Helmet, Gloves", first.MissingPPE)
	assert.Equal(t, testLocation, first.Location)
	assert.Equal(t, "Zone A", first.Zone)
	assert.Equal(t, models.SeverityMedium, first.Severity)
	assert.Equal(t, 2.0, first.SalaryDeduction)
	assert.Equal(t, 0.5, first.HolidayDeduction)
	assert.Equal(t, 700.0, first.CategoryPenalty)
	assert.False(t, first.CreatedAt.IsZero())

	assert.Equal(t, models.SeverityHigh, got[1].Severity)
	assert.Equal(t, 1100.0, got[1].CategoryPenalty)

	n, err := repos.violations.CountByAnalysis("a1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.Len(t, dispatcher.alerts, 2)
	assert.Equal(t, "Worker on scaffold", dispatcher.alerts[1].Worker)
	assert.Equal(t, models.SeverityHigh, dispatcher.alerts[1].Severity)
}

func TestRecorder_SeverityBoundary(t *testing.T) {
	rec, _, _ := newTestRecorder(t)

	for missing, want := range map[int]string{0: models.SeverityMedium, 1: models.SeverityMedium, 2: models.SeverityMedium, 3: models.SeverityHigh, 4: models.SeverityHigh} {
		items := make([]string, missing)
		for i := range items {
			items[i] = "item"
		}
		got, err := rec.Record(context.Background(), Detection{Result: &models.AnalysisResult{
			Violations:        []models.ViolationEntry{{WorkerDescription: "w", MissingPPE: items}},
			OverallCompliance: models.ComplianceViolationsDetected,
		}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, want, got[0].Severity, "missing=%d", missing)
	}
}

func TestRecorder_NoDeduplication(t *testing.T) {
	rec, repos, _ := newTestRecorder(t)
	result := &models.AnalysisResult{
		WorkersDetected:   1,
		Violations:        []models.ViolationEntry{{WorkerDescription: "Worker in blue shirt", MissingPPE: []string{"Safety Helmet"}}},
		OverallCompliance: models.ComplianceViolationsDetected,
	}

	_, err := rec.Record(context.Background(), Detection{AnalysisID: "a1", Result: result})
	require.NoError(t, err)
	_, err = rec.Record(context.Background(), Detection{AnalysisID: "a2", Result: result})
	require.NoError(t, err)

	counts, err := repos.violations.CountByWorker()
	require.NoError(t, err)
	assert.Equal(t, 2, counts["Worker in blue shirt"])
}

type flakyViolationRepo struct {
	failFor string
	created []*models.Violation
}

func (f *flakyViolationRepo) Create(v *models.Violation) error {
	if v.WorkerName == f.failFor {
		return errors.New("disk full")
	}
	f.created = append(f.created, v)
	return nil
}

func (f *flakyViolationRepo) GetByID(id uint) (*models.Violation, error) { return nil, nil }
func (f *flakyViolationRepo) List(limit int) ([]*models.Violation, error) {
	return f.created, nil
}
func (f *flakyViolationRepo) ListSince(since time.Time) ([]*models.Violation, error) {
	return f.created, nil
}
func (f *flakyViolationRepo) GetByWorkerName(name string, limit int) ([]*models.Violation, error) {
	return nil, nil
}
func (f *flakyViolationRepo) CountByWorker() (map[string]int, error) { return nil, nil }
func (f *flakyViolationRepo) CountByWorkerSince(since time.Time) (map[string]int, error) {
	return nil, nil
}
func (f *flakyViolationRepo) CountByAnalysis(analysisID string) (int64, error) { return 0, nil }

func TestRecorder_PersistenceFailureContinuesBatch(t *testing.T) {
	repos := newTestRepos(t)
	repo := &flakyViolationRepo{failFor: "second"}
	dispatcher := &fakeDispatcher{}
	rec := NewRecorder(repo, NewSettingsService(repos.settings), dispatcher, testLocation)

	got, err := rec.Record(context.Background(), Detection{Result: &models.AnalysisResult{
		Violations: []models.ViolationEntry{
			{WorkerDescription: "first", MissingPPE: []string{"Gloves"}},
			{WorkerDescription: "second", MissingPPE: []string{"Gloves"}},
			{WorkerDescription: "third", MissingPPE: []string{"Gloves"}},
		},
		OverallCompliance: models.ComplianceViolationsDetected,
	}})
	assert.ErrorIs(t, err, ErrPersistence)
	require.Len(t, got, 2)
	assert.Equal(t, "third", got[1].WorkerName)
	assert.Len(t, dispatcher.alerts, 2)
}
