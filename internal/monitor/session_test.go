package monitor

import (
	"context"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ppe-monitor/internal/classifier"
	"ppe-monitor/internal/database"
	"ppe-monitor/internal/models"
	"ppe-monitor/internal/notify"
	"ppe-monitor/internal/repository"
	"ppe-monitor/internal/service"
	"ppe-monitor/pkg/frame"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu      sync.Mutex
	open    bool
	opens   int
	closes  int
	noFrame bool
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Open(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = true
	f.opens++
	return nil
}

func (f *fakeSource) Snapshot(ctx context.Context) (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open || f.noFrame {
		return nil, frame.ErrCaptureUnavailable
	}
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.White)
	return img, nil
}

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	f.closes++
	return nil
}

func (f *fakeSource) isOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

type fakeClassifier struct {
	calls atomic.Int32
	fn    func(ctx context.Context) (*models.AnalysisResult, error)
}

func (f *fakeClassifier) Name() string { return "fake" }

func (f *fakeClassifier) Classify(ctx context.Context, _ frame.Frame) (*models.AnalysisResult, error) {
	f.calls.Add(1)
	return f.fn(ctx)
}

type discardDispatcher struct{}

func (discardDispatcher) Dispatch(notify.Alert) {}
func (discardDispatcher) Broadcast(string)      {}

func violatingResult() *models.AnalysisResult {
	return &models.AnalysisResult{
		WorkersDetected: 1,
		Violations: []models.ViolationEntry{
			{WorkerDescription: "Worker in blue shirt near crane", MissingPPE: []string{"Safety Helmet"}},
		},
		OverallCompliance: models.ComplianceViolationsDetected,
	}
}

func testOptions() Options {
	return Options{
		PollInterval:     15 * time.Millisecond,
		InitialDelay:     5 * time.Millisecond,
		ClassifyTimeout:  time.Second,
		JPEGQuality:      80,
		MaxBackoffFactor: 4,
	}
}

func newTestRecorder(t *testing.T) (*service.Recorder, *repository.GormViolationRepository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	violations, err := repository.NewGormViolationRepository(db)
	require.NoError(t, err)
	settingsRepo, err := repository.NewGormSettingRepository(db)
	require.NoError(t, err)

	rec := service.NewRecorder(violations, service.NewSettingsService(settingsRepo), discardDispatcher{}, "Site")
	return rec, violations
}

func countRecords(t *testing.T, repo *repository.GormViolationRepository) int {
	t.Helper()
	all, err := repo.List(0)
	require.NoError(t, err)
	return len(all)
}

var testCamera = Camera{ID: "cam-1", Name: "Gate", Zone: "Zone A"}

func TestSession_RepeatedViolationRecordedEveryCycle(t *testing.T) {
	rec, repo := newTestRecorder(t)
	src := &fakeSource{}
	clf := &fakeClassifier{fn: func(ctx context.Context) (*models.AnalysisResult, error) {
		return violatingResult(), nil
	}}

	s := NewSession(testCamera, src, clf, rec, testOptions())
	assert.Equal(t, StateIdle, s.State())

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.State().Running())

	require.Eventually(t, func() bool {
		return countRecords(t, repo) >= 2
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop())
	assert.Equal(t, StateStopped, s.State())
	assert.False(t, src.isOpen())

	all, err := repo.List(0)
	require.NoError(t, err)
	assert.NotEqual(t, all[0].AnalysisID, all[1].AnalysisID)
	assert.Equal(t, all[0].WorkerName, all[1].WorkerName)
	assert.Equal(t, "cam-1", all[0].CameraID)
	assert.Equal(t, "Zone A", all[0].Zone)

	st := s.Status()
	assert.GreaterOrEqual(t, st.Violations, int64(2))
	assert.Empty(t, st.LastError)
}

func TestSession_StopDiscardsInFlightResult(t *testing.T) {
	rec, repo := newTestRecorder(t)
	src := &fakeSource{}
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	clf := &fakeClassifier{fn: func(ctx context.Context) (*models.AnalysisResult, error) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		return violatingResult(), nil
	}}

	s := NewSession(testCamera, src, clf, rec, testOptions())
	require.NoError(t, s.Start(context.Background()))

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("classifier was never called")
	}
	assert.Equal(t, StateAnalyzing, s.State())

	stopped := make(chan error, 1)
	go func() { stopped <- s.Stop() }()
	select {
	case err := <-stopped:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Stop waited for the in-flight classification")
	}
	assert.False(t, src.isOpen(), "source released while the call is still in flight")

	close(release)
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, countRecords(t, repo))
	assert.Equal(t, StateStopped, s.State())
}

func TestSession_QuotaHaltsUntilResume(t *testing.T) {
	rec, _ := newTestRecorder(t)
	var exhausted atomic.Bool
	exhausted.Store(true)
	clf := &fakeClassifier{fn: func(ctx context.Context) (*models.AnalysisResult, error) {
		if exhausted.Load() {
			return nil, &classifier.Error{Kind: classifier.ErrQuotaExhausted, StatusCode: 402}
		}
		return &models.AnalysisResult{OverallCompliance: models.ComplianceNoWorkers}, nil
	}}

	s := NewSession(testCamera, &fakeSource{}, clf, rec, testOptions())
	assert.ErrorIs(t, s.Resume(), ErrNotRunning)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.Eventually(t, func() bool { return s.Status().Halted }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), clf.calls.Load(), "no automatic retry while halted")
	assert.Contains(t, s.Status().LastError, "quota")

	exhausted.Store(false)
	require.NoError(t, s.Resume())
	require.Eventually(t, func() bool { return clf.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return !s.Status().Halted }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, s.Resume(), ErrNotHalted)
}

func TestSession_RateLimitBacksOff(t *testing.T) {
	rec, _ := newTestRecorder(t)
	clf := &fakeClassifier{fn: func(ctx context.Context) (*models.AnalysisResult, error) {
		return nil, &classifier.Error{Kind: classifier.ErrRateLimited, StatusCode: 429}
	}}
	opts := testOptions()
	opts.PollInterval = 5 * time.Millisecond

	s := NewSession(testCamera, &fakeSource{}, clf, rec, opts)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.Eventually(t, func() bool {
		return s.Status().NextDelay == 4*opts.PollInterval
	}, 2*time.Second, time.Millisecond)
	assert.GreaterOrEqual(t, clf.calls.Load(), int32(3))
}

func TestSession_CaptureFailureDoesNotHalt(t *testing.T) {
	rec, _ := newTestRecorder(t)
	clf := &fakeClassifier{fn: func(ctx context.Context) (*models.AnalysisResult, error) {
		return violatingResult(), nil
	}}

	s := NewSession(testCamera, &fakeSource{noFrame: true}, clf, rec, testOptions())
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.Eventually(t, func() bool { return s.Status().Cycles >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, clf.calls.Load())
	assert.Contains(t, s.Status().LastError, "capture unavailable")
}

func TestSession_Lifecycle(t *testing.T) {
	rec, _ := newTestRecorder(t)
	src := &fakeSource{}
	clf := &fakeClassifier{fn: func(ctx context.Context) (*models.AnalysisResult, error) {
		return &models.AnalysisResult{OverallCompliance: models.ComplianceCompliant, WorkersDetected: 2}, nil
	}}
	s := NewSession(testCamera, src, clf, rec, testOptions())

	assert.ErrorIs(t, s.Stop(), ErrNotRunning)
	assert.Equal(t, StateIdle, s.State())

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyRunning)
	require.NoError(t, s.Stop())
	assert.ErrorIs(t, s.Stop(), ErrNotRunning)

	require.NoError(t, s.Start(context.Background()), "a stopped session can be restarted")
	require.NoError(t, s.Stop())
	assert.Equal(t, 2, src.opens)
	assert.Equal(t, 2, src.closes)
}

func TestSession_RestartWaitsForAbandonedCycle(t *testing.T) {
	rec, repo := newTestRecorder(t)
	src := &fakeSource{}
	var active, peak atomic.Int32
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	clf := &fakeClassifier{fn: func(ctx context.Context) (*models.AnalysisResult, error) {
		n := active.Add(1)
		defer active.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		return violatingResult(), nil
	}}

	s := NewSession(testCamera, src, clf, rec, testOptions())
	require.NoError(t, s.Start(context.Background()))
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("classifier was never called")
	}

	require.NoError(t, s.Stop())
	require.NoError(t, s.Start(context.Background()))

	time.Sleep(100 * time.Millisecond)
	assert.EqualValues(t, 1, clf.calls.Load(), "restarted session started a second call")

	close(release)
	require.Eventually(t, func() bool {
		all, err := repo.List(0)
		return err == nil && len(all) > 0
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Stop())

	assert.EqualValues(t, 1, peak.Load())
	assert.GreaterOrEqual(t, clf.calls.Load(), int32(2))
}
