// Package monitor runs one polling loop per camera: capture a frame, classify it and
// record the verdict, one analysis at a time.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"ppe-monitor/internal/classifier"
	"ppe-monitor/internal/logging"
	"ppe-monitor/internal/models"
	"ppe-monitor/internal/service"
	"ppe-monitor/pkg/frame"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrAlreadyRunning = errors.New("session already running")
	ErrNotRunning     = errors.New("session not running")
	ErrNotHalted      = errors.New("session is not halted")

	// errDiscarded marks a cycle whose result arrived after Stop.
	errDiscarded = errors.New("result discarded after stop")
	errBusy      = errors.New("analysis already in flight")
)

// Recorder stores a verdict; *service.Recorder implements it.
type Recorder interface {
	Record(ctx context.Context, d service.Detection) ([]*models.Violation, error)
}

type Camera struct {
	ID   string
	Name string
	Zone string
}

type Options struct {
	PollInterval     time.Duration
	InitialDelay     time.Duration
	ClassifyTimeout  time.Duration
	JPEGQuality      int
	MaxBackoffFactor int
}

// Status is a point-in-time view of a session.
type Status struct {
	CameraID   string
	Name       string
	Zone       string
	State      string
	Halted     bool
	Cycles     int64
	Violations int64
	NextDelay  time.Duration
	LastRun    time.Time
	LastError  string
}

// Session drives one camera. An analysis only begins with a Streaming->Analyzing
// swap of the state field, and its result is only recorded while the same run is
// still Analyzing.
type Session struct {
	cam        Camera
	source     frame.Source
	classifier classifier.Classifier
	recorder   Recorder
	opts       Options
	logger     *logrus.Logger

	state  atomic.Int32
	halted atomic.Bool

	// commit serialises recording against Stop.
	commit sync.Mutex
	// ctl serialises Start and Stop.
	ctl sync.Mutex
	// gen identifies the current run so late results of an earlier run are dropped.
	gen atomic.Uint64

	mu     sync.Mutex
	stop   chan struct{}
	resume chan struct{}
	done   chan struct{}
	// inflight is closed when the most recently launched cycle returns. A cycle
	// abandoned by Stop can outlive its run.
	inflight  chan struct{}
	lastRun   time.Time
	lastError string
	nextDelay time.Duration

	cycles     atomic.Int64
	violations atomic.Int64
}

func NewSession(cam Camera, source frame.Source, clf classifier.Classifier, recorder Recorder, opts Options) *Session {
	if opts.MaxBackoffFactor < 1 {
		opts.MaxBackoffFactor = 1
	}
	s := &Session{
		cam:        cam,
		source:     source,
		classifier: clf,
		recorder:   recorder,
		opts:       opts,
		logger:     logging.New(),
	}
	s.state.Store(int32(StateIdle))
	return s
}

func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) Camera() Camera {
	return s.cam
}

// Start opens the source and schedules the first analysis after the initial delay.
func (s *Session) Start(ctx context.Context) error {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateStarting)) &&
		!s.state.CompareAndSwap(int32(StateStopped), int32(StateStarting)) {
		return ErrAlreadyRunning
	}

	if err := s.source.Open(ctx); err != nil {
		s.state.Store(int32(StateStopped))
		s.setError(err)
		return fmt.Errorf("camera %s: %w", s.cam.ID, err)
	}

	s.mu.Lock()
	s.stop = make(chan struct{})
	s.resume = make(chan struct{}, 1)
	s.done = make(chan struct{})
	s.nextDelay = s.opts.InitialDelay
	stop, resume, done := s.stop, s.resume, s.done
	s.mu.Unlock()

	s.halted.Store(false)
	gen := s.gen.Add(1)
	s.state.Store(int32(StateStreaming))

	s.logger.WithFields(logrus.Fields{
		"camera":   s.cam.ID,
		"interval": s.opts.PollInterval,
	}).Info("Camera session started")

	go s.loop(gen, stop, resume, done)
	return nil
}

// Stop releases the source immediately. An analysis still in flight is not cancelled,
// but its result is dropped.
func (s *Session) Stop() error {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	s.commit.Lock()
	prev := State(s.state.Swap(int32(StateStopped)))
	s.commit.Unlock()

	if !prev.Running() {
		s.state.Store(int32(prev))
		return ErrNotRunning
	}

	s.mu.Lock()
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	if err := s.source.Close(); err != nil {
		s.logger.WithError(err).WithField("camera", s.cam.ID).Warn("Failed to close camera source")
	}
	<-done

	s.logger.WithField("camera", s.cam.ID).Info("Camera session stopped")
	return nil
}

// Resume restarts polling after the classifier reported an exhausted quota.
func (s *Session) Resume() error {
	if !s.State().Running() {
		return ErrNotRunning
	}
	if !s.halted.Load() {
		return ErrNotHalted
	}

	s.mu.Lock()
	resume := s.resume
	s.mu.Unlock()

	select {
	case resume <- struct{}{}:
	default:
	}
	return nil
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		CameraID:   s.cam.ID,
		Name:       s.cam.Name,
		Zone:       s.cam.Zone,
		State:      s.State().String(),
		Halted:     s.halted.Load(),
		Cycles:     s.cycles.Load(),
		Violations: s.violations.Load(),
		NextDelay:  s.nextDelay,
		LastRun:    s.lastRun,
		LastError:  s.lastError,
	}
}

func (s *Session) loop(gen uint64, stop, resume <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	backoff := 1
	timer := time.NewTimer(s.opts.InitialDelay)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-timer.C:
		}

		if !s.awaitPreviousCycle(stop) {
			return
		}

		results := make(chan error, 1)
		cycleDone := make(chan struct{})
		s.mu.Lock()
		s.inflight = cycleDone
		s.mu.Unlock()
		go func() {
			defer close(cycleDone)
			results <- s.runCycle(gen)
		}()

		var err error
		select {
		case <-stop:
			return
		case err = <-results:
		}

		switch {
		case errors.Is(err, classifier.ErrQuotaExhausted):
			s.halted.Store(true)
			s.logger.WithField("camera", s.cam.ID).Warn("Classifier quota exhausted, polling halted until resumed")
			select {
			case <-stop:
				return
			case <-resume:
			}
			s.halted.Store(false)
			backoff = 1
			s.logger.WithField("camera", s.cam.ID).Info("Polling resumed")
		case errors.Is(err, classifier.ErrRateLimited):
			backoff *= 2
			if backoff > s.opts.MaxBackoffFactor {
				backoff = s.opts.MaxBackoffFactor
			}
		case err == nil:
			backoff = 1
		}

		delay := s.opts.PollInterval * time.Duration(backoff)
		s.mu.Lock()
		s.nextDelay = delay
		s.mu.Unlock()
		timer.Reset(delay)
	}
}

// awaitPreviousCycle blocks until a cycle left running by an earlier Stop has returned,
// so a restarted session never has two classifier calls in flight. It reports false
// when stop closes first.
func (s *Session) awaitPreviousCycle(stop <-chan struct{}) bool {
	s.mu.Lock()
	prev := s.inflight
	s.mu.Unlock()
	if prev == nil {
		return true
	}
	select {
	case <-stop:
		return false
	case <-prev:
		return true
	}
}

// runCycle captures, classifies and records one frame.
func (s *Session) runCycle(gen uint64) error {
	if !s.state.CompareAndSwap(int32(StateStreaming), int32(StateAnalyzing)) {
		return errBusy
	}
	defer func() {
		s.commit.Lock()
		if s.gen.Load() == gen {
			s.state.CompareAndSwap(int32(StateAnalyzing), int32(StateStreaming))
		}
		s.commit.Unlock()
	}()

	analysisID := uuid.NewString()
	entry := s.logger.WithFields(logrus.Fields{
		"camera":      s.cam.ID,
		"analysis_id": analysisID,
	})

	s.cycles.Add(1)
	s.mu.Lock()
	s.lastRun = time.Now()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ClassifyTimeout)
	defer cancel()

	f, err := frame.Capture(ctx, s.source, s.opts.JPEGQuality)
	if err != nil {
		entry.WithError(err).Warn("Frame capture failed")
		s.setError(err)
		return err
	}

	result, err := s.classifier.Classify(ctx, f)
	if err != nil {
		entry.WithError(err).Warn("Classification failed")
		s.setError(err)
		return err
	}

	recorded, err := s.commitResult(ctx, gen, service.Detection{
		AnalysisID: analysisID,
		CameraID:   s.cam.ID,
		Zone:       s.cam.Zone,
		Result:     result,
	})
	if errors.Is(err, errDiscarded) {
		entry.Info("Session stopped during analysis, result discarded")
		return err
	}
	s.violations.Add(int64(len(recorded)))
	if err != nil {
		entry.WithError(err).Error("Failed to record violations")
		s.setError(err)
		return err
	}

	entry.WithFields(logrus.Fields{
		"compliance": result.OverallCompliance,
		"workers":    result.WorkersDetected,
		"recorded":   len(recorded),
	}).Info("Analysis complete")
	s.setError(nil)
	return nil
}

// commitResult records a verdict unless the run it belongs to has been stopped.
func (s *Session) commitResult(ctx context.Context, gen uint64, d service.Detection) ([]*models.Violation, error) {
	s.commit.Lock()
	defer s.commit.Unlock()
	if s.gen.Load() != gen || s.State() != StateAnalyzing {
		return nil, errDiscarded
	}
	return s.recorder.Record(ctx, d)
}

func (s *Session) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.lastError = ""
		return
	}
	s.lastError = err.Error()
}
