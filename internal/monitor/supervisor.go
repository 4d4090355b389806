package monitor

import (
	"context"
	"fmt"
	"net/http"
	"ppe-monitor/internal/classifier"
	"ppe-monitor/internal/config"
	"ppe-monitor/internal/logging"
	"ppe-monitor/pkg/frame"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Supervisor owns every camera session.
type Supervisor struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	order    []string
	logger   *logrus.Logger
}

func NewSupervisor() *Supervisor {
	return &Supervisor{
		sessions: make(map[string]*Session),
		logger:   logging.New(),
	}
}

// NewSupervisorFromConfig builds a session for every configured camera.
func NewSupervisorFromConfig(cfg *config.Config, clf classifier.Classifier, recorder Recorder, httpClient *http.Client) (*Supervisor, error) {
	sup := NewSupervisor()
	opts := OptionsFromConfig(cfg)
	for _, cam := range cfg.Cameras {
		src, err := SourceFor(cam, httpClient)
		if err != nil {
			return nil, err
		}
		sup.Add(NewSession(Camera{ID: cam.ID, Name: cam.Name, Zone: cam.Zone}, src, clf, recorder, opts))
	}
	return sup, nil
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		PollInterval:     cfg.Monitor.PollInterval(),
		InitialDelay:     cfg.Monitor.InitialDelay(),
		ClassifyTimeout:  cfg.Classifier.Timeout(),
		JPEGQuality:      cfg.Monitor.JPEGQuality,
		MaxBackoffFactor: cfg.Monitor.MaxBackoffFactor,
	}
}

// SourceFor opens nothing; it only builds the frame source a camera describes.
func SourceFor(cam config.CameraConfig, httpClient *http.Client) (frame.Source, error) {
	switch cam.Source {
	case config.SourceDirectory:
		return frame.NewDirectorySource(cam.ID, cam.Path), nil
	case config.SourceHTTP:
		return frame.NewHTTPSnapshotSource(cam.ID, cam.URL, httpClient), nil
	default:
		return nil, fmt.Errorf("camera %s: unknown source %q", cam.ID, cam.Source)
	}
}

func (s *Supervisor) Add(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := session.Camera().ID
	if _, exists := s.sessions[id]; !exists {
		s.order = append(s.order, id)
	}
	s.sessions[id] = session
}

func (s *Supervisor) Session(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

func (s *Supervisor) lookup(id string) (*Session, error) {
	session, ok := s.Session(id)
	if !ok {
		return nil, fmt.Errorf("unknown camera %q", id)
	}
	return session, nil
}

func (s *Supervisor) Start(ctx context.Context, id string) error {
	session, err := s.lookup(id)
	if err != nil {
		return err
	}
	return session.Start(ctx)
}

func (s *Supervisor) Stop(id string) error {
	session, err := s.lookup(id)
	if err != nil {
		return err
	}
	return session.Stop()
}

func (s *Supervisor) Resume(id string) error {
	session, err := s.lookup(id)
	if err != nil {
		return err
	}
	return session.Resume()
}

// StartAll starts the given cameras concurrently and returns the first failure.
// Cameras that did start keep running.
func (s *Supervisor) StartAll(ctx context.Context, ids []string) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			return s.Start(gctx, id)
		})
	}
	return g.Wait()
}

// StopAll stops every running session.
func (s *Supervisor) StopAll() {
	s.mu.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, id := range s.order {
		sessions = append(sessions, s.sessions[id])
	}
	s.mu.RUnlock()

	var wg sync.WaitGroup
	for _, session := range sessions {
		if !session.State().Running() {
			continue
		}
		wg.Add(1)
		go func(session *Session) {
			defer wg.Done()
			if err := session.Stop(); err != nil {
				s.logger.WithError(err).WithField("camera", session.Camera().ID).Debug("Stop skipped")
			}
		}(session)
	}
	wg.Wait()
}

// Run starts the auto-start cameras, blocks until ctx is done and stops everything.
func (s *Supervisor) Run(ctx context.Context, autoStart []string) error {
	if err := s.StartAll(ctx, autoStart); err != nil {
		s.logger.WithError(err).Error("Failed to start camera")
	}
	<-ctx.Done()
	s.StopAll()
	return nil
}

func (s *Supervisor) Status() []Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Status, 0, len(s.sessions))
	for _, id := range s.order {
		out = append(out, s.sessions[id].Status())
	}
	return out
}

// IDs returns camera ids sorted alphabetically.
func (s *Supervisor) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := append([]string(nil), s.order...)
	sort.Strings(ids)
	return ids
}

// AutoStartIDs lists the enabled cameras of cfg.
func AutoStartIDs(cfg *config.Config) []string {
	var ids []string
	for _, cam := range cfg.Cameras {
		if cam.Enabled {
			ids = append(ids, cam.ID)
		}
	}
	return ids
}
