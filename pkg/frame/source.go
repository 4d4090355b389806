package frame

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Source is a camera feed that can produce its current still on demand.
// Close must release the handle and be safe to call more than once.
type Source interface {
	Name() string
	Open(ctx context.Context) error
	Snapshot(ctx context.Context) (image.Image, error)
	Close() error
}

// Capture takes the current frame from src and encodes it.
func Capture(ctx context.Context, src Source, quality int) (Frame, error) {
	img, err := src.Snapshot(ctx)
	if err != nil {
		return Frame{}, err
	}
	return Encode(img, quality)
}

// DirectorySource treats the newest image file in a drop directory as the current frame.
type DirectorySource struct {
	name string
	dir  string

	mu   sync.Mutex
	open bool
}

func NewDirectorySource(name, dir string) *DirectorySource {
	return &DirectorySource{name: name, dir: dir}
}

func (s *DirectorySource) Name() string {
	return s.name
}

func (s *DirectorySource) Open(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("open %s: not a directory", s.dir)
	}

	s.mu.Lock()
	s.open = true
	s.mu.Unlock()
	return nil
}

func (s *DirectorySource) Snapshot(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	open := s.open
	s.mu.Unlock()
	if !open {
		return nil, ErrCaptureUnavailable
	}

	path, err := s.newest()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, ErrCaptureUnavailable
	}

	img, err := LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCaptureUnavailable, filepath.Base(path), err)
	}
	return img, nil
}

func (s *DirectorySource) newest() (string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", s.dir, err)
	}

	var (
		best     string
		bestTime time.Time
	)
	for _, entry := range entries {
		if entry.IsDir() || !isImageFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if best == "" || info.ModTime().After(bestTime) {
			best = filepath.Join(s.dir, entry.Name())
			bestTime = info.ModTime()
		}
	}
	return best, nil
}

func (s *DirectorySource) Close() error {
	s.mu.Lock()
	s.open = false
	s.mu.Unlock()
	return nil
}

func isImageFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".jpg" || ext == ".jpeg" || ext == ".png" || ext == ".gif"
}

// HTTPSnapshotSource fetches the current still from an IP camera snapshot URL.
type HTTPSnapshotSource struct {
	name     string
	url      string
	client   *http.Client
	maxBytes int64

	mu   sync.Mutex
	open bool
}

func NewHTTPSnapshotSource(name, url string, client *http.Client) *HTTPSnapshotSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSnapshotSource{name: name, url: url, client: client, maxBytes: MaxImageBytes}
}

func (s *HTTPSnapshotSource) Name() string {
	return s.name
}

func (s *HTTPSnapshotSource) Open(ctx context.Context) error {
	if s.url == "" {
		return fmt.Errorf("open %s: empty snapshot url", s.name)
	}
	s.mu.Lock()
	s.open = true
	s.mu.Unlock()
	return nil
}

func (s *HTTPSnapshotSource) Snapshot(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	open := s.open
	s.mu.Unlock()
	if !open {
		return nil, ErrCaptureUnavailable
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: snapshot status %d", ErrCaptureUnavailable, resp.StatusCode)
	}
	img, err := decodeLimited(resp.Body, s.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCaptureUnavailable, err)
	}
	return img, nil
}

func (s *HTTPSnapshotSource) Close() error {
	s.mu.Lock()
	s.open = false
	s.mu.Unlock()
	return nil
}
