// Package notify delivers violation alerts and digests to the configured channels.
// Delivery is best effort: failures are logged and never retried.
package notify

import (
	"context"
	"errors"
	"fmt"
	"ppe-monitor/internal/logging"
	"ppe-monitor/internal/models"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrNotificationFailure wraps every channel delivery error.
var ErrNotificationFailure = errors.New("notification failed")

const defaultSendTimeout = 15 * time.Second

type Alert struct {
	Type       string    `json:"type"`
	Worker     string    `json:"worker"`
	MissingPPE string    `json:"missing_ppe"`
	Location   string    `json:"location"`
	Zone       string    `json:"zone"`
	CameraID   string    `json:"camera_id,omitempty"`
	Severity   string    `json:"severity"`
	Timestamp  time.Time `json:"timestamp"`
}

// AlertFor builds the alert for a persisted violation.
func AlertFor(v *models.Violation) Alert {
	ts := v.CreatedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return Alert{
		Type:       models.ViolationTypePPE,
		Worker:     v.WorkerName,
		MissingPPE: v.MissingPPE,
		Location:   v.Location,
		Zone:       v.Zone,
		CameraID:   v.CameraID,
		Severity:   v.Severity,
		Timestamp:  ts.UTC(),
	}
}

// FormatAlert renders an alert for chat channels.
func FormatAlert(a Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ PPE violation (%s)\n", strings.ToUpper(a.Severity))
	fmt.Fprintf(&b, "Worker: %s\n", a.Worker)
	fmt.Fprintf(&b, "Missing: %s\n", a.MissingPPE)
	if a.Zone != "" {
		fmt.Fprintf(&b, "Zone: %s\n", a.Zone)
	}
	fmt.Fprintf(&b, "Location: %s\n", a.Location)
	fmt.Fprintf(&b, "Time: %s", a.Timestamp.Format(time.RFC3339))
	return b.String()
}

// Channel is one delivery route.
type Channel interface {
	Name() string
	Notify(ctx context.Context, alert Alert) error
	Announce(ctx context.Context, text string) error
}

// Dispatcher accepts alerts without blocking the caller.
type Dispatcher interface {
	Dispatch(alert Alert)
	Broadcast(text string)
}

// Fanout sends every alert to all channels concurrently. A Fanout without channels
// drops everything silently.
type Fanout struct {
	channels []Channel
	timeout  time.Duration
	logger   *logrus.Logger
	wg       sync.WaitGroup
}

func NewFanout(channels ...Channel) *Fanout {
	return &Fanout{
		channels: channels,
		timeout:  defaultSendTimeout,
		logger:   logging.New(),
	}
}

func (f *Fanout) Channels() []string {
	names := make([]string, 0, len(f.channels))
	for _, ch := range f.channels {
		names = append(names, ch.Name())
	}
	return names
}

func (f *Fanout) Dispatch(alert Alert) {
	for _, ch := range f.channels {
		f.send(ch, "alert", func(ctx context.Context, ch Channel) error {
			return ch.Notify(ctx, alert)
		}, logrus.Fields{"worker": alert.Worker, "severity": alert.Severity})
	}
}

func (f *Fanout) Broadcast(text string) {
	for _, ch := range f.channels {
		f.send(ch, "announcement", func(ctx context.Context, ch Channel) error {
			return ch.Announce(ctx, text)
		}, logrus.Fields{"size": len(text)})
	}
}

func (f *Fanout) send(ch Channel, kind string, fn func(context.Context, Channel) error, fields logrus.Fields) {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
		defer cancel()

		entry := f.logger.WithFields(fields).WithField("channel", ch.Name())
		if err := fn(ctx, ch); err != nil {
			entry.WithError(err).Warnf("Failed to deliver %s", kind)
			return
		}
		entry.Debugf("Delivered %s", kind)
	}()
}

// Wait blocks until every in-flight delivery has finished.
func (f *Fanout) Wait() {
	f.wg.Wait()
}
