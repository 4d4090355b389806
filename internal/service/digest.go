package service

import (
	"fmt"
	"ppe-monitor/internal/logging"
	"ppe-monitor/internal/models"
	"ppe-monitor/internal/notify"
	"ppe-monitor/internal/repository"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DigestService posts a daily summary of the day's violations.
type DigestService struct {
	violations repository.ViolationRepository
	dispatcher notify.Dispatcher
	loc        *time.Location
	now        func() time.Time
	cron       *cron.Cron
	logger     *logrus.Logger
}

func NewDigestService(violations repository.ViolationRepository, dispatcher notify.Dispatcher, loc *time.Location) *DigestService {
	if loc == nil {
		loc = time.Local
	}
	logger := logging.New()
	return &DigestService{
		violations: violations,
		dispatcher: dispatcher,
		loc:        loc,
		now:        time.Now,
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cron.VerbosePrintfLogger(logger)),
			cron.WithChain(cron.Recover(cron.PrintfLogger(logger))),
		),
		logger: logger,
	}
}

// Schedule registers the digest job using a standard 5-field cron expression.
func (s *DigestService) Schedule(spec string) error {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return fmt.Errorf("empty digest schedule")
	}
	if _, err := s.cron.AddFunc(spec, s.Send); err != nil {
		return fmt.Errorf("invalid digest schedule %q: %w", spec, err)
	}
	s.logger.WithField("schedule", spec).Info("Daily digest scheduled")
	return nil
}

func (s *DigestService) Start() {
	s.cron.Start()
}

// Stop waits for a running digest job to finish.
func (s *DigestService) Stop() {
	<-s.cron.Stop().Done()
}

// Send builds today's digest and broadcasts it.
func (s *DigestService) Send() {
	text, err := s.Build(s.now())
	if err != nil {
		s.logger.WithError(err).Error("Failed to build daily digest")
		return
	}
	s.dispatcher.Broadcast(text)
}

// Build summarises violations recorded since local midnight of the day containing at.
func (s *DigestService) Build(at time.Time) (string, error) {
	local := at.In(s.loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)

	records, err := s.violations.ListSince(midnight)
	if err != nil {
		return "", fmt.Errorf("list violations: %w", err)
	}
	return FormatDigest(local, records), nil
}

type digestLine struct {
	worker string
	high   int
	medium int
}

func FormatDigest(day time.Time, records []*models.Violation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "PPE digest for %s\n", day.Format("2006-01-02"))

	if len(records) == 0 {
		b.WriteString("No violations recorded today.")
		return b.String()
	}

	byWorker := make(map[string]*digestLine)
	var high int
	for _, v := range records {
		line, ok := byWorker[v.WorkerName]
		if !ok {
			line = &digestLine{worker: v.WorkerName}
			byWorker[v.WorkerName] = line
		}
		if v.IsHigh() {
			line.high++
			high++
		} else {
			line.medium++
		}
	}

	lines := make([]*digestLine, 0, len(byWorker))
	for _, l := range byWorker {
		lines = append(lines, l)
	}
	sort.Slice(lines, func(i, j int) bool {
		ti, tj := lines[i].high+lines[i].medium, lines[j].high+lines[j].medium
		if ti != tj {
			return ti > tj
		}
		return lines[i].worker < lines[j].worker
	})

	fmt.Fprintf(&b, "Total: %d (high %d, medium %d)\n", len(records), high, len(records)-high)
	for _, l := range lines {
		fmt.Fprintf(&b, "\n%s: %d (high %d, medium %d)", l.worker, l.high+l.medium, l.high, l.medium)
	}
	return b.String()
}
