package service

import (
	"sync"
	"testing"

	"ppe-monitor/internal/database"
	"ppe-monitor/internal/notify"
	"ppe-monitor/internal/repository"

	"github.com/stretchr/testify/require"
)

type testRepos struct {
	violations *repository.GormViolationRepository
	workers    *repository.GormWorkerRepository
	attendance *repository.GormAttendanceRepository
	settings   *repository.GormSettingRepository
}

func newTestRepos(t *testing.T) testRepos {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	var r testRepos
	r.violations, err = repository.NewGormViolationRepository(db)
	require.NoError(t, err)
	r.workers, err = repository.NewGormWorkerRepository(db)
	require.NoError(t, err)
	r.attendance, err = repository.NewGormAttendanceRepository(db)
	require.NoError(t, err)
	r.settings, err = repository.NewGormSettingRepository(db)
	require.NoError(t, err)
	return r
}

type fakeDispatcher struct {
	mu      sync.Mutex
	alerts  []notify.Alert
	notices []string
}

func (f *fakeDispatcher) Dispatch(alert notify.Alert) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, alert)
}

func (f *fakeDispatcher) Broadcast(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, text)
}
