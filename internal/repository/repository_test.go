package repository

import (
	"testing"
	"time"

	"ppe-monitor/internal/database"
	"ppe-monitor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func TestViolationRepository_AppendAndCount(t *testing.T) {
	repo, err := NewGormViolationRepository(openTestDB(t))
	require.NoError(t, err)

	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	records := []*models.Violation{
		{AnalysisID: "a1", WorkerName: "Worker in blue shirt", MissingPPE: "Safety Helmet", Severity: models.SeverityMedium, CreatedAt: base},
		{AnalysisID: "a1", WorkerName: "Worker near crane", MissingPPE: "Gloves, Boots, Vest", Severity: models.SeverityHigh, CreatedAt: base.Add(time.Minute)},
		{AnalysisID: "a2", WorkerName: "Worker in blue shirt", MissingPPE: "Safety Helmet", Severity: models.SeverityMedium, CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, v := range records {
		require.NoError(t, repo.Create(v))
		assert.NotZero(t, v.ID)
		assert.Equal(t, models.ViolationTypePPE, v.ViolationType)
	}

	counts, err := repo.CountByWorker()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Worker in blue shirt": 2, "Worker near crane": 1}, counts)

	since, err := repo.CountByWorkerSince(base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Worker in blue shirt": 1}, since)

	latest, err := repo.List(2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "a2", latest[0].AnalysisID)

	n, err := repo.CountByAnalysis("a1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	byName, err := repo.GetByWorkerName("Worker near crane", 0)
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, []string{"Gloves", "Boots", "Vest"}, byName[0].MissingItems())

	missing, err := repo.GetByID(9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestViolationRepository_RejectsEmptyWorker(t *testing.T) {
	repo, err := NewGormViolationRepository(openTestDB(t))
	require.NoError(t, err)

	assert.Error(t, repo.Create(&models.Violation{MissingPPE: "Helmet"}))
}

func TestWorkerRepository_UpsertKeepsLeaveBalance(t *testing.T) {
	repo, err := NewGormWorkerRepository(openTestDB(t))
	require.NoError(t, err)

	require.NoError(t, repo.Upsert(&models.Worker{
		EmployeeID: "W003", Name: "Anil Kumar", Role: "Construction Worker",
		TotalHolidays: 4, RemainingHolidays: 4,
	}))
	require.NoError(t, repo.UpdateLeave("W003", 4, 2.5))

	require.NoError(t, repo.Upsert(&models.Worker{
		EmployeeID: "W003", Name: "Anil Kumar", Role: "Welder",
		TotalHolidays: 4, RemainingHolidays: 4,
	}))

	w, err := repo.GetByEmployeeID("W003")
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, "Welder", w.Role)
	assert.Equal(t, 2.5, w.RemainingHolidays)

	byName, err := repo.GetByName("Anil Kumar")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, w.ID, byName.ID)

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	assert.Error(t, repo.UpdateLeave("W999", 4, 4))

	unknown, err := repo.GetByEmployeeID("W999")
	require.NoError(t, err)
	assert.Nil(t, unknown)
}

func TestWorkerRepository_RejectsInvalidBalance(t *testing.T) {
	repo, err := NewGormWorkerRepository(openTestDB(t))
	require.NoError(t, err)

	err = repo.Upsert(&models.Worker{EmployeeID: "W1", Name: "A", Role: "Welder", TotalHolidays: 2, RemainingHolidays: 3})
	assert.Error(t, err)
}

func TestAttendanceRepository_UpsertPerDay(t *testing.T) {
	db := openTestDB(t)
	workers, err := NewGormWorkerRepository(db)
	require.NoError(t, err)
	repo, err := NewGormAttendanceRepository(db)
	require.NoError(t, err)

	require.NoError(t, workers.Upsert(&models.Worker{EmployeeID: "W001", Name: "Rajesh Sharma", Role: "Site Supervisor", TotalHolidays: 4, RemainingHolidays: 4}))
	w, err := workers.GetByEmployeeID("W001")
	require.NoError(t, err)

	checkIn := time.Date(2025, 3, 10, 8, 30, 0, 0, time.UTC)
	require.NoError(t, repo.Upsert(&models.Attendance{WorkerID: w.ID, Date: "2025-03-10", Status: models.AttendancePresent, CheckInTime: &checkIn}))
	require.NoError(t, repo.Upsert(&models.Attendance{WorkerID: w.ID, Date: "2025-03-10", Status: models.AttendanceLeave, Notes: "sick"}))

	mark, err := repo.GetByWorkerAndDate(w.ID, "2025-03-10")
	require.NoError(t, err)
	require.NotNil(t, mark)
	assert.Equal(t, models.AttendanceLeave, mark.Status)
	assert.Equal(t, "sick", mark.Notes)
	assert.Nil(t, mark.CheckInTime)

	day, err := repo.GetByDate("2025-03-10")
	require.NoError(t, err)
	require.Len(t, day, 1)
	assert.Equal(t, "Rajesh Sharma", day[0].Worker.Name)

	counts, err := repo.CountByStatus("2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{models.AttendanceLeave: 1}, counts)

	assert.Error(t, repo.Upsert(&models.Attendance{WorkerID: w.ID, Date: "2025-03-10", Status: "holiday"}))
}

func TestSettingRepository_Upsert(t *testing.T) {
	repo, err := NewGormSettingRepository(openTestDB(t))
	require.NoError(t, err)

	none, err := repo.Get(models.SettingWebhook)
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, repo.Upsert(models.SettingWebhook, datatypes.JSON(`{"url":"http://a","enabled":false}`)))
	require.NoError(t, repo.Upsert(models.SettingWebhook, datatypes.JSON(`{"url":"http://b","enabled":true}`)))

	got, err := repo.Get(models.SettingWebhook)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.JSONEq(t, `{"url":"http://b","enabled":true}`, string(got.Value))

	all, err := repo.GetAll()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
