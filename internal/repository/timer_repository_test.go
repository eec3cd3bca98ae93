package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/jn-uniformes/taller-api/internal/models"
)

func TestTimerRepositoryStartInsertsRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTimerRepository(db)
	now := time.Date(2026, time.August, 14, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, is_running FROM reposition_timers")).
		WithArgs("rep-1", models.AreaCorte).
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_running"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reposition_timers")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reposition_history")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	entry := &models.HistoryEntry{RepositionID: "rep-1", Action: models.HistoryActionTimerStarted, UserID: "u1"}
	timer, err := repo.Start(context.Background(), "rep-1", models.AreaCorte, "u1", now, entry)
	require.NoError(t, err)
	require.True(t, timer.IsRunning)
	require.Equal(t, models.AreaCorte, timer.Area)
	require.NotNil(t, timer.StartTime)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimerRepositoryStartRejectsRunningTimer(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTimerRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, is_running FROM reposition_timers")).
		WithArgs("rep-1", models.AreaCorte).
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_running"}).AddRow("tm-1", true))
	mock.ExpectRollback()

	entry := &models.HistoryEntry{RepositionID: "rep-1", Action: models.HistoryActionTimerStarted, UserID: "u1"}
	_, err := repo.Start(context.Background(), "rep-1", models.AreaCorte, "u1", time.Now().UTC(), entry)
	require.ErrorIs(t, err, ErrTimerAlreadyRunning)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimerRepositoryStopRecordsElapsedMinutes(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTimerRepository(db)
	started := time.Date(2026, time.August, 14, 10, 0, 0, 0, time.UTC)
	now := started.Add(95 * time.Minute)

	rows := sqlmock.NewRows([]string{"id", "reposition_id", "area", "start_time", "is_running", "created_by"}).
		AddRow("tm-1", "rep-1", "corte", started, true, "u1")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, reposition_id, area")).
		WithArgs("rep-1", models.AreaCorte).
		WillReturnRows(rows)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reposition_timers")).
		WithArgs(now, 95, "tm-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reposition_history")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	entry := &models.HistoryEntry{RepositionID: "rep-1", Action: models.HistoryActionTimerStopped, UserID: "u1", Description: "Timer detenido en corte"}
	timer, err := repo.Stop(context.Background(), "rep-1", models.AreaCorte, now, entry)
	require.NoError(t, err)
	require.Equal(t, 95, timer.ElapsedMinutes)
	require.False(t, timer.IsRunning)
	require.Contains(t, entry.Description, "01:35:00")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimerRepositoryStopWithoutTimer(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTimerRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, reposition_id, area")).
		WithArgs("rep-1", models.AreaCorte).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	entry := &models.HistoryEntry{RepositionID: "rep-1", Action: models.HistoryActionTimerStopped, UserID: "u1"}
	_, err := repo.Stop(context.Background(), "rep-1", models.AreaCorte, time.Now().UTC(), entry)
	require.ErrorIs(t, err, ErrTimerNotRunning)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTimerRepositorySetManualUpserts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTimerRepository(db)
	now := time.Date(2026, time.August, 14, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reposition_timers")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reposition_history")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	entry := &models.HistoryEntry{RepositionID: "rep-1", Action: models.HistoryActionManualTimeSet, UserID: "u1"}
	err := repo.SetManual(context.Background(), ManualParams{
		RepositionID:   "rep-1",
		Area:           models.AreaCorte,
		UserID:         "u1",
		StartTime:      "23:30",
		EndTime:        "00:15",
		Date:           "2026-08-13",
		ElapsedMinutes: 45,
		Now:            now,
	}, entry)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFormatElapsed(t *testing.T) {
	require.Equal(t, "00:00:00", FormatElapsed(0))
	require.Equal(t, "00:45:00", FormatElapsed(45))
	require.Equal(t, "01:35:00", FormatElapsed(95))
	require.Equal(t, "00:00:00", FormatElapsed(-3))
}
