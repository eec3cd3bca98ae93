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

func TestTransferRepositoryCooldownBlockedByPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTransferRepository(db, 5*time.Minute)
	now := time.Date(2026, time.August, 14, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT created_at FROM reposition_transfers")).
		WithArgs("rep-1", models.AreaCorte, models.TransferPending).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now.Add(-2 * time.Minute)))

	status, err := repo.Cooldown(context.Background(), "rep-1", models.AreaCorte, now)
	require.NoError(t, err)
	require.True(t, status.Blocked)
	require.Equal(t, 3, status.RemainingMinutes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferRepositoryCooldownBlockedByRecentProcessed(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTransferRepository(db, 5*time.Minute)
	now := time.Date(2026, time.August, 14, 10, 0, 0, 0, time.UTC)

	// No pending handoff, but a rejected one 4m30s ago is still inside
	// the window: remaining 30s rounds up to one minute.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT created_at FROM reposition_transfers")).
		WithArgs("rep-1", models.AreaCorte, models.TransferPending).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT created_at FROM reposition_transfers")).
		WithArgs("rep-1", models.AreaCorte, now.Add(-5*time.Minute)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now.Add(-4*time.Minute - 30*time.Second)))

	status, err := repo.Cooldown(context.Background(), "rep-1", models.AreaCorte, now)
	require.NoError(t, err)
	require.True(t, status.Blocked)
	require.Equal(t, 1, status.RemainingMinutes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferRepositoryCooldownClear(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTransferRepository(db, 5*time.Minute)
	now := time.Date(2026, time.August, 14, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT created_at FROM reposition_transfers")).
		WithArgs("rep-1", models.AreaCorte, models.TransferPending).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT created_at FROM reposition_transfers")).
		WithArgs("rep-1", models.AreaCorte, now.Add(-5*time.Minute)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}))

	status, err := repo.Cooldown(context.Background(), "rep-1", models.AreaCorte, now)
	require.NoError(t, err)
	require.False(t, status.Blocked)
	require.Zero(t, status.RemainingMinutes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferRepositoryRequestRejectsUnapproved(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTransferRepository(db, 5*time.Minute)
	now := time.Date(2026, time.August, 14, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, type FROM repositions")).
		WithArgs("rep-1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "type"}).AddRow("pendiente", "repocision"))
	mock.ExpectRollback()

	entry := &models.HistoryEntry{RepositionID: "rep-1", Action: models.HistoryActionTransferRequested}
	_, err := repo.Request(context.Background(), RequestParams{
		RepositionID: "rep-1",
		FromArea:     models.AreaCorte,
		ToArea:       models.AreaBordado,
		RequestedBy:  "u1",
		Now:          now,
	}, entry)
	require.ErrorIs(t, err, ErrRepositionNotApproved)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferRepositoryRequestInsertsPendingHandoff(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTransferRepository(db, 5*time.Minute)
	now := time.Date(2026, time.August, 14, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, type FROM repositions")).
		WithArgs("rep-1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "type"}).AddRow("aprobado", "reproceso"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM reposition_transfers")).
		WithArgs("rep-1", models.AreaCorte, models.TransferPending).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT created_at FROM reposition_transfers")).
		WithArgs("rep-1", models.AreaCorte, models.TransferPending).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT created_at FROM reposition_transfers")).
		WithArgs("rep-1", models.AreaCorte, now.Add(-5*time.Minute)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reposition_transfers")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reposition_history")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	entry := &models.HistoryEntry{RepositionID: "rep-1", Action: models.HistoryActionTransferRequested, UserID: "u1"}
	transfer, err := repo.Request(context.Background(), RequestParams{
		RepositionID: "rep-1",
		FromArea:     models.AreaCorte,
		ToArea:       models.AreaBordado,
		Notes:        "lote listo",
		RequestedBy:  "u1",
		Now:          now,
	}, entry)
	require.NoError(t, err)
	require.NotEmpty(t, transfer.ID)
	require.Equal(t, models.TransferPending, transfer.Status)
	require.Equal(t, models.AreaBordado, transfer.ToArea)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferRepositoryProcessAcceptMovesReposition(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTransferRepository(db, 5*time.Minute)
	now := time.Date(2026, time.August, 14, 10, 0, 0, 0, time.UTC)

	transferRows := sqlmock.NewRows([]string{"id", "reposition_id", "from_area", "to_area", "status", "created_by"}).
		AddRow("tr-1", "rep-1", "corte", "bordado", "pending", "u1")

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT t.id").WithArgs("tr-1").WillReturnRows(transferRows)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reposition_transfers")).
		WithArgs(models.TransferAccepted, "u2", now, nil, "tr-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, solicitante_area FROM repositions")).
		WithArgs("rep-1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "solicitante_area"}).AddRow("aprobado", "corte"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE repositions")).
		WithArgs(models.AreaBordado, now, "rep-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reposition_history")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	entry := &models.HistoryEntry{RepositionID: "rep-1", Action: models.HistoryActionTransferAccepted, UserID: "u2"}
	transfer, err := repo.Process(context.Background(), ProcessParams{
		TransferID:  "tr-1",
		Action:      models.TransferAccepted,
		ProcessedBy: "u2",
		Now:         now,
	}, entry)
	require.NoError(t, err)
	require.Equal(t, models.TransferAccepted, transfer.Status)
	require.NotNil(t, transfer.ProcessedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferRepositoryProcessRejectsResolvedHandoff(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTransferRepository(db, 5*time.Minute)

	transferRows := sqlmock.NewRows([]string{"id", "reposition_id", "from_area", "to_area", "status", "created_by"}).
		AddRow("tr-1", "rep-1", "corte", "bordado", "accepted", "u1")

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT t.id").WithArgs("tr-1").WillReturnRows(transferRows)
	mock.ExpectRollback()

	entry := &models.HistoryEntry{RepositionID: "rep-1", Action: models.HistoryActionTransferAccepted, UserID: "u2"}
	_, err := repo.Process(context.Background(), ProcessParams{
		TransferID:  "tr-1",
		Action:      models.TransferAccepted,
		ProcessedBy: "u2",
		Now:         time.Now().UTC(),
	}, entry)
	require.ErrorIs(t, err, ErrTransferAlreadyProcessed)
	require.NoError(t, mock.ExpectationsWereMet())
}
