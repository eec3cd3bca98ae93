package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jn-uniformes/taller-api/internal/dto"
	"github.com/jn-uniformes/taller-api/internal/models"
	appErrors "github.com/jn-uniformes/taller-api/pkg/errors"
)

type guardStub struct {
	blocked   bool
	remaining time.Duration
	released  int
	acquired  int
}

func (g *guardStub) Acquire(ctx context.Context, repositionID, fromArea string) (bool, time.Duration, error) {
	g.acquired++
	if g.blocked {
		return false, g.remaining, nil
	}
	return true, 0, nil
}

func (g *guardStub) Release(ctx context.Context, repositionID, fromArea string) error {
	g.released++
	return nil
}

func newTransferFixture(cooldown time.Duration) (*repositionStoreStub, *transferStoreStub, *timerStoreStub, *notifierStub) {
	repo := newRepositionStoreStub()
	transfers := newTransferStoreStub(repo, cooldown)
	timers := newTimerStoreStub()
	return repo, transfers, timers, &notifierStub{}
}

func boundTimer(timers *timerStoreStub, repositionID string, area models.Area, minutes int) {
	start := testClock().Add(-time.Duration(minutes) * time.Minute)
	end := testClock()
	timers.timers[timerKey(repositionID, area)] = &models.Timer{
		ID:             timerKey(repositionID, area),
		RepositionID:   repositionID,
		Area:           area,
		StartTime:      &start,
		EndTime:        &end,
		ElapsedMinutes: minutes,
	}
}

func TestTransferRequestHappyPath(t *testing.T) {
	repo, transfers, timers, notifier := newTransferFixture(5 * time.Minute)
	seedReposition(repo, "rep-1", models.StatusAprobado, models.AreaCorte)
	svc := NewTransferService(transfers, repo, timers, notifier, WithTransferClock(testClock))

	// Corte is the solicitante area and the reposition has not returned,
	// so no logged time is required yet.
	transfer, err := svc.Request(context.Background(), Actor{UserID: "u1", Name: "Maria", Area: models.AreaCorte}, "rep-1",
		dto.RequestTransferRequest{ToArea: models.AreaBordado})
	require.NoError(t, err)
	require.Equal(t, models.TransferPending, transfer.Status)
	require.Equal(t, models.AreaCorte, transfer.FromArea)
	require.Equal(t, models.AreaBordado, transfer.ToArea)
	require.Len(t, notifier.areas, 1)
	require.Equal(t, []models.Area{models.AreaBordado}, notifier.areas[0])
}

func TestTransferRequestRejectsSelfTransfer(t *testing.T) {
	repo, transfers, timers, notifier := newTransferFixture(5 * time.Minute)
	seedReposition(repo, "rep-1", models.StatusAprobado, models.AreaCorte)
	svc := NewTransferService(transfers, repo, timers, notifier, WithTransferClock(testClock))

	_, err := svc.Request(context.Background(), Actor{UserID: "u1", Area: models.AreaCorte}, "rep-1",
		dto.RequestTransferRequest{ToArea: models.AreaCorte})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTransferRequestOnlyFromHoldingArea(t *testing.T) {
	repo, transfers, timers, notifier := newTransferFixture(5 * time.Minute)
	seedReposition(repo, "rep-1", models.StatusAprobado, models.AreaCorte)
	svc := NewTransferService(transfers, repo, timers, notifier, WithTransferClock(testClock))

	_, err := svc.Request(context.Background(), Actor{UserID: "u2", Area: models.AreaBordado}, "rep-1",
		dto.RequestTransferRequest{ToArea: models.AreaEnsamble})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestTransferRequestRequiresLoggedTimeAfterReturn(t *testing.T) {
	repo, transfers, timers, notifier := newTransferFixture(5 * time.Minute)
	rep := seedReposition(repo, "rep-1", models.StatusAprobado, models.AreaCorte)
	rep.HasReturnedToCreator = true
	svc := NewTransferService(transfers, repo, timers, notifier, WithTransferClock(testClock))
	actor := Actor{UserID: "u1", Area: models.AreaCorte}

	_, err := svc.Request(context.Background(), actor, "rep-1", dto.RequestTransferRequest{ToArea: models.AreaEnvios})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)

	boundTimer(timers, "rep-1", models.AreaCorte, 30)
	_, err = svc.Request(context.Background(), actor, "rep-1", dto.RequestTransferRequest{ToArea: models.AreaEnvios})
	require.NoError(t, err)
}

func TestTransferRequestNonCreatorAreaRequiresLoggedTime(t *testing.T) {
	repo, transfers, timers, notifier := newTransferFixture(5 * time.Minute)
	rep := seedReposition(repo, "rep-1", models.StatusAprobado, models.AreaCorte)
	rep.CurrentArea = models.AreaBordado
	svc := NewTransferService(transfers, repo, timers, notifier, WithTransferClock(testClock))

	_, err := svc.Request(context.Background(), Actor{UserID: "u2", Area: models.AreaBordado}, "rep-1",
		dto.RequestTransferRequest{ToArea: models.AreaEnsamble})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestTransferRequestCooldownBlocksRepeat(t *testing.T) {
	repo, transfers, timers, notifier := newTransferFixture(5 * time.Minute)
	seedReposition(repo, "rep-1", models.StatusAprobado, models.AreaCorte)

	later := testClock().Add(2 * time.Minute)
	svc := NewTransferService(transfers, repo, timers, notifier,
		WithTransferClock(func() time.Time { return later }))

	// A transfer rejected two minutes ago still holds the window.
	processedAt := testClock()
	rejected := "wrong machine"
	transfers.transfers["tr-0"] = &models.Transfer{
		ID:              "tr-0",
		RepositionID:    "rep-1",
		FromArea:        models.AreaCorte,
		ToArea:          models.AreaBordado,
		Status:          models.TransferRejected,
		CreatedAt:       testClock(),
		ProcessedAt:     &processedAt,
		RejectionReason: &rejected,
	}

	_, err := svc.Request(context.Background(), Actor{UserID: "u1", Area: models.AreaCorte}, "rep-1",
		dto.RequestTransferRequest{ToArea: models.AreaBordado})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrRateLimited.Code, appErr.Code)
	require.Contains(t, appErr.Details, "remaining_minutes")
	remaining, ok := appErr.Details["remaining_minutes"].(int)
	require.True(t, ok)
	require.GreaterOrEqual(t, remaining, 1)
	require.LessOrEqual(t, remaining, 5)
}

func TestTransferRequestPendingExistsConflicts(t *testing.T) {
	repo, transfers, timers, notifier := newTransferFixture(5 * time.Minute)
	seedReposition(repo, "rep-1", models.StatusAprobado, models.AreaCorte)
	svc := NewTransferService(transfers, repo, timers, notifier, WithTransferClock(testClock))
	actor := Actor{UserID: "u1", Area: models.AreaCorte}

	_, err := svc.Request(context.Background(), actor, "rep-1", dto.RequestTransferRequest{ToArea: models.AreaBordado})
	require.NoError(t, err)

	_, err = svc.Request(context.Background(), actor, "rep-1", dto.RequestTransferRequest{ToArea: models.AreaEnsamble})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestTransferRequestGuardFastPath(t *testing.T) {
	repo, transfers, timers, notifier := newTransferFixture(5 * time.Minute)
	seedReposition(repo, "rep-1", models.StatusAprobado, models.AreaCorte)
	guard := &guardStub{blocked: true, remaining: 90 * time.Second}
	svc := NewTransferService(transfers, repo, timers, notifier,
		WithTransferClock(testClock), WithTransferGuard(guard))

	_, err := svc.Request(context.Background(), Actor{UserID: "u1", Area: models.AreaCorte}, "rep-1",
		dto.RequestTransferRequest{ToArea: models.AreaBordado})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrRateLimited.Code, appErr.Code)
	require.Equal(t, 2, appErr.Details["remaining_minutes"])
	require.Empty(t, transfers.transfers)
}

func TestTransferProcessAcceptMovesReposition(t *testing.T) {
	repo, transfers, timers, notifier := newTransferFixture(5 * time.Minute)
	seedReposition(repo, "rep-1", models.StatusAprobado, models.AreaCorte)
	svc := NewTransferService(transfers, repo, timers, notifier, WithTransferClock(testClock))

	transfer, err := svc.Request(context.Background(), Actor{UserID: "u1", Area: models.AreaCorte}, "rep-1",
		dto.RequestTransferRequest{ToArea: models.AreaBordado})
	require.NoError(t, err)

	processed, err := svc.Process(context.Background(), Actor{UserID: "u2", Name: "Pablo", Area: models.AreaBordado},
		transfer.ID, dto.ProcessTransferRequest{Action: models.TransferAccepted})
	require.NoError(t, err)
	require.Equal(t, models.TransferAccepted, processed.Status)

	rep, err := repo.GetByID(context.Background(), "rep-1")
	require.NoError(t, err)
	require.Equal(t, models.AreaBordado, rep.CurrentArea)
	require.False(t, rep.HasReturnedToCreator)
}

func TestTransferProcessAcceptBackToCreatorFlipsFlag(t *testing.T) {
	repo, transfers, timers, notifier := newTransferFixture(5 * time.Minute)
	rep := seedReposition(repo, "rep-1", models.StatusAprobado, models.AreaCorte)
	rep.CurrentArea = models.AreaBordado
	boundTimer(timers, "rep-1", models.AreaBordado, 10)
	svc := NewTransferService(transfers, repo, timers, notifier, WithTransferClock(testClock))

	transfer, err := svc.Request(context.Background(), Actor{UserID: "u2", Area: models.AreaBordado}, "rep-1",
		dto.RequestTransferRequest{ToArea: models.AreaCorte})
	require.NoError(t, err)

	_, err = svc.Process(context.Background(), Actor{UserID: "u1", Area: models.AreaCorte}, transfer.ID,
		dto.ProcessTransferRequest{Action: models.TransferAccepted})
	require.NoError(t, err)

	updated, err := repo.GetByID(context.Background(), "rep-1")
	require.NoError(t, err)
	require.Equal(t, models.AreaCorte, updated.CurrentArea)
	require.True(t, updated.HasReturnedToCreator)
}

func TestTransferProcessAcceptNotifiesDestinationArea(t *testing.T) {
	repo, transfers, timers, notifier := newTransferFixture(5 * time.Minute)
	seedReposition(repo, "rep-1", models.StatusAprobado, models.AreaCorte)
	svc := NewTransferService(transfers, repo, timers, notifier, WithTransferClock(testClock))

	transfer, err := svc.Request(context.Background(), Actor{UserID: "u1", Name: "Maria", Area: models.AreaCorte}, "rep-1",
		dto.RequestTransferRequest{ToArea: models.AreaBordado})
	require.NoError(t, err)

	_, err = svc.Process(context.Background(), Actor{UserID: "u2", Name: "Pablo", Area: models.AreaBordado},
		transfer.ID, dto.ProcessTransferRequest{Action: models.TransferAccepted})
	require.NoError(t, err)

	// The requester gets a direct notice and the receiving area a broadcast
	// that skips the user who accepted.
	require.Len(t, notifier.areas, 2)
	require.Equal(t, []models.Area{models.AreaBordado}, notifier.areas[1])
	require.Equal(t, "u2", notifier.excluded[1])
	last := notifier.payloads[len(notifier.payloads)-1]
	require.Equal(t, models.NotificationTransferAccepted, last.Type)

	requesterNotified := false
	for _, p := range notifier.payloads {
		if len(p.UserIDs) == 1 && p.UserIDs[0] == "u1" {
			requesterNotified = true
		}
	}
	require.True(t, requesterNotified)
}

func TestTransferProcessOnlyDestinationArea(t *testing.T) {
	repo, transfers, timers, notifier := newTransferFixture(5 * time.Minute)
	seedReposition(repo, "rep-1", models.StatusAprobado, models.AreaCorte)
	svc := NewTransferService(transfers, repo, timers, notifier, WithTransferClock(testClock))

	transfer, err := svc.Request(context.Background(), Actor{UserID: "u1", Area: models.AreaCorte}, "rep-1",
		dto.RequestTransferRequest{ToArea: models.AreaBordado})
	require.NoError(t, err)

	_, err = svc.Process(context.Background(), Actor{UserID: "u3", Area: models.AreaPlancha}, transfer.ID,
		dto.ProcessTransferRequest{Action: models.TransferAccepted})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestTransferProcessRejectRequiresReason(t *testing.T) {
	repo, transfers, timers, notifier := newTransferFixture(5 * time.Minute)
	seedReposition(repo, "rep-1", models.StatusAprobado, models.AreaCorte)
	svc := NewTransferService(transfers, repo, timers, notifier, WithTransferClock(testClock))

	transfer, err := svc.Request(context.Background(), Actor{UserID: "u1", Area: models.AreaCorte}, "rep-1",
		dto.RequestTransferRequest{ToArea: models.AreaBordado})
	require.NoError(t, err)

	_, err = svc.Process(context.Background(), Actor{UserID: "u2", Area: models.AreaBordado}, transfer.ID,
		dto.ProcessTransferRequest{Action: models.TransferRejected, Reason: "no"})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	processed, err := svc.Process(context.Background(), Actor{UserID: "u2", Area: models.AreaBordado}, transfer.ID,
		dto.ProcessTransferRequest{Action: models.TransferRejected, Reason: "queue is full"})
	require.NoError(t, err)
	require.Equal(t, models.TransferRejected, processed.Status)

	rep, err := repo.GetByID(context.Background(), "rep-1")
	require.NoError(t, err)
	require.Equal(t, models.AreaCorte, rep.CurrentArea)
}

func TestTransferProcessTwiceConflicts(t *testing.T) {
	repo, transfers, timers, notifier := newTransferFixture(5 * time.Minute)
	seedReposition(repo, "rep-1", models.StatusAprobado, models.AreaCorte)
	svc := NewTransferService(transfers, repo, timers, notifier, WithTransferClock(testClock))

	transfer, err := svc.Request(context.Background(), Actor{UserID: "u1", Area: models.AreaCorte}, "rep-1",
		dto.RequestTransferRequest{ToArea: models.AreaBordado})
	require.NoError(t, err)

	_, err = svc.Process(context.Background(), Actor{UserID: "u2", Area: models.AreaBordado}, transfer.ID,
		dto.ProcessTransferRequest{Action: models.TransferAccepted})
	require.NoError(t, err)

	_, err = svc.Process(context.Background(), Actor{UserID: "u2", Area: models.AreaBordado}, transfer.ID,
		dto.ProcessTransferRequest{Action: models.TransferAccepted})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}
