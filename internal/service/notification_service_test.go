package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jn-uniformes/taller-api/internal/models"
	"github.com/jn-uniformes/taller-api/pkg/jobs"
)

type notificationRepoStub struct {
	mu            sync.Mutex
	notifications []*models.Notification
	marked        []string
	markedAll     []string
}

func (s *notificationRepoStub) Create(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, n)
	return nil
}

func (s *notificationRepoStub) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]models.Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		result = append(result, *n)
	}
	return result, nil
}

func (s *notificationRepoStub) CountUnread(ctx context.Context, userID string) (int, error) {
	list, _ := s.ListByUser(ctx, userID, true, 0)
	return len(list), nil
}

func (s *notificationRepoStub) MarkRead(ctx context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, id)
	return nil
}

func (s *notificationRepoStub) MarkAllRead(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markedAll = append(s.markedAll, userID)
	return nil
}

func (s *notificationRepoStub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notifications)
}

func TestNotificationDeliverPersistsPerUser(t *testing.T) {
	repo := &notificationRepoStub{}
	svc := NewNotificationService(repo, newUserStoreStub(), nil, nil, jobs.QueueConfig{})

	err := svc.deliver(context.Background(), jobs.Task{
		ID:   "task-1",
		Kind: models.NotificationRepositionCreated,
		Payload: NotificationPayload{
			UserIDs:      []string{"u1", "u2"},
			Type:         models.NotificationRepositionCreated,
			Title:        "Nueva solicitud",
			RepositionID: "rep-1",
		},
	})
	require.NoError(t, err)
	require.Equal(t, 2, repo.count())
	require.NotNil(t, repo.notifications[0].RepositionID)
	require.Equal(t, "rep-1", *repo.notifications[0].RepositionID)
}

func TestNotifyAreasFansOutToActiveUsersExcludingActor(t *testing.T) {
	repo := &notificationRepoStub{}
	inactive := &models.User{ID: "u3", Email: "x@jn.mx", Area: models.AreaAdmin}
	users := newUserStoreStub(
		&models.User{ID: "u1", Email: "a@jn.mx", Area: models.AreaAdmin, Active: true},
		&models.User{ID: "u2", Email: "b@jn.mx", Area: models.AreaAdmin, Active: true},
		inactive,
	)
	svc := NewNotificationService(repo, users, nil, nil, jobs.QueueConfig{Workers: 1})

	ctx := context.Background()
	svc.Start(ctx)
	defer svc.Stop()

	svc.NotifyAreas(ctx, []models.Area{models.AreaAdmin}, "u2", NotificationPayload{
		Type:  models.NotificationRepositionCreated,
		Title: "Nueva solicitud",
	})

	require.Eventually(t, func() bool {
		return repo.count() == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, "u1", repo.notifications[0].UserID)
}

func TestNotificationUnreadCountFallsBackToStore(t *testing.T) {
	repo := &notificationRepoStub{}
	repo.notifications = append(repo.notifications, &models.Notification{ID: "n1", UserID: "u1"})
	svc := NewNotificationService(repo, newUserStoreStub(), nil, nil, jobs.QueueConfig{})

	count, err := svc.UnreadCount(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestNotificationMarkAllRead(t *testing.T) {
	repo := &notificationRepoStub{}
	svc := NewNotificationService(repo, newUserStoreStub(), nil, nil, jobs.QueueConfig{})

	require.NoError(t, svc.MarkAllRead(context.Background(), "u1"))
	require.Equal(t, []string{"u1"}, repo.markedAll)
}
