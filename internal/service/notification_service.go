package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jn-uniformes/taller-api/internal/models"
	appErrors "github.com/jn-uniformes/taller-api/pkg/errors"
	"github.com/jn-uniformes/taller-api/pkg/jobs"
)

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) error
}

type notificationUserStore interface {
	ListByAreas(ctx context.Context, areas ...models.Area) ([]models.User, error)
}

// NotificationPayload is one fan-out unit queued for delivery.
type NotificationPayload struct {
	UserIDs      []string
	Type         string
	Title        string
	Message      string
	RepositionID string
}

// NotificationService persists workflow notifications and fans them out
// through the background queue. Delivery is best effort: enqueue and
// persistence failures are logged, never surfaced to workflow callers.
type NotificationService struct {
	repo   notificationStore
	users  notificationUserStore
	queue  *jobs.Queue
	redis  *redis.Client
	logger *zap.Logger
}

// NewNotificationService constructs the service. Call Start before use and
// Stop on shutdown.
func NewNotificationService(repo notificationStore, users notificationUserStore, redisClient *redis.Client, logger *zap.Logger, queueCfg jobs.QueueConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{
		repo:   repo,
		users:  users,
		redis:  redisClient,
		logger: logger,
	}
	queueCfg.Logger = logger
	s.queue = jobs.NewQueue("notifications", s.deliver, queueCfg)
	return s
}

// Start launches the fan-out workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the fan-out workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Notify queues one notification for each listed user.
func (s *NotificationService) Notify(ctx context.Context, payload NotificationPayload) {
	if len(payload.UserIDs) == 0 {
		return
	}
	err := s.queue.Enqueue(jobs.Task{
		ID:      uuid.NewString(),
		Kind:    payload.Type,
		Payload: payload,
	})
	if err != nil {
		s.logger.Warn("failed to enqueue notification",
			zap.String("type", payload.Type), zap.Error(err))
	}
}

// NotifyAreas resolves the active users of the given areas and queues a
// notification for each, skipping the excluded user (usually the actor).
func (s *NotificationService) NotifyAreas(ctx context.Context, areas []models.Area, excludeUserID string, payload NotificationPayload) {
	users, err := s.users.ListByAreas(ctx, areas...)
	if err != nil {
		s.logger.Warn("failed to resolve notification targets", zap.Error(err))
		return
	}
	ids := make([]string, 0, len(users))
	for _, u := range users {
		if u.ID == excludeUserID {
			continue
		}
		ids = append(ids, u.ID)
	}
	payload.UserIDs = ids
	s.Notify(ctx, payload)
}

func (s *NotificationService) deliver(ctx context.Context, task jobs.Task) error {
	payload, ok := task.Payload.(NotificationPayload)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("task_id", task.ID))
		return nil
	}
	var repositionID *string
	if payload.RepositionID != "" {
		repositionID = &payload.RepositionID
	}
	for _, userID := range payload.UserIDs {
		n := &models.Notification{
			UserID:       userID,
			Type:         payload.Type,
			Title:        payload.Title,
			Message:      payload.Message,
			RepositionID: repositionID,
		}
		if err := s.repo.Create(ctx, n); err != nil {
			return err
		}
		s.invalidateUnreadCount(ctx, userID)
	}
	return nil
}

// List returns the caller's notifications.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	notifications, err := s.repo.ListByUser(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return notifications, nil
}

// UnreadCount returns the caller's unread total, served from Redis when warm.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, unreadCountKey(userID)).Int(); err == nil {
			return cached, nil
		}
	}
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count notifications")
	}
	if s.redis != nil {
		if err := s.redis.Set(ctx, unreadCountKey(userID), count, unreadCountTTL).Err(); err != nil {
			s.logger.Debug("failed to cache unread count", zap.Error(err))
		}
	}
	return count, nil
}

// MarkRead flips one notification owned by the caller.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification")
	}
	s.invalidateUnreadCount(ctx, userID)
	return nil
}

// MarkAllRead flips every unread notification owned by the caller.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	if err := s.repo.MarkAllRead(ctx, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notifications")
	}
	s.invalidateUnreadCount(ctx, userID)
	return nil
}

func (s *NotificationService) invalidateUnreadCount(ctx context.Context, userID string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, unreadCountKey(userID)).Err(); err != nil {
		s.logger.Debug("failed to invalidate unread count", zap.Error(err))
	}
}

func unreadCountKey(userID string) string {
	return fmt.Sprintf("notifications_unread:%s", userID)
}

const unreadCountTTL = time.Minute
