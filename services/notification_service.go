package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"fitTrackAPI/internal/apperr"
	"fitTrackAPI/internal/notification"
)

const (
	DefaultNotificationPageSize = 20
	MaxNotificationPageSize     = 100
)

// NotificationService is the Postgres side of notifications. It is also the
// sink the dispatcher writes into.
type NotificationService struct {
	db *pgxpool.Pool
}

func NewNotificationService(db *pgxpool.Pool) *NotificationService {
	return &NotificationService{db: db}
}

func (s *NotificationService) SaveNotification(ctx context.Context, n *notification.Notification) error {
	query := `
	INSERT INTO notifications (id, recipient, sender, type, title, message, challenge_id, is_read, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8)
	`
	_, err := s.db.Exec(ctx, query, n.ID, n.Recipient, n.Sender, n.Type, n.Title, n.Message, n.ChallengeID, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func (s *NotificationService) GetNotifications(ctx context.Context, userID uuid.UUID, page, pageSize int, unreadOnly bool) (*notification.NotificationListResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > MaxNotificationPageSize {
		pageSize = DefaultNotificationPageSize
	}
	offset := (page - 1) * pageSize

	whereClause := "WHERE recipient = $1"
	if unreadOnly {
		whereClause += " AND is_read = FALSE"
	}

	query := fmt.Sprintf(`
	SELECT id, recipient, sender, type, title, message, challenge_id, is_read, read_at, created_at
	FROM notifications
	%s
	ORDER BY created_at DESC
	LIMIT $2 OFFSET $3
	`, whereClause)

	rows, err := s.db.Query(ctx, query, userID, pageSize, offset)
	if err != nil {
		return nil, apperr.Internal("failed to get notifications", err)
	}
	defer rows.Close()

	notifications := []*notification.Notification{}
	for rows.Next() {
		n := &notification.Notification{}
		err := rows.Scan(&n.ID, &n.Recipient, &n.Sender, &n.Type, &n.Title, &n.Message,
			&n.ChallengeID, &n.IsRead, &n.ReadAt, &n.CreatedAt)
		if err != nil {
			return nil, apperr.Internal("failed to scan notification", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("failed to get notifications", err)
	}

	var unreadCount, totalCount int
	err = s.db.QueryRow(ctx, `
	SELECT COUNT(*) FILTER (WHERE is_read = FALSE), COUNT(*)
	FROM notifications
	WHERE recipient = $1
	`, userID).Scan(&unreadCount, &totalCount)
	if err != nil {
		return nil, apperr.Internal("failed to count notifications", err)
	}

	return &notification.NotificationListResponse{
		Notifications: notifications,
		UnreadCount:   unreadCount,
		TotalCount:    totalCount,
		Page:          page,
		PageSize:      pageSize,
	}, nil
}

func (s *NotificationService) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var unreadCount int
	query := "SELECT COUNT(*) FROM notifications WHERE recipient = $1 AND is_read = FALSE"
	if err := s.db.QueryRow(ctx, query, userID).Scan(&unreadCount); err != nil {
		return 0, apperr.Internal("failed to get unread count", err)
	}
	return unreadCount, nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID, userID uuid.UUID) error {
	query := `
	UPDATE notifications
	SET is_read = TRUE, read_at = COALESCE(read_at, NOW())
	WHERE id = $1 AND recipient = $2
	`
	tag, err := s.db.Exec(ctx, query, notificationID, userID)
	if err != nil {
		return apperr.Internal("failed to mark notification as read", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Notification not found")
	}
	return nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `
	UPDATE notifications
	SET is_read = TRUE, read_at = NOW()
	WHERE recipient = $1 AND is_read = FALSE
	`
	tag, err := s.db.Exec(ctx, query, userID)
	if err != nil {
		return 0, apperr.Internal("failed to mark notifications as read", err)
	}
	return tag.RowsAffected(), nil
}

func (s *NotificationService) DeleteNotification(ctx context.Context, notificationID, userID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM notifications WHERE id = $1 AND recipient = $2`, notificationID, userID)
	if err != nil {
		return apperr.Internal("failed to delete notification", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Notification not found")
	}
	return nil
}

func (s *NotificationService) RegisterDevice(ctx context.Context, userID uuid.UUID, req *notification.RegisterDeviceRequest) error {
	query := `
	INSERT INTO device_tokens (user_id, token, platform, added_at, last_used)
	VALUES ($1, $2, $3, NOW(), NOW())
	ON CONFLICT (user_id, token) DO UPDATE
	SET platform = EXCLUDED.platform, last_used = NOW()
	`
	if _, err := s.db.Exec(ctx, query, userID, req.Token, req.Platform); err != nil {
		return apperr.Internal("failed to register device", err)
	}
	log.Printf("Notifications: registered %s device for user %s", req.Platform, userID)
	return nil
}

func (s *NotificationService) DeviceTokens(ctx context.Context, userID uuid.UUID) ([]notification.DeviceToken, error) {
	rows, err := s.db.Query(ctx, `
	SELECT token, platform, added_at, last_used
	FROM device_tokens
	WHERE user_id = $1
	ORDER BY last_used DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get device tokens: %w", err)
	}
	defer rows.Close()

	tokens := []notification.DeviceToken{}
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.Token, &t.Platform, &t.AddedAt, &t.LastUsed); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// DeleteReadBefore removes read notifications created before cutoff.
func (s *NotificationService) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM notifications WHERE is_read = TRUE AND created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}
