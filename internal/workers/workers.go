package workers

import (
	"context"
	"log"
	"time"
)

// NotificationRetention is how long read notifications are kept.
const NotificationRetention = 90 * 24 * time.Hour

type NotificationPruner interface {
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// StartNotificationCleanupWorker prunes old read notifications once at start
// and then every interval until ctx is done.
func StartNotificationCleanupWorker(ctx context.Context, pruner NotificationPruner, interval time.Duration) {
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		cleanupNotifications(ctx, pruner, time.Now())
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				cleanupNotifications(ctx, pruner, now)
			}
		}
	}()
}

func cleanupNotifications(ctx context.Context, pruner NotificationPruner, now time.Time) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	deleted, err := pruner.DeleteReadBefore(ctx, now.Add(-NotificationRetention))
	if err != nil {
		log.Printf("Error cleaning up notifications: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("Cleanup: removed %d read notifications", deleted)
	}
}
