package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"fitTrackAPI/internal/metrics"
	"fitTrackAPI/internal/notification"
)

// Notifier accepts notifications for best-effort delivery. Callers never
// observe the outcome.
type Notifier interface {
	Notify(req *notification.CreateNotificationRequest)
}

type PushNotificationProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]string) error
}

// NotificationSink persists in-app notifications.
type NotificationSink interface {
	SaveNotification(ctx context.Context, n *notification.Notification) error
	DeviceTokens(ctx context.Context, userID uuid.UUID) ([]notification.DeviceToken, error)
}

// NotificationDispatcher persists and pushes notifications from a bounded
// queue drained by a fixed worker pool.
type NotificationDispatcher struct {
	sink         NotificationSink
	pushProvider PushNotificationProvider
	workers      int
	jobQueue     chan *notification.Notification
	wg           sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

func NewNotificationDispatcher(sink NotificationSink, workers, queueSize int) *NotificationDispatcher {
	d := &NotificationDispatcher{
		sink:     sink,
		workers:  workers,
		jobQueue: make(chan *notification.Notification, queueSize),
	}
	d.startWorkers()
	return d
}

// SetPushProvider enables push delivery in addition to in-app storage.
func (d *NotificationDispatcher) SetPushProvider(provider PushNotificationProvider) {
	d.pushProvider = provider
}

func (d *NotificationDispatcher) startWorkers() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

func (d *NotificationDispatcher) worker() {
	defer d.wg.Done()
	for notif := range d.jobQueue {
		d.processJob(notif)
	}
}

func (d *NotificationDispatcher) processJob(notif *notification.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := d.sink.SaveNotification(ctx, notif); err != nil {
		log.Printf("Notification %s for user %s could not be stored: %v", notif.ID, notif.Recipient, err)
		metrics.NotificationsDispatched.WithLabelValues("failed").Inc()
		return
	}
	metrics.NotificationsDispatched.WithLabelValues("stored").Inc()

	if d.pushProvider == nil {
		return
	}

	tokens, err := d.sink.DeviceTokens(ctx, notif.Recipient)
	if err != nil {
		log.Printf("Push skipped for user %s: %v", notif.Recipient, err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	data := map[string]string{
		"notification_id": notif.ID.String(),
		"type":            string(notif.Type),
	}
	if notif.ChallengeID != nil {
		data["challenge_id"] = notif.ChallengeID.String()
	}

	if err := d.pushProvider.SendPush(ctx, tokens, notif.Title, notif.Message, data); err != nil {
		log.Printf("Push failed for user %s: %v", notif.Recipient, err)
		metrics.NotificationsDispatched.WithLabelValues("push_failed").Inc()
		return
	}
	metrics.NotificationsDispatched.WithLabelValues("pushed").Inc()
}

// Notify queues req without blocking. A full queue drops the notification.
func (d *NotificationDispatcher) Notify(req *notification.CreateNotificationRequest) {
	if req == nil {
		return
	}
	notif := &notification.Notification{
		ID:          uuid.New(),
		Recipient:   req.Recipient,
		Sender:      req.Sender,
		Type:        req.Type,
		Title:       req.Title,
		Message:     req.Message,
		ChallengeID: req.ChallengeID,
		CreatedAt:   time.Now().UTC(),
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		log.Printf("Notification %s dropped: dispatcher stopped", notif.ID)
		metrics.NotificationsDispatched.WithLabelValues("dropped").Inc()
		return
	}

	select {
	case d.jobQueue <- notif:
	default:
		log.Printf("Notification %s dropped: queue full", notif.ID)
		metrics.NotificationsDispatched.WithLabelValues("dropped").Inc()
	}
}

// Stop rejects new notifications and waits for queued ones to finish.
func (d *NotificationDispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.jobQueue)
	d.mu.Unlock()

	log.Println("Stopping notification dispatcher...")
	d.wg.Wait()
	log.Println("Notification dispatcher stopped")
}

// LogPushProvider logs pushes instead of sending them. Used when FCM is not
// configured.
type LogPushProvider struct{}

func (LogPushProvider) SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]string) error {
	log.Printf("PUSH (log only): %d devices: %s - %s", len(tokens), title, body)
	return nil
}
