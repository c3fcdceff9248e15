package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"visitor-system-backend/internal/logger"
	"visitor-system-backend/internal/model"
	"visitor-system-backend/internal/store"
)

// EventKind names an attendance transition.
type EventKind string

const (
	EventCheckIn  EventKind = "check_in"
	EventCheckOut EventKind = "check_out"
)

// Event is pushed to every subscribed admin.
type Event struct {
	Kind        EventKind
	NIK         string
	VisitorName string
	Institution string
	At          time.Time // local time
}

type payload struct {
	Title string    `json:"title"`
	Body  string    `json:"body"`
	Kind  EventKind `json:"kind"`
	NIK   string    `json:"nik"`
	At    time.Time `json:"at"`
}

// Payload renders the push message body.
func (e Event) Payload() ([]byte, error) {
	title := "Tamu masuk"
	verb := "check-in"
	if e.Kind == EventCheckOut {
		title = "Tamu keluar"
		verb = "check-out"
	}
	return json.Marshal(payload{
		Title: title,
		Body:  fmt.Sprintf("%s (%s) %s pukul %s", e.VisitorName, e.Institution, verb, e.At.Format("15:04")),
		Kind:  e.Kind,
		NIK:   e.NIK,
		At:    e.At,
	})
}

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan Event
	subs    store.SubscriptionStore
	webpush *webpush.Options
	sender  NotificationSender
	log     *zap.Logger
	wg      sync.WaitGroup
}

// NewWorkerPool creates a new worker pool. The queue holds queueSize events;
// further events are dropped until a worker frees a slot.
func NewWorkerPool(size, queueSize int, subs store.SubscriptionStore, webpushOptions *webpush.Options, log *zap.Logger) *WorkerPool {
	if queueSize < size {
		queueSize = size
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Event, queueSize),
		subs:    subs,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		log:     logger.OrNop(log).Named("notification"),
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// Wait blocks until every worker has returned after ctx is cancelled.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	wp.log.Debug("worker started", zap.Int("worker", id))
	for {
		select {
		case ev := <-wp.jobs:
			wp.sendEvent(ctx, ev)
		case <-ctx.Done():
			wp.log.Debug("worker shutting down", zap.Int("worker", id))
			return
		}
	}
}

// Notify queues an event without blocking. A full queue drops the event.
func (wp *WorkerPool) Notify(ev Event) {
	select {
	case wp.jobs <- ev:
	default:
		wp.log.Warn("notification queue full, event dropped",
			zap.String("kind", string(ev.Kind)),
			zap.String("nik", ev.NIK))
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Event {
	return wp.jobs
}

func (wp *WorkerPool) sendEvent(ctx context.Context, ev Event) {
	subscriptions, err := wp.subs.ListSubscriptions(ctx)
	if err != nil {
		wp.log.Error("failed to list subscriptions", zap.Error(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	body, err := ev.Payload()
	if err != nil {
		wp.log.Error("failed to encode notification", zap.Error(err))
		return
	}

	wp.log.Debug("sending notifications",
		zap.String("kind", string(ev.Kind)),
		zap.String("nik", ev.NIK),
		zap.Int("subscriptions", len(subscriptions)))
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, body)
	}
}

// sendNotification sends a single web push notification. Subscriptions the
// push service reports as gone are deleted.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.log.Warn("failed to send notification", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		wp.log.Info("subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.subs.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			wp.log.Error("failed to delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
}
