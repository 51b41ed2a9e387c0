package notification

import (
	"context"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"carpark-status-backend/internal/model"
)

// PushSender defines the interface for sending a web push notification.
type PushSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is the real implementation using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool fans push broadcasts out to all stored subscriptions.
type WorkerPool struct {
	size    int
	jobs    chan []byte
	db      *gorm.DB
	webpush *webpush.Options
	sender  PushSender
}

// NewWorkerPool creates a new worker pool over the subscription table.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan []byte, size),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("push worker %d started", id)
	for {
		select {
		case payload := <-wp.jobs:
			wp.broadcast(ctx, payload)
		case <-ctx.Done():
			log.Printf("push worker %d shutting down", id)
			return
		}
	}
}

// Broadcast queues a payload for delivery to every subscription.
func (wp *WorkerPool) Broadcast(payload []byte) {
	wp.jobs <- payload
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan []byte {
	return wp.jobs
}

func (wp *WorkerPool) broadcast(ctx context.Context, payload []byte) {
	var subscriptions []model.PushSubscription
	if err := wp.db.WithContext(ctx).Find(&subscriptions).Error; err != nil {
		log.Printf("push: failed to load subscriptions: %v", err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	log.Printf("push: broadcasting to %d subscriptions", len(subscriptions))
	for _, sub := range subscriptions {
		wp.send(ctx, sub, payload)
	}
}

func (wp *WorkerPool) send(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("push: error sending to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// 410 means the browser dropped the subscription; prune it.
	if resp.StatusCode == http.StatusGone {
		log.Printf("push: subscription %s expired, deleting", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("push: failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
