package notification

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"longmail-backend/internal/logger"
	"longmail-backend/internal/model"
	"longmail-backend/internal/store"
)

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

// Job tells a parcel owner their parcel has left on a train.
type Job struct {
	UserID   string
	ParcelID string
	TrainID  string
	Line     string
}

// Message is the push payload for the job.
func (j Job) Message() string {
	if j.Line != "" {
		return fmt.Sprintf("Parcel %s has shipped on train %s via line %s", j.ParcelID, j.TrainID, j.Line)
	}
	return fmt.Sprintf("Parcel %s has shipped on train %s", j.ParcelID, j.TrainID)
}

// ShipmentJobs builds one job per parcel of a sent train.
func ShipmentJobs(train *model.Train, parcels []model.Parcel) []Job {
	line := ""
	if train.AssignedLine != nil {
		line = *train.AssignedLine
	}
	jobs := make([]Job, 0, len(parcels))
	for _, p := range parcels {
		jobs = append(jobs, Job{UserID: p.OwnerID, ParcelID: p.ID, TrainID: train.ID, Line: line})
	}
	return jobs
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan Job
	subs    store.SubscriptionStore
	webpush *webpush.Options
	sender  NotificationSender
}

// NewWorkerPool creates a new worker pool with room for queue pending jobs.
func NewWorkerPool(size, queue int, subs store.SubscriptionStore, webpushOptions *webpush.Options) *WorkerPool {
	if size < 1 {
		size = 1
	}
	if queue < size {
		queue = size
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Job, queue),
		subs:    subs,
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
	log := logger.Get().With(zap.Int("worker", id))
	log.Debug("notification worker started")
	for {
		select {
		case job := <-wp.jobs:
			wp.notify(ctx, job)
		case <-ctx.Done():
			log.Debug("notification worker shutting down")
			return
		}
	}
}

// Dispatch queues a job without blocking. It reports false when the queue is
// full and the job was dropped.
func (wp *WorkerPool) Dispatch(job Job) bool {
	select {
	case wp.jobs <- job:
		return true
	default:
		logger.Get().Warn("notification queue full, dropping job",
			zap.String("user_id", job.UserID), zap.String("parcel_id", job.ParcelID))
		return false
	}
}

// notify sends the job's message to every subscription of its user.
func (wp *WorkerPool) notify(ctx context.Context, job Job) {
	subs, err := wp.subs.ListSubscriptions(ctx, job.UserID)
	if err != nil {
		logger.Get().Error("failed to fetch subscriptions", zap.String("user_id", job.UserID), zap.Error(err))
		return
	}
	if len(subs) == 0 {
		return
	}

	payload := []byte(job.Message())
	for _, sub := range subs {
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
		logger.Get().Warn("failed to send notification", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	// The push service forgot this endpoint.
	if resp.StatusCode == http.StatusGone {
		logger.Get().Info("subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.subs.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			logger.Get().Error("failed to delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
}
