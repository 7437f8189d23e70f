// Package dispatch routes inbound lifecycle events to subscribed
// recipients. Delivery is best effort and at most once: nothing in flight
// survives a restart, and a failure for one subscription or device never
// blocks the others.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/treerootboy/airflow-notification-plugin/internal/config"
	"github.com/treerootboy/airflow-notification-plugin/internal/db"
	"github.com/treerootboy/airflow-notification-plugin/internal/handlers"
	"github.com/treerootboy/airflow-notification-plugin/internal/models"
	"github.com/treerootboy/airflow-notification-plugin/internal/template"
)

// Store is the read-only storage surface the dispatcher needs.
type Store interface {
	GetSubscriptions(ctx context.Context, dagID string, event models.EventType) ([]models.Subscription, error)
	GetTemplate(ctx context.Context, event models.EventType, kind models.ChannelKind) (models.Template, error)
	GetDevices(ctx context.Context, userID string, platform models.PlatformKind) ([]models.Device, error)
}

// Feed mirrors rendered notifications to live listeners. Best effort;
// failures never affect dispatch.
type Feed interface {
	SendToUser(userID string, message []byte)
}

// Service consumes queued events through a worker pool and dispatches
// each one.
type Service struct {
	store    Store
	logger   *logrus.Logger
	config   config.Config
	registry *handlers.Registry
	feed     Feed
	events   chan models.Event
	ctx      context.Context
	cancel   context.CancelFunc
	wg       *sync.WaitGroup
}

// New constructs a dispatch Service.
func New(store Store, logger *logrus.Logger, cfg config.Config, registry *handlers.Registry, feed Feed) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		store:    store,
		logger:   logger,
		config:   cfg,
		registry: registry,
		feed:     feed,
		events:   make(chan models.Event, cfg.Notification.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Logger exposes the Service's logger to the event consumer.
func (s *Service) Logger() *logrus.Logger {
	return s.logger
}

// Start launches the worker pool.
func (s *Service) Start(wg *sync.WaitGroup) {
	s.wg = wg
	for i := 0; i < s.config.Notification.MaxWorkers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

// Stop cancels the workers. In-flight sends run to completion or time out
// on their own.
func (s *Service) Stop() {
	s.cancel()
}

// QueueEvent enqueues an event for dispatch, dropping it when the queue
// is full.
func (s *Service) QueueEvent(ev models.Event) {
	select {
	case s.events <- ev:
		s.logger.WithFields(logrus.Fields{
			"dag_id":     ev.DagID,
			"event_type": ev.Type,
		}).Debug("Queued event")
	default:
		s.logger.WithFields(logrus.Fields{
			"dag_id":     ev.DagID,
			"event_type": ev.Type,
		}).Error("Queue full, dropping event")
	}
}

// worker processes events until the context is cancelled.
func (s *Service) worker(id int) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			s.logger.Infof("Worker %d stopped", id)
			return
		case ev := <-s.events:
			s.Dispatch(s.ctx, ev)
		}
	}
}

// Dispatch processes one event end to end: resolve subscriptions, render
// and deliver per subscription. Subscriptions are handled concurrently
// under a bounded pool; order across them is unspecified.
func (s *Service) Dispatch(ctx context.Context, ev models.Event) {
	reqID := uuid.New().String()
	log := s.logger.WithFields(logrus.Fields{
		"request_id": reqID,
		"dag_id":     ev.DagID,
		"event_type": ev.Type,
	})

	if ev.DagID == "" {
		log.Warn("Event has no dag_id, skipping dispatch")
		return
	}

	subs, err := s.store.GetSubscriptions(ctx, ev.DagID, ev.Type)
	if err != nil {
		log.WithError(err).Error("Failed to resolve subscriptions")
		return
	}
	if len(subs) == 0 {
		log.Debug("No active subscriptions")
		return
	}
	log.Infof("Found %d subscriptions", len(subs))

	sem := make(chan struct{}, s.config.Notification.DispatchConcurrency)
	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		sem <- struct{}{}
		go func(sub models.Subscription) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					log.WithField("subscription_id", sub.ID).Errorf("Panic processing subscription: %v", r)
				}
			}()
			s.processSubscription(ctx, log, sub, ev)
		}(sub)
	}
	wg.Wait()
}

// processSubscription handles one subscription's delivery. Every failure
// is logged and ends this subscription only.
func (s *Service) processSubscription(ctx context.Context, log *logrus.Entry, sub models.Subscription, ev models.Event) {
	log = log.WithFields(logrus.Fields{
		"subscription_id": sub.ID,
		"user_id":         sub.UserID,
	})

	ch := sub.Channel
	if ch == nil || !ch.Active {
		log.WithField("channel_id", sub.ChannelID).Warn("Channel inactive or missing, skipping subscription")
		return
	}
	log = log.WithFields(logrus.Fields{
		"channel_id":   ch.ID,
		"channel_kind": ch.Kind,
	})

	tmpl, err := s.store.GetTemplate(ctx, ev.Type, ch.Kind)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			log.WithError(err).Error("Failed to resolve template, skipping subscription")
			return
		}
		tmpl = template.Default(ev.Type)
	}

	message, err := template.Render(tmpl.Body, ev.Context())
	if err != nil {
		log.WithError(err).WithField("template", tmpl.Name).Error("Failed to render message, notification dropped")
		return
	}

	var chConfig map[string]any
	if err := json.Unmarshal([]byte(ch.Config), &chConfig); err != nil {
		log.WithError(err).Error("Invalid channel config, skipping subscription")
		return
	}

	handler, err := s.registry.For(ch.Kind)
	if err != nil {
		log.WithError(err).Error("No handler for channel kind, skipping subscription")
		return
	}

	params := handlers.Params{
		UserID: sub.UserID,
		DagID:  ev.DagID,
		TaskID: ev.TaskID,
	}

	if platform, push := ch.Kind.PushPlatform(); push {
		s.sendToDevices(ctx, log, handler, chConfig, message, params, sub.UserID, platform)
	} else {
		s.logSendResult(log, handler.Send(ctx, chConfig, message, params))
	}

	// Mirror to any open live-feed sessions of the owner.
	if s.feed != nil {
		s.feed.SendToUser(sub.UserID, []byte(message))
	}
}

// sendToDevices fans a push notification out to every active device of
// the owner on the channel's platform. Each device send is independent.
func (s *Service) sendToDevices(ctx context.Context, log *logrus.Entry, handler handlers.Handler, chConfig map[string]any, message string, params handlers.Params, userID string, platform models.PlatformKind) {
	devices, err := s.store.GetDevices(ctx, userID, platform)
	if err != nil {
		log.WithError(err).Error("Failed to resolve devices, skipping subscription")
		return
	}
	if len(devices) == 0 {
		log.WithField("platform", platform).Debug("No active devices, nothing sent")
		return
	}

	for _, dev := range devices {
		params.DeviceToken = dev.Token
		s.logSendResult(log.WithField("device_id", dev.ID), handler.Send(ctx, chConfig, message, params))
	}
}

// logSendResult records one send outcome, keeping configuration problems
// distinct from transient delivery failures.
func (s *Service) logSendResult(log *logrus.Entry, err error) {
	switch {
	case err == nil:
		log.Info("Notification sent")
	case errors.Is(err, handlers.ErrNotImplemented):
		log.WithError(err).Warn("Channel handler not implemented, notification skipped")
	case errors.Is(err, handlers.ErrMissingConfig):
		log.WithError(err).Error("Channel configuration incomplete, notification dropped")
	default:
		log.WithError(err).Error("Failed to send notification")
	}
}
