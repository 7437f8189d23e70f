package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/treerootboy/airflow-notification-plugin/internal/dispatch"
	"github.com/treerootboy/airflow-notification-plugin/internal/models"
)

// Consumer reads orchestrator lifecycle events from a Kafka topic and
// queues them on the dispatch service.
type Consumer struct {
	reader *kafka.Reader
	svc    *dispatch.Service
	logger *logrus.Logger
}

func NewConsumer(brokers []string, topic, groupID string, svc *dispatch.Service) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: reader, svc: svc, logger: svc.Logger()}
}

// Start consumes messages until the reader is closed. Malformed messages
// are logged and skipped; consumption continues.
func (c *Consumer) Start(wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.logger.Info("Kafka consumer started")
		for {
			msg, err := c.reader.ReadMessage(context.Background())
			if err != nil {
				if errors.Is(err, io.EOF) {
					c.logger.Info("Kafka consumer stopped")
					return
				}
				c.logger.WithError(err).Error("Read message failed")
				continue
			}

			ev, err := decodeEvent(msg.Value)
			if err != nil {
				c.logger.WithError(err).Error("Invalid event message, skipping")
				continue
			}

			c.svc.QueueEvent(ev)
		}
	}()
}

// Close shuts the reader down, unblocking Start.
func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.WithError(err).Error("Failed to close kafka reader")
	}
}

// decodeEvent parses one message payload into an Event and validates the
// event type. A missing dag_id is NOT rejected here: the dispatcher owns
// that warning.
func decodeEvent(data []byte) (models.Event, error) {
	var ev models.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return models.Event{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if !ev.Type.Valid() {
		return models.Event{}, fmt.Errorf("unknown event type %q", ev.Type)
	}
	return ev, nil
}
