package services

import (
	"context"
	"encoding/json"
	"log"

	"lingo-backend/pkg/queue"

	amqp "github.com/rabbitmq/amqp091-go"
)

// EventConsumer dispatches inbound queue events from the sibling
// services: account creation seeds progress, curriculum deletions cascade
// into progress cleanup.
type EventConsumer struct {
	Queue    *queue.RabbitMQClient
	Progress *ProgressService
	Logger   *log.Logger
}

func NewEventConsumer(q *queue.RabbitMQClient, progress *ProgressService, logger *log.Logger) *EventConsumer {
	return &EventConsumer{Queue: q, Progress: progress, Logger: logger}
}

// Start begins consuming all inbound queues. Each queue gets its own
// goroutine; Start returns after the consumers are registered.
func (ec *EventConsumer) Start(ctx context.Context) error {
	handlers := map[string]func(context.Context, []byte) error{
		queue.QueueUserCreated:   ec.handleUserCreated,
		queue.QueueStageDeleted:  ec.handleStageDeleted,
		queue.QueueLessonDeleted: ec.handleLessonDeleted,
	}

	for queueName, handler := range handlers {
		deliveries, err := ec.Queue.Consume(queueName)
		if err != nil {
			return err
		}
		go ec.consume(ctx, queueName, deliveries, handler)
	}
	return nil
}

func (ec *EventConsumer) consume(ctx context.Context, queueName string, deliveries <-chan amqp.Delivery, handler func(context.Context, []byte) error) {
	for {
		select {
		case <-ctx.Done():
			return
		case delivery, ok := <-deliveries:
			if !ok {
				return
			}
			if err := handler(ctx, delivery.Body); err != nil {
				ec.Logger.Printf("failed to handle %s event: %v", queueName, err)
				delivery.Nack(false, false)
				continue
			}
			delivery.Ack(false)
		}
	}
}

func (ec *EventConsumer) handleUserCreated(ctx context.Context, body []byte) error {
	var event struct {
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		return err
	}
	return ec.Progress.InitStageProgress(ctx, event.UserID)
}

func (ec *EventConsumer) handleStageDeleted(ctx context.Context, body []byte) error {
	var event struct {
		StageID string `json:"stageId"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		return err
	}
	return ec.Progress.DeleteStageProgress(ctx, event.StageID)
}

func (ec *EventConsumer) handleLessonDeleted(ctx context.Context, body []byte) error {
	var event struct {
		LessonID string `json:"lessonId"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		return err
	}
	return ec.Progress.DeleteLessonProgress(ctx, event.LessonID)
}
