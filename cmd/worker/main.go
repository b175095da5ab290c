package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jeremyjsx/quill/internal/config"
	"github.com/jeremyjsx/quill/internal/events"
	amqp "github.com/rabbitmq/amqp091-go"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	if cfg.RabbitMQURL == "" {
		logger.Error("RABBITMQ_URL is required")
		os.Exit(1)
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("failed to open channel", "error", err)
		os.Exit(1)
	}
	defer ch.Close()

	q, err := events.DeclareConsumerQueue(ch)
	if err != nil {
		logger.Error("failed to declare queue", "error", err)
		os.Exit(1)
	}

	deliveries, err := ch.Consume(q.Name, "quill-worker", false, false, false, false, nil)
	if err != nil {
		logger.Error("failed to start consuming", "error", err)
		os.Exit(1)
	}

	logger.Info("post event worker started", "queue", q.Name, "binding", events.BindingKey)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-quit:
			logger.Info("worker shutting down")
			return
		case d, ok := <-deliveries:
			if !ok {
				logger.Warn("delivery channel closed")
				return
			}
			handleDelivery(logger, d)
		}
	}
}

func handleDelivery(logger *slog.Logger, d amqp.Delivery) {
	e, err := events.Decode(d.Body)
	if err != nil {
		logger.Error("invalid event body", "error", err, "message_id", d.MessageId)
		_ = d.Nack(false, false)
		return
	}
	if !events.Known(e.Type) {
		logger.Debug("ignoring event type", "type", e.Type)
		_ = d.Ack(false)
		return
	}

	logger.Info("post event received",
		"event_id", e.ID,
		"type", e.Type,
		"post_id", e.Payload.PostID,
		"slug", e.Payload.Slug,
		"title", e.Payload.Title,
		"at", e.Timestamp,
	)

	if err := d.Ack(false); err != nil {
		logger.Error("failed to ack", "error", err)
	}
}
