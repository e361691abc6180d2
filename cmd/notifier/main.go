package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"

	kafkabroker "bookly/internal/infra/broker/kafka"
	"bookly/internal/infra/broker/rabbitmq"
	"bookly/internal/infra/config"
	mongodb "bookly/internal/infra/db/mongo"
	"bookly/internal/infra/inbox"
	"bookly/internal/infra/notify"
	"bookly/internal/infra/obs"
)

const consumerName = "bookly-notifier"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger("dev", "info").Error("invalid configuration", "error", err)
		return 1
	}
	logger := obs.NewLogger(cfg.Env, cfg.LogLevel).With("service", consumerName)
	return serve(ctx, cfg, logger)
}

// serve consumes notifications until ctx ends and returns the process exit code.
func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	if cfg.NotifyTransport != config.TransportKafka && cfg.NotifyTransport != config.TransportRabbitMQ {
		logger.Error("notifier needs NOTIFY_TRANSPORT kafka or rabbitmq", "transport", cfg.NotifyTransport)
		return 1
	}

	var box inbox.Inbox = inbox.NewMemory()
	if cfg.MongoURI != "" {
		client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			logger.Error("mongo connect failed", "error", err)
			return 1
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Close(closeCtx)
		}()
		box = inbox.NewStore(client.DB, consumerName)
	}

	consumer := notify.Consumer{
		Inbox:   box,
		Deliver: notify.LogNotifier{Logger: logger},
		Logger:  logger,
	}
	topic := cfg.KafkaTopicPrefix + cfg.NotificationsTopic

	var err error
	switch cfg.NotifyTransport {
	case config.TransportKafka:
		group, initErr := kafkabroker.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, sarama.NewConfig(), kafkabroker.HandlerFunc(consumer.Handle), kafkabroker.WithLogger(logger))
		if initErr != nil {
			logger.Error("kafka consumer init failed", "error", initErr)
			return 1
		}
		defer group.Close()
		logger.Info("consuming notifications", "transport", cfg.NotifyTransport, "topic", topic)
		err = group.Run(ctx, []string{topic})
	case config.TransportRabbitMQ:
		queue, initErr := rabbitmq.NewConsumer(cfg.RabbitURL, cfg.RabbitExchange, cfg.RabbitQueue, []string{topic})
		if initErr != nil {
			logger.Error("rabbitmq consumer init failed", "error", initErr)
			return 1
		}
		defer queue.Close()
		logger.Info("consuming notifications", "transport", cfg.NotifyTransport, "queue", cfg.RabbitQueue)
		err = queue.Run(ctx, consumer.Handle)
	}
	if stoppedWithError(logger, err) {
		return 1
	}
	logger.Info("notifier stopped")
	return 0
}

func stoppedWithError(logger *slog.Logger, err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	logger.Error("consumer stopped", "error", err)
	return true
}
