package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
	"gorm.io/gorm"

	"bookly/internal/app/locking"
	"bookly/internal/app/middleware"
	appoutbox "bookly/internal/app/outbox"
	"bookly/internal/app/policies"
	"bookly/internal/app/uow"
	domainnotification "bookly/internal/domain/notification"
	domainuser "bookly/internal/domain/user"
	kafkabroker "bookly/internal/infra/broker/kafka"
	"bookly/internal/infra/broker/rabbitmq"
	"bookly/internal/infra/config"
	mongodb "bookly/internal/infra/db/mongo"
	"bookly/internal/infra/db/postgres"
	redislock "bookly/internal/infra/lock/redis"
	"bookly/internal/infra/notify"
	infraoutbox "bookly/internal/infra/outbox"
	"bookly/internal/infra/storage/memory"
)

// infrastructure is the set of driver-specific adapters the application is built from.
type infrastructure struct {
	factory       uow.UoWFactory
	outbox        appoutbox.Outbox
	relay         infraoutbox.Store
	idempotency   middleware.IdempotencyStore
	locker        locking.Locker
	users         domainuser.Repository
	notifications domainnotification.Repository
	notifier      policies.Notifier
	producer      infraoutbox.Producer
	relayWorker   *infraoutbox.Worker
	ready         func(ctx context.Context) error
	closers       []func(ctx context.Context) error
}

func (in *infrastructure) Close(ctx context.Context) error {
	var errs []error
	for i := len(in.closers) - 1; i >= 0; i-- {
		if err := in.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func openInfrastructure(ctx context.Context, cfg config.Config, logger *slog.Logger) (*infrastructure, error) {
	in := &infrastructure{ready: func(context.Context) error { return nil }}
	var mongoClient *mongodb.Client
	var pgDB *gorm.DB

	switch cfg.StoreDriver {
	case config.DriverMemory:
		useMemoryStore(in, memory.NewStore(), cfg)
	case config.DriverMongo:
		client, err := openMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		mongoClient = client
		in.closers = append(in.closers, client.Close)
		box := infraoutbox.NewMongoStore(client.DB)
		in.factory = mongodb.NewFactory(client.DB)
		in.outbox = box
		in.relay = box
		in.idempotency = mongodb.NewIdempotencyStore(client.DB, cfg.IdempotencyTTL)
		in.users = mongodb.NewUserRepository(client.DB)
		in.notifications = mongodb.NewNotificationRepository(client.DB)
		in.ready = client.Ping
	case config.DriverPostgres:
		db, err := postgres.Open(cfg.PostgresDSN, cfg.LogLevel == "debug")
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		pgDB = db
		in.closers = append(in.closers, func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})
		box := postgres.NewOutboxStore(db)
		in.factory = postgres.Factory{DB: db}
		in.outbox = box
		in.relay = box
		in.idempotency = postgres.NewIdempotencyStore(db, cfg.IdempotencyTTL)
		in.users = postgres.NewUserRepository(db)
		in.notifications = postgres.NewNotificationRepository(db)
		in.ready = func(ctx context.Context) error { return postgres.Ping(ctx, db) }
	}

	for _, w := range cfg.Warnings() {
		logger.Warn("unsafe configuration", "detail", w)
	}
	switch cfg.LockDriver {
	case config.DriverMemory:
		in.locker = memory.NewLocker()
	case config.DriverRedis:
		rdb := redislock.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		in.closers = append(in.closers, func(context.Context) error { return rdb.Close() })
		in.locker = redislock.NewLocker(rdb, cfg.LockTTL)
	case config.DriverMongo:
		if mongoClient == nil {
			client, err := openMongo(ctx, cfg)
			if err != nil {
				_ = in.Close(ctx)
				return nil, err
			}
			mongoClient = client
			in.closers = append(in.closers, client.Close)
		}
		in.locker = mongodb.NewLocker(mongoClient.DB, cfg.LockTTL)
	case config.DriverPostgres:
		in.locker = postgres.NewLocker(pgDB)
	}

	store := notify.StoreNotifier{Repo: in.notifications}
	switch cfg.NotifyTransport {
	case config.TransportKafka:
		producer, err := kafkabroker.NewProducer(cfg.KafkaBrokers, sarama.NewConfig())
		if err != nil {
			_ = in.Close(ctx)
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		in.closers = append(in.closers, func(context.Context) error { return producer.Close() })
		in.producer = producer
	case config.TransportRabbitMQ:
		publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			_ = in.Close(ctx)
			return nil, fmt.Errorf("rabbitmq publisher: %w", err)
		}
		in.closers = append(in.closers, func(context.Context) error { return publisher.Close() })
		in.producer = publisher
	}
	if in.producer != nil {
		in.notifier = notify.Fanout{store, notify.BrokerNotifier{
			Publisher: in.producer,
			Topic:     cfg.KafkaTopicPrefix + cfg.NotificationsTopic,
		}}
	} else {
		in.notifier = store
	}

	in.relayWorker = newRelayWorker(in, cfg, logger)

	logger.Info("infrastructure ready",
		"store", cfg.StoreDriver,
		"lock", cfg.LockDriver,
		"notify", cfg.NotifyTransport,
	)
	return in, nil
}

func useMemoryStore(in *infrastructure, store *memory.Store, cfg config.Config) {
	box := memory.NewOutbox(store)
	in.factory = memory.Factory{Store: store}
	in.outbox = box
	in.relay = box
	in.idempotency = memory.NewIdempotencyStore(cfg.IdempotencyTTL)
	in.users = memory.NewUserRepository(store)
	in.notifications = memory.NewNotificationRepository()
}

// newRelayWorker drains the outbox into the configured broker, or only logs when there is none.
func newRelayWorker(in *infrastructure, cfg config.Config, logger *slog.Logger) *infraoutbox.Worker {
	var producer infraoutbox.Producer = infraoutbox.LogProducer{Logger: logger}
	if in.producer != nil {
		producer = in.producer
	}
	return &infraoutbox.Worker{
		Store:       in.relay,
		Producer:    producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
		Logger:      logger,
	}
}

func openMongo(ctx context.Context, cfg config.Config) (*mongodb.Client, error) {
	client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, fmt.Errorf("mongo: %w", err)
	}
	if err := client.EnsureIndexes(ctx); err != nil {
		_ = client.Close(ctx)
		return nil, fmt.Errorf("mongo indexes: %w", err)
	}
	return client, nil
}
