package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/Binweiwang/nestFunko/internal/cache"
	"github.com/Binweiwang/nestFunko/internal/config"
	"github.com/Binweiwang/nestFunko/internal/domain"
	healthcheck "github.com/Binweiwang/nestFunko/internal/health"
	"github.com/Binweiwang/nestFunko/internal/messaging/kafka"
	"github.com/Binweiwang/nestFunko/internal/service/order"
	"github.com/Binweiwang/nestFunko/internal/service/outbox"
	"github.com/Binweiwang/nestFunko/internal/service/reservation"
	"github.com/Binweiwang/nestFunko/internal/storage/memory"
	"github.com/Binweiwang/nestFunko/internal/storage/postgres"
	"github.com/Binweiwang/nestFunko/internal/version"
)

// Dependencies содержит все зависимости приложения.
type Dependencies struct {
	Catalog    domain.CatalogStore
	Categories domain.CategoryDirectory
	Orders     domain.OrderRepository
	Outbox     domain.OutboxRepository

	OrderService order.Service
	Worker       *outbox.Worker
	Health       *healthcheck.Handler
	Logger       *log.Entry

	store    *postgres.Store
	redis    *redis.Client
	producer *kafka.Producer
}

// Стартовые данные каталога для in-memory режима.
var (
	demoCategories = []domain.Category{
		{ID: "d69cf3db-b77d-4181-b3cd-5ca8107fb6a9", Name: "MARVEL"},
		{ID: "6dbcbf5e-8e1c-47cc-958d-30bd5c8e9f29", Name: "DC"},
		{ID: "9def16b3-bd81-46b9-8be7-7f5d34931cae", Name: "DISNEY"},
	}
	demoItems = []domain.Item{
		{ID: 1, Name: "Funko Iron Man", Quantity: 10, PriceMinor: 1999, CategoryID: "d69cf3db-b77d-4181-b3cd-5ca8107fb6a9", Active: true},
		{ID: 2, Name: "Funko Batman", Quantity: 10, PriceMinor: 1599, CategoryID: "6dbcbf5e-8e1c-47cc-958d-30bd5c8e9f29", Active: true},
		{ID: 3, Name: "Funko Mickey Mouse", Quantity: 5, PriceMinor: 1299, CategoryID: "9def16b3-bd81-46b9-8be7-7f5d34931cae", Active: true},
	}
)

// NewDependencies собирает граф зависимостей по конфигурации: хранилище
// (memory или postgres), опциональный Redis-кэш заказов и опциональный
// Kafka producer с outbox worker'ом.
func NewDependencies(ctx context.Context, cfg config.Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &Dependencies{
		Logger: logger,
		Health: healthcheck.NewHandler(version.String()),
	}

	if err := deps.initStorage(ctx, cfg, logger); err != nil {
		return nil, err
	}
	deps.initRedis(cfg, logger)
	deps.initKafka(cfg, logger)

	engine := reservation.NewEngine(deps.Catalog, logger.WithField("component", "reservation"))
	deps.OrderService = order.NewService(deps.Orders, engine, deps.Outbox, logger.WithField("component", "order-service"))

	if deps.producer != nil {
		publisher := kafka.NewOutboxPublisher(deps.producer, cfg.OrderTopic)
		dlq := kafka.NewOutboxPublisher(deps.producer, kafka.TopicDeadLetterQueue)
		deps.Worker = outbox.NewWorker(
			deps.Outbox,
			publisher,
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
			outbox.WithDLQPublisher(dlq),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
		)
	}

	return deps, nil
}

func (d *Dependencies) initStorage(ctx context.Context, cfg config.Config, logger *log.Entry) error {
	if cfg.Storage != config.StoragePostgres {
		catalog := memory.NewCatalogStore()
		categories := memory.NewCategoryDirectory()
		// In-memory режим используется для локальных запусков и демо, поэтому
		// каталог сразу наполняется стартовыми данными.
		categories.Seed(demoCategories...)
		catalog.Seed(demoItems...)
		verifySeedCategories(ctx, categories, demoItems, logger)

		d.Catalog = catalog
		d.Categories = categories
		d.Orders = memory.NewOrderRepository()
		d.Outbox = memory.NewOutboxRepository()
		logger.Info("using in-memory storage")
		return nil
	}

	if cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required for postgres storage")
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return fmt.Errorf("apply migrations: %w", err)
	}

	d.store = store
	d.Catalog = postgres.NewCatalogStore(store)
	d.Categories = postgres.NewCategoryDirectory(store)
	d.Orders = postgres.NewOrderRepository(store)
	d.Outbox = postgres.NewOutboxRepository(store)
	d.Health.RegisterChecker("postgres", healthcheck.NewSimpleChecker("postgres", func() error {
		return store.Ping(context.Background())
	}))
	logger.Info("using postgres storage")
	return nil
}

// verifySeedCategories сверяет ссылки стартовых товаров со справочником:
// товар с несуществующей категорией — ошибка данных, о ней надо знать сразу.
func verifySeedCategories(ctx context.Context, directory domain.CategoryDirectory, items []domain.Item, logger *log.Entry) {
	for _, item := range items {
		if item.CategoryID == "" {
			continue
		}
		if _, err := directory.GetCategory(ctx, item.CategoryID); err != nil {
			logger.WithError(err).WithFields(log.Fields{
				"item_id":     item.ID,
				"category_id": item.CategoryID,
			}).Warn("seed item references unknown category")
		}
	}
}

func (d *Dependencies) initRedis(cfg config.Config, logger *log.Entry) {
	if cfg.RedisAddr == "" {
		return
	}

	client := cache.NewRedisClient(cfg.RedisAddr)
	d.redis = client
	d.Orders = cache.NewOrderCache(d.Orders, client, logger.WithField("component", "order-cache"))
	d.Health.RegisterChecker("redis", healthcheck.NewSimpleChecker("redis", func() error {
		return client.Ping(context.Background()).Err()
	}))
	logger.WithField("addr", cfg.RedisAddr).Info("order cache enabled")
}

func (d *Dependencies) initKafka(cfg config.Config, logger *log.Entry) {
	if len(cfg.KafkaBrokers) == 0 {
		return
	}

	producer, err := kafka.NewProducer(cfg.KafkaBrokers)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, events stay in outbox")
		return
	}
	d.producer = producer
	logger.WithField("brokers", cfg.KafkaBrokers).Info("kafka producer initialized")
}

// Close освобождает внешние подключения в обратном порядке инициализации.
func (d *Dependencies) Close() {
	if d.producer != nil {
		if err := d.producer.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close kafka producer")
		}
	}
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close redis client")
		}
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close postgres store")
		}
	}
}
