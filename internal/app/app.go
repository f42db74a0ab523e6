package app

import (
	"context"

	"order-portal/config"
	"order-portal/internal/broker"
	"order-portal/internal/cache"
	"order-portal/internal/redisclient"
	"order-portal/internal/remote"
	"order-portal/internal/service"
	"order-portal/internal/util"
	"order-portal/internal/worker"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Portal holds the wired services shared by the server and the CLI.
type Portal struct {
	Client     *remote.Client
	Store      *cache.Store
	Intervals  cache.Intervals
	Orders     *service.OrderService
	Reconciler *service.Reconciler
	Cancels    *service.CancellationService

	// Optional cross-instance components; nil when not configured.
	Redis    *redisclient.Client
	Producer *broker.Producer
	Worker   *worker.InvalidationWorker

	// Source identifies this process on the status event topic.
	Source string
	logger *zap.Logger
}

// New wires the portal from cfg. Redis and Kafka are used only when
// configured, and an unreachable Redis disables the cancel guard instead of
// failing startup.
func New(cfg *config.Config) *Portal {
	logger := util.GetLogger()

	p := &Portal{
		Source: util.ServiceName + "-" + uuid.NewString(),
		logger: logger,
	}

	p.Client = remote.NewClient(remote.Config{
		BaseURL:        cfg.API.BaseURL,
		Timeout:        cfg.API.Timeout,
		RateLimitRPS:   cfg.API.RateLimitRPS,
		RateLimitBurst: cfg.API.RateLimitBurst,
	})

	retry := cache.DefaultRetryPolicy(remote.IsRetryable)
	retry.Retries = cfg.API.RetryAttempts
	if cfg.Cache.RetryBaseDelay > 0 {
		retry.BaseDelay = cfg.Cache.RetryBaseDelay
	}
	if cfg.Cache.RetryMaxDelay > 0 {
		retry.MaxDelay = cfg.Cache.RetryMaxDelay
	}
	p.Store = cache.NewStore(cache.StoreConfig{
		Retry:   retry,
		Offline: remote.IsOffline,
	})

	p.Intervals = cache.DefaultIntervals()
	if cfg.Polling.Fast > 0 {
		p.Intervals.Fast = cfg.Polling.Fast
	}
	if cfg.Polling.Slow > 0 {
		p.Intervals.Slow = cfg.Polling.Slow
	}
	if cfg.Cache.DetailStale > 0 {
		p.Intervals.DetailStale = cfg.Cache.DetailStale
	}
	if cfg.Cache.ListStale > 0 {
		p.Intervals.ListStale = cfg.Cache.ListStale
	}

	if cfg.Redis.Addr != "" {
		rc, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn("Redis unavailable, cancel guard disabled", zap.Error(err))
		} else {
			p.Redis = rc
			logger.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))
		}
	}

	reconcilerCfg := service.ReconcilerConfig{
		Intervals: p.Intervals,
		Source:    p.Source,
	}
	if len(cfg.Kafka.Brokers) > 0 {
		p.Producer = broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicStatus)
		reconcilerCfg.Publisher = broker.NewStatusPublisher(p.Producer)

		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicStatus, cfg.Kafka.ConsumerGroup+"-"+p.Source)
		p.Worker = worker.NewInvalidationWorker(consumer, p.Store, p.Source)
		logger.Info("Kafka status events enabled", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	cancelCfg := service.CancellationConfig{
		SettleDelay: cfg.Cancellation.SettleDelay,
		LockTTL:     cfg.Cancellation.LockTTL,
	}
	if p.Redis != nil {
		cancelCfg.Guard = p.Redis
	}

	p.Orders = service.NewOrderService(p.Client, p.Store, p.Intervals)
	p.Reconciler = service.NewReconciler(p.Orders, p.Store, reconcilerCfg)
	p.Cancels = service.NewCancellationService(p.Client, p.Store, cancelCfg)

	return p
}

// StartWorkers runs the status event consumer until ctx is done.
func (p *Portal) StartWorkers(ctx context.Context) {
	if p.Worker == nil {
		return
	}
	go func() {
		if err := p.Worker.Start(ctx); err != nil {
			p.logger.Error("Invalidation worker stopped", zap.Error(err))
		}
	}()
}

// Close releases every connection the portal opened.
func (p *Portal) Close() {
	p.Cancels.Shutdown()

	if p.Worker != nil {
		if err := p.Worker.Stop(); err != nil {
			p.logger.Warn("Failed to stop invalidation worker", zap.Error(err))
		}
	}
	if p.Producer != nil {
		if err := p.Producer.Close(); err != nil {
			p.logger.Warn("Failed to close Kafka producer", zap.Error(err))
		}
	}
	if p.Redis != nil {
		if err := p.Redis.Close(); err != nil {
			p.logger.Warn("Failed to close Redis client", zap.Error(err))
		}
	}
}
