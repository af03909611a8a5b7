// Package kernel boots the storefront: it connects MongoDB, Redis, the
// storage disk and the queue driver, builds the repositories and services,
// and registers jobs, listeners and scheduled tasks.
package kernel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	appgraphql "github.com/usgears/storefront/app/graphql"
	"github.com/usgears/storefront/app/jobs"
	"github.com/usgears/storefront/app/listeners"
	"github.com/usgears/storefront/app/repositories"
	"github.com/usgears/storefront/app/routes"
	"github.com/usgears/storefront/app/services"
	"github.com/usgears/storefront/config"
	"github.com/usgears/storefront/pkg/cache"
	"github.com/usgears/storefront/pkg/database"
	"github.com/usgears/storefront/pkg/grpc"
	"github.com/usgears/storefront/pkg/logger"
	"github.com/usgears/storefront/pkg/middleware"
	"github.com/usgears/storefront/pkg/queue"
	"github.com/usgears/storefront/pkg/schedule"
	"github.com/usgears/storefront/pkg/storage"
	"github.com/usgears/storefront/pkg/workerpool"
	"github.com/usgears/storefront/pkg/ws"
)

const failedJobRetention = 30 * 24 * time.Hour

type Kernel struct {
	Services routes.Services
	Queue    *queue.Manager
	Hub      *ws.Hub
	Backup   *services.BackupService
	Failed   *queue.MongoFailedStore

	pool    *workerpool.Pool
	driver  queue.Driver
	logSink *logger.MongoHandler
}

// Boot connects every backing service and wires the application. Redis is
// optional: without it caching and rate limits stay in memory.
func Boot(ctx context.Context) (*Kernel, error) {
	if err := config.Load(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := database.Connect(ctx); err != nil {
		return nil, err
	}
	if err := database.EnsureIndexes(ctx); err != nil {
		logger.Warn("database: index setup failed", "error", err)
	}

	k := &Kernel{}
	if config.LogToMongo() {
		k.logSink = logger.NewMongoHandler(database.Collection(database.AppLogs), slog.LevelInfo)
		logger.Tee(k.logSink)
	}

	if err := cache.Connect(ctx); err != nil {
		logger.Warn("cache: redis unavailable, continuing without it", "error", err)
	}
	storage.Connect()

	driver, err := queueDriver(ctx)
	if err != nil {
		k.Close(ctx)
		return nil, err
	}
	k.driver = driver
	k.Failed = queue.NewMongoFailedStore(database.Collection(database.FailedJobs))
	k.Queue = queue.NewManager(driver)
	k.Queue.SetFailedStore(k.Failed)
	k.Queue.SetRetry(config.Int("QUEUE_TRIES", 3), 2*time.Second)

	db := database.DB
	products := repositories.NewProductRepository(db)
	orderRepo := repositories.NewOrderRepository(db)
	fileRepo := repositories.NewFileRepository(db)

	k.pool = workerpool.New(config.Int("WORKER_POOL_SIZE", 8))
	k.Hub = ws.NewHub(middleware.CORSOptionsFromConfig().AllowedOrigins)
	confirmations := jobs.Confirmations{Queue: k.Queue}

	files := services.NewFileService(fileRepo, storage.Default())
	catalog := services.NewCatalogService(products, files, k.pool)
	schema, err := appgraphql.CatalogSchema(catalog)
	if err != nil {
		k.Close(ctx)
		return nil, fmt.Errorf("graphql: %w", err)
	}

	k.Services = routes.Services{
		Catalog:   catalog,
		Cart:      services.NewCartService(products),
		Orders:    services.NewOrderService(orderRepo, products, confirmations, catalog),
		Contacts:  services.NewContactService(repositories.NewContactRepository(db)),
		Files:     files,
		Auth:      services.NewAuthService(repositories.NewUserRepository(db)),
		Dashboard: services.NewDashboardService(orderRepo, products),
		Feed:      k.Hub,
		Events:    k.Hub,
		Schema:    &schema,
	}
	k.Backup = services.NewBackupService(storage.Default(), config.BackupDir())

	jobs.Register(k.Queue, orderRepo)
	listeners.Register(listeners.Deps{Feed: k.Hub, Confirmations: confirmations})
	k.registerSchedule()
	return k, nil
}

func queueDriver(ctx context.Context) (queue.Driver, error) {
	switch config.QueueDriver() {
	case "redis":
		if !cache.Enabled() {
			return nil, errors.New("queue: QUEUE_DRIVER=redis needs REDIS_ADDR")
		}
		return queue.NewRedisDriver(ctx, cache.RDB), nil
	case "amqp":
		return queue.NewAMQPDriver(config.AMQPURL())
	default:
		return queue.NewMemoryDriver(), nil
	}
}

func (k *Kernel) registerSchedule() {
	schedule.Daily().At("02:30").Name("backup:uploads").WithoutOverlapping().Run(func(ctx context.Context) error {
		rep, err := k.Backup.Run(ctx)
		if err != nil {
			return err
		}
		logger.Info("backup: uploads copied", "dir", rep.Dir, "files", rep.Copied, "pruned", len(rep.Pruned))
		return nil
	})

	schedule.Hourly().Name("queue:prune-failed").Run(func(ctx context.Context) error {
		n, err := k.Failed.Prune(ctx, failedJobRetention)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Info("queue: pruned failed jobs", "count", n)
		}
		return nil
	})
}

// Start runs the in-process background work for `usgears serve`: the feed
// hub, queue workers, the scheduler and the gRPC health server. All of it
// stops with ctx.
func (k *Kernel) Start(ctx context.Context) error {
	go k.Hub.Run(ctx)
	k.Queue.StartWorkers(ctx, config.Int("QUEUE_WORKERS", 2))
	schedule.Start(ctx)

	srv, err := grpc.Start(ctx, config.GRPCPort(), database.Ping)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		srv.Stop()
	}()
	return nil
}

// Close releases everything Boot opened. Safe on a partially booted kernel.
func (k *Kernel) Close(ctx context.Context) {
	if k.pool != nil {
		k.pool.Shutdown()
	}
	if c, ok := k.driver.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logger.Warn("queue: driver close failed", "error", err)
		}
	}
	if k.logSink != nil {
		logger.Tee()
		k.logSink.Close()
	}
	_ = cache.Close()
	if err := database.Disconnect(ctx); err != nil {
		logger.Warn("database: disconnect failed", "error", err)
	}
}
