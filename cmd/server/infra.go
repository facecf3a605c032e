package main

import (
	"context"
	"fmt"

	"go-gin-event-scheduler/config"
	"go-gin-event-scheduler/internal/cache"
	"go-gin-event-scheduler/internal/database"
	"go-gin-event-scheduler/internal/queue"
	"go-gin-event-scheduler/internal/storage"
	"go-gin-event-scheduler/internal/worker"
	"go-gin-event-scheduler/pkg/logger"

	"go.uber.org/zap"
)

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, func(), error) {
	log := logger.WithComponent("storage")
	switch cfg.Store.Driver {
	case "postgres":
		pool, err := database.InitDatabase(ctx, &cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		store := storage.NewPostgresStore(pool)
		if err := store.InitSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("init schema: %w", err)
		}
		log.Info("using postgres store", zap.String("host", cfg.Database.Host), zap.String("dbname", cfg.Database.DBName))
		return store, pool.Close, nil
	case "memory":
		log.Warn("using in-memory store, state is lost on exit")
		return storage.NewMemoryStore(), func() {}, nil
	default:
		log.Info("using file store", zap.String("path", cfg.Store.Path))
		return storage.NewFileStore(cfg.Store.Path), func() {}, nil
	}
}

// alertTransport is the queue alerts travel on plus, for redis, the shared claim ledger.
type alertTransport struct {
	queue  queue.AlertQueue
	ledger cache.AlertLedger
	close  func()
}

func (t alertTransport) scannerOptions() []worker.ScannerOption {
	if t.ledger == nil {
		return nil
	}
	return []worker.ScannerOption{worker.WithLedger(t.ledger)}
}

func openAlertTransport(ctx context.Context, cfg *config.Config) (alertTransport, error) {
	if cfg.Queue.Driver != "redis" {
		return alertTransport{queue: queue.NewMemoryAlertQueue(cfg.Queue.Buffer), close: func() {}}, nil
	}

	rdb, err := database.InitRedis(ctx, &cfg.Redis)
	if err != nil {
		return alertTransport{}, err
	}
	q, err := queue.NewRedisStreamAlertQueue(ctx, rdb, "", queue.RedisStreamConfig{StreamKey: cfg.Queue.Stream})
	if err != nil {
		rdb.Close()
		return alertTransport{}, err
	}
	logger.WithComponent("mq").Info("using redis stream alert queue", zap.String("stream", q.StreamKey()))
	return alertTransport{
		queue: q,
		// a claim outlives the window it was raised in
		ledger: cache.NewRedisAlertLedger(rdb, 2*cfg.Scanner.Window),
		close:  func() { _ = rdb.Close() },
	}, nil
}
