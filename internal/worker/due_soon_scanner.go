package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go-gin-event-scheduler/internal/cache"
	"go-gin-event-scheduler/internal/clock"
	"go-gin-event-scheduler/internal/model"
	"go-gin-event-scheduler/internal/queue"
	"go-gin-event-scheduler/internal/repository"
	"go-gin-event-scheduler/pkg/logger"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

var ErrScannerRunning = errors.New("scanner already running")

type DueSoonScanner interface {
	// Start 排程週期掃描，第一次掃描立即執行
	Start(ctx context.Context) error
	Stop() error
	// ScanOnce 執行一次掃描，回傳發出的提醒數
	ScanOnce(ctx context.Context) int
}

type DueSoonScannerImpl struct {
	repo     repository.EventRepository
	queue    queue.AlertQueue
	clock    clock.Clock
	interval time.Duration
	window   time.Duration
	ledger   cache.AlertLedger

	mu        sync.Mutex
	scheduler gocron.Scheduler
}

type ScannerOption func(*DueSoonScannerImpl)

// WithLedger makes the scanner claim each alert in a shared ledger before publishing it.
func WithLedger(ledger cache.AlertLedger) ScannerOption {
	return func(s *DueSoonScannerImpl) { s.ledger = ledger }
}

func NewDueSoonScanner(repo repository.EventRepository, q queue.AlertQueue, clk clock.Clock, interval, window time.Duration, opts ...ScannerOption) DueSoonScanner {
	s := &DueSoonScannerImpl{
		repo:     repo,
		queue:    q,
		clock:    clk,
		interval: interval,
		window:   window,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *DueSoonScannerImpl) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scheduler != nil {
		return ErrScannerRunning
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() { s.ScanOnce(ctx) }),
		gocron.WithName("due-soon-scan"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return err
	}

	scheduler.Start()
	s.scheduler = scheduler
	logger.WithComponent("scanner").Info("due-soon scanner started",
		zap.Duration("interval", s.interval), zap.Duration("window", s.window))
	return nil
}

func (s *DueSoonScannerImpl) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scheduler == nil {
		return nil
	}
	err := s.scheduler.Shutdown()
	s.scheduler = nil
	logger.WithComponent("scanner").Info("due-soon scanner stopped")
	return err
}

func (s *DueSoonScannerImpl) ScanOnce(ctx context.Context) int {
	log := logger.WithComponent("scanner")
	now := model.NewTimestamp(s.clock.Now())

	due, err := s.repo.DueSoon(ctx, now, s.window)
	if err != nil {
		log.Error("due-soon query failed", zap.Error(err))
		return 0
	}

	published := 0
	handled := make([]model.AlertedMark, 0, len(due))
	for _, e := range due {
		if e.StartTime.IsZero() {
			log.Warn("skip event without start time", zap.Int("event_id", e.ID))
			continue
		}
		if s.ledger != nil {
			claimed, err := s.ledger.Claim(ctx, e.ID, e.StartTime)
			if err != nil {
				log.Error("claim alert failed", zap.Int("event_id", e.ID), zap.Error(err))
				continue
			}
			if !claimed {
				log.Debug("alert already raised elsewhere", zap.Int("event_id", e.ID))
				handled = append(handled, e.AlertedMark())
				continue
			}
		}
		if err := s.queue.PublishAlert(ctx, model.NewAlert(e, now)); err != nil {
			// not marked, so the next tick tries again
			log.Error("publish alert failed", zap.Int("event_id", e.ID), zap.Error(err))
			if s.ledger != nil {
				if err := s.ledger.Release(ctx, e.ID, e.StartTime); err != nil {
					log.Warn("release alert claim failed", zap.Int("event_id", e.ID), zap.Error(err))
				}
			}
			continue
		}
		published++
		handled = append(handled, e.AlertedMark())
	}
	if len(handled) == 0 {
		return 0
	}

	// marks carry the start time read above, so an event rescheduled meanwhile stays due
	if _, err := s.repo.MarkAlerted(ctx, handled); err != nil {
		log.Error("mark alerted failed", zap.Int("marks", len(handled)), zap.Error(err))
	}
	log.Debug("scan complete", zap.Int("alerts", published), zap.String("now", now.String()))
	return published
}
