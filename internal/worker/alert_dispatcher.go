package worker

import (
	"context"
	"fmt"

	"go-gin-event-scheduler/internal/model"
	"go-gin-event-scheduler/internal/queue"
	"go-gin-event-scheduler/pkg/logger"

	"go.uber.org/zap"
)

// Notifier delivers one alert to whoever should see it.
type Notifier interface {
	Notify(ctx context.Context, alert *model.Alert) error
}

// LogNotifier writes the reminder as a structured log line.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, alert *model.Alert) error {
	logger.WithComponent("dispatcher").Info(
		fmt.Sprintf("REMINDER: '%s' starts in %d minutes", alert.Title, alert.MinutesUntil),
		zap.Int("event_id", alert.EventID),
		zap.String("title", alert.Title),
		zap.String("description", alert.Description),
		zap.String("start_time", alert.StartTime.String()),
		zap.Int("minutes_until", alert.MinutesUntil),
		zap.String("alert_id", alert.ID.String()),
	)
	return nil
}

type AlertDispatcher interface {
	// Start 訂閱提醒隊列並在背景投遞
	Start(ctx context.Context) error
	// Run 同 Start，但阻塞直到訂閱結束
	Run(ctx context.Context) error
}

type AlertDispatcherImpl struct {
	queue    queue.AlertQueue
	notifier Notifier
}

func NewAlertDispatcher(q queue.AlertQueue, notifier Notifier) AlertDispatcher {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &AlertDispatcherImpl{queue: q, notifier: notifier}
}

func (w *AlertDispatcherImpl) Start(ctx context.Context) error {
	msgs, err := w.queue.SubscribeAlerts(ctx)
	if err != nil {
		return err
	}
	go w.consume(ctx, msgs)
	return nil
}

func (w *AlertDispatcherImpl) Run(ctx context.Context) error {
	msgs, err := w.queue.SubscribeAlerts(ctx)
	if err != nil {
		return err
	}
	w.consume(ctx, msgs)
	return nil
}

func (w *AlertDispatcherImpl) consume(ctx context.Context, msgs <-chan queue.Delivery) {
	for msg := range msgs {
		if err := w.notifier.Notify(ctx, msg.Alert); err != nil {
			logger.WithComponent("dispatcher").Warn("notify failed, requeue",
				zap.Int("event_id", msg.Alert.EventID), zap.Error(err))
			msg.Nack(true)
			continue
		}
		msg.Ack()
	}
}
