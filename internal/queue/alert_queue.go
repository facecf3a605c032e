package queue

import (
	"context"
	"errors"

	"go-gin-event-scheduler/internal/model"
)

// ErrQueueFull is returned by the in-memory queue when its buffer is exhausted.
var ErrQueueFull = errors.New("alert queue full")

type Delivery struct {
	Alert *model.Alert
	Ack   func()
	Nack  func(requeue bool)
}

type AlertQueue interface {
	// 發送提醒到隊列
	PublishAlert(ctx context.Context, alert *model.Alert) error
	// 訂閱提醒隊列
	SubscribeAlerts(ctx context.Context) (<-chan Delivery, error)
}

// MemoryAlertQueue 使用 Go channel 作為進程內隊列
type MemoryAlertQueue struct {
	ch chan *model.Alert
}

func NewMemoryAlertQueue(bufferSize int) AlertQueue {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &MemoryAlertQueue{ch: make(chan *model.Alert, bufferSize)}
}

// PublishAlert never blocks; a full buffer is reported so the scanner can retry next tick.
func (q *MemoryAlertQueue) PublishAlert(ctx context.Context, alert *model.Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.ch <- alert:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *MemoryAlertQueue) SubscribeAlerts(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case alert := <-q.ch:
				d := Delivery{
					Alert: alert,
					Ack:   func() {},
					Nack: func(requeue bool) {
						if requeue {
							q.requeue(alert)
						}
					},
				}
				select {
				case out <- d:
				case <-ctx.Done():
					// undelivered, hand it to the next subscriber
					q.requeue(alert)
					return
				}
			}
		}
	}()

	return out, nil
}

func (q *MemoryAlertQueue) requeue(alert *model.Alert) {
	select {
	case q.ch <- alert:
	default:
	}
}
