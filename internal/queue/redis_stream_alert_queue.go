package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-gin-event-scheduler/internal/model"
	"go-gin-event-scheduler/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultStreamKey   = "events:alerts"
	ConsumerGroupName  = "alert-dispatchers"
	ConsumerNamePrefix = "dispatcher"

	alertField = "alert"
)

// RedisStreamConfig 可注入的逾時與重試設定；零值欄位使用預設。
type RedisStreamConfig struct {
	StreamKey          string
	ClaimMinIdleTime   time.Duration // PEL 中閒置超過此時間才會被 XAUTOCLAIM 領回
	MaxRetryCount      int           // 投遞次數達此值視為毒藥消息並丟棄
	ReadGroupBlockTime time.Duration
	MaxLen             int64 // 以 MAXLEN ~ 修剪 stream，0 表示不修剪
}

func (c RedisStreamConfig) withDefaults() RedisStreamConfig {
	if c.StreamKey == "" {
		c.StreamKey = DefaultStreamKey
	}
	if c.ClaimMinIdleTime <= 0 {
		c.ClaimMinIdleTime = 30 * time.Second
	}
	if c.MaxRetryCount <= 0 {
		c.MaxRetryCount = 5
	}
	if c.ReadGroupBlockTime <= 0 {
		c.ReadGroupBlockTime = 2 * time.Second
	}
	return c
}

type RedisStreamAlertQueue struct {
	client   *redis.Client
	consumer string
	cfg      RedisStreamConfig
}

// NewRedisStreamAlertQueue creates the consumer group if needed. An empty consumerID gets a random one.
func NewRedisStreamAlertQueue(ctx context.Context, client *redis.Client, consumerID string, cfg RedisStreamConfig) (*RedisStreamAlertQueue, error) {
	if consumerID == "" {
		consumerID = uuid.NewString()
	}
	q := &RedisStreamAlertQueue{
		client:   client,
		consumer: fmt.Sprintf("%s:%s", ConsumerNamePrefix, consumerID),
		cfg:      cfg.withDefaults(),
	}
	if err := q.ensureGroup(ctx); err != nil {
		return nil, fmt.Errorf("ensure consumer group: %w", err)
	}
	return q, nil
}

func (q *RedisStreamAlertQueue) StreamKey() string {
	return q.cfg.StreamKey
}

func (q *RedisStreamAlertQueue) ensureGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.cfg.StreamKey, ConsumerGroupName, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func (q *RedisStreamAlertQueue) PublishAlert(ctx context.Context, alert *model.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	args := &redis.XAddArgs{
		Stream: q.cfg.StreamKey,
		ID:     "*",
		Values: map[string]interface{}{
			alertField: string(payload),
			"event_id": alert.EventID,
		},
	}
	if q.cfg.MaxLen > 0 {
		args.MaxLen = q.cfg.MaxLen
		args.Approx = true
	}
	if err := q.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd: %w", err)
	}
	return nil
}

func (q *RedisStreamAlertQueue) SubscribeAlerts(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)
	go func() {
		defer close(out)
		done := make(chan struct{})
		go func() {
			defer close(done)
			q.claimLoop(ctx, out)
		}()
		q.readLoop(ctx, out)
		<-done
	}()
	return out, nil
}

// readLoop 只讀新訊息（">"）；已投遞但未 ack 的訊息留在 PEL，由 claimLoop 逾時後領回。
func (q *RedisStreamAlertQueue) readLoop(ctx context.Context, out chan<- Delivery) {
	log := logger.WithComponent("mq")
	for ctx.Err() == nil {
		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    ConsumerGroupName,
			Consumer: q.consumer,
			Streams:  []string{q.cfg.StreamKey, ">"},
			Count:    10,
			Block:    q.cfg.ReadGroupBlockTime,
		}).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("XReadGroup failed", zap.String("stream", q.cfg.StreamKey), zap.Error(err))
			sleep(ctx, time.Second)
			continue
		}
		for _, stream := range streams {
			for _, msg := range stream.Messages {
				if !q.deliver(ctx, out, msg) {
					return
				}
			}
		}
	}
}

func (q *RedisStreamAlertQueue) claimLoop(ctx context.Context, out chan<- Delivery) {
	ticker := time.NewTicker(q.cfg.ClaimMinIdleTime)
	defer ticker.Stop()
	start := "0-0"

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			msgs, next, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
				Stream:   q.cfg.StreamKey,
				Group:    ConsumerGroupName,
				Consumer: q.consumer,
				MinIdle:  q.cfg.ClaimMinIdleTime,
				Start:    start,
				Count:    10,
			}).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				if ctx.Err() == nil {
					logger.WithComponent("mq").Error("XAutoClaim failed", zap.Error(err))
				}
				continue
			}
			start = next
			if start == "" {
				start = "0-0"
			}
			for _, msg := range msgs {
				if q.poisoned(ctx, msg.ID) {
					continue
				}
				if !q.deliver(ctx, out, msg) {
					return
				}
			}
		}
	}
}

// poisoned acks and drops a message that has been delivered MaxRetryCount times.
func (q *RedisStreamAlertQueue) poisoned(ctx context.Context, id string) bool {
	log := logger.WithComponent("mq").With(zap.String("message_id", id))
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: q.cfg.StreamKey,
		Group:  ConsumerGroupName,
		Start:  id,
		End:    id,
		Count:  1,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		log.Warn("XPendingExt failed", zap.Error(err))
		return false
	}
	if len(pending) == 0 || int(pending[0].RetryCount) < q.cfg.MaxRetryCount {
		return false
	}
	log.Warn("discard poison alert", zap.Int64("deliveries", pending[0].RetryCount), zap.Int("max_retries", q.cfg.MaxRetryCount))
	if err := q.client.XAck(ctx, q.cfg.StreamKey, ConsumerGroupName, id).Err(); err != nil {
		log.Error("XAck discard failed", zap.Error(err))
	}
	return true
}

// deliver reports false once ctx is done.
func (q *RedisStreamAlertQueue) deliver(ctx context.Context, out chan<- Delivery, msg redis.XMessage) bool {
	d, err := q.decode(ctx, msg)
	if err != nil {
		logger.WithComponent("mq").Warn("drop malformed alert", zap.String("message_id", msg.ID), zap.Error(err))
		_ = q.client.XAck(ctx, q.cfg.StreamKey, ConsumerGroupName, msg.ID).Err()
		return true
	}
	select {
	case out <- d:
		return true
	case <-ctx.Done():
		return false
	}
}

func (q *RedisStreamAlertQueue) decode(ctx context.Context, msg redis.XMessage) (Delivery, error) {
	raw, ok := msg.Values[alertField].(string)
	if !ok {
		return Delivery{}, fmt.Errorf("missing %q field", alertField)
	}
	var alert model.Alert
	if err := json.Unmarshal([]byte(raw), &alert); err != nil {
		return Delivery{}, fmt.Errorf("unmarshal alert: %w", err)
	}

	id := msg.ID
	ack := func() {
		if err := q.client.XAck(ctx, q.cfg.StreamKey, ConsumerGroupName, id).Err(); err != nil {
			logger.WithComponent("mq").Error("XAck failed", zap.String("message_id", id), zap.Error(err))
		}
	}
	return Delivery{
		Alert: &alert,
		Ack:   ack,
		Nack: func(requeue bool) {
			if requeue {
				// 留在 PEL，ClaimMinIdleTime 後由 XAUTOCLAIM 重新投遞
				return
			}
			ack()
		},
	}, nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
