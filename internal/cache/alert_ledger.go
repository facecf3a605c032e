package cache

import (
	"context"
	"fmt"
	"time"

	"go-gin-event-scheduler/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// AlertLedger records which (event, start time) pairs already had an alert
// raised, so several scanners publishing to one stream raise each alert once.
type AlertLedger interface {
	// Claim 原子性地登記提醒；false 表示已由其他進程發出
	Claim(ctx context.Context, eventID int, start model.Timestamp) (bool, error)
	// Release 撤銷本進程的登記（例如發送失敗時），讓下次掃描可以重試
	Release(ctx context.Context, eventID int, start model.Timestamp) error
}

type RedisAlertLedger struct {
	client *redis.Client
	owner  string
	ttl    time.Duration
}

// releaseScript deletes the claim only while this process still owns it.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

func NewRedisAlertLedger(client *redis.Client, ttl time.Duration) *RedisAlertLedger {
	return &RedisAlertLedger{
		client: client,
		owner:  uuid.NewString(),
		ttl:    ttl,
	}
}

// 提醒登記 key，包含開始時間，改期後會重新提醒
func (l *RedisAlertLedger) key(eventID int, start model.Timestamp) string {
	return fmt.Sprintf("alert:event:%d:%s", eventID, start.Format("20060102T150405"))
}

func (l *RedisAlertLedger) Claim(ctx context.Context, eventID int, start model.Timestamp) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key(eventID, start), l.owner, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim alert %d: %w", eventID, err)
	}
	return ok, nil
}

func (l *RedisAlertLedger) Release(ctx context.Context, eventID int, start model.Timestamp) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key(eventID, start)}, l.owner).Err(); err != nil {
		return fmt.Errorf("release alert %d: %w", eventID, err)
	}
	return nil
}
