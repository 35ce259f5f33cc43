package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/racegraph/internal/platform/logger"
)

const DefaultChannel = "racegraph.races"

type redisBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

// NewRedisBus fails fast when redis does not answer a ping.
func NewRedisBus(log *logger.Logger, rdb *goredis.Client, channel string) (Bus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = DefaultChannel
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisBus{
		log:     log.With("service", "RedisRaceBus", "channel", channel),
		rdb:     rdb,
		channel: channel,
	}, nil
}

// NewRedisClient builds the shared client for the bus and health checks.
func NewRedisClient(addr string) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:        strings.TrimSpace(addr),
		DialTimeout: 5 * time.Second,
	})
}

func (b *redisBus) Publish(ctx context.Context, ev RaceEvent) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis race bus not initialized")
	}
	if ev.Type == "" {
		ev.Type = EventRaceFinished
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *redisBus) StartForwarder(ctx context.Context, onEvent func(ev RaceEvent)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis race bus not initialized")
	}
	if onEvent == nil {
		return fmt.Errorf("onEvent callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var ev RaceEvent
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					b.log.Warn("bad race event payload", "error", err)
					continue
				}
				onEvent(ev)
			}
		}
	}()
	return nil
}

// Close leaves the shared client open; its owner closes it.
func (b *redisBus) Close() error { return nil }
