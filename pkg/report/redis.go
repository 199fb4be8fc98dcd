package report

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Dial returns a client for addr. It does not connect until first use.
func Dial(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
}

// RedisStream appends each report to a Redis stream with XADD. Channel
// values are stored as "ch.<name>" fields; absent channels are omitted.
type RedisStream struct {
	client redis.UniversalClient
	stream string
	maxLen int64
}

// NewRedisStream publishes to stream. A positive maxLen trims the stream
// approximately to that many entries.
func NewRedisStream(client redis.UniversalClient, stream string, maxLen int64) *RedisStream {
	return &RedisStream{client: client, stream: stream, maxLen: maxLen}
}

func (s *RedisStream) Name() string { return "redis_stream" }

// Stream returns the stream key.
func (s *RedisStream) Stream() string { return s.stream }

func (s *RedisStream) Publish(ctx context.Context, r Report) error {
	values := map[string]any{
		"correlation_id": r.CorrelationID,
		"exchange_id":    r.ExchangeID,
		"method":         r.Method,
		"path":           r.Path,
		"route":          r.Route,
		"status":         strconv.Itoa(r.Status),
		"error":          r.Error,
		"at":             r.At.UTC().Format(time.RFC3339Nano),
	}
	for _, v := range r.Channels {
		if v.Present {
			values["ch."+v.Channel] = v.Value
		}
	}

	args := &redis.XAddArgs{Stream: s.stream, Values: values}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("publishing to stream %s: %w", s.stream, err)
	}
	return nil
}
