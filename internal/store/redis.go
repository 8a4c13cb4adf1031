package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// casAttempts bounds optimistic-lock retries when the watched key is touched
// between read and write.
const casAttempts = 5

// Redis is the production Store backed by a Redis server.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a Store for the given address ("host:port" or a redis://
// URL). Connectivity is not checked here; call Ping at startup.
func NewRedis(addr string) (*Redis, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		// Plain host:port form.
		opts = &redis.Options{Addr: addr}
	}
	return &Redis{client: redis.NewClient(opts)}, nil
}

func (r *Redis) LoadState(ctx context.Context) (*Record, error) {
	data, err := r.client.Get(ctx, KeyState).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", KeyState, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", KeyState, err)
	}
	return &rec, nil
}

func (r *Redis) SaveState(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s: %w", KeyState, err)
	}
	if err := r.client.Set(ctx, KeyState, data, 0).Err(); err != nil {
		return fmt.Errorf("save %s: %w", KeyState, err)
	}
	return nil
}

func (r *Redis) LoadMark(ctx context.Context) (*Mark, error) {
	data, err := r.client.Get(ctx, KeyLastNotified).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", KeyLastNotified, err)
	}
	var m Mark
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", KeyLastNotified, err)
	}
	return &m, nil
}

// CompareAndSwapMark uses WATCH/MULTI so the dedup mark is never clobbered by
// a concurrent writer: the transaction aborts if the key changes between the
// read and the write.
func (r *Redis) CompareAndSwapMark(ctx context.Context, prev *Mark, next Mark) error {
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode %s: %w", KeyLastNotified, err)
	}

	txn := func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, KeyLastNotified).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			if prev != nil {
				return ErrMarkConflict
			}
		case err != nil:
			return err
		default:
			if prev == nil {
				return ErrMarkConflict
			}
			var stored Mark
			if err := json.Unmarshal(cur, &stored); err != nil {
				return fmt.Errorf("decode %s: %w", KeyLastNotified, err)
			}
			if !stored.Equal(*prev) {
				return ErrMarkConflict
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, KeyLastNotified, data, 0)
			return nil
		})
		return err
	}

	for i := 0; i < casAttempts; i++ {
		err := r.client.Watch(ctx, txn, KeyLastNotified)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, ErrMarkConflict) {
			return fmt.Errorf("cas %s: %w", KeyLastNotified, err)
		}
		return err
	}
	return ErrMarkConflict
}

func (r *Redis) Heartbeat(ctx context.Context, t time.Time) error {
	if err := r.client.Set(ctx, KeyHeartbeat, t.UTC().Format(time.RFC3339), 0).Err(); err != nil {
		return fmt.Errorf("save %s: %w", KeyHeartbeat, err)
	}
	return nil
}

func (r *Redis) LoadHeartbeat(ctx context.Context) (time.Time, bool, error) {
	val, err := r.client.Get(ctx, KeyHeartbeat).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("load %s: %w", KeyHeartbeat, err)
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("decode %s: %w", KeyHeartbeat, err)
	}
	return t, true, nil
}

func (r *Redis) LoadCursor(ctx context.Context) (int64, bool, error) {
	val, err := r.client.Get(ctx, KeyUpdateCursor).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("load %s: %w", KeyUpdateCursor, err)
	}
	cursor, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("decode %s: %w", KeyUpdateCursor, err)
	}
	return cursor, true, nil
}

func (r *Redis) SaveCursor(ctx context.Context, cursor int64) error {
	if err := r.client.Set(ctx, KeyUpdateCursor, strconv.FormatInt(cursor, 10), 0).Err(); err != nil {
		return fmt.Errorf("save %s: %w", KeyUpdateCursor, err)
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
