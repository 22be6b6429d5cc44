package conversations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	"github.com/Natthapon12-yod/smartatsai/internal/agent/model"
	errx "github.com/Natthapon12-yod/smartatsai/internal/core/error"
	logx "github.com/Natthapon12-yod/smartatsai/pkg/logger"
)

// RedisStore persists sessions in Redis. The pinned prompt lives in its own
// key so list trimming can never evict it; every append-then-evict cycle
// runs inside MULTI.
type RedisStore struct {
	rdb   redis.Cmdable
	limit int
	ttl   time.Duration
}

func NewRedisStore(rdb redis.Cmdable, limit int, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, limit: normalizeLimit(limit), ttl: ttl}
}

func (r *RedisStore) systemKey(identity string) string {
	return fmt.Sprintf("session:%s:system", identity)
}

func (r *RedisStore) messagesKey(identity string) string {
	return fmt.Sprintf("session:%s:messages", identity)
}

func (r *RedisStore) GetOrCreate(ctx context.Context, identity string, systemPrompt string) (*model.Session, error) {
	created, err := r.rdb.SetNX(ctx, r.systemKey(identity), systemPrompt, r.ttl).Result()
	if err != nil {
		logx.Error().Err(err).Str("identity", identity).Msg("failed to seed session")
		return nil, errx.WrapRedis(err)
	}
	if created {
		logx.Debug().Str("identity", identity).Msg("session created")
	}
	msgs, err := r.History(ctx, identity)
	if err != nil {
		return nil, err
	}
	return &model.Session{Identity: identity, Messages: msgs}, nil
}

func (r *RedisStore) Append(ctx context.Context, identity string, message *schema.Message) error {
	return r.push(ctx, identity, message)
}

func (r *RedisStore) AppendTurn(ctx context.Context, identity string, user, assistant *schema.Message) error {
	return r.push(ctx, identity, user, assistant)
}

func (r *RedisStore) push(ctx context.Context, identity string, messages ...*schema.Message) error {
	sysKey, msgKey := r.systemKey(identity), r.messagesKey(identity)

	exists, err := r.rdb.Exists(ctx, sysKey).Result()
	if err != nil {
		logx.Error().Err(err).Str("key", sysKey).Msg("failed to check session")
		return errx.WrapRedis(err)
	}
	if exists == 0 {
		n, err := r.rdb.LLen(ctx, msgKey).Result()
		if err != nil {
			return errx.WrapRedis(err)
		}
		if n > 0 {
			return model.ErrSessionCorruption
		}
		return model.ErrSessionNotFound
	}

	payloads := make([][]byte, 0, len(messages))
	for _, m := range messages {
		if m == nil {
			continue
		}
		b, err := json.Marshal(m)
		if err != nil {
			logx.Error().Err(err).Str("identity", identity).Msg("failed to marshal message")
			return fmt.Errorf("marshal message: %w", err)
		}
		payloads = append(payloads, b)
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, b := range payloads {
			pipe.RPush(ctx, msgKey, b)
			pipe.LTrim(ctx, msgKey, int64(-r.limit), -1)
		}
		// extend TTL on touch
		if r.ttl > 0 {
			pipe.Expire(ctx, sysKey, r.ttl)
			pipe.Expire(ctx, msgKey, r.ttl)
		}
		return nil
	})
	if err != nil {
		logx.Error().Err(err).Str("key", msgKey).Msg("failed to append to session")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisStore) History(ctx context.Context, identity string) ([]*schema.Message, error) {
	sysKey, msgKey := r.systemKey(identity), r.messagesKey(identity)

	var sysCmd *redis.StringCmd
	var rowsCmd *redis.StringSliceCmd
	_, err := r.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		sysCmd = pipe.Get(ctx, sysKey)
		rowsCmd = pipe.LRange(ctx, msgKey, 0, -1)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		logx.Error().Err(err).Str("identity", identity).Msg("failed to load session from redis")
		return nil, errx.WrapRedis(err)
	}

	rows, err := rowsCmd.Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, errx.WrapRedis(err)
	}
	system, err := sysCmd.Result()
	if errors.Is(err, redis.Nil) {
		if len(rows) > 0 {
			logx.Warn().Str("identity", identity).Msg("session lost its pinned entry")
			return nil, model.ErrSessionCorruption
		}
		return nil, model.ErrSessionNotFound
	}
	if err != nil {
		return nil, errx.WrapRedis(err)
	}

	msgs := make([]*schema.Message, 0, len(rows)+1)
	msgs = append(msgs, schema.SystemMessage(system))
	for i, s := range rows {
		var m schema.Message
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			logx.Error().Err(err).Str("identity", identity).Int("index", i).Msg("failed to unmarshal message")
			return nil, fmt.Errorf("%w: entry %d: %v", model.ErrSessionCorruption, i, err)
		}
		msgs = append(msgs, &m)
	}
	return msgs, nil
}

func (r *RedisStore) Reset(ctx context.Context, identity string, systemPrompt string) error {
	sysKey, msgKey := r.systemKey(identity), r.messagesKey(identity)
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, msgKey)
		pipe.Set(ctx, sysKey, systemPrompt, r.ttl)
		return nil
	})
	if err != nil {
		logx.Error().Err(err).Str("identity", identity).Msg("failed to reset session")
		return errx.WrapRedis(err)
	}
	logx.Info().Str("identity", identity).Msg("session reset")
	return nil
}

var _ model.SessionStore = (*RedisStore)(nil)
