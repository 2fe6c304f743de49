package notify

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisKey holds the last fired kind when state lives in Redis.
const RedisKey = "jiobatt:battery_prefs:last_notification_type"

var _ Store = &RedisStore{}

// RedisStore shares the notification state between daemons through Redis.
type RedisStore struct {
	rdb redis.UniversalClient
	key string
}

// NewRedisStore uses key, or RedisKey if key is empty.
func NewRedisStore(rdb redis.UniversalClient, key string) *RedisStore {
	if key == "" {
		key = RedisKey
	}
	return &RedisStore{rdb: rdb, key: key}
}

func (r *RedisStore) Load(ctx context.Context) (State, error) {
	v, err := r.rdb.Get(ctx, r.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return State{}, nil
		}
		return State{}, pkgerrors.Wrapf(err, "failed to get %s", r.key)
	}
	kind, err := ParseKind(v)
	if err != nil {
		return State{}, pkgerrors.Wrapf(err, "invalid value of %s", r.key)
	}
	return State{LastFired: kind}, nil
}

func (r *RedisStore) Save(ctx context.Context, s State) error {
	if err := r.rdb.Set(ctx, r.key, string(s.LastFired), 0).Err(); err != nil {
		return pkgerrors.Wrapf(err, "failed to set %s", r.key)
	}
	return nil
}
