package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/verify/domain"
)

// RedisStore implementa WindowStore y CodeStore sobre Redis, para cuando el
// limitador corre en varias instancias y el estado debe ser compartido.
type RedisStore struct {
	client *redis.Client
	window time.Duration
}

func NewRedisStore(client *redis.Client, window time.Duration) *RedisStore {
	return &RedisStore{client: client, window: window}
}

func windowKey(key string) string {
	return "verify:last-sent:" + key
}

func codeKey(to string) string {
	return "verify:code:" + to
}

// --- WindowStore ---

func (s *RedisStore) LastSent(ctx context.Context, key string) (time.Time, bool, error) {
	val, err := s.client.Get(ctx, windowKey(key)).Result()
	if err != nil {
		if err == redis.Nil {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// SetLastSent usa el TTL de Redis como purga: la entrada desaparece sola al
// cerrarse la ventana.
func (s *RedisStore) SetLastSent(ctx context.Context, key string, at time.Time) error {
	return s.client.Set(ctx, windowKey(key), at.Format(time.RFC3339Nano), s.window).Err()
}

// --- CodeStore ---

func (s *RedisStore) PutCode(ctx context.Context, to, code string, ttl time.Duration) error {
	return s.client.Set(ctx, codeKey(to), code, ttl).Err()
}

func (s *RedisStore) ConsumeCode(ctx context.Context, to, code string) (bool, error) {
	stored, err := s.client.Get(ctx, codeKey(to)).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	if stored != code {
		return false, nil
	}
	if err := s.client.Del(ctx, codeKey(to)).Err(); err != nil {
		return false, err
	}
	return true, nil
}

// Verificación en tiempo de compilación.
var (
	_ domain.WindowStore = (*RedisStore)(nil)
	_ domain.CodeStore   = (*RedisStore)(nil)
)
