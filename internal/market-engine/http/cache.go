package httpapi

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// lbCache guarda o leaderboard montado no Redis por um TTL curto;
// o caminho de escrita do ledger nunca passa por aqui
type lbCache struct{ r *redis.Client }

func keyLeaderboard(limit int) string { return "leaderboard:top:" + strconv.Itoa(limit) }

func (c *lbCache) Get(ctx context.Context, limit int, dst any) (bool, error) {
	if c.r == nil {
		return false, nil
	}
	b, err := c.r.Get(ctx, keyLeaderboard(limit)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}

func (c *lbCache) Set(ctx context.Context, limit int, v any, ttl time.Duration) error {
	if c.r == nil {
		return nil
	}
	b, _ := json.Marshal(v)
	return c.r.Set(ctx, keyLeaderboard(limit), b, ttl).Err()
}
