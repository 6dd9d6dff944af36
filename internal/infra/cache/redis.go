package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"storefront/internal/usecase"

	"github.com/redis/go-redis/v9"
)

// 世代が一致するときだけ表示を書く
var setIfGeneration = redis.NewScript(`
local cur = redis.call('GET', KEYS[2])
if not cur then cur = '0' end
if cur ~= ARGV[1] then return 0 end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// RedisCartCache はカート表示(CartView)をユーザー単位でRedisに置く。
// cart:{id} が表示、cart:{id}:gen が世代（Deleteで進む）
type RedisCartCache struct {
	client  redis.UniversalClient
	baseTTL time.Duration
	jitter  time.Duration
	genTTL  time.Duration
}

func NewRedisCartCache(client redis.UniversalClient, ttl time.Duration) *RedisCartCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RedisCartCache{client: client, baseTTL: ttl, jitter: 5 * time.Minute, genTTL: 24 * time.Hour}
}

func (r *RedisCartCache) Get(ctx context.Context, userID int64) (usecase.CartView, error) {
	data, err := r.client.Get(ctx, viewKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return usecase.CartView{}, usecase.ErrCacheMiss
	}
	if err != nil {
		return usecase.CartView{}, fmt.Errorf("redis get failed: %w", err)
	}

	var view usecase.CartView
	if err := json.Unmarshal(data, &view); err != nil {
		return usecase.CartView{}, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return view, nil
}

// 世代キーが無ければ 0
func (r *RedisCartCache) Generation(ctx context.Context, userID int64) (int64, error) {
	gen, err := r.client.Get(ctx, genKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get generation failed: %w", err)
	}
	return gen, nil
}

// 期限は一斉に切れないよう少しずらす
func (r *RedisCartCache) Set(ctx context.Context, userID int64, gen int64, view usecase.CartView) (bool, error) {
	data, err := json.Marshal(view)
	if err != nil {
		return false, fmt.Errorf("marshal cart failed: %w", err)
	}

	ttl := r.baseTTL
	if r.jitter > 0 {
		ttl += rand.N(r.jitter)
	}
	n, err := setIfGeneration.Run(ctx, r.client,
		[]string{viewKey(userID), genKey(userID)},
		gen, data, ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("redis set failed: %w", err)
	}
	return n == 1, nil
}

// 表示を消して世代を進める（同じMULTIで）
func (r *RedisCartCache) Delete(ctx context.Context, userID int64) error {
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, viewKey(userID))
		p.Incr(ctx, genKey(userID))
		p.Expire(ctx, genKey(userID), r.genTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// ハッシュタグで同じスロットに置く（スクリプトが両方のキーを触る）
func viewKey(userID int64) string {
	return fmt.Sprintf("cart:{%d}", userID)
}

func genKey(userID int64) string {
	return fmt.Sprintf("cart:{%d}:gen", userID)
}
