package redisx

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// スイーパーのロック: lock:sweeper:reservations
const KeySweeperLock = "lock:sweeper:reservations"

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// 自分のトークンのときだけ消す
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker は SET NX PX の簡易ロック（複数レプリカで1台だけ動かす用）
type Locker struct {
	rdb redis.Cmdable
}

func NewLocker(rdb redis.Cmdable) *Locker {
	return &Locker{rdb: rdb}
}

// TryLock は取れたらトークンを返す。取れなければ ok=false
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error) {
	token = uuid.NewString()
	ok, err = l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (l *Locker) Unlock(ctx context.Context, key string, token string) error {
	if token == "" {
		return errors.New("redisx: empty lock token")
	}
	return unlockScript.Run(ctx, l.rdb, []string{key}, token).Err()
}
