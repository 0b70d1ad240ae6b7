package storage

import (
	"context"
	"errors"
	"time"

	errs "BelongingsHub/tools/errs"

	"github.com/redis/go-redis/v9"
)

// presence key: im:presence:<user>
// value: 持有该用户连接的 relay 节点ID，TTL 控制在线有效期
func presenceKey(user string) string { return "im:presence:" + user }

// 只有仍归属本节点时才删除，避免旧节点下线把新节点的登记抹掉
var luaOfflineIfOwner = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// 只有仍归属本节点时才续期
var luaRefreshIfOwner = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Presence 记录用户当前连在哪个节点，供跨节点投递查询
type Presence struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewPresence(rdb redis.Cmdable, ttl time.Duration) *Presence {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Presence{rdb: rdb, ttl: ttl}
}

func (p *Presence) TTL() time.Duration { return p.ttl }

// Online 设置在线；后登记的节点覆盖先前的
func (p *Presence) Online(ctx context.Context, user, nodeID string) error {
	if err := p.rdb.Set(ctx, presenceKey(user), nodeID, p.ttl).Err(); err != nil {
		return errs.WrapMsg(err, "presence online", "user", user)
	}
	return nil
}

// Refresh 心跳续期；返回 false 表示登记已不属于本节点
func (p *Presence) Refresh(ctx context.Context, user, nodeID string) (bool, error) {
	n, err := luaRefreshIfOwner.Run(ctx, p.rdb, []string{presenceKey(user)}, nodeID, p.ttl.Milliseconds()).Int64()
	if err != nil {
		return false, errs.WrapMsg(err, "presence refresh", "user", user)
	}
	return n == 1, nil
}

// Offline 本节点下线该用户
func (p *Presence) Offline(ctx context.Context, user, nodeID string) (bool, error) {
	n, err := luaOfflineIfOwner.Run(ctx, p.rdb, []string{presenceKey(user)}, nodeID).Int64()
	if err != nil {
		return false, errs.WrapMsg(err, "presence offline", "user", user)
	}
	return n == 1, nil
}

// Lookup 查询用户所在节点
func (p *Presence) Lookup(ctx context.Context, user string) (nodeID string, online bool, err error) {
	val, err := p.rdb.Get(ctx, presenceKey(user)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errs.WrapMsg(err, "presence lookup", "user", user)
	}
	return val, true, nil
}
