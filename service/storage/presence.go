package storage

import (
	"context"
	"time"

	redisx "TripBoard/service/storage/redis"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// 跨节点 presence 镜像，尽力而为：真正的成员表在各网关内存里，
// 这里只回答“该用户最近挂在哪个网关节点”。

// presence key: trip:presence:<user>
// value: gateway node id，TTL 控制在线有效期
func presenceKey(user string) string { return "trip:presence:" + user }

// PresenceOnline 标记用户在线并续期
func PresenceOnline(ctx context.Context, user, nodeID string, ttl time.Duration) error {
	if !redisx.Ready() {
		return nil
	}
	return redisx.GetRedis().Set(ctx, presenceKey(user), nodeID, ttl).Err()
}

// PresenceOffline 主动下线（删除key）
func PresenceOffline(ctx context.Context, user string) error {
	if !redisx.Ready() {
		return nil
	}
	return redisx.GetRedis().Del(ctx, presenceKey(user)).Err()
}

// PresenceLookup 查询用户是否在线以及挂在哪个节点
func PresenceLookup(ctx context.Context, user string) (nodeID string, online bool, err error) {
	if !redisx.Ready() {
		return "", false, nil
	}
	val, err := redisx.GetRedis().Get(ctx, presenceKey(user)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}
