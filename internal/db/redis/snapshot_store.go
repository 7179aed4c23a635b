package redisdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// SnapshotStore Redis 快照后端：整个缓存快照以单个 JSON blob 存储。
// 供多实例共享持久化时替代文件快照。
type SnapshotStore struct {
	redis *redis.Client
	key   string
}

// NewSnapshotStore 创建 Redis 快照后端
func NewSnapshotStore(rdb *redis.Client, key string) *SnapshotStore {
	if key == "" {
		key = "knowgate:cache:snapshot"
	}
	return &SnapshotStore{
		redis: rdb,
		key:   key,
	}
}

// Save 写入快照
func (s *SnapshotStore) Save(ctx context.Context, data []byte) error {
	if err := s.redis.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("save snapshot to redis: %w", err)
	}
	return nil
}

// Load 读取快照，不存在时返回 (nil, nil)
func (s *SnapshotStore) Load(ctx context.Context) ([]byte, error) {
	data, err := s.redis.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load snapshot from redis: %w", err)
	}
	return data, nil
}

// Delete 删除快照
func (s *SnapshotStore) Delete(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("delete snapshot from redis: %w", err)
	}
	return nil
}
