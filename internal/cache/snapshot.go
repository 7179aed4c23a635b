package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// SnapshotStore 缓存快照的持久化后端。
// Load 在快照不存在时返回 (nil, nil)。
type SnapshotStore interface {
	Save(ctx context.Context, data []byte) error
	Load(ctx context.Context) ([]byte, error)
	Delete(ctx context.Context) error
}

// DefaultSnapshotPath 返回默认快照文件路径（XDG 缓存目录下）
func DefaultSnapshotPath() string {
	path, err := xdg.CacheFile("knowgate/search_cache.json")
	if err != nil {
		return "search_cache.json"
	}
	return path
}

// FileSnapshot 扁平 JSON 文件快照
type FileSnapshot struct {
	path string
}

// NewFileSnapshot 创建文件快照后端
func NewFileSnapshot(path string) *FileSnapshot {
	if path == "" {
		path = DefaultSnapshotPath()
	}
	return &FileSnapshot{path: path}
}

// Path 返回快照文件路径
func (f *FileSnapshot) Path() string {
	return f.path
}

// Save 原子写入快照（临时文件 + rename）
func (f *FileSnapshot) Save(_ context.Context, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// Load 读取快照，不存在时返回 (nil, nil)
func (f *FileSnapshot) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}

// Delete 删除快照文件
func (f *FileSnapshot) Delete(_ context.Context) error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove snapshot: %w", err)
	}
	return nil
}
