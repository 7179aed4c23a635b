package provider

import (
	"fmt"
	"sync"
)

// Registry 搜索供应商注册表
type Registry struct {
	mu        sync.RWMutex
	providers map[string]SearchProvider
	order     []string
}

var globalProviderRegistry = &Registry{
	providers: make(map[string]SearchProvider),
}

// RegisterProvider 注册搜索供应商（重复注册覆盖，不改变顺序）
func RegisterProvider(p SearchProvider) {
	globalProviderRegistry.mu.Lock()
	defer globalProviderRegistry.mu.Unlock()
	if _, ok := globalProviderRegistry.providers[p.Name()]; !ok {
		globalProviderRegistry.order = append(globalProviderRegistry.order, p.Name())
	}
	globalProviderRegistry.providers[p.Name()] = p
}

// GetProvider 获取搜索供应商
func GetProvider(name string) (SearchProvider, error) {
	globalProviderRegistry.mu.RLock()
	defer globalProviderRegistry.mu.RUnlock()
	p, ok := globalProviderRegistry.providers[name]
	if !ok {
		return nil, fmt.Errorf("search provider not found: %s", name)
	}
	return p, nil
}

// ListProviders 按注册顺序列出所有供应商
func ListProviders() []SearchProvider {
	globalProviderRegistry.mu.RLock()
	defer globalProviderRegistry.mu.RUnlock()
	out := make([]SearchProvider, 0, len(globalProviderRegistry.order))
	for _, name := range globalProviderRegistry.order {
		out = append(out, globalProviderRegistry.providers[name])
	}
	return out
}

// ProviderNames 按注册顺序列出供应商名称
func ProviderNames() []string {
	globalProviderRegistry.mu.RLock()
	defer globalProviderRegistry.mu.RUnlock()
	return append([]string(nil), globalProviderRegistry.order...)
}

// ResetProviders 清空注册表（测试用）
func ResetProviders() {
	globalProviderRegistry.mu.Lock()
	defer globalProviderRegistry.mu.Unlock()
	globalProviderRegistry.providers = make(map[string]SearchProvider)
	globalProviderRegistry.order = nil
}
