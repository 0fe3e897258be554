package service

import (
	"errors"
	"math/rand/v2"
	"sync"
)

var ErrNoAPIKeys = errors.New("no AI API keys configured")

// KeyPool 出题模型的 API Key 池，每次调用随机取一个；配置热更新时整体替换
type KeyPool struct {
	mu   sync.RWMutex
	keys []string
}

func NewKeyPool(keys []string) *KeyPool {
	p := &KeyPool{}
	p.Replace(keys)
	return p
}

func (p *KeyPool) Replace(keys []string) {
	cp := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			cp = append(cp, k)
		}
	}
	p.mu.Lock()
	p.keys = cp
	p.mu.Unlock()
}

func (p *KeyPool) Pick() (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.keys) == 0 {
		return "", ErrNoAPIKeys
	}
	return p.keys[rand.IntN(len(p.keys))], nil
}

func (p *KeyPool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.keys)
}
