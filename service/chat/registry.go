package chat

import (
	"sort"
	"sync"
)

// Registry userID -> 当前连接，一个用户只保留最后一次握手的连接。
// 被替换的旧连接不在这里关闭，由它自己的读循环收尾。
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]*Client
}

func NewRegistry() *Registry {
	return &Registry{byUser: make(map[string]*Client)}
}

// Register 后写覆盖，返回被替换的连接（可能为 nil）
func (r *Registry) Register(c *Client) (previous *Client) {
	if c == nil || c.UserID == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	previous = r.byUser[c.UserID]
	r.byUser[c.UserID] = c
	return previous
}

func (r *Registry) Lookup(userID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byUser[userID]
	return c, ok
}

// Unregister 不存在时什么都不做
func (r *Registry) Unregister(userID string) {
	r.mu.Lock()
	delete(r.byUser, userID)
	r.mu.Unlock()
}

// UnregisterClient 仍指向 c 才删除；连接关闭时用，避免旧连接把新连接挤掉
func (r *Registry) UnregisterClient(c *Client) bool {
	if c == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.byUser[c.UserID]; ok && cur == c {
		delete(r.byUser, c.UserID)
		return true
	}
	return false
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

func (r *Registry) UserIDs() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.byUser))
	for u := range r.byUser {
		out = append(out, u)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// snapshot 关停时用
func (r *Registry) snapshot() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.byUser))
	for _, c := range r.byUser {
		out = append(out, c)
	}
	return out
}
