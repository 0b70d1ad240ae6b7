package mgo

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	mgo "BelongingsHub/data/database/mgo/mongoutil"
	"BelongingsHub/logger"
	"BelongingsHub/tools/errs"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	baseBackoff = 200 * time.Millisecond
	maxBackoff  = 5 * time.Second
	healthEvery = 10 * time.Second // 健康检查周期
	failThresh  = 3                // 连续失败阈值
)

// MongoManager 后台连接 Mongo，掉线自动重连
type MongoManager struct {
	cfg *mgo.Config

	mu        sync.RWMutex
	client    *mgo.Client
	readyCh   chan struct{} // 首次就绪通知；只会被 close 一次
	readyOnce sync.Once

	lastErr atomic.Value // error
}

func NewManager(cfg *mgo.Config) *MongoManager {
	return &MongoManager{cfg: cfg, readyCh: make(chan struct{})}
}

// StartAsync 一直运行到 ctx.Done()；首次连上时 close readyCh
func (m *MongoManager) StartAsync(ctx context.Context) {
	go func() {
		for {
			if !m.connect(ctx) {
				return
			}
			if !m.watch(ctx) {
				return
			}
			// 健康检查失败，回到连接阶段
		}
	}()
}

// connect 带退避重试；ctx 结束返回 false
func (m *MongoManager) connect(ctx context.Context) bool {
	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return false
		default:
		}

		cli, err := mgo.NewMongoDB(ctx, m.cfg)
		if err == nil {
			// 新客户端就位后再断开旧的，业务方经 TryGetDB 拿到的始终是可用客户端
			if old := m.swap(cli); old != nil {
				_ = old.Disconnect(context.Background())
			}
			m.readyOnce.Do(func() { close(m.readyCh) })
			logger.Infof("[Mongo] connected db=%s", m.cfg.Database)
			return true
		}

		m.lastErr.Store(err)
		logger.Warnf("[Mongo] connect attempt %d failed: %v", attempt+1, err)

		timer := time.NewTimer(backoffFor(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
		if attempt < 6 {
			attempt++
		}
	}
}

// watch 周期 ping；连续失败达到阈值返回 true 触发重连，旧客户端留到新的连上再换
func (m *MongoManager) watch(ctx context.Context) bool {
	fail := 0
	t := time.NewTicker(healthEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			m.drop()
			return false
		case <-t.C:
			m.mu.RLock()
			c := m.client
			m.mu.RUnlock()
			if c == nil {
				return true
			}
			if err := c.Ping(ctx); err != nil {
				fail++
				m.lastErr.Store(err)
				if fail >= failThresh {
					logger.Warnf("[Mongo] ping failed %d times, reconnecting: %v", fail, err)
					return true
				}
			} else {
				fail = 0
			}
		}
	}
}

func (m *MongoManager) swap(cli *mgo.Client) (old *mgo.Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, m.client = m.client, cli
	return old
}

func (m *MongoManager) drop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		_ = m.client.Disconnect(context.Background())
		m.client = nil
	}
}

// backoffFor 指数退避 + 0~20% 抖动
func backoffFor(attempt int) time.Duration {
	backoff := baseBackoff << attempt
	if backoff > maxBackoff || backoff <= 0 {
		backoff = maxBackoff
	}
	jitter := time.Duration(rand.Int63n(int64(backoff / 5)))
	return backoff - jitter/2
}

func (m *MongoManager) Ready() <-chan struct{} {
	return m.readyCh
}

// Err 最近一次错误
func (m *MongoManager) Err() error {
	if v := m.lastErr.Load(); v != nil {
		return v.(error)
	}
	return nil
}

// TryGetDB 当前客户端的库；可直接作为 database.DBProvider 交给各 service
func (m *MongoManager) TryGetDB() (*mongo.Database, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.client == nil {
		return nil, false
	}
	return m.client.GetDB(), true
}

// WaitReady 等首次连接成功
func (m *MongoManager) WaitReady(ctx context.Context) (*mongo.Database, error) {
	select {
	case <-m.readyCh:
	case <-ctx.Done():
		if last := m.Err(); last != nil {
			return nil, errs.WrapMsg(last, "mongo not ready")
		}
		return nil, ctx.Err()
	}
	db, ok := m.TryGetDB()
	if !ok {
		return nil, errs.New("mongo disconnected")
	}
	return db, nil
}

func (m *MongoManager) Close() {
	m.drop()
}
