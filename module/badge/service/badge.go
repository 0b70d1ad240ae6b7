package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"BelongingsHub/logger"
	"BelongingsHub/module/badge/model"
	"BelongingsHub/tools/errs"
)

// Store 徽章持久化，由 MongoStore 实现
type Store interface {
	Insert(ctx context.Context, b *model.Badge) (inserted bool, err error)
	ListByUser(ctx context.Context, userID string) ([]*model.Badge, error)
}

// Pusher 新徽章推给在线用户，由 chat.Server 实现
type Pusher interface {
	PushBadge(userID, badgeName string) bool
}

// Counter 服务端统计某指标的当前值
type Counter func(ctx context.Context, userID string) (int64, error)

type BadgeService struct {
	store    Store
	pusher   Pusher
	rules    []model.Rule
	now      func() time.Time
	counters map[string]Counter

	// 本进程已确认授予过的 user|name，省掉重复的插入
	seen sync.Map
}

func NewBadgeService(store Store, pusher Pusher) *BadgeService {
	return &BadgeService{
		store:  store,
		pusher: pusher,
		rules:    model.DefaultRules,
		now:      time.Now,
		counters: make(map[string]Counter),
	}
}

// SetCounter 启动时注册，之后只读
func (s *BadgeService) SetCounter(metric string, c Counter) { s.counters[metric] = c }

func (s *BadgeService) SetPusher(p Pusher) { s.pusher = p }

// Award 幂等；只有第一次授予才推送
func (s *BadgeService) Award(ctx context.Context, userID, name, description string) (bool, error) {
	userID, name = strings.TrimSpace(userID), strings.TrimSpace(name)
	if userID == "" || name == "" {
		return false, errs.ErrArgs.WrapMsg("user and badge name are required")
	}
	key := userID + "|" + name
	if _, ok := s.seen.Load(key); ok {
		return false, nil
	}

	b := &model.Badge{
		UserID:      userID,
		Name:        name,
		Description: description,
		EarnedAt:    s.now().UTC().Truncate(time.Millisecond),
	}
	inserted, err := s.store.Insert(ctx, b)
	if err != nil {
		return false, err
	}
	s.seen.Store(key, struct{}{})
	if !inserted {
		return false, nil
	}

	logger.Infof("[Badge] awarded user=%s badge=%q", userID, name)
	if s.pusher != nil && !s.pusher.PushBadge(userID, name) {
		logger.Debug("[Badge] user offline, push skipped")
	}
	return true, nil
}

// Evaluate 授予该指标下所有已达阈值的徽章，返回本次新得的
func (s *BadgeService) Evaluate(ctx context.Context, userID, metric string, value int64) ([]string, error) {
	awarded := make([]string, 0)
	for _, r := range s.rules {
		if r.Metric != metric || value < r.Threshold {
			continue
		}
		ok, err := s.Award(ctx, userID, r.Name, r.Description)
		if err != nil {
			return awarded, err
		}
		if ok {
			awarded = append(awarded, r.Name)
		}
	}
	return awarded, nil
}

// Refresh 重新统计所有有服务端计数的指标
func (s *BadgeService) Refresh(ctx context.Context, userID string) ([]string, error) {
	awarded := make([]string, 0)
	for metric := range s.counters {
		got, err := s.RefreshMetric(ctx, userID, metric)
		awarded = append(awarded, got...)
		if err != nil {
			return awarded, err
		}
	}
	return awarded, nil
}

// RefreshMetric 该指标的徽章本进程都已确认过时不再计数
func (s *BadgeService) RefreshMetric(ctx context.Context, userID, metric string) ([]string, error) {
	count, ok := s.counters[metric]
	if !ok {
		return nil, errs.ErrArgs.WrapMsg("metric is not counted server-side", "metric", metric)
	}
	if userID == "" {
		return nil, errs.ErrArgs.WrapMsg("user is required")
	}
	if s.allSeen(userID, metric) {
		return []string{}, nil
	}
	value, err := count(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.Evaluate(ctx, userID, metric, value)
}

// Report 内部服务上报指标值；服务端能自己统计的指标不接受上报
func (s *BadgeService) Report(ctx context.Context, userID, metric string, value int64) ([]string, error) {
	if _, ok := s.counters[metric]; ok {
		return nil, errs.ErrNoPermission.WrapMsg("metric is counted server-side", "metric", metric)
	}
	return s.Evaluate(ctx, userID, metric, value)
}

func (s *BadgeService) allSeen(userID, metric string) bool {
	for _, r := range s.rules {
		if r.Metric != metric {
			continue
		}
		if _, ok := s.seen.Load(userID + "|" + r.Name); !ok {
			return false
		}
	}
	return true
}

func (s *BadgeService) List(ctx context.Context, userID string) ([]*model.Badge, error) {
	if userID == "" {
		return nil, errs.ErrArgs.WrapMsg("user is required")
	}
	return s.store.ListByUser(ctx, userID)
}
