package model

import (
	"strings"
	"time"

	"BelongingsHub/tools/errs"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const BadgeTableName = "badges"

// 进度指标
const (
	MetricItems       = "items"
	MetricServiceLogs = "service_logs"
	MetricMessages    = "messages"
)

// Badge 用户获得的徽章；(user_id, name) 唯一
type Badge struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      string             `bson:"user_id" json:"userId"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description" json:"description"`
	EarnedAt    time.Time          `bson:"earned_at" json:"earnedAt"`
}

func (Badge) GetTableName() string {
	return BadgeTableName
}

// Rule 指标达到阈值即授予
type Rule struct {
	Metric      string
	Threshold   int64
	Name        string
	Description string
}

var DefaultRules = []Rule{
	{MetricItems, 1, "First Belonging", "Added your first item"},
	{MetricItems, 10, "Collector", "Added 10 items"},
	{MetricItems, 50, "Curator", "Added 50 items"},
	{MetricServiceLogs, 1, "First Service", "Logged your first service"},
	{MetricServiceLogs, 10, "Maintenance Pro", "Logged 10 services"},
	{MetricMessages, 1, "Conversation Starter", "Sent your first message"},
}

// ProgressParams POST /internal/badges/progress，由物品/保养服务调用
type ProgressParams struct {
	UserID string `json:"userId"`
	Metric string `json:"metric"`
	Value  int64  `json:"value"`
}

func (p *ProgressParams) Normalize() error {
	p.UserID = strings.TrimSpace(p.UserID)
	p.Metric = strings.TrimSpace(p.Metric)
	if p.UserID == "" {
		return errs.ErrArgs.WrapMsg("userId is required")
	}
	switch p.Metric {
	case MetricItems, MetricServiceLogs, MetricMessages:
	default:
		return errs.ErrArgs.WrapMsg("unknown metric", "metric", p.Metric)
	}
	if p.Value < 0 {
		return errs.ErrArgs.WrapMsg("value must not be negative", "value", p.Value)
	}
	return nil
}
