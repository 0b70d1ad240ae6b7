package chat

import (
	"context"

	"BelongingsHub/logger"
)

// PushBadge 推送 badge_earned；用户不在线返回 false，不报错
func (s *Server) PushBadge(userID, badgeName string) bool {
	payload, err := EncodeFrame(FrameBadgeEarned, BadgeData{BadgeName: badgeName})
	if err != nil {
		logger.Errorf("[Badge] encode frame: %v", err)
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), presenceOpTimeout)
	defer cancel()

	switch s.deliver(ctx, userID, payload) {
	case deliveredNone:
		return false
	default:
		return true
	}
}
