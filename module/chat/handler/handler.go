package handler

import (
	"context"
	"strconv"
	"time"

	"BelongingsHub/global"
	mw "BelongingsHub/middleware"
	midsec "BelongingsHub/middleware/security"
	"BelongingsHub/module/chat/model"
	"BelongingsHub/tools/errs"

	"github.com/gin-gonic/gin"
)

// HistoryService 聊天记录查询，由 service.MessageService 实现
type HistoryService interface {
	ListConversation(ctx context.Context, a, b string, limit int64, before time.Time) ([]*model.ChatMessage, error)
	MarkRead(ctx context.Context, receiverID, senderID string) (int64, error)
	CountUnread(ctx context.Context, userID string) ([]model.UnreadCount, error)
}

type Handler struct {
	svc HistoryService
}

func New(svc HistoryService) *Handler {
	return &Handler{svc: svc}
}

// Register 挂到 /api/chat
func (h *Handler) Register(r gin.IRoutes, auth gin.HandlerFunc) {
	opt := mw.RouteOpt{Auth: auth}
	mw.GET(r, "/api/chat/unread", h.Unread, opt)
	mw.GET(r, "/api/chat/:peerId", h.History, opt)
	mw.PUT(r, "/api/chat/:peerId/read", h.MarkRead, opt)
}

// History GET /api/chat/:peerId?limit=50&before=<RFC3339>
func (h *Handler) History(c *gin.Context) {
	me, ok := midsec.IdentityFrom(c)
	if !ok {
		global.Fail(c, errs.ErrTokenMissing)
		return
	}
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		global.Fail(c, err)
		return
	}
	before, err := parseBefore(c.Query("before"))
	if err != nil {
		global.Fail(c, err)
		return
	}

	list, err := h.svc.ListConversation(c.Request.Context(), me.UserID, c.Param("peerId"), limit, before)
	if err != nil {
		global.Fail(c, err)
		return
	}
	global.Ok(c, list)
}

// MarkRead PUT /api/chat/:peerId/read，peer 发给我的全部置为已读
func (h *Handler) MarkRead(c *gin.Context) {
	me, ok := midsec.IdentityFrom(c)
	if !ok {
		global.Fail(c, errs.ErrTokenMissing)
		return
	}
	n, err := h.svc.MarkRead(c.Request.Context(), me.UserID, c.Param("peerId"))
	if err != nil {
		global.Fail(c, err)
		return
	}
	global.Ok(c, gin.H{"updated": n})
}

func (h *Handler) Unread(c *gin.Context) {
	me, ok := midsec.IdentityFrom(c)
	if !ok {
		global.Fail(c, errs.ErrTokenMissing)
		return
	}
	counts, err := h.svc.CountUnread(c.Request.Context(), me.UserID)
	if err != nil {
		global.Fail(c, err)
		return
	}
	global.Ok(c, counts)
}

func parseLimit(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, errs.ErrArgs.WrapMsg("invalid limit", "limit", s)
	}
	return n, nil
}

func parseBefore(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, errs.ErrArgs.WrapMsg("invalid before", "before", s)
	}
	return t, nil
}
