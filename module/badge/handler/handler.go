package handler

import (
	"context"

	"BelongingsHub/global"
	mw "BelongingsHub/middleware"
	midsec "BelongingsHub/middleware/security"
	"BelongingsHub/module/badge/model"
	"BelongingsHub/tools/errs"

	"github.com/gin-gonic/gin"
)

type BadgeService interface {
	List(ctx context.Context, userID string) ([]*model.Badge, error)
	Refresh(ctx context.Context, userID string) ([]string, error)
	Report(ctx context.Context, userID, metric string, value int64) ([]string, error)
}

type Handler struct {
	svc BadgeService
}

func New(svc BadgeService) *Handler {
	return &Handler{svc: svc}
}

// Register 用户侧只能查看和触发服务端重算
func (h *Handler) Register(r gin.IRoutes, auth gin.HandlerFunc) {
	opt := mw.RouteOpt{Auth: auth}
	mw.GET(r, "/api/badges", h.List, opt)
	mw.POST(r, "/api/badges/refresh", h.Refresh, opt)
}

// RegisterInternal 服务间上报进度，internal 校验调用方
func (h *Handler) RegisterInternal(r gin.IRoutes, internal gin.HandlerFunc) {
	mw.POST(r, "/internal/badges/progress", h.Progress, mw.RouteOpt{Auth: internal})
}

func (h *Handler) List(c *gin.Context) {
	me, ok := midsec.IdentityFrom(c)
	if !ok {
		global.Fail(c, errs.ErrTokenMissing)
		return
	}
	list, err := h.svc.List(c.Request.Context(), me.UserID)
	if err != nil {
		global.Fail(c, err)
		return
	}
	global.Ok(c, list)
}

func (h *Handler) Refresh(c *gin.Context) {
	me, ok := midsec.IdentityFrom(c)
	if !ok {
		global.Fail(c, errs.ErrTokenMissing)
		return
	}
	awarded, err := h.svc.Refresh(c.Request.Context(), me.UserID)
	if err != nil {
		global.Fail(c, err)
		return
	}
	global.Ok(c, gin.H{"awarded": awarded})
}

// Progress 内部服务上报指标当前值，返回本次新得的徽章
func (h *Handler) Progress(c *gin.Context) {
	var in model.ProgressParams
	if err := c.ShouldBindJSON(&in); err != nil {
		global.Fail(c, errs.ErrArgs.WrapMsg("invalid body", "err", err))
		return
	}
	if err := in.Normalize(); err != nil {
		global.Fail(c, err)
		return
	}
	awarded, err := h.svc.Report(c.Request.Context(), in.UserID, in.Metric, in.Value)
	if err != nil {
		global.Fail(c, err)
		return
	}
	global.Ok(c, gin.H{"awarded": awarded})
}
