package middleware

import (
	"time"

	"BelongingsHub/logger"
	"BelongingsHub/tools/safe"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AccessLog 用 zap 记录每个请求；websocket 升级请求在连接结束时才返回
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("[HTTP]",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("cost", time.Since(start)),
			zap.String("ip", c.ClientIP()))
	}
}

// Recovery handler panic 时记录并返回 500
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				safe.LogPanic("http "+c.FullPath(), r)
				c.AbortWithStatus(500)
			}
		}()
		c.Next()
	}
}
