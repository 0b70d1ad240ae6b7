package security

import (
	"crypto/subtle"

	"BelongingsHub/global"
	"BelongingsHub/tools/errs"

	"github.com/gin-gonic/gin"
)

const InternalTokenHeader = "X-Internal-Token"

// InternalToken 服务间调用校验共享令牌；token 为空时一律拒绝
func InternalToken(token string) gin.HandlerFunc {
	want := []byte(token)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader(InternalTokenHeader))
		if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
			global.Fail(c, errs.ErrNoPermission.WrapMsg("internal token mismatch"))
			return
		}
		c.Next()
	}
}
