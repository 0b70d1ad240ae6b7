package security

import (
	"strings"

	"BelongingsHub/global"
	"BelongingsHub/tools/errs"
	sec "BelongingsHub/tools/security"

	"github.com/gin-gonic/gin"
)

// CtxIdentityKey 后续 handler 统一用 IdentityFrom 读取
const CtxIdentityKey = "identity"

type TokenVerifier interface {
	VerifyToken(token string) (*sec.Identity, error)
}

// Middleware 读取 Authorization: Bearer xxx，校验后把身份写入 context
func Middleware(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			global.Fail(c, errs.ErrTokenMissing)
			return
		}
		id, err := v.VerifyToken(token)
		if err != nil {
			ce, ok := errs.AsCode(err)
			if !ok {
				ce = errs.ErrTokenInvalid
			}
			global.Fail(c, ce)
			return
		}
		c.Set(CtxIdentityKey, id)
		c.Next()
	}
}

func IdentityFrom(c *gin.Context) (*sec.Identity, bool) {
	v, ok := c.Get(CtxIdentityKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(*sec.Identity)
	return id, ok && id != nil
}

func bearerToken(authz string) string {
	authz = strings.TrimSpace(authz)
	if len(authz) < len("bearer ") || !strings.EqualFold(authz[:len("bearer ")], "bearer ") {
		return ""
	}
	return strings.TrimSpace(authz[len("bearer "):])
}
