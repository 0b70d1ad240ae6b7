package global

import (
	"net/http"

	"BelongingsHub/logger"
	"BelongingsHub/tools/errs"

	"github.com/gin-gonic/gin"
)

// Msg REST 统一返回结构
type Msg struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
	Data   any    `json:"data,omitempty"`
}

func Success(data any) *Msg {
	return &Msg{Code: 0, Data: data}
}

// Ok 200 + Success
func Ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Success(data))
}

// Fail 把错误映射为 HTTP 状态码 + 业务码；非 CodeError 一律按 500 处理
func Fail(c *gin.Context, err error) {
	ce, ok := errs.AsCode(err)
	if !ok {
		logger.Errorf("[HTTP] %s %s internal error: %+v", c.Request.Method, c.Request.URL.Path, err)
		ce = errs.ErrInternalServer
	}
	c.AbortWithStatusJSON(httpStatus(ce.Code), &Msg{Code: ce.Code, Msg: ce.Msg, Detail: ce.Detail})
}

func httpStatus(code int) int {
	switch code {
	case errs.ArgsError:
		return http.StatusBadRequest
	case errs.RecordNotFoundError:
		return http.StatusNotFound
	case errs.NoPermissionError:
		return http.StatusForbidden
	case errs.TokenMissingError, errs.TokenInvalidError:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
