// Package middleware 提供 HTTP 中间件
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	apperrors "ptt-copy-ai/pkg/errors"
	"ptt-copy-ai/pkg/logger"
)

// Recovery 捕获 handler panic，记录堆栈后返回统一的 500 响应
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			// 客户端断开时 net/http 用它中止响应，交回给 http.Server 处理
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			logger.Error(c.Request.Context(), "panic recovered",
				fmt.Errorf("panic: %v", rec),
				"method", c.Request.Method,
				"route", c.FullPath(),
				"stack", string(debug.Stack()),
			)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code":    http.StatusInternalServerError,
				"message": "internal server error",
				"error": gin.H{
					"error_code": apperrors.CodeInternalError,
					"details":    "request " + c.GetString("request_id") + " failed unexpectedly",
				},
				"trace_id": c.GetString("trace_id"),
			})
		}()

		c.Next()
	}
}
