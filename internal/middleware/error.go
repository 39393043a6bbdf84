package middleware

import (
	"net/http"

	"firebase_auth_session/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler renders errors attached with c.Error as a short plain-text page for the browser
// tab that hit the loopback server. Platform errors show their code; anything else is logged
// and shown generically.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		if authErr, ok := common.IsAuthError(err); ok {
			c.String(http.StatusBadRequest, "Sign-in failed (%s). You can close this window.", authErr.Code)
			return
		}

		logger.Error("Unhandled callback error",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString(RequestIDContextKey)),
		)
		c.String(http.StatusInternalServerError, "Sign-in failed. You can close this window.")
	}
}
