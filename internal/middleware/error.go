package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "tabung/internal/errors"
	"tabung/internal/logger"
)

// ErrorHandler renders the last error a handler attached with c.Error.
// AppErrors keep their status and code. Anything else becomes INTERNAL_ERROR
// so store and driver messages never reach the client. Nothing is written
// when the handler already started a response.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		requestID := c.GetString(requestIDKey)

		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) {
			logger.Get().Errorw("unexpected error",
				"request_id", requestID,
				"error", err.Error(),
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
			)
			appErr = apperrors.ErrInternalServer
		} else if appErr.Internal != nil {
			logger.Get().Errorw("request failed",
				"request_id", requestID,
				"code", appErr.Code,
				"internal", appErr.Internal.Error(),
				"path", c.Request.URL.Path,
			)
		} else if appErr.StatusCode >= 500 {
			logger.Get().Warnw("request failed",
				"request_id", requestID,
				"code", appErr.Code,
				"path", c.Request.URL.Path,
			)
		}

		c.JSON(appErr.StatusCode, gin.H{
			"error": gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
		})
	}
}
