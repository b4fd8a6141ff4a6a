package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "moneta/internal/errors"
	"moneta/internal/logger"
)

// errorBody is the JSON envelope of every error response.
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ErrorHandler renders the last error a handler attached with c.Error.
// Clients only ever see an AppError's code and message; the wrapped cause
// and non-AppErrors are logged with the request ID and answered with
// INTERNAL_ERROR.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		log := logger.Named("http").With(
			"request_id", c.GetString(requestIDKey),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"user_id", c.GetString(userIDKey),
		)

		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) {
			log.Errorw("unhandled error", zap.Error(err))
			appErr = apperrors.ErrInternalServer
		} else if appErr.Internal != nil {
			log.Errorw("request failed", "code", appErr.Code, zap.Error(appErr.Internal))
		}

		var body errorBody
		body.Error.Code = appErr.Code
		body.Error.Message = appErr.Message
		c.AbortWithStatusJSON(appErr.StatusCode, body)
	}
}
