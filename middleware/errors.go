package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"heirloom/pkg/apperror"
)

const maskedMessage = "internal server error"

// ErrorHandler is the single place errors pushed with c.Error become
// responses. Outside production the cause is echoed back.
func ErrorHandler(log *zap.Logger, production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				err := apperror.Internal("panic recovered", fmt.Errorf("%v", r))
				log.Error("panic", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				if !c.Writer.Written() {
					writeError(c, log, err, production)
				}
				c.Abort()
			}
		}()

		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		writeError(c, log, c.Errors.Last().Err, production)
	}
}

func writeError(c *gin.Context, log *zap.Logger, err error, production bool) {
	appErr := apperror.From(err)
	status := appErr.Status()

	fields := []zap.Field{
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("client_ip", c.ClientIP()),
		zap.Int("status", status),
		zap.String("kind", appErr.Kind.String()),
	}
	if appErr.Err != nil {
		fields = append(fields, zap.NamedError("cause", appErr.Err))
	}
	if status >= http.StatusInternalServerError {
		log.Error(appErr.Message, fields...)
	} else {
		log.Info(appErr.Message, fields...)
	}

	body := gin.H{"success": false, "message": appErr.Message}
	if status >= http.StatusInternalServerError && production {
		body["message"] = maskedMessage
	}
	if len(appErr.Fields) > 0 {
		body["errors"] = appErr.Fields
	}
	if !production && appErr.Err != nil {
		body["cause"] = appErr.Err.Error()
	}
	c.AbortWithStatusJSON(status, body)
}

// BindError converts a gin binding failure into a validation error with one
// message per offending field.
func BindError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperror.Validation("invalid request body")
	}
	fields := make(map[string]string, len(verrs))
	for _, e := range verrs {
		name := lowerFirst(e.Field())
		switch e.Tag() {
		case "required":
			fields[name] = name + " is required"
		case "email":
			fields[name] = "invalid email format"
		case "min", "gte":
			fields[name] = fmt.Sprintf("%s must be at least %s", name, e.Param())
		case "max", "lte":
			fields[name] = fmt.Sprintf("%s must be at most %s", name, e.Param())
		case "oneof":
			fields[name] = fmt.Sprintf("%s must be one of %s", name, e.Param())
		default:
			fields[name] = name + " is invalid"
		}
	}
	return apperror.ValidationFields("validation failed", fields)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
