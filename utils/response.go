package utils

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"collegeevents/logger"
)

// OK writes {success:true, message?, ...payload}.
func OK(c *gin.Context, status int, message string, payload gin.H) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(status, body)
}

// Fail writes {success:false, message} with the status of the error kind and aborts.
func Fail(c *gin.Context, err error) {
	ae := AsAppError(err)
	if ae.Kind == KindInternal && ae.Err != nil {
		logger.Log.Error(ae.Message,
			zap.String("path", c.Request.URL.Path),
			zap.Error(ae.Err),
		)
	}
	c.AbortWithStatusJSON(ae.Kind.Status(), gin.H{"success": false, "message": ae.Message})
}
