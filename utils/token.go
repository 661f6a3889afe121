package utils

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
)

var ErrNoToken = errors.New("bearer token not found")

func ExtractToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ErrNoToken
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}
