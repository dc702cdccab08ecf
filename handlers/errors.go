package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"worldroom/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var kindStatus = map[string]int{
	"not_found":    http.StatusNotFound,
	"conflict":     http.StatusConflict,
	"validation":   http.StatusBadRequest,
	"forbidden":    http.StatusForbidden,
	"unauthorized": http.StatusUnauthorized,
	"transient":    http.StatusServiceUnavailable,
}

func respondError(c *gin.Context, err error) {
	kind := services.Kind(err)
	status, ok := kindStatus[kind]
	if !ok {
		logrus.WithError(err).WithField("path", c.FullPath()).Error("Unhandled error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "kind": kind})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": kind})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "kind": "validation"})
}

var errInvalidID = errors.New("invalid id")

func paramID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errInvalidID
	}
	return uint(id), nil
}
