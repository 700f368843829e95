package server

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

var (
	errNotFound        = errors.New("not found")
	errInvalidInput    = errors.New("invalid input")
	errAlreadyFinished = errors.New("game already finished")
)

// respondServiceError maps service errors onto the API error taxonomy:
// invalid input 400, not found 404, already finished 409, everything else 500.
func respondServiceError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, errNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errAlreadyFinished):
		status = http.StatusConflict
	default:
		log.Printf("internal error path=%s err=%v", c.FullPath(), err)
	}
	c.JSON(status, gin.H{
		"error":  err.Error(),
		"status": "error",
	})
}
