package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const HealthPath = "/healthz"

// Health reports that the process is serving.
func Health(context *gin.Context) {
	context.JSON(http.StatusOK, gin.H{"status": "ok"})
}
