package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ppdb-map-api/pkg/response"
)

// DatasetReadiness reports the admission dataset load error, nil once loaded.
type DatasetReadiness interface {
	Ready() error
}

// RequireDataset answers every request with the dataset load error while no dataset is
// available, so no route serves partial data.
func RequireDataset(readiness DatasetReadiness) gin.HandlerFunc {
	return func(c *gin.Context) {
		if readiness == nil {
			c.Next()
			return
		}
		if err := readiness.Ready(); err != nil {
			response.Abort(c, err)
			return
		}
		c.Next()
	}
}
