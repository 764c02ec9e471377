package sessionmanagement

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/datastore"
)

const maxArtifactListLimit = 500

// RecordReader reads stored artifact records.
type RecordReader interface {
	ListArtifactRecords(ctx context.Context, limit int) ([]datastore.ArtifactRecord, error)
	GetArtifactRecord(ctx context.Context, id int64) (*datastore.ArtifactRecord, error)
}

// ListArtifactsHandler handles GET /admin/artifacts?limit=N.
func ListArtifactsHandler(records RecordReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 50
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = min(n, maxArtifactListLimit)
		}

		list, err := records.ListArtifactRecords(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list artifacts: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// GetArtifactHandler handles GET /admin/artifacts/:id.
func GetArtifactHandler(records RecordReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid artifact ID"})
			return
		}

		record, err := records.GetArtifactRecord(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, datastore.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Artifact not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get artifact: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, record)
	}
}
