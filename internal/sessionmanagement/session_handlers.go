package sessionmanagement

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/audio"
	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/coreengine/pipeline"
)

const audioFormField = "audio"

// Handlers exposes the session triggers over HTTP.
type Handlers struct {
	Manager *Manager
}

func NewHandlers(manager *Manager) *Handlers {
	return &Handlers{Manager: manager}
}

// CreateSessionHandler handles POST /sessions.
func (h *Handlers) CreateSessionHandler(c *gin.Context) {
	session := h.Manager.Create()
	c.JSON(http.StatusCreated, session.Snapshot())
}

// GetSessionHandler handles GET /sessions/:id.
func (h *Handlers) GetSessionHandler(c *gin.Context) {
	session, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, session.Snapshot())
}

// DeleteSessionHandler handles DELETE /sessions/:id.
func (h *Handlers) DeleteSessionHandler(c *gin.Context) {
	if !h.Manager.Delete(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrSessionNotFound.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// AudioHandler handles POST /sessions/:id/audio. The recording arrives as a
// WAV file in the "audio" multipart field. A request without the field
// still reaches the session, which reports the missing input.
func (h *Handlers) AudioHandler(c *gin.Context) {
	session, ok := h.lookup(c)
	if !ok {
		return
	}

	var sample *audio.Sample
	fileHeader, err := c.FormFile(audioFormField)
	if err == nil {
		file, openErr := fileHeader.Open()
		if openErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded audio: " + openErr.Error()})
			return
		}
		defer file.Close()

		sample, err = audio.DecodeWAV(file)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid WAV audio: " + err.Error()})
			return
		}
	}

	snap, err := session.OnAudioCaptured(c.Request.Context(), sample)
	respond(c, snap, err)
}

// ImageHandler handles POST /sessions/:id/image.
func (h *Handlers) ImageHandler(c *gin.Context) {
	h.trigger(c, (*pipeline.Session).OnGenerateImageRequested)
}

// CaptionHandler handles POST /sessions/:id/caption.
func (h *Handlers) CaptionHandler(c *gin.Context) {
	h.trigger(c, (*pipeline.Session).OnGenerateCaptionRequested)
}

// SaveHandler handles POST /sessions/:id/save.
func (h *Handlers) SaveHandler(c *gin.Context) {
	h.trigger(c, (*pipeline.Session).OnSaveRequested)
}

func (h *Handlers) trigger(c *gin.Context, fn func(*pipeline.Session, context.Context) (pipeline.Snapshot, error)) {
	session, ok := h.lookup(c)
	if !ok {
		return
	}
	snap, err := fn(session, c.Request.Context())
	respond(c, snap, err)
}

func (h *Handlers) lookup(c *gin.Context) (*pipeline.Session, bool) {
	session, err := h.Manager.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return nil, false
	}
	return session, true
}

// respond writes the snapshot. Pipeline failures are reported in the
// snapshot's warning and error_kind fields.
func respond(c *gin.Context, snap pipeline.Snapshot, err error) {
	if err == nil {
		c.JSON(http.StatusOK, snap)
		return
	}

	if errors.Is(err, pipeline.ErrInvalidTransition) {
		if snap.Warning == "" {
			snap.Warning = err.Error()
		}
		c.JSON(http.StatusConflict, snap)
		return
	}

	switch pipeline.KindOf(err) {
	case pipeline.KindInputMissing:
		c.JSON(http.StatusBadRequest, snap)
	case "":
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, snap)
	}
}
