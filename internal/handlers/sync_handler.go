package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	apierrors "github.com/stwalsh4118/addrsync/internal/errors"
	"github.com/stwalsh4118/addrsync/internal/middleware"
	"github.com/stwalsh4118/addrsync/internal/repository"
	"github.com/stwalsh4118/addrsync/internal/services"
)

// SyncHandler handles sync-run HTTP requests.
type SyncHandler struct {
	pipeline    services.SyncPipeline
	defaultSRID int
}

// NewSyncHandler creates a new SyncHandler instance.
func NewSyncHandler(pipeline services.SyncPipeline, defaultSRID int) *SyncHandler {
	return &SyncHandler{
		pipeline:    pipeline,
		defaultSRID: defaultSRID,
	}
}

// RunRequest represents the body of the run endpoint. RecordIDs names the
// records to synchronize explicitly; when omitted the run falls back to the
// records marked selected in the store. SRID is optional and defaults to the
// configured projection (decimal degrees for 4326).
type RunRequest struct {
	RecordIDs []int64 `json:"record_ids" binding:"omitempty,dive,gt=0"`
	SRID      int     `json:"srid" binding:"omitempty,gt=0"`
}

// RunResponse wraps the run summary.
type RunResponse struct {
	Summary *services.SyncSummary `json:"summary"`
}

// Run handles POST /api/v1/sync/runs.
// It executes one full pipeline run over the currently selected records and
// returns the run summary.
func (h *SyncHandler) Run(c *gin.Context) {
	log := middleware.GetLogger(c)

	// An empty body is fine; the run then uses the configured defaults
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	srid := req.SRID
	if srid == 0 {
		srid = h.defaultSRID
	}

	if log != nil {
		log.Info("Starting sync run", map[string]interface{}{
			"srid":       srid,
			"record_ids": len(req.RecordIDs),
		})
	}

	summary, err := h.pipeline.Run(c.Request.Context(), req.RecordIDs, srid)
	if err != nil {
		var ambiguous *repository.AmbiguousFieldError
		switch {
		case errors.Is(err, services.ErrNoSelection):
			apierrors.NoSelection(c, "No address records are selected")
		case errors.Is(err, services.ErrRunInProgress):
			apierrors.RunInProgress(c, "A sync run is already in progress")
		case errors.As(err, &ambiguous):
			apierrors.SchemaMismatch(c, ambiguous.Error())
		default:
			apierrors.InternalServerError(c, "Sync run failed", err)
		}
		return
	}

	c.JSON(http.StatusOK, RunResponse{Summary: summary})
}
