package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/coursex/coursex-backend/internal/platform/logger"
	"github.com/coursex/coursex-backend/internal/repos"
)

// EtlRunHandler exposes the run audit trail for external monitoring. It
// serves no catalog data; queries go straight to production tables.
type EtlRunHandler struct {
	runs repos.EtlRunRepo
	log  *logger.Logger
}

func NewEtlRunHandler(runs repos.EtlRunRepo, baseLog *logger.Logger) *EtlRunHandler {
	return &EtlRunHandler{
		runs: runs,
		log:  baseLog.With("handler", "EtlRunHandler"),
	}
}

// ListRuns returns the most recent runs, newest first. ?limit= caps the page.
func (h *EtlRunHandler) ListRuns(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			RespondError(c, http.StatusBadRequest, "invalid_limit", errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}
	runs, err := h.runs.ListRecent(c.Request.Context(), limit)
	if err != nil {
		h.log.Error("List runs failed", "error", err)
		RespondError(c, http.StatusInternalServerError, "list_runs_failed", err)
		return
	}
	RespondOK(c, gin.H{"runs": runs})
}

func (h *EtlRunHandler) GetRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_run_id", err)
		return
	}
	run, err := h.runs.GetByID(c.Request.Context(), id)
	if err != nil {
		h.log.Error("Get run failed", "run_id", id, "error", err)
		RespondError(c, http.StatusInternalServerError, "get_run_failed", err)
		return
	}
	if run == nil {
		RespondError(c, http.StatusNotFound, "run_not_found", errors.New("no such run"))
		return
	}
	RespondOK(c, run)
}
