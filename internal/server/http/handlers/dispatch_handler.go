package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/growthmart/internal/domain/model"
	"github.com/polkiloo/growthmart/internal/server/http/dto"
)

// DispatchHandler triggers lifecycle transitions.
type DispatchHandler struct {
	facade DispatchFacade
}

// NewDispatchHandler constructs DispatchHandler.
func NewDispatchHandler(facade DispatchFacade) *DispatchHandler {
	return &DispatchHandler{facade: facade}
}

// Dispatch handles POST /api/orders/:id/dispatch. Non pending orders are returned unchanged.
func (h *DispatchHandler) Dispatch(c *gin.Context) {
	order, err := h.facade.Dispatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(*order))
}

// Progress handles POST /api/orders/:id/progress.
func (h *DispatchHandler) Progress(c *gin.Context) {
	var req dto.ProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "malformed progress payload")
		return
	}
	status := model.OrderStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if !status.Valid() {
		abortBadRequest(c, "unknown status")
		return
	}

	order, err := h.facade.RecordProgress(c.Request.Context(), c.Param("id"), model.ProgressUpdate{
		Status:   status,
		Progress: req.Progress,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(*order))
}

// Sweep handles POST /api/orders/sweep.
func (h *DispatchHandler) Sweep(c *gin.Context) {
	report, err := h.facade.SweepStalePending(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SweepResponse{
		Selected:   report.Selected,
		Dispatched: report.Dispatched,
		Skipped:    report.Skipped,
		Failed:     report.Failed,
	})
}
