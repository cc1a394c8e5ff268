package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/approva/simulado-backend/internal/domain"
	"github.com/approva/simulado-backend/internal/platform/apierr"
	"github.com/approva/simulado-backend/internal/requestdata"
	"github.com/approva/simulado-backend/internal/services"
)

type SimuladoHandler struct {
	svc services.LifecycleService
}

func NewSimuladoHandler(svc services.LifecycleService) *SimuladoHandler {
	return &SimuladoHandler{svc: svc}
}

// POST /api/simulados/adaptive
func (h *SimuladoHandler) StartAdaptive(c *gin.Context) {
	res, err := h.svc.StartAdaptive(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, res)
}

// POST /api/simulados/original
func (h *SimuladoHandler) StartOriginal(c *gin.Context) {
	res, err := h.svc.StartOriginal(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, res)
}

type startCustomRequest struct {
	Selections []domain.CustomPracticeSelection `json:"selections"`
	TotalCount int                              `json:"total_count"`
}

// POST /api/simulados/custom
func (h *SimuladoHandler) StartCustom(c *gin.Context) {
	var req startCustomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.InvalidPayload("invalid request body: %v", err))
		return
	}
	res, err := h.svc.StartCustomPractice(c.Request.Context(), req.Selections, req.TotalCount)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, res)
}

type finalizeRequest struct {
	AnsweredItems []domain.AnsweredItemPatch `json:"answered_items"`
}

// POST /api/simulados/:id/finalize
func (h *SimuladoHandler) Finalize(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, apierr.InvalidPayload("invalid run id"))
		return
	}
	var req finalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.InvalidPayload("invalid request body: %v", err))
		return
	}
	run, err := h.svc.Finalize(c.Request.Context(), runID, req.AnsweredItems)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"run": run})
}

type module2Request struct {
	Module1CorrectCount int `json:"module_1_correct_count"`
}

// POST /api/simulados/:id/module2
func (h *SimuladoHandler) LoadModule2(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, apierr.InvalidPayload("invalid run id"))
		return
	}
	var req module2Request
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.InvalidPayload("invalid request body: %v", err))
		return
	}
	res, err := h.svc.LoadModule2(c.Request.Context(), runID, req.Module1CorrectCount)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, res)
}

// GET /api/simulados/:id
func (h *SimuladoHandler) GetRun(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, apierr.InvalidPayload("invalid run id"))
		return
	}
	run, err := h.svc.GetRun(c.Request.Context(), runID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"run": run})
}

// GET /api/simulados/:id/items
func (h *SimuladoHandler) ListItems(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, apierr.InvalidPayload("invalid run id"))
		return
	}
	items, err := h.svc.ListItems(c.Request.Context(), runID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"items": items})
}

// GET /api/simulados
func (h *SimuladoHandler) ListRuns(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	runs, err := h.svc.ListRuns(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"runs": runs})
}

// GET /api/simulados/latest
func (h *SimuladoHandler) LatestRun(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	run, err := h.svc.LatestRun(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"run": run})
}

// DELETE /api/simulados/:id
func (h *SimuladoHandler) DeleteRun(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, apierr.InvalidPayload("invalid run id"))
		return
	}
	if err := h.svc.DeleteRun(c.Request.Context(), runID); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": runID.String()})
}

// GET /api/simulados/stats
func (h *SimuladoHandler) Stats(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	stats, err := h.svc.Stats(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, stats)
}
