package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/approva/simulado-backend/internal/requestdata"
	"github.com/approva/simulado-backend/internal/services"
)

type OriginalExamHandler struct {
	svc services.OriginalExamService
}

func NewOriginalExamHandler(svc services.OriginalExamService) *OriginalExamHandler {
	return &OriginalExamHandler{svc: svc}
}

// GET /api/exams/available
func (h *OriginalExamHandler) Available(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	ids, err := h.svc.AvailableExamIDs(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"exam_ids": ids, "remaining": len(ids)})
}

// GET /api/exams/completed
func (h *OriginalExamHandler) Completed(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	completed, err := h.svc.CompletedExams(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"completed": completed})
}

// GET /api/exams/current
func (h *OriginalExamHandler) Current(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	examID, err := h.svc.CurrentExamID(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"exam_id": examID})
}
