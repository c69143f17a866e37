package handler

import (
	"net/http"

	"rentalhub/internal/apierror"
	"rentalhub/internal/dto"
	"rentalhub/internal/service"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct{ svc service.AuditService }

func NewAuditHandler(svc service.AuditService) *AuditHandler {
	return &AuditHandler{svc: svc}
}

// List godoc
// @Summary Audit trail, newest first
// @Tags audit
// @Produce json
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 50, max 200)"
// @Param action query string false "Exact action, e.g. invoice.update"
// @Param target query string false "Exact target, e.g. an invoice number"
// @Success 200 {object} dto.AuditListResponse
// @Router /v1/audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	var filter dto.AuditFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid query: "+err.Error()))
		return
	}
	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
