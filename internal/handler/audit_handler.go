package handler

import (
	"net/http"

	"workshop/internal/middleware"
	"workshop/internal/service"
	"workshop/pkg/pagination"
	"workshop/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
	auth         *middleware.Auth
}

func NewAuditHandler(auditService service.AuditService, auth *middleware.Auth) *AuditHandler {
	return &AuditHandler{auditService: auditService, auth: auth}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/audit-logs")
	group.Use(h.auth.RequireRole(middleware.RoleAdmin, middleware.RoleManager)) // Protect history logs
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs returns the ledger history, newest first
// @Summary      Get audit logs
// @Description  Invoice and payment actions, optionally restricted to one invoice or action
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        invoice_id  query     string  false  "Invoice ID"
// @Param        action      query     string  false  "Action (CREATE_INVOICE, GENERATE_PAYMENT_LINK, GATEWAY_PAYMENT, ...)"
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Number of items per page (default 20)"
// @Success      200         {object}  response.Response{data=response.Page}
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	p := pagination.Parse(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), service.AuditFilter{
		InvoiceID: c.Query("invoice_id"),
		Action:    c.Query("action"),
		Page:      p.Page,
		Limit:     p.Limit,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to retrieve audit logs: "+err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, logs, total, p.Page, p.Limit))
}
