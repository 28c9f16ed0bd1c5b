package handler

import (
	"io"
	"net/http"

	"workshop/internal/middleware"
	"workshop/internal/service"
	"workshop/pkg/pagination"
	"workshop/pkg/response"

	"github.com/gin-gonic/gin"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceService
	auth           *middleware.Auth
}

func NewInvoiceHandler(invoiceService service.InvoiceService, auth *middleware.Auth) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		auth:           auth,
	}
}

func (h *InvoiceHandler) RegisterRoutes(router *gin.RouterGroup) {
	invoices := router.Group("/api/invoices")
	invoices.Use(h.auth.RequireRole(middleware.StaffRoles...))
	{
		invoices.POST("", h.CreateInvoice)
		invoices.GET("", h.ListInvoices)
		invoices.GET("/watch", h.WatchInvoices)
		invoices.GET("/number/:invoiceNo", h.GetInvoiceByNumber)
		invoices.GET("/:id", h.GetInvoice)
		invoices.DELETE("/:id", h.auth.RequireRole(middleware.RoleAdmin, middleware.RoleManager), h.DeleteInvoice)
	}
}

func filterFromQuery(c *gin.Context) service.InvoiceFilter {
	p := pagination.Parse(c)
	return service.InvoiceFilter{
		PaymentStatus: c.Query("payment_status"),
		InvoiceNo:     c.Query("invoice_no"),
		Search:        c.Query("search"),
		Sort:          pagination.ParseSort(c, pagination.InvoiceSortFields, pagination.DefaultInvoiceSort),
		Page:          p.Page,
		Limit:         p.Limit,
	}
}

// CreateInvoice creates a repair invoice
// @Summary      Create invoice
// @Description  Creates an invoice from parts and labor lines, optionally with a deposit taken at the counter or a deposit to collect by link
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateInvoiceRequest  true  "Create Invoice Payload"
// @Success      201      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req service.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, invoice))
}

// ListInvoices returns a paginated list of invoices
// @Summary      List invoices
// @Description  Retrieves a paginated list of invoices, newest number first
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        payment_status  query     string  false  "Filter by payment status (pending, deposit-paid, paid)"
// @Param        invoice_no      query     string  false  "Partial invoice number"
// @Param        search          query     string  false  "Customer name or vehicle plate"
// @Param        sort            query     string  false  "created_at, invoice_no, total or balance_due (default created_at)"
// @Param        order           query     string  false  "asc or desc (default desc)"
// @Param        page            query     int     false  "Page number (default 1)"
// @Param        limit           query     int     false  "Number of items per page (default 20)"
// @Success      200             {object}  response.Response{data=response.Page}
// @Failure      500             {object}  response.Response
// @Router       /api/invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	filter := filterFromQuery(c)

	invoices, total, err := h.invoiceService.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, invoices, total, filter.Page, filter.Limit))
}

// GetInvoice returns one invoice with its items and payment history
// @Summary      Get invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// GetInvoiceByNumber looks an invoice up by its INV- number
// @Summary      Get invoice by number
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        invoiceNo  path      string  true  "Invoice number"
// @Success      200        {object}  response.Response{data=service.InvoiceResponse}
// @Failure      404        {object}  response.Response
// @Router       /api/invoices/number/{invoiceNo} [get]
func (h *InvoiceHandler) GetInvoiceByNumber(c *gin.Context) {
	invoice, err := h.invoiceService.GetInvoiceByNumber(c.Request.Context(), c.Param("invoiceNo"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// DeleteInvoice removes an invoice and its history
// @Summary      Delete invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id} [delete]
func (h *InvoiceHandler) DeleteInvoice(c *gin.Context) {
	if err := h.invoiceService.DeleteInvoice(c.Request.Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Invoice deleted"}))
}

// WatchInvoices streams list snapshots as server-sent events
// @Summary      Watch invoices
// @Description  Sends the filtered invoice list immediately and again after every invoice change
// @Tags         invoices
// @Security     BearerAuth
// @Produce      text/event-stream
// @Param        payment_status  query  string  false  "Filter by payment status"
// @Param        limit           query  int     false  "Number of items per snapshot (default 20)"
// @Router       /api/invoices/watch [get]
func (h *InvoiceHandler) WatchInvoices(c *gin.Context) {
	snapshots, err := h.invoiceService.WatchInvoices(c.Request.Context(), filterFromQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		snap, ok := <-snapshots
		if !ok {
			return false
		}
		c.SSEvent("snapshot", snap)
		return true
	})
}
