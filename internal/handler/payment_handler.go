package handler

import (
	"net/http"

	"workshop/internal/middleware"
	"workshop/internal/service"
	"workshop/pkg/response"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	paymentService service.PaymentService
	auth           *middleware.Auth
}

func NewPaymentHandler(paymentService service.PaymentService, auth *middleware.Auth) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		auth:           auth,
	}
}

func (h *PaymentHandler) RegisterRoutes(router *gin.RouterGroup) {
	invoices := router.Group("/api/invoices/:id")
	invoices.Use(h.auth.RequireRole(middleware.StaffRoles...))
	{
		invoices.POST("/payment-link", h.RequestLink)
		invoices.POST("/deposit-confirmation", h.ConfirmDeposit)
		invoices.POST("/payments", h.RecordPayment)
		invoices.GET("/payments", h.ListPayments)
	}
}

// RequestLink returns a hosted payment link for the invoice
// @Summary      Request payment link
// @Description  Reuses the stored link when allowed, otherwise creates a new bill. A gateway failure answers with a demo link and the error message.
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Invoice ID"
// @Param        payload  body      service.PaymentLinkRequest  true  "Payment Link Payload"
// @Success      200      {object}  response.Response{data=service.PaymentLinkResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/invoices/{id}/payment-link [post]
func (h *PaymentHandler) RequestLink(c *gin.Context) {
	var req service.PaymentLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	link, err := h.paymentService.RequestLink(c.Request.Context(), c.Param("id"), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, link))
}

// ConfirmDeposit records a deposit the customer paid through a link
// @Summary      Confirm deposit received
// @Description  Manual confirmation; the payload must carry confirmed=true
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Invoice ID"
// @Param        payload  body      service.ConfirmDepositRequest  true  "Confirm Deposit Payload"
// @Success      200      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/invoices/{id}/deposit-confirmation [post]
func (h *PaymentHandler) ConfirmDeposit(c *gin.Context) {
	var req service.ConfirmDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	invoice, err := h.paymentService.ConfirmDepositReceived(c.Request.Context(), c.Param("id"), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// RecordPayment records money taken offline
// @Summary      Record offline payment
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Invoice ID"
// @Param        payload  body      service.RecordPaymentRequest  true  "Record Payment Payload"
// @Success      200      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/invoices/{id}/payments [post]
func (h *PaymentHandler) RecordPayment(c *gin.Context) {
	var req service.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	invoice, err := h.paymentService.RecordPayment(c.Request.Context(), c.Param("id"), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// ListPayments returns the payment history of an invoice
// @Summary      List invoice payments
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=[]service.PaymentResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id}/payments [get]
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	payments, err := h.paymentService.ListPayments(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, payments))
}
