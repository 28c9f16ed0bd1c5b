package handler

import (
	"errors"
	"net/http"
	"time"

	"workshop/internal/model"
	"workshop/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
)

const RetryPath = "/payment/retry"

// ReceiptHandler serves the customer-facing pages the gateway redirects to.
// These routes are public: nothing in the URL is trusted as proof of payment.
type ReceiptHandler struct {
	receiptService service.ReceiptService
}

func NewReceiptHandler(receiptService service.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{receiptService: receiptService}
}

func (h *ReceiptHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET(service.ReceiptPath, h.Receipt)
	router.POST(RetryPath, h.Retry)
}

func renderPage(c *gin.Context, code int, view receiptView) {
	c.Header("Cache-Control", "no-store")
	c.Render(code, render.HTML{Template: receiptPageTemplate, Name: "receipt", Data: view})
}

// Receipt reconciles the redirect and renders the landing page
// @Summary      Payment receipt landing page
// @Description  Verifies the payment with the gateway, then redirects to the gateway receipt or shows a local receipt or retry screen
// @Tags         receipt
// @Produce      html
// @Param        invoice         query  string  true   "Invoice number"
// @Param        payment_status  query  string  false  "success, verify, failed, canceled"
// @Param        amount          query  string  false  "Amount the link was issued for"
// @Success      200
// @Router       /payment/receipt [get]
func (h *ReceiptHandler) Receipt(c *gin.Context) {
	params := service.ParseRedirect(c.Request.URL.Query())
	out := h.receiptService.Reconcile(c.Request.Context(), params)

	switch out.Status {
	case service.ReceiptInvalid:
		renderPage(c, http.StatusBadRequest, receiptView{Title: "Invalid link", Mode: "message",
			Message: "This receipt link is missing the invoice number."})
		return
	case service.ReceiptNotFound:
		renderPage(c, http.StatusNotFound, receiptView{Title: "Invoice not found", Mode: "message",
			Message: "We could not find invoice " + out.InvoiceNo + ". Please contact the workshop."})
		return
	case service.ReceiptError:
		renderPage(c, http.StatusInternalServerError, receiptView{Title: "Something went wrong", Mode: "message",
			Message: "Please refresh this page in a moment."})
		return
	}

	view := receiptView{
		Title:        "Payment Receipt",
		InvoiceNo:    out.InvoiceNo,
		CustomerName: out.CustomerName,
		VehiclePlate: out.VehiclePlate,
		AmountPaid:   out.AmountPaid.StringFixed(2),
		BalanceDue:   out.BalanceDue.StringFixed(2),
		PaidOn:       time.Now().Format("02 Jan 2006"),
		RetryPath:    RetryPath,
	}
	switch {
	case out.RedirectURL != "":
		view.Mode = "redirect"
		view.RedirectURL = out.RedirectURL
		view.DelayMillis = out.RedirectDelay.Milliseconds()
	case out.CanRetry:
		view.Mode = "retry"
	default:
		view.Mode = "receipt"
	}
	renderPage(c, http.StatusOK, view)
}

// Retry issues a fresh link for the outstanding balance and sends the customer to it
// @Summary      Retry payment
// @Tags         receipt
// @Accept       x-www-form-urlencoded
// @Param        invoice  formData  string  true  "Invoice number"
// @Success      302
// @Router       /payment/retry [post]
func (h *ReceiptHandler) Retry(c *gin.Context) {
	invoiceNo := c.PostForm("invoice")
	if invoiceNo == "" {
		invoiceNo = c.Query("invoice")
	}

	url, err := h.receiptService.RetryPayment(c.Request.Context(), invoiceNo)
	if err == nil {
		c.Redirect(http.StatusFound, url)
		return
	}
	_ = c.Error(err)

	view := receiptView{Title: "Payment unavailable", Mode: "retry", InvoiceNo: invoiceNo, RetryPath: RetryPath}
	switch {
	case errors.Is(err, model.ErrNotFound):
		view.Mode = "message"
		view.Title = "Invoice not found"
		view.Message = "We could not find invoice " + invoiceNo + ". Please contact the workshop."
	case errors.Is(err, model.ErrAlreadyPaid):
		view.Mode = "message"
		view.Title = "Already paid"
		view.Message = "Invoice " + invoiceNo + " has no outstanding balance."
	case errors.Is(err, model.ErrValidation):
		view.Mode = "message"
		view.Message = "This invoice cannot be paid online. Please contact the workshop."
	default:
		view.Message = "The payment provider is not responding. Please try again in a moment."
	}
	renderPage(c, statusFor(err), view)
}
