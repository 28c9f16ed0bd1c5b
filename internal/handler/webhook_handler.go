package handler

import (
	"crypto/subtle"
	"net/http"

	"workshop/internal/service"
	"workshop/pkg/response"

	"github.com/gin-gonic/gin"
)

const WebhookSecretHeader = "X-Webhook-Secret"

// WebhookHandler accepts gateway payment notifications. The payload only names
// the bill; the gateway status check decides whether money is credited.
type WebhookHandler struct {
	receiptService service.ReceiptService
	secret         []byte
}

func NewWebhookHandler(receiptService service.ReceiptService, secret string) *WebhookHandler {
	return &WebhookHandler{receiptService: receiptService, secret: []byte(secret)}
}

func (h *WebhookHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST(service.WebhookPath, h.requireSecret, h.PaymentWebhook)
}

func (h *WebhookHandler) requireSecret(c *gin.Context) {
	if len(h.secret) == 0 {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, response.Error(http.StatusServiceUnavailable, "Webhook is not configured"))
		return
	}
	got := []byte(c.GetHeader(WebhookSecretHeader))
	if subtle.ConstantTimeCompare(got, h.secret) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid webhook secret"))
		return
	}
	c.Next()
}

type webhookResult struct {
	InvoiceNo  string `json:"invoice_no"`
	Status     string `json:"status"`
	Credited   bool   `json:"credited"`
	BalanceDue string `json:"balance_due"`
}

// PaymentWebhook reconciles a gateway notification
// @Summary      Gateway payment webhook
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        X-Webhook-Secret  header    string                  true  "Shared secret"
// @Param        payload           body      service.WebhookPayload  true  "Notification"
// @Success      200               {object}  response.Response{data=webhookResult}
// @Failure      400               {object}  response.Response
// @Failure      401               {object}  response.Response
// @Failure      404               {object}  response.Response
// @Router       /api/payments/webhook [post]
func (h *WebhookHandler) PaymentWebhook(c *gin.Context) {
	var payload service.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		bindError(c, err)
		return
	}

	out, err := h.receiptService.HandleWebhook(c.Request.Context(), payload)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, webhookResult{
		InvoiceNo:  out.InvoiceNo,
		Status:     string(out.Status),
		Credited:   out.Credited,
		BalanceDue: out.BalanceDue.StringFixed(2),
	}))
}
