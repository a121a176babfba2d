package api

import (
	"io"
	"log/slog"
	"net/http"

	resdto "roombook/internal/handler/dto/response"
	"roombook/internal/handler/httperr"
	"roombook/internal/infra/payment"
	"roombook/internal/pkg/errs"
	"roombook/internal/usecase/commands"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 1 << 20

type WebhookVerifier interface {
	Verify(token, signature string, body []byte) error
}

type PaymentWebhookHandler struct {
	verifier WebhookVerifier
	cmds     commands.PaymentCommands
}

func NewPaymentWebhookHandler(verifier WebhookVerifier, cmds commands.PaymentCommands) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{verifier: verifier, cmds: cmds}
}

// @Summary Payment webhook
// @Description Payment provider callback. Authenticated by callback token and, when configured, an HMAC-SHA256 body signature
// @Tags payments
// @Accept json
// @Produce json
// @Param X-Callback-Token header string true "Callback token"
// @Param X-Signature-256 header string false "sha256=<hex HMAC of the body>"
// @Success 200 {object} resdto.WebhookResponse
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /payments/webhook [post]
func (h *PaymentWebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Unreadable body", nil)
		return
	}
	if err := h.verifier.Verify(c.GetHeader(payment.CallbackTokenHeader), c.GetHeader(payment.SignatureHeader), body); err != nil {
		slog.Warn("payment webhook rejected", "client_ip", c.ClientIP(), "error", err)
		httperr.AbortWithError(c, http.StatusUnauthorized, err, "Invalid webhook credentials", nil)
		return
	}

	callback, err := payment.DecodeCallback(body)
	if err != nil {
		httperr.AbortWithUseCaseError(c, err)
		return
	}
	event, err := callback.Event()
	if err != nil {
		httperr.AbortWithUseCaseError(c, err)
		return
	}

	result, err := h.cmds.ProcessPaymentEvent(c.Request.Context(), event)
	if errs.Is(err, commands.ErrDuplicatePaymentEvent) {
		c.JSON(http.StatusOK, resdto.WebhookResponse{Status: "duplicate"})
		return
	}
	if err != nil {
		httperr.AbortWithUseCaseError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.WebhookResponse{
		Status:    "processed",
		BookingID: &result.BookingID,
		Confirmed: result.Confirmed,
	})
}
