//go:build unit

package api_test

import (
	"errors"
	"net/http"
	nethttptest "net/http/httptest"
	"testing"

	"roombook/internal/domain/payment"
	"roombook/internal/handler/api"
	resdto "roombook/internal/handler/dto/response"
	"roombook/internal/handler/middleware"
	paymentinfra "roombook/internal/infra/payment"
	commandsmock "roombook/internal/mock/commands"
	"roombook/internal/pkg/config"
	"roombook/internal/pkg/errs"
	"roombook/internal/testutil/httptest"
	"roombook/internal/usecase/commands"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type PaymentWebhookTestSuite struct {
	suite.Suite
	router       *gin.Engine
	mockCtrl     *gomock.Controller
	mockCommands *commandsmock.MockPaymentCommands
}

const webhookSecret = "whsec"

func (s *PaymentWebhookTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()
	s.router.Use(middleware.ErrorHandler())

	s.mockCtrl = gomock.NewController(s.T())
	s.mockCommands = commandsmock.NewMockPaymentCommands(s.mockCtrl)
	verifier := paymentinfra.NewWebhookVerifier(config.PaymentConfig{CallbackToken: "cb-token", WebhookSecret: webhookSecret})
	h := api.NewPaymentWebhookHandler(verifier, s.mockCommands)

	s.router.POST("/api/payments/webhook", h.Handle)
}

func (s *PaymentWebhookTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestPaymentWebhookSuite(t *testing.T) {
	suite.Run(t, new(PaymentWebhookTestSuite))
}

func (s *PaymentWebhookTestSuite) post(body []byte, headers map[string]string) *nethttptest.ResponseRecorder {
	return httptest.PerformRequestWithHeaders(s.T(), s.router, http.MethodPost, "/api/payments/webhook", body, "", headers)
}

func signed(body []byte) map[string]string {
	return map[string]string{
		paymentinfra.CallbackTokenHeader: "cb-token",
		paymentinfra.SignatureHeader:     "sha256=" + paymentinfra.Sign(webhookSecret, body),
	}
}

// =============================================================================
// Handle
// =============================================================================

func (s *PaymentWebhookTestSuite) TestHandle() {
	body := []byte(`{"id":"inv_1","external_id":"booking-BKABCD1234-1771588800","payment_id":"pay_1","status":"PAID","paid_amount":232000,"payment_method":"EWALLET","payment_channel":"OVO"}`)

	s.Run("success: paid callback confirms the booking", func() {
		bookingID := uuid.New()
		want := payment.Event{
			ExternalID:            "booking-BKABCD1234-1771588800",
			ProviderTransactionID: "pay_1",
			Status:                payment.StatusPaid,
			AmountCents:           232000,
			Method:                payment.Method{Kind: payment.MethodEWallet, Channel: "OVO"},
		}
		s.mockCommands.EXPECT().ProcessPaymentEvent(gomock.Any(), want).
			Return(&commands.PaymentEventResult{BookingID: bookingID, Status: payment.StatusPaid, Confirmed: true}, nil).Times(1)

		rec := s.post(body, signed(body))

		var resp resdto.WebhookResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &resp)
		s.Equal("processed", resp.Status)
		s.True(resp.Confirmed)
		s.Require().NotNil(resp.BookingID)
		s.Equal(bookingID, *resp.BookingID)
	})

	s.Run("success: a redelivered callback is acknowledged", func() {
		s.mockCommands.EXPECT().ProcessPaymentEvent(gomock.Any(), gomock.Any()).
			Return(nil, commands.ErrDuplicatePaymentEvent).Times(1)

		rec := s.post(body, signed(body))

		var resp resdto.WebhookResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &resp)
		s.Equal("duplicate", resp.Status)
	})

	s.Run("error: 401 on bad credentials", func() {
		testCases := []struct {
			name    string
			headers map[string]string
		}{
			{name: "no token", headers: map[string]string{}},
			{name: "wrong token", headers: map[string]string{paymentinfra.CallbackTokenHeader: "nope"}},
			{name: "missing signature", headers: map[string]string{paymentinfra.CallbackTokenHeader: "cb-token"}},
			{name: "signature of another body", headers: signed([]byte(`{}`))},
		}
		for _, tc := range testCases {
			s.Run(tc.name, func() {
				rec := s.post(body, tc.headers)
				httptest.AssertErrorResponse(s.T(), rec, http.StatusUnauthorized, "Invalid webhook credentials")
			})
		}
	})

	s.Run("error: 400 on an undecodable or unknown-status payload", func() {
		for _, b := range [][]byte{[]byte(`{"status":`), []byte(`{"external_id":"x","id":"inv_1","status":"REVERSED"}`)} {
			rec := s.post(b, signed(b))
			httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "Invalid request")
		}
	})

	s.Run("error: maps processing failures", func() {
		testCases := []struct {
			name       string
			err        error
			wantStatus int
		}{
			{name: "unknown booking", err: errs.NotFound(commands.ErrBookingNotFound), wantStatus: http.StatusNotFound},
			{name: "store down", err: errs.Persistence(errors.New("connection reset")), wantStatus: http.StatusInternalServerError},
		}
		for _, tc := range testCases {
			s.Run(tc.name, func() {
				s.mockCommands.EXPECT().ProcessPaymentEvent(gomock.Any(), gomock.Any()).Return(nil, tc.err).Times(1)

				rec := s.post(body, signed(body))

				httptest.AssertErrorResponse(s.T(), rec, tc.wantStatus, "")
			})
		}
	})
}
