package components

import (
	"roombook/internal/handler"
	"roombook/internal/handler/api"
	"roombook/internal/handler/middleware"

	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewBookingHandler,
		api.NewAvailabilityHandler,
		api.NewPaymentWebhookHandler,
		middleware.NewAuthMiddleware,
		NewHandlers,
	),
	fx.Invoke(handler.NewRouter),
)

func NewHandlers(b *api.BookingHandler, a *api.AvailabilityHandler, p *api.PaymentWebhookHandler) handler.Handlers {
	return handler.Handlers{
		Bookings:     b,
		Availability: a,
		Payments:     p,
	}
}
