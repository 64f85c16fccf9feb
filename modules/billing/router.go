package billing

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/billingkit/pkg/subscription"
)

// Router mounts the billing HTTP surface:
//
//	POST /plans                  register a billing plan with the provider
//	POST /subscriptions          open a subscription, returns the approval URL
//	GET  /subscriptions/return   approval-return callback from the provider
//	GET  /subscriptions/cancel   approval-cancel callback from the provider
//	POST /webhooks/paypal        provider webhook deliveries
func Router(svc subscription.Service, log *slog.Logger) chi.Router {
	if svc == nil {
		panic("billing: subscription.Service is required")
	}
	if log == nil {
		log = slog.Default()
	}

	h := &handlers{svc: svc, log: log}

	r := chi.NewRouter()
	r.Post("/plans", h.createPlan)
	r.Route("/subscriptions", func(r chi.Router) {
		r.Post("/", h.subscribe)
		r.Get("/return", h.approvalReturn)
		r.Get("/cancel", h.approvalCancel)
	})
	r.Post("/webhooks/paypal", h.webhook)

	return r
}
