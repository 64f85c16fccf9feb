package billing

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/dmitrymomot/billingkit/pkg/logger"
	"github.com/dmitrymomot/billingkit/pkg/paypal"
	"github.com/dmitrymomot/billingkit/pkg/subscription"
)

const maxRequestBytes = 1 << 20

type handlers struct {
	svc subscription.Service
	log *slog.Logger
}

type createPlanRequest struct {
	ProductID   string  `json:"product_id,omitempty"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
	Interval    string  `json:"interval"`
	TrialDays   int     `json:"trial_days,omitempty"`
}

type planResponse struct {
	PlanID string `json:"plan_id"`
	Status string `json:"status"`
}

func (h *handlers) createPlan(w http.ResponseWriter, r *http.Request) {
	var req createPlanRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	plan, err := h.svc.CreatePlan(r.Context(), paypal.PlanSpec{
		ProductID:   req.ProductID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Currency:    req.Currency,
		Interval:    req.Interval,
		TrialDays:   req.TrialDays,
	})
	if err != nil {
		h.respondProviderError(w, r, err, "plan creation failed")
		return
	}

	respondJSON(w, http.StatusCreated, planResponse{PlanID: plan.ID, Status: plan.Status})
}

type subscribeRequest struct {
	UserID    uuid.UUID `json:"user_id"`
	PlanID    string    `json:"plan_id"`
	Email     string    `json:"email,omitempty"`
	GivenName string    `json:"given_name,omitempty"`
	Surname   string    `json:"surname,omitempty"`
}

type subscribeResponse struct {
	SubscriptionID string `json:"subscription_id"`
	ApprovalURL    string `json:"approval_url"`
}

func (h *handlers) subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	checkout, err := h.svc.Subscribe(r.Context(), subscription.SubscribeRequest{
		UserID:    req.UserID,
		PlanID:    req.PlanID,
		Email:     req.Email,
		GivenName: req.GivenName,
		Surname:   req.Surname,
	})
	switch {
	case errors.Is(err, subscription.ErrMissingUserID),
		errors.Is(err, subscription.ErrMissingPlanID):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, subscription.ErrSubscriptionAlreadyExists):
		respondError(w, http.StatusConflict, "subscription already exists")
		return
	case err != nil:
		h.respondProviderError(w, r, err, "subscribe failed")
		return
	}

	respondJSON(w, http.StatusCreated, subscribeResponse{
		SubscriptionID: checkout.SubscriptionID.String(),
		ApprovalURL:    checkout.ApprovalURL,
	})
}

type approvalResponse struct {
	SubscriptionID string `json:"subscription_id"`
	Status         string `json:"status"`
}

// approvalReturn lands the subscriber back from the provider's approval
// page. The provider appends subscription_id to the return URL; the claim is
// corroborated with the provider before the row activates.
func (h *handlers) approvalReturn(w http.ResponseWriter, r *http.Request) {
	providerSubID := r.URL.Query().Get("subscription_id")
	if providerSubID == "" {
		respondError(w, http.StatusBadRequest, "subscription_id is required")
		return
	}

	sub, err := h.svc.ConfirmApproval(r.Context(), providerSubID)
	switch {
	case errors.Is(err, subscription.ErrSubscriptionNotFound):
		respondError(w, http.StatusNotFound, "unknown subscription")
		return
	case errors.Is(err, subscription.ErrNotApproved):
		respondError(w, http.StatusConflict, "subscription not approved yet")
		return
	case err != nil:
		h.respondProviderError(w, r, err, "approval confirmation failed")
		return
	}

	respondJSON(w, http.StatusOK, approvalResponse{
		SubscriptionID: sub.ProviderSubID,
		Status:         string(sub.Status),
	})
}

// approvalCancel lands the subscriber who backed out of the approval page.
// The pending row stays; the stale sweep expires it if they never return.
func (h *handlers) approvalCancel(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "approval_cancelled"})
}

// webhook receives provider deliveries. Responses are deliberately bare: the
// sender learns accepted or not, never why. Diagnostic detail goes to logs.
func (h *handlers) webhook(w http.ResponseWriter, r *http.Request) {
	event, err := paypal.EventFromRequest(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	err = h.svc.HandleWebhook(r.Context(), event)
	switch {
	case errors.Is(err, paypal.ErrSignatureInvalid):
		w.WriteHeader(http.StatusForbidden)
	case errors.Is(err, subscription.ErrMalformedEvent):
		w.WriteHeader(http.StatusBadRequest)
	case err != nil:
		// Transient failure; a 5xx makes the provider redeliver.
		h.log.ErrorContext(r.Context(), "webhook processing failed",
			logger.Component("billing"),
			logger.TransmissionID(event.TransmissionID),
			logger.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusOK)
	}
}

// respondProviderError maps provider failures onto HTTP statuses without
// leaking the provider's error documents to API clients.
func (h *handlers) respondProviderError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	var rejected *paypal.RejectedError
	var unavailable *paypal.UnavailableError

	h.log.ErrorContext(r.Context(), msg,
		logger.Component("billing"),
		logger.Error(err))

	switch {
	case errors.As(err, &rejected):
		respondError(w, http.StatusUnprocessableEntity, "request rejected by payment provider")
	case errors.As(err, &unavailable):
		respondError(w, http.StatusBadGateway, "payment provider unavailable")
	case errors.Is(err, paypal.ErrAuthFailed):
		respondError(w, http.StatusBadGateway, "payment provider unavailable")
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
