package paypal

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

// PlanSpec is the caller-facing description of a recurring plan. The full
// provider payload (billing cycles, payment preferences) is derived from it.
type PlanSpec struct {
	ProductID   string
	Name        string
	Description string
	Price       float64
	Currency    string // ISO 4217, e.g. USD
	Interval    string // DAY, WEEK, MONTH, YEAR

	// TrialDays, when positive, prepends a free trial cycle.
	TrialDays int
}

type createPlanRequest struct {
	ProductID          string             `json:"product_id,omitempty"`
	Name               string             `json:"name"`
	Description        string             `json:"description,omitempty"`
	Status             string             `json:"status"`
	BillingCycles      []BillingCycle     `json:"billing_cycles"`
	PaymentPreferences PaymentPreferences `json:"payment_preferences"`
}

// CreatePlan registers a billing plan with the provider and returns its
// representation. The plan is not persisted locally; the plan catalog is the
// caller's concern.
func (c *Client) CreatePlan(ctx context.Context, spec PlanSpec) (*Plan, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("paypal: plan name is required")
	}
	if spec.Price <= 0 {
		return nil, fmt.Errorf("paypal: plan price must be positive")
	}

	price := Money{
		CurrencyCode: spec.Currency,
		Value:        strconv.FormatFloat(spec.Price, 'f', 2, 64),
	}

	var cycles []BillingCycle
	sequence := 1
	if spec.TrialDays > 0 {
		cycles = append(cycles, BillingCycle{
			Frequency:   Frequency{IntervalUnit: "DAY", IntervalCount: spec.TrialDays},
			TenureType:  "TRIAL",
			Sequence:    sequence,
			TotalCycles: 1,
		})
		sequence++
	}
	cycles = append(cycles, BillingCycle{
		Frequency:     Frequency{IntervalUnit: spec.Interval, IntervalCount: 1},
		TenureType:    "REGULAR",
		Sequence:      sequence,
		TotalCycles:   0, // bill until cancelled
		PricingScheme: PricingScheme{FixedPrice: price},
	})

	req := createPlanRequest{
		ProductID:     spec.ProductID,
		Name:          spec.Name,
		Description:   spec.Description,
		Status:        "ACTIVE",
		BillingCycles: cycles,
		PaymentPreferences: PaymentPreferences{
			AutoBillOutstanding:     true,
			SetupFee:                &Money{CurrencyCode: spec.Currency, Value: "0"},
			SetupFeeFailureAction:   "CONTINUE",
			PaymentFailureThreshold: 3,
		},
	}

	var plan Plan
	if err := c.do(ctx, http.MethodPost, "/v1/billing/plans", req, &plan); err != nil {
		return nil, err
	}

	return &plan, nil
}
