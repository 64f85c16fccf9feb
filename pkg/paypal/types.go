package paypal

// Link is a HATEOAS relation in a provider response. The provider does not
// guarantee link ordering, so relations must be located by name.
type Link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method,omitempty"`
}

func linkByRel(links []Link, rel string) (string, bool) {
	for _, l := range links {
		if l.Rel == rel {
			return l.Href, true
		}
	}
	return "", false
}

// Money is a provider monetary amount: a decimal string plus an ISO 4217
// currency code.
type Money struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

// Frequency describes how often a billing cycle recurs.
type Frequency struct {
	IntervalUnit  string `json:"interval_unit"` // DAY, WEEK, MONTH, YEAR
	IntervalCount int    `json:"interval_count"`
}

// PricingScheme carries the fixed price of a billing cycle.
type PricingScheme struct {
	FixedPrice Money `json:"fixed_price"`
}

// BillingCycle is one recurring phase of a plan.
type BillingCycle struct {
	Frequency     Frequency     `json:"frequency"`
	TenureType    string        `json:"tenure_type"` // TRIAL or REGULAR
	Sequence      int           `json:"sequence"`
	TotalCycles   int           `json:"total_cycles"` // zero means until cancelled
	PricingScheme PricingScheme `json:"pricing_scheme"`
}

// PaymentPreferences configures the provider's dunning behavior.
type PaymentPreferences struct {
	AutoBillOutstanding     bool   `json:"auto_bill_outstanding"`
	SetupFee                *Money `json:"setup_fee,omitempty"`
	SetupFeeFailureAction   string `json:"setup_fee_failure_action,omitempty"`
	PaymentFailureThreshold int    `json:"payment_failure_threshold,omitempty"`
}

// Plan is the provider's representation of a billing plan.
type Plan struct {
	ID                 string              `json:"id"`
	ProductID          string              `json:"product_id,omitempty"`
	Name               string              `json:"name"`
	Description        string              `json:"description,omitempty"`
	Status             string              `json:"status"`
	BillingCycles      []BillingCycle      `json:"billing_cycles,omitempty"`
	PaymentPreferences *PaymentPreferences `json:"payment_preferences,omitempty"`
	Links              []Link              `json:"links,omitempty"`
}

// SubscriberName is the subscriber's display name.
type SubscriberName struct {
	GivenName string `json:"given_name,omitempty"`
	Surname   string `json:"surname,omitempty"`
}

// Subscriber identifies the person approving recurring billing.
type Subscriber struct {
	Name         *SubscriberName `json:"name,omitempty"`
	EmailAddress string          `json:"email_address,omitempty"`
}

// PaymentMethod narrows how the subscriber may pay.
type PaymentMethod struct {
	PayerSelected  string `json:"payer_selected,omitempty"`
	PayeePreferred string `json:"payee_preferred,omitempty"`
}

// ApplicationContext controls the provider-hosted approval flow.
type ApplicationContext struct {
	BrandName          string         `json:"brand_name,omitempty"`
	Locale             string         `json:"locale,omitempty"`
	ShippingPreference string         `json:"shipping_preference,omitempty"`
	UserAction         string         `json:"user_action,omitempty"`
	PaymentMethod      *PaymentMethod `json:"payment_method,omitempty"`
	ReturnURL          string         `json:"return_url,omitempty"`
	CancelURL          string         `json:"cancel_url,omitempty"`
}

// Subscription is the provider's representation of a subscription.
type Subscription struct {
	ID         string      `json:"id"`
	PlanID     string      `json:"plan_id"`
	Status     string      `json:"status"` // APPROVAL_PENDING, ACTIVE, SUSPENDED, CANCELLED, EXPIRED
	StartTime  string      `json:"start_time,omitempty"`
	Subscriber *Subscriber `json:"subscriber,omitempty"`
	Links      []Link      `json:"links,omitempty"`
}

// ApprovalURL returns the link the subscriber must visit to authorize the
// subscription, located by the approve relation name.
func (s *Subscription) ApprovalURL() (string, bool) {
	return linkByRel(s.Links, "approve")
}
