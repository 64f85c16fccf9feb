// Package subscription orchestrates the recurring-billing lifecycle on top
// of a payment provider.
//
// A subscription starts pending when checkout opens, becomes active once the
// subscriber approves it at the provider, may bounce between active and
// suspended, and ends in one of the terminal states cancelled or expired.
// Lifecycle changes arrive as provider webhooks; the package verifies them,
// maps them onto the transition graph, and applies each change as a
// compare-and-swap on the row's current status so redelivered, reordered and
// concurrent deliveries all converge to the same state. Deliveries the
// lifecycle has no use for are acknowledged and logged, never bounced back
// to the provider.
//
// The provider response captured at creation time is encrypted before it is
// persisted. Approval-return callbacks are corroborated against the provider
// rather than trusted, and pending rows whose approval window elapses are
// expired by a periodic sweep.
package subscription
