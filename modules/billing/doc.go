// Package billing is the HTTP module for recurring billing: plan creation,
// subscription checkout, approval callbacks and provider webhooks, plus the
// PostgreSQL and Redis adapters behind the subscription service.
package billing
