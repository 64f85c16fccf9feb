// Package pg bootstraps the PostgreSQL layer: a pgx/v5 connection pool with
// startup retries, goose migrations from an embedded filesystem, a
// health-check probe, and error classification helpers for the constraint
// violations the billing stores rely on.
package pg
