package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/billingkit/pkg/pg"
	"github.com/dmitrymomot/billingkit/pkg/subscription"
)

// pgStore implements subscription.Store on PostgreSQL. Status changes go
// through a conditional UPDATE so concurrent webhook deliveries serialize on
// the row's current status instead of overwriting each other.
type pgStore struct {
	pool *pgxpool.Pool
}

// NewStore creates a PostgreSQL-backed subscription store.
func NewStore(pool *pgxpool.Pool) subscription.Store {
	if pool == nil {
		panic("billing: pgxpool.Pool is required")
	}
	return &pgStore{pool: pool}
}

func (s *pgStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	const query = `
		INSERT INTO subscriptions (id, user_id, plan_id, provider_subscription_id, status, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.pool.Exec(ctx, query,
		sub.ID, sub.UserID, sub.PlanID, sub.ProviderSubID,
		string(sub.Status), sub.Metadata, sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return subscription.ErrSubscriptionAlreadyExists
		}
		return fmt.Errorf("insert subscription: %w", err)
	}

	return nil
}

func (s *pgStore) FindByProviderID(ctx context.Context, providerSubID string) (*subscription.Subscription, error) {
	const query = `
		SELECT id, user_id, plan_id, provider_subscription_id, status, metadata, created_at, updated_at
		FROM subscriptions
		WHERE provider_subscription_id = $1`

	return s.scanOne(s.pool.QueryRow(ctx, query, providerSubID))
}

func (s *pgStore) FindByUser(ctx context.Context, userID uuid.UUID) (*subscription.Subscription, error) {
	const query = `
		SELECT id, user_id, plan_id, provider_subscription_id, status, metadata, created_at, updated_at
		FROM subscriptions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	return s.scanOne(s.pool.QueryRow(ctx, query, userID))
}

func (s *pgStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to subscription.Status) error {
	const query = `
		UPDATE subscriptions
		SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`

	tag, err := s.pool.Exec(ctx, query, id, string(from), string(to))
	if err != nil {
		return fmt.Errorf("update subscription status: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// No row moved: either the id is unknown or another writer changed the
	// status first. Distinguish so callers can re-read on the latter.
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM subscriptions WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check subscription existence: %w", err)
	}
	if !exists {
		return subscription.ErrSubscriptionNotFound
	}
	return subscription.ErrStaleStatus
}

func (s *pgStore) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]subscription.Subscription, error) {
	const query = `
		SELECT id, user_id, plan_id, provider_subscription_id, status, metadata, created_at, updated_at
		FROM subscriptions
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at
		LIMIT $3`

	rows, err := s.pool.Query(ctx, query, string(subscription.StatusPending), cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []subscription.Subscription
	for rows.Next() {
		var sub subscription.Subscription
		var status string
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.PlanID, &sub.ProviderSubID,
			&status, &sub.Metadata, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		sub.Status = subscription.Status(status)
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending subscriptions: %w", err)
	}

	return subs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *pgStore) scanOne(row rowScanner) (*subscription.Subscription, error) {
	var sub subscription.Subscription
	var status string
	err := row.Scan(&sub.ID, &sub.UserID, &sub.PlanID, &sub.ProviderSubID,
		&status, &sub.Metadata, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, subscription.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("query subscription: %w", err)
	}
	sub.Status = subscription.Status(status)
	return &sub, nil
}
