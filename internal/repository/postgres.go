package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/nearbuy/nearbuy-orders-service/internal/apperrors"
	"github.com/nearbuy/nearbuy-orders-service/internal/models"
)

// PostgresOrderStore implements OrderStore using PostgreSQL.
type PostgresOrderStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresOrderStore creates a new PostgreSQL order store.
func NewPostgresOrderStore(db *sql.DB, logger *slog.Logger) *PostgresOrderStore {
	return &PostgresOrderStore{
		db:     db,
		logger: logger.With(slog.String("component", "order-store")),
	}
}

const orderColumns = `
	id, buyer_id, seller_id, listing_id, amount, currency, status,
	provider_kind, provider_order_id, provider_payment_id,
	created_at, updated_at
`

// Insert persists a newly created order.
func (r *PostgresOrderStore) Insert(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (
			id, buyer_id, seller_id, listing_id, amount, currency, status,
			provider_kind, provider_order_id, provider_payment_id,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		order.ID,
		order.BuyerID,
		order.SellerID,
		order.ListingID,
		order.Amount,
		order.Currency,
		order.Status,
		order.Provider.Kind,
		order.Provider.OrderID,
		nullString(order.Provider.PaymentID),
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to insert order",
			slog.String("order_id", order.ID),
			slog.Any("error", err))
		return err
	}

	r.logger.Info("order inserted",
		slog.String("order_id", order.ID),
		slog.String("buyer_id", order.BuyerID),
		slog.Int64("amount", order.Amount))
	return nil
}

// Delete removes an order row. Used only to roll back a creation whose
// later steps failed; settled orders are permanent purchase history.
func (r *PostgresOrderStore) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// GetByID retrieves an order by its identifier.
func (r *PostgresOrderStore) GetByID(ctx context.Context, id string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetByProviderOrderID retrieves the order correlated with a provider-side
// order id. Kind is part of the key: two providers may hand out the same
// opaque id.
func (r *PostgresOrderStore) GetByProviderOrderID(ctx context.Context, kind models.ProviderKind, providerOrderID string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE provider_kind = $1 AND provider_order_id = $2`
	return r.scanOne(r.db.QueryRowContext(ctx, query, kind, providerOrderID))
}

// ListByBuyer retrieves a buyer's full purchase history, newest first.
func (r *PostgresOrderStore) ListByBuyer(ctx context.Context, buyerID string) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE buyer_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, buyerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// ListBySeller retrieves a seller's orders in the given status, newest
// first.
func (r *PostgresOrderStore) ListBySeller(ctx context.Context, sellerID string, status models.OrderStatus) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE seller_id = $1 AND status = $2 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, sellerID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// TransitionStatus applies a guarded status transition. The WHERE clause is
// the compare-and-swap: a concurrent transition that got there first makes
// this update match zero rows instead of clobbering the newer status.
func (r *PostgresOrderStore) TransitionStatus(ctx context.Context, id string, from []models.OrderStatus, to models.OrderStatus, providerPaymentID string) (*models.Order, error) {
	fromStrings := make([]string, len(from))
	for i, s := range from {
		fromStrings[i] = string(s)
	}

	query := `
		UPDATE orders
		SET status = $1,
		    provider_payment_id = COALESCE($2, provider_payment_id),
		    updated_at = $3
		WHERE id = $4 AND status = ANY($5)
		RETURNING ` + orderColumns

	row := r.db.QueryRowContext(ctx, query,
		to,
		nullString(providerPaymentID),
		time.Now(),
		id,
		pq.Array(fromStrings),
	)

	order, err := r.scanOne(row)
	if err == nil {
		r.logger.Info("order status transitioned",
			slog.String("order_id", id),
			slog.String("new_status", string(to)))
		return order, nil
	}
	if err != apperrors.ErrNotFound {
		r.logger.Error("failed to transition order status",
			slog.String("order_id", id),
			slog.Any("error", err))
		return nil, err
	}

	// Zero rows matched: either the order is gone, it already sits at the
	// target (webhook replay), or a different status won the race.
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == to {
		return current, ErrAlreadyTransitioned
	}
	return nil, apperrors.NewConflictError(
		"order is in status " + string(current.Status) + ", cannot transition to " + string(to))
}

func (r *PostgresOrderStore) scanOne(row *sql.Row) (*models.Order, error) {
	var order models.Order
	var paymentID sql.NullString

	err := row.Scan(
		&order.ID,
		&order.BuyerID,
		&order.SellerID,
		&order.ListingID,
		&order.Amount,
		&order.Currency,
		&order.Status,
		&order.Provider.Kind,
		&order.Provider.OrderID,
		&paymentID,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if paymentID.Valid {
		order.Provider.PaymentID = paymentID.String
	}
	return &order, nil
}

func (r *PostgresOrderStore) scanAll(rows *sql.Rows) ([]*models.Order, error) {
	orders := make([]*models.Order, 0)
	for rows.Next() {
		var order models.Order
		var paymentID sql.NullString

		err := rows.Scan(
			&order.ID,
			&order.BuyerID,
			&order.SellerID,
			&order.ListingID,
			&order.Amount,
			&order.Currency,
			&order.Status,
			&order.Provider.Kind,
			&order.Provider.OrderID,
			&paymentID,
			&order.CreatedAt,
			&order.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		if paymentID.Valid {
			order.Provider.PaymentID = paymentID.String
		}
		orders = append(orders, &order)
	}
	return orders, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
