package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Hizbul38/book-porter-api/internal/model"
)

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	GetBySession(ctx context.Context, sessionID string) (*model.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error)
	// ListByOwner returns orders for books owned by the given librarian.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Order, error)
	// Transition moves the order to target under a row lock, re-checking the
	// transition table so concurrent mutations cannot race past a terminal
	// state. Cancelling an already-cancelled order is a no-op.
	Transition(ctx context.Context, id uuid.UUID, target model.OrderStatus) (*model.Order, error)
	SetSession(ctx context.Context, id uuid.UUID, sessionID string) error
	// MarkPaid flips payment to paid under a row lock. The bool reports
	// whether this call performed the flip; an already-paid order returns
	// (order, false, nil).
	MarkPaid(ctx context.Context, id uuid.UUID, sessionID string) (*model.Order, bool, error)
	ExistsForUserAndBook(ctx context.Context, userID, bookID uuid.UUID, statuses []model.OrderStatus) (bool, error)
	RecordEvent(ctx context.Context, ev *model.OrderEvent) error
}

type pgOrderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &pgOrderRepo{pool: pool}
}

const orderColumns = `id, book_id, book_title, user_id, user_email, phone, address, amount, status, payment, COALESCE(session_id, ''), created_at, updated_at`

func scanOrder(row pgx.Row, o *model.Order) error {
	return row.Scan(
		&o.ID, &o.BookID, &o.BookTitle, &o.UserID, &o.UserEmail, &o.Phone,
		&o.Address, &o.Amount, &o.Status, &o.Payment, &o.SessionID,
		&o.CreatedAt, &o.UpdatedAt,
	)
}

func (r *pgOrderRepo) Create(ctx context.Context, order *model.Order) error {
	order.ID = uuid.New()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO orders (id, book_id, book_title, user_id, user_email, phone, address, amount, status, payment, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		 RETURNING created_at, updated_at`,
		order.ID, order.BookID, order.BookTitle, order.UserID, order.UserEmail,
		order.Phone, order.Address, order.Amount, order.Status, order.Payment,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *pgOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	o := &model.Order{}
	err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id), o)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (r *pgOrderRepo) GetBySession(ctx context.Context, sessionID string) (*model.Order, error) {
	o := &model.Order{}
	err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE session_id = $1`, sessionID), o)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order by session: %w", err)
	}
	return o, nil
}

func (r *pgOrderRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	return r.list(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *pgOrderRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Order, error) {
	return r.list(ctx,
		`SELECT o.id, o.book_id, o.book_title, o.user_id, o.user_email, o.phone, o.address, o.amount, o.status, o.payment, COALESCE(o.session_id, ''), o.created_at, o.updated_at
		 FROM orders o JOIN books b ON b.id = o.book_id
		 WHERE b.owner_id = $1 ORDER BY o.created_at DESC`, ownerID)
}

func (r *pgOrderRepo) list(ctx context.Context, query string, arg any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (r *pgOrderRepo) Transition(ctx context.Context, id uuid.UUID, target model.OrderStatus) (*model.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	o := &model.Order{}
	err = scanOrder(tx.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id), o)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}

	if o.Status == model.OrderCancelled && target == model.OrderCancelled {
		return o, nil
	}
	if !o.Status.CanTransitionTo(target) {
		return nil, ErrInvalidTransition
	}

	err = tx.QueryRow(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING updated_at`,
		id, target,
	).Scan(&o.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	o.Status = target
	return o, nil
}

func (r *pgOrderRepo) SetSession(ctx context.Context, id uuid.UUID, sessionID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE orders SET session_id = $2, updated_at = NOW() WHERE id = $1`, id, sessionID,
	)
	if err != nil {
		return fmt.Errorf("set order session: %w", err)
	}
	return nil
}

func (r *pgOrderRepo) MarkPaid(ctx context.Context, id uuid.UUID, sessionID string) (*model.Order, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	o := &model.Order{}
	err = scanOrder(tx.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id), o)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("lock order: %w", err)
	}

	if o.Payment == model.PaymentPaid {
		return o, false, nil
	}
	if o.Status == model.OrderCancelled {
		return nil, false, ErrInvalidTransition
	}

	err = tx.QueryRow(ctx,
		`UPDATE orders SET payment = $2, session_id = $3, updated_at = NOW() WHERE id = $1 RETURNING updated_at`,
		id, model.PaymentPaid, sessionID,
	).Scan(&o.UpdatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("mark order paid: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit tx: %w", err)
	}
	o.Payment = model.PaymentPaid
	o.SessionID = sessionID
	return o, true, nil
}

func (r *pgOrderRepo) ExistsForUserAndBook(ctx context.Context, userID, bookID uuid.UUID, statuses []model.OrderStatus) (bool, error) {
	ss := make([]string, len(statuses))
	for i, s := range statuses {
		ss[i] = string(s)
	}
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM orders WHERE user_id = $1 AND book_id = $2 AND status = ANY($3))`,
		userID, bookID, ss,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check orders for user and book: %w", err)
	}
	return exists, nil
}

func (r *pgOrderRepo) RecordEvent(ctx context.Context, ev *model.OrderEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO order_events (id, type, order_id, book_id, user_id, status, payment, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO NOTHING`,
		ev.ID, ev.Type, ev.OrderID, ev.BookID, ev.UserID, ev.Status, ev.Payment, ev.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("record order event: %w", err)
	}
	return nil
}
