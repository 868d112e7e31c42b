package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Hizbul38/book-porter-api/internal/model"
)

type WishlistRepository interface {
	// Add inserts the entry; ErrDuplicate when the (user, book) pair exists.
	Add(ctx context.Context, item *model.WishlistItem) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.WishlistItem, error)
	// Delete removes the entry only when it belongs to userID.
	Delete(ctx context.Context, itemID, userID uuid.UUID) error
}

type pgWishlistRepo struct{ pool *pgxpool.Pool }

func NewWishlistRepository(pool *pgxpool.Pool) WishlistRepository {
	return &pgWishlistRepo{pool: pool}
}

func (r *pgWishlistRepo) Add(ctx context.Context, item *model.WishlistItem) error {
	item.ID = uuid.New()
	ct, err := r.pool.Exec(ctx,
		`INSERT INTO wishlist_items (id, user_id, book_id, title, author, price, cover_url, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		 ON CONFLICT (user_id, book_id) DO NOTHING`,
		item.ID, item.UserID, item.BookID, item.Title, item.Author, item.Price, item.CoverURL,
	)
	if err != nil {
		return fmt.Errorf("add wishlist item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrDuplicate
	}
	return nil
}

func (r *pgWishlistRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.WishlistItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, book_id, title, author, price, cover_url, created_at
		 FROM wishlist_items WHERE user_id = $1 ORDER BY created_at DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}
	defer rows.Close()

	var items []model.WishlistItem
	for rows.Next() {
		var it model.WishlistItem
		if err := rows.Scan(&it.ID, &it.UserID, &it.BookID, &it.Title, &it.Author, &it.Price, &it.CoverURL, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan wishlist item: %w", err)
		}
		items = append(items, it)
	}
	return items, nil
}

func (r *pgWishlistRepo) Delete(ctx context.Context, itemID, userID uuid.UUID) error {
	ct, err := r.pool.Exec(ctx,
		`DELETE FROM wishlist_items WHERE id = $1 AND user_id = $2`, itemID, userID,
	)
	if err != nil {
		return fmt.Errorf("delete wishlist item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
