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

type ReviewRepository interface {
	// Create inserts the review; ErrDuplicate when this user already
	// reviewed this book.
	Create(ctx context.Context, review *model.Review) error
	GetByUserAndBook(ctx context.Context, userID, bookID uuid.UUID) (*model.Review, error)
	ListByBook(ctx context.Context, bookID uuid.UUID) ([]model.Review, error)
	Summary(ctx context.Context, bookID uuid.UUID) (*model.ReviewSummary, error)
}

type pgReviewRepo struct{ pool *pgxpool.Pool }

func NewReviewRepository(pool *pgxpool.Pool) ReviewRepository {
	return &pgReviewRepo{pool: pool}
}

func (r *pgReviewRepo) Create(ctx context.Context, review *model.Review) error {
	review.ID = uuid.New()
	ct, err := r.pool.Exec(ctx,
		`INSERT INTO reviews (id, book_id, user_id, user_name, rating, comment, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())
		 ON CONFLICT (book_id, user_id) DO NOTHING`,
		review.ID, review.BookID, review.UserID, review.UserName, review.Rating, review.Comment,
	)
	if err != nil {
		return fmt.Errorf("create review: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrDuplicate
	}
	return nil
}

func (r *pgReviewRepo) GetByUserAndBook(ctx context.Context, userID, bookID uuid.UUID) (*model.Review, error) {
	rv := &model.Review{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, book_id, user_id, user_name, rating, comment, created_at
		 FROM reviews WHERE user_id = $1 AND book_id = $2`,
		userID, bookID,
	).Scan(&rv.ID, &rv.BookID, &rv.UserID, &rv.UserName, &rv.Rating, &rv.Comment, &rv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	return rv, nil
}

func (r *pgReviewRepo) ListByBook(ctx context.Context, bookID uuid.UUID) ([]model.Review, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, book_id, user_id, user_name, rating, comment, created_at
		 FROM reviews WHERE book_id = $1 ORDER BY created_at DESC`, bookID,
	)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []model.Review
	for rows.Next() {
		var rv model.Review
		if err := rows.Scan(&rv.ID, &rv.BookID, &rv.UserID, &rv.UserName, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, rv)
	}
	return reviews, nil
}

func (r *pgReviewRepo) Summary(ctx context.Context, bookID uuid.UUID) (*model.ReviewSummary, error) {
	s := &model.ReviewSummary{}
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(AVG(rating), 0), COUNT(*) FROM reviews WHERE book_id = $1`, bookID,
	).Scan(&s.Average, &s.Count)
	if err != nil {
		return nil, fmt.Errorf("review summary: %w", err)
	}
	return s, nil
}
