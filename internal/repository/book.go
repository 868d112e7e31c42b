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

// BookFilter scopes a catalog listing. When ViewerAll is false only
// published books are returned, except books owned by ViewerID.
type BookFilter struct {
	Search    string
	Category  string
	OwnerID   *uuid.UUID
	Status    *model.BookStatus
	ViewerAll bool
	ViewerID  *uuid.UUID
	Limit     int
	Offset    int
	Sort      string
	Order     string
}

type BookRepository interface {
	Create(ctx context.Context, book *model.Book) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Book, error)
	List(ctx context.Context, f BookFilter) ([]model.Book, int, error)
	Update(ctx context.Context, book *model.Book) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.BookStatus) error
	// DeleteCascade removes the book and every order (and order event)
	// referencing it in one transaction. Returns the number of orders removed.
	DeleteCascade(ctx context.Context, id uuid.UUID) (int64, error)
}

type pgBookRepo struct{ pool *pgxpool.Pool }

func NewBookRepository(pool *pgxpool.Pool) BookRepository {
	return &pgBookRepo{pool: pool}
}

const bookColumns = `id, title, author, cover_url, price, category, description, status, owner_id, created_at, updated_at`

func scanBook(row pgx.Row, b *model.Book) error {
	return row.Scan(
		&b.ID, &b.Title, &b.Author, &b.CoverURL, &b.Price, &b.Category,
		&b.Description, &b.Status, &b.OwnerID, &b.CreatedAt, &b.UpdatedAt,
	)
}

func (r *pgBookRepo) Create(ctx context.Context, book *model.Book) error {
	book.ID = uuid.New()
	query := `INSERT INTO books (id, title, author, cover_url, price, category, description, status, owner_id, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
			  RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		book.ID, book.Title, book.Author, book.CoverURL, book.Price,
		book.Category, book.Description, book.Status, book.OwnerID,
	).Scan(&book.CreatedAt, &book.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create book: %w", err)
	}
	return nil
}

func (r *pgBookRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Book, error) {
	b := &model.Book{}
	err := scanBook(r.pool.QueryRow(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = $1`, id), b)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return b, nil
}

func (r *pgBookRepo) List(ctx context.Context, f BookFilter) ([]model.Book, int, error) {
	allowedSorts := map[string]bool{"title": true, "price": true, "created_at": true}
	if !allowedSorts[f.Sort] {
		f.Sort = "created_at"
	}
	if f.Order != "asc" && f.Order != "desc" {
		f.Order = "desc"
	}

	var status string
	if f.Status != nil {
		status = string(*f.Status)
	}

	where := `WHERE ($1 = '' OR title ILIKE '%' || $1 || '%' OR author ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR category = $2)
		  AND ($3::uuid IS NULL OR owner_id = $3)
		  AND ($4 = '' OR status = $4)
		  AND ($5 OR status = 'published' OR owner_id = $6)`

	var total int
	countQ := `SELECT COUNT(*) FROM books ` + where
	err := r.pool.QueryRow(ctx, countQ,
		f.Search, f.Category, f.OwnerID, status, f.ViewerAll, f.ViewerID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count books: %w", err)
	}

	query := fmt.Sprintf(`SELECT `+bookColumns+` FROM books %s ORDER BY %s %s LIMIT $7 OFFSET $8`,
		where, f.Sort, f.Order)

	rows, err := r.pool.Query(ctx, query,
		f.Search, f.Category, f.OwnerID, status, f.ViewerAll, f.ViewerID, f.Limit, f.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var books []model.Book
	for rows.Next() {
		var b model.Book
		if err := scanBook(rows, &b); err != nil {
			return nil, 0, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}
	return books, total, nil
}

func (r *pgBookRepo) Update(ctx context.Context, book *model.Book) error {
	query := `UPDATE books SET title=$2, author=$3, cover_url=$4, price=$5, category=$6, description=$7, updated_at=NOW()
			  WHERE id=$1 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		book.ID, book.Title, book.Author, book.CoverURL, book.Price, book.Category, book.Description,
	).Scan(&book.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("update book: %w", err)
	}
	return nil
}

func (r *pgBookRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.BookStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE books SET status = $2, updated_at = NOW() WHERE id = $1`, id, status,
	)
	if err != nil {
		return fmt.Errorf("update book status: %w", err)
	}
	return nil
}

func (r *pgBookRepo) DeleteCascade(ctx context.Context, id uuid.UUID) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`DELETE FROM order_events WHERE order_id IN (SELECT id FROM orders WHERE book_id = $1)`, id,
	)
	if err != nil {
		return 0, fmt.Errorf("delete order events: %w", err)
	}

	ct, err := tx.Exec(ctx, `DELETE FROM orders WHERE book_id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete orders: %w", err)
	}
	ordersDeleted := ct.RowsAffected()

	ct, err = tx.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete book: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return 0, pgx.ErrNoRows
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return ordersDeleted, nil
}
