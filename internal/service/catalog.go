package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/Hizbul38/book-porter-api/internal/dto"
	"github.com/Hizbul38/book-porter-api/internal/model"
	"github.com/Hizbul38/book-porter-api/internal/repository"
)

var (
	ErrBookNotFound  = errors.New("book not found")
	ErrBookForbidden = errors.New("not allowed to modify this book")
	ErrInvalidPrice  = errors.New("price must not be negative")
)

const bookCacheTTL = 60 * time.Second

// BookVisibleTo is the single catalog-visibility predicate: published books
// are visible to everyone, unpublished ones only to the owning librarian and
// admins. Listing, fetching, ordering and review eligibility all go through
// it.
func BookVisibleTo(b *model.Book, p *model.Principal) bool {
	if b.Status == model.BookPublished {
		return true
	}
	if p == nil {
		return false
	}
	return p.Role == model.RoleAdmin || (p.Role == model.RoleLibrarian && p.ID == b.OwnerID)
}

type CatalogService struct {
	bookRepo    repository.BookRepository
	redisClient *redis.Client
}

func NewCatalogService(bookRepo repository.BookRepository, redisClient *redis.Client) *CatalogService {
	return &CatalogService{bookRepo: bookRepo, redisClient: redisClient}
}

// Create adds a book as unpublished, pending moderation.
func (s *CatalogService) Create(ctx context.Context, p *model.Principal, req dto.CreateBookRequest) (*dto.BookResponse, error) {
	if req.Price.IsNegative() {
		return nil, ErrInvalidPrice
	}
	category := req.Category
	if category == "" {
		category = "Others"
	}

	book := &model.Book{
		Title:       req.Title,
		Author:      req.Author,
		CoverURL:    req.CoverURL,
		Price:       req.Price,
		Category:    category,
		Description: req.Description,
		Status:      model.BookUnpublished,
		OwnerID:     p.ID,
	}
	if err := s.bookRepo.Create(ctx, book); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}
	resp := toBookResponse(book)
	return &resp, nil
}

func (s *CatalogService) Get(ctx context.Context, p *model.Principal, id uuid.UUID) (*dto.BookResponse, error) {
	cacheKey := "book:" + id.String()

	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var book model.Book
			if json.Unmarshal([]byte(cached), &book) == nil {
				if !BookVisibleTo(&book, p) {
					return nil, ErrBookNotFound
				}
				resp := toBookResponse(&book)
				return &resp, nil
			}
		}
	}

	book, err := s.bookRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	if book == nil {
		return nil, ErrBookNotFound
	}

	if s.redisClient != nil {
		if data, err := json.Marshal(book); err == nil {
			s.redisClient.Set(ctx, cacheKey, data, bookCacheTTL)
		}
	}

	// Unpublished books read as absent for everyone but the owner and admins.
	if !BookVisibleTo(book, p) {
		return nil, ErrBookNotFound
	}
	resp := toBookResponse(book)
	return &resp, nil
}

func (s *CatalogService) List(ctx context.Context, p *model.Principal, req dto.ListBooksRequest) (*dto.BookListResponse, error) {
	f := repository.BookFilter{
		Search:   req.Search,
		Category: req.Category,
		Limit:    req.Limit,
		Offset:   (req.Page - 1) * req.Limit,
		Sort:     req.Sort,
		Order:    req.Order,
	}
	if p != nil {
		if p.Role == model.RoleAdmin {
			f.ViewerAll = true
		} else {
			f.ViewerID = &p.ID
		}
	}

	books, total, err := s.bookRepo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	var items []dto.BookResponse
	for _, b := range books {
		items = append(items, toBookResponse(&b))
	}
	return &dto.BookListResponse{Books: items, Total: total, Page: req.Page, Limit: req.Limit}, nil
}

// ListMine returns the librarian's own books regardless of status.
func (s *CatalogService) ListMine(ctx context.Context, p *model.Principal, req dto.ListBooksRequest) (*dto.BookListResponse, error) {
	f := repository.BookFilter{
		Search:    req.Search,
		Category:  req.Category,
		OwnerID:   &p.ID,
		ViewerAll: true,
		Limit:     req.Limit,
		Offset:    (req.Page - 1) * req.Limit,
		Sort:      req.Sort,
		Order:     req.Order,
	}

	books, total, err := s.bookRepo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list own books: %w", err)
	}

	var items []dto.BookResponse
	for _, b := range books {
		items = append(items, toBookResponse(&b))
	}
	return &dto.BookListResponse{Books: items, Total: total, Page: req.Page, Limit: req.Limit}, nil
}

func (s *CatalogService) Update(ctx context.Context, p *model.Principal, id uuid.UUID, req dto.UpdateBookRequest) (*dto.BookResponse, error) {
	book, err := s.loadOwned(ctx, p, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		book.Title = *req.Title
	}
	if req.Author != nil {
		book.Author = *req.Author
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return nil, ErrInvalidPrice
		}
		book.Price = *req.Price
	}
	if req.Category != nil {
		book.Category = *req.Category
	}
	if req.Description != nil {
		book.Description = *req.Description
	}
	if req.CoverURL != nil {
		book.CoverURL = *req.CoverURL
	}

	if err := s.bookRepo.Update(ctx, book); err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}

	s.invalidateCache(ctx, id)
	resp := toBookResponse(book)
	return &resp, nil
}

// SetStatus toggles publication, by the owning librarian or an admin.
func (s *CatalogService) SetStatus(ctx context.Context, p *model.Principal, id uuid.UUID, status model.BookStatus) (*dto.BookResponse, error) {
	book, err := s.loadOwned(ctx, p, id)
	if err != nil {
		return nil, err
	}

	if err := s.bookRepo.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("set book status: %w", err)
	}

	s.invalidateCache(ctx, id)
	book.Status = status
	resp := toBookResponse(book)
	return &resp, nil
}

// Delete removes a book and cascades to all orders referencing it.
// Admin only.
func (s *CatalogService) Delete(ctx context.Context, p *model.Principal, id uuid.UUID) error {
	if p.Role != model.RoleAdmin {
		return ErrBookForbidden
	}

	if _, err := s.bookRepo.DeleteCascade(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrBookNotFound
		}
		return fmt.Errorf("delete book: %w", err)
	}

	s.invalidateCache(ctx, id)
	return nil
}

func (s *CatalogService) loadOwned(ctx context.Context, p *model.Principal, id uuid.UUID) (*model.Book, error) {
	book, err := s.bookRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	if book == nil {
		return nil, ErrBookNotFound
	}
	if p.Role != model.RoleAdmin && book.OwnerID != p.ID {
		return nil, ErrBookForbidden
	}
	return book, nil
}

func (s *CatalogService) invalidateCache(ctx context.Context, id uuid.UUID) {
	if s.redisClient != nil {
		s.redisClient.Del(ctx, "book:"+id.String())
	}
}

func toBookResponse(b *model.Book) dto.BookResponse {
	return dto.BookResponse{
		ID:          b.ID,
		Title:       b.Title,
		Author:      b.Author,
		CoverURL:    b.CoverURL,
		Price:       b.Price,
		Category:    b.Category,
		Description: b.Description,
		Status:      b.Status,
		OwnerID:     b.OwnerID,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}
