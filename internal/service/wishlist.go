package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Hizbul38/book-porter-api/internal/model"
	"github.com/Hizbul38/book-porter-api/internal/repository"
)

var (
	ErrAlreadyInWishlist    = errors.New("book already in wishlist")
	ErrWishlistItemNotFound = errors.New("wishlist item not found")
)

type WishlistService struct {
	wishlistRepo repository.WishlistRepository
	bookRepo     repository.BookRepository
}

func NewWishlistService(wishlistRepo repository.WishlistRepository, bookRepo repository.BookRepository) *WishlistService {
	return &WishlistService{wishlistRepo: wishlistRepo, bookRepo: bookRepo}
}

// Add stores the entry with display fields denormalized from the book, so
// the wishlist keeps rendering after catalog edits.
func (s *WishlistService) Add(ctx context.Context, p *model.Principal, bookID uuid.UUID) (*model.WishlistItem, error) {
	book, err := s.bookRepo.GetByID(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	if book == nil || !BookVisibleTo(book, p) {
		return nil, ErrBookNotFound
	}

	item := &model.WishlistItem{
		UserID:   p.ID,
		BookID:   book.ID,
		Title:    book.Title,
		Author:   book.Author,
		Price:    book.Price,
		CoverURL: book.CoverURL,
	}
	if err := s.wishlistRepo.Add(ctx, item); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyInWishlist
		}
		return nil, fmt.Errorf("add wishlist item: %w", err)
	}
	return item, nil
}

func (s *WishlistService) List(ctx context.Context, p *model.Principal) ([]model.WishlistItem, error) {
	return s.wishlistRepo.ListByUser(ctx, p.ID)
}

func (s *WishlistService) Remove(ctx context.Context, p *model.Principal, itemID uuid.UUID) error {
	if err := s.wishlistRepo.Delete(ctx, itemID, p.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrWishlistItemNotFound
		}
		return fmt.Errorf("remove wishlist item: %w", err)
	}
	return nil
}
