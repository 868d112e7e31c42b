package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Hizbul38/book-porter-api/internal/dto"
	"github.com/Hizbul38/book-porter-api/internal/model"
	"github.com/Hizbul38/book-porter-api/internal/repository"
)

var (
	ErrDuplicateReview = errors.New("book already reviewed")
	ErrNotEligible     = errors.New("not eligible to review this book")
)

type ReviewService struct {
	reviewRepo repository.ReviewRepository
	orderRepo  repository.OrderRepository
	bookRepo   repository.BookRepository
	qualifying []model.OrderStatus
}

// NewReviewService builds a review service; qualifying is the set of order
// statuses that make a reader eligible to review the ordered book. Empty
// means the default policy: any non-cancelled order.
func NewReviewService(reviewRepo repository.ReviewRepository, orderRepo repository.OrderRepository, bookRepo repository.BookRepository, qualifying []model.OrderStatus) *ReviewService {
	if len(qualifying) == 0 {
		qualifying = []model.OrderStatus{model.OrderPending, model.OrderShipped, model.OrderDelivered}
	}
	return &ReviewService{reviewRepo: reviewRepo, orderRepo: orderRepo, bookRepo: bookRepo, qualifying: qualifying}
}

func (s *ReviewService) Eligibility(ctx context.Context, p *model.Principal, bookID uuid.UUID) (*dto.ReviewEligibilityResponse, error) {
	if err := s.checkBook(ctx, p, bookID); err != nil {
		return nil, err
	}

	existing, err := s.reviewRepo.GetByUserAndBook(ctx, p.ID, bookID)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}

	hasOrder, err := s.orderRepo.ExistsForUserAndBook(ctx, p.ID, bookID, s.qualifying)
	if err != nil {
		return nil, fmt.Errorf("check orders: %w", err)
	}

	return &dto.ReviewEligibilityResponse{
		CanReview:       hasOrder,
		AlreadyReviewed: existing != nil,
	}, nil
}

func (s *ReviewService) Create(ctx context.Context, p *model.Principal, bookID uuid.UUID, req dto.CreateReviewRequest) (*model.Review, error) {
	elig, err := s.Eligibility(ctx, p, bookID)
	if err != nil {
		return nil, err
	}
	if elig.AlreadyReviewed {
		return nil, ErrDuplicateReview
	}
	if !elig.CanReview {
		return nil, ErrNotEligible
	}

	review := &model.Review{
		BookID:   bookID,
		UserID:   p.ID,
		UserName: p.Name,
		Rating:   req.Rating,
		Comment:  req.Comment,
	}
	if err := s.reviewRepo.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateReview
		}
		return nil, fmt.Errorf("create review: %w", err)
	}
	return review, nil
}

func (s *ReviewService) ListByBook(ctx context.Context, p *model.Principal, bookID uuid.UUID) ([]model.Review, *model.ReviewSummary, error) {
	if err := s.checkBook(ctx, p, bookID); err != nil {
		return nil, nil, err
	}

	reviews, err := s.reviewRepo.ListByBook(ctx, bookID)
	if err != nil {
		return nil, nil, fmt.Errorf("list reviews: %w", err)
	}
	summary, err := s.reviewRepo.Summary(ctx, bookID)
	if err != nil {
		return nil, nil, fmt.Errorf("review summary: %w", err)
	}
	return reviews, summary, nil
}

func (s *ReviewService) checkBook(ctx context.Context, p *model.Principal, bookID uuid.UUID) error {
	book, err := s.bookRepo.GetByID(ctx, bookID)
	if err != nil {
		return fmt.Errorf("get book: %w", err)
	}
	if book == nil || !BookVisibleTo(book, p) {
		return ErrBookNotFound
	}
	return nil
}
