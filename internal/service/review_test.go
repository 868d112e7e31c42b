package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hizbul38/book-porter-api/internal/dto"
	"github.com/Hizbul38/book-porter-api/internal/model"
	"github.com/Hizbul38/book-porter-api/internal/repository"
)

type mockReviewRepo struct {
	reviews map[uuid.UUID]*model.Review
}

func newMockReviewRepo() *mockReviewRepo {
	return &mockReviewRepo{reviews: make(map[uuid.UUID]*model.Review)}
}

func (m *mockReviewRepo) Create(_ context.Context, review *model.Review) error {
	for _, r := range m.reviews {
		if r.BookID == review.BookID && r.UserID == review.UserID {
			return repository.ErrDuplicate
		}
	}
	review.ID = uuid.New()
	review.CreatedAt = time.Now()
	m.reviews[review.ID] = review
	return nil
}

func (m *mockReviewRepo) GetByUserAndBook(_ context.Context, userID, bookID uuid.UUID) (*model.Review, error) {
	for _, r := range m.reviews {
		if r.BookID == bookID && r.UserID == userID {
			return r, nil
		}
	}
	return nil, nil
}

func (m *mockReviewRepo) ListByBook(_ context.Context, bookID uuid.UUID) ([]model.Review, error) {
	var reviews []model.Review
	for _, r := range m.reviews {
		if r.BookID == bookID {
			reviews = append(reviews, *r)
		}
	}
	return reviews, nil
}

func (m *mockReviewRepo) Summary(_ context.Context, bookID uuid.UUID) (*model.ReviewSummary, error) {
	var sum, count int
	for _, r := range m.reviews {
		if r.BookID == bookID {
			sum += r.Rating
			count++
		}
	}
	s := &model.ReviewSummary{Count: count}
	if count > 0 {
		s.Average = float64(sum) / float64(count)
	}
	return s, nil
}

func seedReviewFixtures(t *testing.T) (*mockReviewRepo, *mockOrderRepo, *ReviewService, *model.Book, *model.Principal) {
	t.Helper()
	reviewRepo := newMockReviewRepo()
	orderRepo := newMockOrderRepo()
	bookRepo := newMockBookRepo()

	book := publishedBook(uuid.New())
	bookRepo.books[book.ID] = book

	reader := &model.Principal{ID: uuid.New(), Name: "Ayesha", Role: model.RoleUser}
	svc := NewReviewService(reviewRepo, orderRepo, bookRepo, nil)
	return reviewRepo, orderRepo, svc, book, reader
}

func orderFor(reader *model.Principal, book *model.Book, status model.OrderStatus) *model.Order {
	return &model.Order{
		ID: uuid.New(), BookID: book.ID, UserID: reader.ID,
		Status: status, Payment: model.PaymentUnpaid,
	}
}

func TestReviewService_Eligibility(t *testing.T) {
	_, orderRepo, svc, book, reader := seedReviewFixtures(t)

	// No order yet.
	elig, err := svc.Eligibility(context.Background(), reader, book.ID)
	require.NoError(t, err)
	assert.False(t, elig.CanReview)
	assert.False(t, elig.AlreadyReviewed)

	// A delivered order qualifies.
	o := orderFor(reader, book, model.OrderDelivered)
	orderRepo.orders[o.ID] = o

	elig, err = svc.Eligibility(context.Background(), reader, book.ID)
	require.NoError(t, err)
	assert.True(t, elig.CanReview)
}

func TestReviewService_Eligibility_CancelledOrderDoesNotQualify(t *testing.T) {
	_, orderRepo, svc, book, reader := seedReviewFixtures(t)

	o := orderFor(reader, book, model.OrderCancelled)
	orderRepo.orders[o.ID] = o

	elig, err := svc.Eligibility(context.Background(), reader, book.ID)
	require.NoError(t, err)
	assert.False(t, elig.CanReview)
}

func TestReviewService_Create(t *testing.T) {
	_, orderRepo, svc, book, reader := seedReviewFixtures(t)
	o := orderFor(reader, book, model.OrderPending)
	orderRepo.orders[o.ID] = o

	review, err := svc.Create(context.Background(), reader, book.ID, dto.CreateReviewRequest{
		Rating: 5, Comment: "Loved it",
	})
	require.NoError(t, err)
	assert.Equal(t, reader.Name, review.UserName)
	assert.Equal(t, 5, review.Rating)
}

func TestReviewService_Create_NotEligible(t *testing.T) {
	_, _, svc, book, reader := seedReviewFixtures(t)

	_, err := svc.Create(context.Background(), reader, book.ID, dto.CreateReviewRequest{Rating: 4})
	assert.ErrorIs(t, err, ErrNotEligible)
}

func TestReviewService_Create_Duplicate(t *testing.T) {
	_, orderRepo, svc, book, reader := seedReviewFixtures(t)
	o := orderFor(reader, book, model.OrderDelivered)
	orderRepo.orders[o.ID] = o

	_, err := svc.Create(context.Background(), reader, book.ID, dto.CreateReviewRequest{Rating: 4})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), reader, book.ID, dto.CreateReviewRequest{Rating: 2})
	assert.ErrorIs(t, err, ErrDuplicateReview)
}

func TestReviewService_Create_UnpublishedBookHidden(t *testing.T) {
	_, orderRepo, svc, book, reader := seedReviewFixtures(t)
	book.Status = model.BookUnpublished
	o := orderFor(reader, book, model.OrderDelivered)
	orderRepo.orders[o.ID] = o

	_, err := svc.Create(context.Background(), reader, book.ID, dto.CreateReviewRequest{Rating: 4})
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestReviewService_ListByBook(t *testing.T) {
	reviewRepo, _, svc, book, reader := seedReviewFixtures(t)
	reviewRepo.reviews[uuid.New()] = &model.Review{ID: uuid.New(), BookID: book.ID, UserID: uuid.New(), Rating: 5}
	reviewRepo.reviews[uuid.New()] = &model.Review{ID: uuid.New(), BookID: book.ID, UserID: uuid.New(), Rating: 2}

	reviews, summary, err := svc.ListByBook(context.Background(), reader, book.ID)
	require.NoError(t, err)
	assert.Len(t, reviews, 2)
	assert.Equal(t, 2, summary.Count)
	assert.InDelta(t, 3.5, summary.Average, 0.001)
}
