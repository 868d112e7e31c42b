package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Hizbul38/book-porter-api/internal/dto"
	"github.com/Hizbul38/book-porter-api/internal/middleware"
	"github.com/Hizbul38/book-porter-api/internal/model"
	"github.com/Hizbul38/book-porter-api/internal/service"
)

type ReviewHandler struct {
	reviewService *service.ReviewService
}

func NewReviewHandler(reviewService *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

func (h *ReviewHandler) ListByBook(c *gin.Context) {
	bookID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book ID"})
		return
	}

	reviews, summary, err := h.reviewService.ListByBook(c.Request.Context(), middleware.GetPrincipal(c), bookID)
	if err != nil {
		h.writeReviewError(c, err)
		return
	}

	var items []dto.ReviewResponse
	for i := range reviews {
		items = append(items, toReviewResponse(&reviews[i]))
	}
	c.JSON(http.StatusOK, dto.ReviewListResponse{
		Reviews: items,
		Average: summary.Average,
		Count:   summary.Count,
	})
}

func (h *ReviewHandler) Create(c *gin.Context) {
	bookID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book ID"})
		return
	}

	var req dto.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	review, err := h.reviewService.Create(c.Request.Context(), middleware.GetPrincipal(c), bookID, req)
	if err != nil {
		h.writeReviewError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toReviewResponse(review))
}

func (h *ReviewHandler) Eligibility(c *gin.Context) {
	bookID, err := uuid.Parse(c.Param("bookId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book ID"})
		return
	}

	resp, err := h.reviewService.Eligibility(c.Request.Context(), middleware.GetPrincipal(c), bookID)
	if err != nil {
		h.writeReviewError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ReviewHandler) writeReviewError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrBookNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
	case errors.Is(err, service.ErrDuplicateReview):
		c.JSON(http.StatusConflict, gin.H{"error": "book already reviewed"})
	case errors.Is(err, service.ErrNotEligible):
		c.JSON(http.StatusConflict, gin.H{"error": "not eligible to review this book"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func toReviewResponse(r *model.Review) dto.ReviewResponse {
	return dto.ReviewResponse{
		ID:        r.ID,
		BookID:    r.BookID,
		UserID:    r.UserID,
		UserName:  r.UserName,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
}
