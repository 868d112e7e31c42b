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

type WishlistHandler struct {
	wishlistService *service.WishlistService
}

func NewWishlistHandler(wishlistService *service.WishlistService) *WishlistHandler {
	return &WishlistHandler{wishlistService: wishlistService}
}

func (h *WishlistHandler) List(c *gin.Context) {
	items, err := h.wishlistService.List(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	var resp []dto.WishlistItemResponse
	for i := range items {
		resp = append(resp, toWishlistItemResponse(&items[i]))
	}
	c.JSON(http.StatusOK, dto.WishlistResponse{Items: resp, Total: len(resp)})
}

func (h *WishlistHandler) Add(c *gin.Context) {
	var req dto.AddWishlistItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.wishlistService.Add(c.Request.Context(), middleware.GetPrincipal(c), req.BookID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBookNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
		case errors.Is(err, service.ErrAlreadyInWishlist):
			c.JSON(http.StatusConflict, gin.H{"error": "book already in wishlist"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}

	c.JSON(http.StatusCreated, toWishlistItemResponse(item))
}

func (h *WishlistHandler) Remove(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wishlist item ID"})
		return
	}

	if err := h.wishlistService.Remove(c.Request.Context(), middleware.GetPrincipal(c), itemID); err != nil {
		if errors.Is(err, service.ErrWishlistItemNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "wishlist item not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.Status(http.StatusNoContent)
}

func toWishlistItemResponse(it *model.WishlistItem) dto.WishlistItemResponse {
	return dto.WishlistItemResponse{
		ID:        it.ID,
		BookID:    it.BookID,
		Title:     it.Title,
		Author:    it.Author,
		Price:     it.Price,
		CoverURL:  it.CoverURL,
		CreatedAt: it.CreatedAt,
	}
}
