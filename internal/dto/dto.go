package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Hizbul38/book-porter-api/internal/model"
)

// --- Auth ---

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
	PhotoURL string `json:"photo_url"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID       uuid.UUID  `json:"id"`
	Email    string     `json:"email"`
	Name     string     `json:"name"`
	PhotoURL string     `json:"photo_url,omitempty"`
	Role     model.Role `json:"role"`
}

type UserListResponse struct {
	Users []UserResponse `json:"users"`
	Total int            `json:"total"`
}

type UpdateUserRoleRequest struct {
	Role model.Role `json:"role" binding:"required,oneof=user librarian admin"`
}

// --- Book ---

type CreateBookRequest struct {
	Title       string          `json:"title" binding:"required"`
	Author      string          `json:"author" binding:"required"`
	Price       decimal.Decimal `json:"price" binding:"required"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	CoverURL    string          `json:"cover_url"`
}

type UpdateBookRequest struct {
	Title       *string          `json:"title"`
	Author      *string          `json:"author"`
	Price       *decimal.Decimal `json:"price"`
	Category    *string          `json:"category"`
	Description *string          `json:"description"`
	CoverURL    *string          `json:"cover_url"`
}

type SetBookStatusRequest struct {
	Status model.BookStatus `json:"status" binding:"required,oneof=published unpublished"`
}

type ListBooksRequest struct {
	Page     int    `form:"page,default=1" binding:"min=1"`
	Limit    int    `form:"limit,default=20" binding:"min=1,max=100"`
	Search   string `form:"search"`
	Category string `form:"category"`
	Sort     string `form:"sort,default=created_at" binding:"oneof=title price created_at"`
	Order    string `form:"order,default=desc" binding:"oneof=asc desc"`
}

type BookResponse struct {
	ID          uuid.UUID        `json:"id"`
	Title       string           `json:"title"`
	Author      string           `json:"author"`
	CoverURL    string           `json:"cover_url,omitempty"`
	Price       decimal.Decimal  `json:"price"`
	Category    string           `json:"category"`
	Description string           `json:"description,omitempty"`
	Status      model.BookStatus `json:"status"`
	OwnerID     uuid.UUID        `json:"owner_id"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

type BookListResponse struct {
	Books []BookResponse `json:"books"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

// --- Order ---

type CreateOrderRequest struct {
	BookID  uuid.UUID `json:"book_id" binding:"required"`
	Phone   string    `json:"phone" binding:"required,min=6"`
	Address string    `json:"address" binding:"required,min=5"`
}

type UpdateOrderStatusRequest struct {
	Status model.OrderStatus `json:"status" binding:"required,oneof=shipped delivered cancelled"`
}

type OrderResponse struct {
	ID        uuid.UUID           `json:"id"`
	BookID    uuid.UUID           `json:"book_id"`
	BookTitle string              `json:"book_title"`
	UserEmail string              `json:"user_email"`
	Phone     string              `json:"phone"`
	Address   string              `json:"address"`
	Amount    decimal.Decimal     `json:"amount"`
	Status    model.OrderStatus   `json:"status"`
	Payment   model.PaymentStatus `json:"payment"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int             `json:"total"`
}

// --- Payment ---

type CheckoutSessionRequest struct {
	OrderID uuid.UUID `json:"order_id" binding:"required"`
}

type CheckoutSessionResponse struct {
	URL string `json:"url"`
}

type VerifyPaymentRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

type VerifyPaymentResponse struct {
	OrderID uuid.UUID `json:"order_id"`
	Paid    bool      `json:"paid"`
}

// --- Review ---

type CreateReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

type ReviewResponse struct {
	ID        uuid.UUID `json:"id"`
	BookID    uuid.UUID `json:"book_id"`
	UserID    uuid.UUID `json:"user_id"`
	UserName  string    `json:"user_name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ReviewListResponse struct {
	Reviews []ReviewResponse `json:"reviews"`
	Average float64          `json:"average"`
	Count   int              `json:"count"`
}

type ReviewEligibilityResponse struct {
	CanReview       bool `json:"can_review"`
	AlreadyReviewed bool `json:"already_reviewed"`
}

// --- Wishlist ---

type AddWishlistItemRequest struct {
	BookID uuid.UUID `json:"book_id" binding:"required"`
}

type WishlistItemResponse struct {
	ID        uuid.UUID       `json:"id"`
	BookID    uuid.UUID       `json:"book_id"`
	Title     string          `json:"title"`
	Author    string          `json:"author"`
	Price     decimal.Decimal `json:"price"`
	CoverURL  string          `json:"cover_url,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type WishlistResponse struct {
	Items []WishlistItemResponse `json:"items"`
	Total int                    `json:"total"`
}
