package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleLibrarian Role = "librarian"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleLibrarian, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID        uuid.UUID
	Email     string
	Password  string
	Name      string
	PhotoURL  string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Principal is the authenticated caller as extracted from a bearer token.
// A nil *Principal means an anonymous request.
type Principal struct {
	ID    uuid.UUID
	Email string
	Name  string
	Role  Role
}

type BookStatus string

const (
	BookPublished   BookStatus = "published"
	BookUnpublished BookStatus = "unpublished"
)

func (s BookStatus) Valid() bool {
	return s == BookPublished || s == BookUnpublished
}

type Book struct {
	ID          uuid.UUID
	Title       string
	Author      string
	CoverURL    string
	Price       decimal.Decimal
	Category    string
	Description string
	Status      BookStatus
	OwnerID     uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// orderTransitions is the full set of legal status moves. Everything else,
// including any move out of a terminal state, is rejected.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending: {OrderShipped, OrderCancelled},
	OrderShipped: {OrderDelivered, OrderCancelled},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, t := range orderTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

// Order references a book by id but snapshots its title and price at
// creation time, so later catalog edits do not rewrite order history.
type Order struct {
	ID        uuid.UUID
	BookID    uuid.UUID
	BookTitle string
	UserID    uuid.UUID
	UserEmail string
	Phone     string
	Address   string
	Amount    decimal.Decimal
	Status    OrderStatus
	Payment   PaymentStatus
	SessionID string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Review struct {
	ID        uuid.UUID
	BookID    uuid.UUID
	UserID    uuid.UUID
	UserName  string
	Rating    int
	Comment   string
	CreatedAt time.Time
}

// ReviewSummary is derived by query, never stored.
type ReviewSummary struct {
	Average float64
	Count   int
}

type WishlistItem struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	BookID    uuid.UUID
	Title     string
	Author    string
	Price     decimal.Decimal
	CoverURL  string
	CreatedAt time.Time
}

type OrderEventType string

const (
	OrderEventCreated       OrderEventType = "order.created"
	OrderEventStatusChanged OrderEventType = "order.status_changed"
	OrderEventCancelled     OrderEventType = "order.cancelled"
	OrderEventPaid          OrderEventType = "payment.completed"
)

// OrderEvent is published to the order-events queue on every lifecycle
// mutation and persisted by the worker as the order's audit trail.
type OrderEvent struct {
	ID         uuid.UUID      `json:"id"`
	Type       OrderEventType `json:"type"`
	OrderID    uuid.UUID      `json:"order_id"`
	BookID     uuid.UUID      `json:"book_id"`
	UserID     uuid.UUID      `json:"user_id"`
	Status     OrderStatus    `json:"status"`
	Payment    PaymentStatus  `json:"payment"`
	OccurredAt time.Time      `json:"occurred_at"`
}
