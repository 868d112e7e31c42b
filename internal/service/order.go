package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Hizbul38/book-porter-api/internal/dto"
	"github.com/Hizbul38/book-porter-api/internal/model"
	"github.com/Hizbul38/book-porter-api/internal/repository"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderAccessDenied = errors.New("access denied")
	ErrBookNotOrderable  = errors.New("book is not orderable")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrValidation        = errors.New("validation failed")
)

type OrderService struct {
	orderRepo repository.OrderRepository
	bookRepo  repository.BookRepository
	amqpCh    *amqp.Channel
}

func NewOrderService(orderRepo repository.OrderRepository, bookRepo repository.BookRepository, amqpCh *amqp.Channel) *OrderService {
	return &OrderService{orderRepo: orderRepo, bookRepo: bookRepo, amqpCh: amqpCh}
}

// Create places an order against a published book. Binding tags validate the
// request shape too, but the length rules are authoritative here.
func (s *OrderService) Create(ctx context.Context, p *model.Principal, req dto.CreateOrderRequest) (*model.Order, error) {
	if len(strings.TrimSpace(req.Phone)) < 6 {
		return nil, fmt.Errorf("%w: phone must be at least 6 characters", ErrValidation)
	}
	if len(strings.TrimSpace(req.Address)) < 5 {
		return nil, fmt.Errorf("%w: address must be at least 5 characters", ErrValidation)
	}

	book, err := s.bookRepo.GetByID(ctx, req.BookID)
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	if book == nil {
		return nil, ErrBookNotFound
	}
	// Unpublished books are not orderable by anyone, owner and admin included.
	if book.Status != model.BookPublished {
		return nil, ErrBookNotOrderable
	}

	order := &model.Order{
		BookID:    book.ID,
		BookTitle: book.Title,
		UserID:    p.ID,
		UserEmail: p.Email,
		Phone:     strings.TrimSpace(req.Phone),
		Address:   strings.TrimSpace(req.Address),
		Amount:    book.Price,
		Status:    model.OrderPending,
		Payment:   model.PaymentUnpaid,
	}
	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	publishOrderEvent(ctx, s.amqpCh, newOrderEvent(model.OrderEventCreated, order))
	return order, nil
}

func (s *OrderService) GetByID(ctx context.Context, p *model.Principal, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if err := s.authorize(ctx, p, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) ListMine(ctx context.Context, p *model.Principal) ([]model.Order, error) {
	return s.orderRepo.ListByUser(ctx, p.ID)
}

// ListIncoming returns orders placed against the librarian's books.
func (s *OrderService) ListIncoming(ctx context.Context, p *model.Principal) ([]model.Order, error) {
	return s.orderRepo.ListByOwner(ctx, p.ID)
}

// Cancel is available to the order's reader while pending, and to the owning
// librarian or an admin while the order is not terminal. Cancelling an
// already-cancelled order returns the same terminal state without error.
func (s *OrderService) Cancel(ctx context.Context, p *model.Principal, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	staff, err := s.isStaffFor(ctx, p, order)
	if err != nil {
		return nil, err
	}
	if !staff && order.UserID != p.ID {
		return nil, ErrOrderAccessDenied
	}

	if order.Status == model.OrderCancelled {
		return order, nil
	}
	if !staff && order.Status != model.OrderPending {
		return nil, ErrInvalidTransition
	}

	updated, err := s.orderRepo.Transition(ctx, orderID, model.OrderCancelled)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("cancel order: %w", err)
	}
	if updated == nil {
		return nil, ErrOrderNotFound
	}

	publishOrderEvent(ctx, s.amqpCh, newOrderEvent(model.OrderEventCancelled, updated))
	return updated, nil
}

// UpdateStatus advances the order along the delivery state machine. Only the
// librarian owning the referenced book, or an admin, may call it.
func (s *OrderService) UpdateStatus(ctx context.Context, p *model.Principal, orderID uuid.UUID, target model.OrderStatus) (*model.Order, error) {
	if !target.Valid() || target == model.OrderPending {
		return nil, fmt.Errorf("%w: invalid target status %q", ErrValidation, target)
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	staff, err := s.isStaffFor(ctx, p, order)
	if err != nil {
		return nil, err
	}
	if !staff {
		return nil, ErrOrderAccessDenied
	}

	updated, err := s.orderRepo.Transition(ctx, orderID, target)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}
	if updated == nil {
		return nil, ErrOrderNotFound
	}

	eventType := model.OrderEventStatusChanged
	if target == model.OrderCancelled {
		eventType = model.OrderEventCancelled
	}
	publishOrderEvent(ctx, s.amqpCh, newOrderEvent(eventType, updated))
	return updated, nil
}

func (s *OrderService) authorize(ctx context.Context, p *model.Principal, order *model.Order) error {
	if order.UserID == p.ID {
		return nil
	}
	staff, err := s.isStaffFor(ctx, p, order)
	if err != nil {
		return err
	}
	if !staff {
		return ErrOrderAccessDenied
	}
	return nil
}

// isStaffFor reports whether p is an admin or the librarian owning the
// order's book.
func (s *OrderService) isStaffFor(ctx context.Context, p *model.Principal, order *model.Order) (bool, error) {
	if p.Role == model.RoleAdmin {
		return true, nil
	}
	if p.Role != model.RoleLibrarian {
		return false, nil
	}
	book, err := s.bookRepo.GetByID(ctx, order.BookID)
	if err != nil {
		return false, fmt.Errorf("get book: %w", err)
	}
	return book != nil && book.OwnerID == p.ID, nil
}
