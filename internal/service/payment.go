package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"github.com/Hizbul38/book-porter-api/internal/config"
	"github.com/Hizbul38/book-porter-api/internal/dto"
	"github.com/Hizbul38/book-porter-api/internal/model"
	"github.com/Hizbul38/book-porter-api/internal/payment"
	"github.com/Hizbul38/book-porter-api/internal/repository"
)

var (
	ErrAlreadyPaid     = errors.New("order already paid")
	ErrOrderNotPayable = errors.New("order is not payable")
	ErrSessionNotFound = errors.New("checkout session not found")
	ErrPaymentUpstream = errors.New("payment processor unavailable")
)

type PaymentService struct {
	orderRepo repository.OrderRepository
	processor payment.Processor
	amqpCh    *amqp.Channel
	cfg       config.PaymentConfig
}

func NewPaymentService(orderRepo repository.OrderRepository, processor payment.Processor, amqpCh *amqp.Channel, cfg config.PaymentConfig) *PaymentService {
	return &PaymentService{orderRepo: orderRepo, processor: processor, amqpCh: amqpCh, cfg: cfg}
}

// CreateCheckoutSession asks the processor for a hosted checkout and returns
// the redirect URL. Only the order's own reader may initiate payment.
func (s *PaymentService) CreateCheckoutSession(ctx context.Context, p *model.Principal, orderID uuid.UUID) (string, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return "", ErrOrderNotFound
	}
	if order.UserID != p.ID {
		return "", ErrOrderAccessDenied
	}
	if order.Payment == model.PaymentPaid {
		return "", ErrAlreadyPaid
	}
	if order.Status == model.OrderCancelled {
		return "", ErrOrderNotPayable
	}

	sess, err := s.processor.CreateSession(ctx, payment.SessionParams{
		OrderID:     order.ID.String(),
		AmountCents: order.Amount.Mul(decimal.NewFromInt(100)).IntPart(),
		Currency:    s.cfg.Currency,
		Description: order.BookTitle,
		SuccessURL:  s.cfg.SuccessURL,
		CancelURL:   s.cfg.CancelURL,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPaymentUpstream, err)
	}

	if err := s.orderRepo.SetSession(ctx, order.ID, sess.ID); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return sess.URL, nil
}

// Verify re-queries the processor with the session id as the source of truth
// and marks the order paid only on confirmed completion. Idempotent: an
// already-paid order verifies to the same confirmed state. A failed or
// incomplete session leaves the order unpaid and reports paid=false.
func (s *PaymentService) Verify(ctx context.Context, p *model.Principal, sessionID string) (*dto.VerifyPaymentResponse, error) {
	order, err := s.orderRepo.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get order by session: %w", err)
	}
	if order == nil {
		return nil, ErrSessionNotFound
	}
	if order.UserID != p.ID && p.Role != model.RoleAdmin {
		return nil, ErrOrderAccessDenied
	}

	sess, err := s.processor.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentUpstream, err)
	}
	if !sess.Paid {
		return &dto.VerifyPaymentResponse{OrderID: order.ID, Paid: false}, nil
	}

	updated, changed, err := s.orderRepo.MarkPaid(ctx, order.ID, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			return nil, ErrOrderNotPayable
		}
		return nil, fmt.Errorf("mark order paid: %w", err)
	}
	if updated == nil {
		return nil, ErrOrderNotFound
	}

	if changed {
		publishOrderEvent(ctx, s.amqpCh, newOrderEvent(model.OrderEventPaid, updated))
	}
	return &dto.VerifyPaymentResponse{OrderID: updated.ID, Paid: true}, nil
}
