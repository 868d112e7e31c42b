package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hizbul38/book-porter-api/internal/dto"
	"github.com/Hizbul38/book-porter-api/internal/model"
	"github.com/Hizbul38/book-porter-api/internal/repository"
)

// mockOrderRepo mirrors the transition and payment rules the Postgres
// repository enforces under row locks.
type mockOrderRepo struct {
	orders    map[uuid.UUID]*model.Order
	bySession map[string]uuid.UUID
	events    []*model.OrderEvent
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{
		orders:    make(map[uuid.UUID]*model.Order),
		bySession: make(map[string]uuid.UUID),
	}
}

func (m *mockOrderRepo) Create(_ context.Context, order *model.Order) error {
	order.ID = uuid.New()
	order.CreatedAt = time.Now()
	order.UpdatedAt = time.Now()
	m.orders[order.ID] = order
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	if o, ok := m.orders[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, nil
}

func (m *mockOrderRepo) GetBySession(_ context.Context, sessionID string) (*model.Order, error) {
	if id, ok := m.bySession[sessionID]; ok {
		cp := *m.orders[id]
		return &cp, nil
	}
	return nil, nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]model.Order, error) {
	var orders []model.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			orders = append(orders, *o)
		}
	}
	return orders, nil
}

func (m *mockOrderRepo) ListByOwner(_ context.Context, _ uuid.UUID) ([]model.Order, error) {
	return nil, nil
}

func (m *mockOrderRepo) Transition(_ context.Context, id uuid.UUID, target model.OrderStatus) (*model.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	if o.Status == model.OrderCancelled && target == model.OrderCancelled {
		cp := *o
		return &cp, nil
	}
	if !o.Status.CanTransitionTo(target) {
		return nil, repository.ErrInvalidTransition
	}
	o.Status = target
	o.UpdatedAt = time.Now()
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) SetSession(_ context.Context, id uuid.UUID, sessionID string) error {
	if o, ok := m.orders[id]; ok {
		o.SessionID = sessionID
		m.bySession[sessionID] = id
	}
	return nil
}

func (m *mockOrderRepo) MarkPaid(_ context.Context, id uuid.UUID, sessionID string) (*model.Order, bool, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, false, nil
	}
	if o.Payment == model.PaymentPaid {
		cp := *o
		return &cp, false, nil
	}
	if o.Status == model.OrderCancelled {
		return nil, false, repository.ErrInvalidTransition
	}
	o.Payment = model.PaymentPaid
	o.SessionID = sessionID
	cp := *o
	return &cp, true, nil
}

func (m *mockOrderRepo) ExistsForUserAndBook(_ context.Context, userID, bookID uuid.UUID, statuses []model.OrderStatus) (bool, error) {
	for _, o := range m.orders {
		if o.UserID != userID || o.BookID != bookID {
			continue
		}
		for _, s := range statuses {
			if o.Status == s {
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *mockOrderRepo) RecordEvent(_ context.Context, ev *model.OrderEvent) error {
	m.events = append(m.events, ev)
	return nil
}

func seedOrderFixtures(t *testing.T) (*mockOrderRepo, *mockBookRepo, *OrderService, *model.Book, *model.Principal, *model.Principal) {
	t.Helper()
	orderRepo := newMockOrderRepo()
	bookRepo := newMockBookRepo()

	librarian := &model.Principal{ID: uuid.New(), Email: "lib@example.com", Role: model.RoleLibrarian}
	reader := &model.Principal{ID: uuid.New(), Email: "reader@example.com", Role: model.RoleUser}

	book := publishedBook(librarian.ID)
	bookRepo.books[book.ID] = book

	svc := NewOrderService(orderRepo, bookRepo, nil)
	return orderRepo, bookRepo, svc, book, reader, librarian
}

func TestOrderService_Create(t *testing.T) {
	_, _, svc, book, reader, _ := seedOrderFixtures(t)

	order, err := svc.Create(context.Background(), reader, dto.CreateOrderRequest{
		BookID: book.ID, Phone: "01712345678", Address: "12 Station Road, Dhaka",
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderPending, order.Status)
	assert.Equal(t, model.PaymentUnpaid, order.Payment)
	assert.Equal(t, book.Title, order.BookTitle)
	assert.True(t, order.Amount.Equal(book.Price))
	assert.Equal(t, reader.Email, order.UserEmail)
}

func TestOrderService_Create_Validation(t *testing.T) {
	_, _, svc, book, reader, _ := seedOrderFixtures(t)

	_, err := svc.Create(context.Background(), reader, dto.CreateOrderRequest{
		BookID: book.ID, Phone: "  123  ", Address: "12 Station Road",
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(context.Background(), reader, dto.CreateOrderRequest{
		BookID: book.ID, Phone: "01712345678", Address: "ab",
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestOrderService_Create_UnpublishedBook(t *testing.T) {
	_, bookRepo, svc, book, reader, _ := seedOrderFixtures(t)
	bookRepo.books[book.ID].Status = model.BookUnpublished

	_, err := svc.Create(context.Background(), reader, dto.CreateOrderRequest{
		BookID: book.ID, Phone: "01712345678", Address: "12 Station Road",
	})
	assert.ErrorIs(t, err, ErrBookNotOrderable)
}

func TestOrderService_Create_MissingBook(t *testing.T) {
	_, _, svc, _, reader, _ := seedOrderFixtures(t)

	_, err := svc.Create(context.Background(), reader, dto.CreateOrderRequest{
		BookID: uuid.New(), Phone: "01712345678", Address: "12 Station Road",
	})
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestOrderService_Lifecycle(t *testing.T) {
	_, _, svc, book, reader, librarian := seedOrderFixtures(t)

	order, err := svc.Create(context.Background(), reader, dto.CreateOrderRequest{
		BookID: book.ID, Phone: "01712345678", Address: "12 Station Road",
	})
	require.NoError(t, err)

	shipped, err := svc.UpdateStatus(context.Background(), librarian, order.ID, model.OrderShipped)
	require.NoError(t, err)
	assert.Equal(t, model.OrderShipped, shipped.Status)

	delivered, err := svc.UpdateStatus(context.Background(), librarian, order.ID, model.OrderDelivered)
	require.NoError(t, err)
	assert.Equal(t, model.OrderDelivered, delivered.Status)

	// Delivered is terminal, even for staff.
	_, err = svc.Cancel(context.Background(), librarian, order.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.UpdateStatus(context.Background(), librarian, order.ID, model.OrderShipped)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestOrderService_UpdateStatus_NoSkippingShipped(t *testing.T) {
	_, _, svc, book, reader, librarian := seedOrderFixtures(t)

	order, err := svc.Create(context.Background(), reader, dto.CreateOrderRequest{
		BookID: book.ID, Phone: "01712345678", Address: "12 Station Road",
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), librarian, order.ID, model.OrderDelivered)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestOrderService_UpdateStatus_Authorization(t *testing.T) {
	_, _, svc, book, reader, _ := seedOrderFixtures(t)

	order, err := svc.Create(context.Background(), reader, dto.CreateOrderRequest{
		BookID: book.ID, Phone: "01712345678", Address: "12 Station Road",
	})
	require.NoError(t, err)

	// The reader cannot advance delivery.
	_, err = svc.UpdateStatus(context.Background(), reader, order.ID, model.OrderShipped)
	assert.ErrorIs(t, err, ErrOrderAccessDenied)

	// Neither can an unrelated librarian.
	other := &model.Principal{ID: uuid.New(), Role: model.RoleLibrarian}
	_, err = svc.UpdateStatus(context.Background(), other, order.ID, model.OrderShipped)
	assert.ErrorIs(t, err, ErrOrderAccessDenied)

	// An admin can.
	admin := &model.Principal{ID: uuid.New(), Role: model.RoleAdmin}
	shipped, err := svc.UpdateStatus(context.Background(), admin, order.ID, model.OrderShipped)
	require.NoError(t, err)
	assert.Equal(t, model.OrderShipped, shipped.Status)
}

func TestOrderService_Cancel_ReaderOnlyWhilePending(t *testing.T) {
	_, _, svc, book, reader, librarian := seedOrderFixtures(t)

	order, err := svc.Create(context.Background(), reader, dto.CreateOrderRequest{
		BookID: book.ID, Phone: "01712345678", Address: "12 Station Road",
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), librarian, order.ID, model.OrderShipped)
	require.NoError(t, err)

	// Shipped is past the reader's cancellation window.
	_, err = svc.Cancel(context.Background(), reader, order.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// The owning librarian can still cancel a shipped order.
	cancelled, err := svc.Cancel(context.Background(), librarian, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelled, cancelled.Status)
}

func TestOrderService_Cancel_Idempotent(t *testing.T) {
	_, _, svc, book, reader, _ := seedOrderFixtures(t)

	order, err := svc.Create(context.Background(), reader, dto.CreateOrderRequest{
		BookID: book.ID, Phone: "01712345678", Address: "12 Station Road",
	})
	require.NoError(t, err)

	first, err := svc.Cancel(context.Background(), reader, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelled, first.Status)

	again, err := svc.Cancel(context.Background(), reader, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelled, again.Status)
}

func TestOrderService_GetByID_Authorization(t *testing.T) {
	_, _, svc, book, reader, librarian := seedOrderFixtures(t)

	order, err := svc.Create(context.Background(), reader, dto.CreateOrderRequest{
		BookID: book.ID, Phone: "01712345678", Address: "12 Station Road",
	})
	require.NoError(t, err)

	_, err = svc.GetByID(context.Background(), &model.Principal{ID: uuid.New(), Role: model.RoleUser}, order.ID)
	assert.ErrorIs(t, err, ErrOrderAccessDenied)

	got, err := svc.GetByID(context.Background(), librarian, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = svc.GetByID(context.Background(), reader, uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderService_AmountSnapshotSurvivesPriceChange(t *testing.T) {
	_, bookRepo, svc, book, reader, _ := seedOrderFixtures(t)

	order, err := svc.Create(context.Background(), reader, dto.CreateOrderRequest{
		BookID: book.ID, Phone: "01712345678", Address: "12 Station Road",
	})
	require.NoError(t, err)
	originalAmount := order.Amount
	originalTitle := book.Title

	bookRepo.books[book.ID].Price = decimal.NewFromFloat(99.99)
	bookRepo.books[book.ID].Title = "Retitled"

	got, err := svc.GetByID(context.Background(), reader, order.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(originalAmount))
	assert.Equal(t, originalTitle, got.BookTitle)
}
