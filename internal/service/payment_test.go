package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hizbul38/book-porter-api/internal/config"
	"github.com/Hizbul38/book-porter-api/internal/model"
	"github.com/Hizbul38/book-porter-api/internal/payment"
)

type fakeProcessor struct {
	sessions map[string]*payment.Session
	fail     bool
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{sessions: make(map[string]*payment.Session)}
}

func (f *fakeProcessor) CreateSession(_ context.Context, params payment.SessionParams) (*payment.Session, error) {
	if f.fail {
		return nil, errors.New("connection refused")
	}
	sess := &payment.Session{
		ID:      "cs_test_" + uuid.NewString(),
		URL:     "https://checkout.example.com/pay",
		OrderID: params.OrderID,
	}
	f.sessions[sess.ID] = sess
	return sess, nil
}

func (f *fakeProcessor) GetSession(_ context.Context, id string) (*payment.Session, error) {
	if f.fail {
		return nil, errors.New("connection refused")
	}
	sess, ok := f.sessions[id]
	if !ok {
		return nil, errors.New("no such session")
	}
	return sess, nil
}

func (f *fakeProcessor) complete(id string) { f.sessions[id].Paid = true }

func seedPaymentFixtures(t *testing.T) (*mockOrderRepo, *fakeProcessor, *PaymentService, *model.Order, *model.Principal) {
	t.Helper()
	orderRepo := newMockOrderRepo()
	proc := newFakeProcessor()

	reader := &model.Principal{ID: uuid.New(), Email: "reader@example.com", Role: model.RoleUser}
	order := &model.Order{
		BookID: uuid.New(), BookTitle: "The Go Programming Language",
		UserID: reader.ID, UserEmail: reader.Email,
		Amount: decimal.NewFromFloat(32.50),
		Status: model.OrderPending, Payment: model.PaymentUnpaid,
	}
	require.NoError(t, orderRepo.Create(context.Background(), order))

	svc := NewPaymentService(orderRepo, proc, nil, config.PaymentConfig{
		Currency:   "usd",
		SuccessURL: "http://localhost/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  "http://localhost/cancel",
	})
	return orderRepo, proc, svc, order, reader
}

func TestPaymentService_CheckoutAndVerify(t *testing.T) {
	orderRepo, proc, svc, order, reader := seedPaymentFixtures(t)

	url, err := svc.CreateCheckoutSession(context.Background(), reader, order.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, url)

	sessionID := orderRepo.orders[order.ID].SessionID
	require.NotEmpty(t, sessionID)

	// Session not completed yet: verify reports unpaid, order untouched.
	resp, err := svc.Verify(context.Background(), reader, sessionID)
	require.NoError(t, err)
	assert.False(t, resp.Paid)
	assert.Equal(t, model.PaymentUnpaid, orderRepo.orders[order.ID].Payment)

	proc.complete(sessionID)

	resp, err = svc.Verify(context.Background(), reader, sessionID)
	require.NoError(t, err)
	assert.True(t, resp.Paid)
	assert.Equal(t, order.ID, resp.OrderID)
	assert.Equal(t, model.PaymentPaid, orderRepo.orders[order.ID].Payment)
}

func TestPaymentService_Verify_Idempotent(t *testing.T) {
	orderRepo, proc, svc, order, reader := seedPaymentFixtures(t)

	_, err := svc.CreateCheckoutSession(context.Background(), reader, order.ID)
	require.NoError(t, err)
	sessionID := orderRepo.orders[order.ID].SessionID
	proc.complete(sessionID)

	for i := 0; i < 3; i++ {
		resp, err := svc.Verify(context.Background(), reader, sessionID)
		require.NoError(t, err)
		assert.True(t, resp.Paid)
	}
	assert.Equal(t, model.PaymentPaid, orderRepo.orders[order.ID].Payment)
}

func TestPaymentService_CreateCheckoutSession_NotPayable(t *testing.T) {
	orderRepo, _, svc, order, reader := seedPaymentFixtures(t)

	// Not the reader's order.
	_, err := svc.CreateCheckoutSession(context.Background(), &model.Principal{ID: uuid.New(), Role: model.RoleUser}, order.ID)
	assert.ErrorIs(t, err, ErrOrderAccessDenied)

	// Cancelled orders cannot start checkout.
	orderRepo.orders[order.ID].Status = model.OrderCancelled
	_, err = svc.CreateCheckoutSession(context.Background(), reader, order.ID)
	assert.ErrorIs(t, err, ErrOrderNotPayable)

	// Paid orders cannot pay again.
	orderRepo.orders[order.ID].Status = model.OrderPending
	orderRepo.orders[order.ID].Payment = model.PaymentPaid
	_, err = svc.CreateCheckoutSession(context.Background(), reader, order.ID)
	assert.ErrorIs(t, err, ErrAlreadyPaid)
}

func TestPaymentService_CreateCheckoutSession_UpstreamDown(t *testing.T) {
	_, proc, svc, order, reader := seedPaymentFixtures(t)
	proc.fail = true

	_, err := svc.CreateCheckoutSession(context.Background(), reader, order.ID)
	assert.ErrorIs(t, err, ErrPaymentUpstream)
}

func TestPaymentService_Verify_UnknownSession(t *testing.T) {
	_, _, svc, _, reader := seedPaymentFixtures(t)

	_, err := svc.Verify(context.Background(), reader, "cs_test_missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestPaymentService_Verify_Authorization(t *testing.T) {
	orderRepo, proc, svc, order, reader := seedPaymentFixtures(t)

	_, err := svc.CreateCheckoutSession(context.Background(), reader, order.ID)
	require.NoError(t, err)
	sessionID := orderRepo.orders[order.ID].SessionID
	proc.complete(sessionID)

	_, err = svc.Verify(context.Background(), &model.Principal{ID: uuid.New(), Role: model.RoleUser}, sessionID)
	assert.ErrorIs(t, err, ErrOrderAccessDenied)

	// Admins may verify on behalf of the reader.
	resp, err := svc.Verify(context.Background(), &model.Principal{ID: uuid.New(), Role: model.RoleAdmin}, sessionID)
	require.NoError(t, err)
	assert.True(t, resp.Paid)
}

func TestPaymentService_Verify_UpstreamDown(t *testing.T) {
	orderRepo, proc, svc, order, reader := seedPaymentFixtures(t)

	_, err := svc.CreateCheckoutSession(context.Background(), reader, order.ID)
	require.NoError(t, err)
	sessionID := orderRepo.orders[order.ID].SessionID

	proc.fail = true
	_, err = svc.Verify(context.Background(), reader, sessionID)
	assert.ErrorIs(t, err, ErrPaymentUpstream)
	assert.Equal(t, model.PaymentUnpaid, orderRepo.orders[order.ID].Payment)
}

func TestPaymentService_Verify_CancelledOrder(t *testing.T) {
	orderRepo, proc, svc, order, reader := seedPaymentFixtures(t)

	_, err := svc.CreateCheckoutSession(context.Background(), reader, order.ID)
	require.NoError(t, err)
	sessionID := orderRepo.orders[order.ID].SessionID
	proc.complete(sessionID)

	orderRepo.orders[order.ID].Status = model.OrderCancelled

	_, err = svc.Verify(context.Background(), reader, sessionID)
	assert.ErrorIs(t, err, ErrOrderNotPayable)
}
