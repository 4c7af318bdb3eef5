package service

import (
	"context"
	"errors"
	"testing"

	"order-payments/internal/core/domain"
	"order-payments/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestAttemptService_RecordError_FillsDefaults(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAttemptRepo := mocks.NewMockAttemptRepository(ctrl)
	svc := NewAttemptService(mockAttemptRepo, mocks.NewMockOrderRepository(ctrl), newTestLogger())

	msg := "order already paid"
	orderID := uuid.New()

	mockAttemptRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, a *domain.PaymentAttempt) error {
			assert.NotEqual(t, uuid.Nil, a.ID)
			assert.False(t, a.CreatedAt.IsZero())
			assert.Equal(t, domain.AttemptStatusError, a.Status)
			assert.Equal(t, orderID, a.OrderID)
			return nil
		},
	)

	svc.RecordError(context.Background(), &domain.PaymentAttempt{
		OrderID:      orderID,
		Status:       domain.AttemptStatusSuccess,
		ErrorMessage: &msg,
	})
}

func TestAttemptService_RecordError_SurvivesCancelledContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAttemptRepo := mocks.NewMockAttemptRepository(ctrl)
	svc := NewAttemptService(mockAttemptRepo, mocks.NewMockOrderRepository(ctrl), newTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mockAttemptRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ *domain.PaymentAttempt) error {
			assert.NoError(t, ctx.Err())
			return nil
		},
	)

	svc.RecordError(ctx, &domain.PaymentAttempt{OrderID: uuid.New()})
}

func TestAttemptService_RecordError_RepoFailureIsSwallowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAttemptRepo := mocks.NewMockAttemptRepository(ctrl)
	svc := NewAttemptService(mockAttemptRepo, mocks.NewMockOrderRepository(ctrl), newTestLogger())

	mockAttemptRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("insert failed"))

	assert.NotPanics(t, func() {
		svc.RecordError(context.Background(), &domain.PaymentAttempt{OrderID: uuid.New()})
	})
}

func TestAttemptService_ListByOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAttemptRepo := mocks.NewMockAttemptRepository(ctrl)
	mockOrderRepo := mocks.NewMockOrderRepository(ctrl)
	svc := NewAttemptService(mockAttemptRepo, mockOrderRepo, newTestLogger())

	orderID := uuid.New()
	expected := []domain.PaymentAttempt{
		{ID: uuid.New(), OrderID: orderID, Status: domain.AttemptStatusSuccess},
		{ID: uuid.New(), OrderID: orderID, Status: domain.AttemptStatusError},
	}

	mockOrderRepo.EXPECT().GetByID(gomock.Any(), orderID).Return(&domain.Order{ID: orderID}, nil)
	mockAttemptRepo.EXPECT().ListByOrder(gomock.Any(), orderID).Return(expected, nil)

	attempts, err := svc.ListByOrder(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, expected, attempts)
}

func TestAttemptService_ListByOrder_OrderNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockOrderRepo := mocks.NewMockOrderRepository(ctrl)
	svc := NewAttemptService(mocks.NewMockAttemptRepository(ctrl), mockOrderRepo, newTestLogger())

	mockOrderRepo.EXPECT().GetByID(gomock.Any(), gomock.Any()).Return(nil, nil)

	_, err := svc.ListByOrder(context.Background(), uuid.New())
	assertAppError(t, err, "ORD_001")
}

func TestAttemptService_ListByOrder_RepoError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAttemptRepo := mocks.NewMockAttemptRepository(ctrl)
	mockOrderRepo := mocks.NewMockOrderRepository(ctrl)
	svc := NewAttemptService(mockAttemptRepo, mockOrderRepo, newTestLogger())

	orderID := uuid.New()
	mockOrderRepo.EXPECT().GetByID(gomock.Any(), orderID).Return(&domain.Order{ID: orderID}, nil)
	mockAttemptRepo.EXPECT().ListByOrder(gomock.Any(), orderID).Return(nil, errors.New("boom"))

	_, err := svc.ListByOrder(context.Background(), orderID)
	assertAppError(t, err, "SYS_001")
}
