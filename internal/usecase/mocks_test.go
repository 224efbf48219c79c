package usecase

import (
	"context"
	"time"

	"github.com/clothingstore/catalog-service/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockStoreRepository struct {
	mock.Mock
}

func (m *MockStoreRepository) InsertStore(ctx context.Context, store *domain.Store) (string, error) {
	args := m.Called(ctx, store)
	return args.String(0), args.Error(1)
}

func (m *MockStoreRepository) GetStore(ctx context.Context, storeID string) (*domain.Store, error) {
	args := m.Called(ctx, storeID)
	if s, ok := args.Get(0).(*domain.Store); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStoreRepository) FindStoreByNameAndLocation(ctx context.Context, companyName, location string) (*domain.Store, error) {
	args := m.Called(ctx, companyName, location)
	if s, ok := args.Get(0).(*domain.Store); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStoreRepository) ListStores(ctx context.Context, filter domain.StoreFilter) ([]*domain.Store, int64, error) {
	args := m.Called(ctx, filter)
	var stores []*domain.Store
	if s, ok := args.Get(0).([]*domain.Store); ok {
		stores = s
	}
	return stores, args.Get(1).(int64), args.Error(2)
}

func (m *MockStoreRepository) UpdateStoreFields(ctx context.Context, storeID string, fields map[string]interface{}) error {
	args := m.Called(ctx, storeID, fields)
	return args.Error(0)
}

func (m *MockStoreRepository) DeleteStore(ctx context.Context, storeID string) error {
	args := m.Called(ctx, storeID)
	return args.Error(0)
}

func (m *MockStoreRepository) AddBranch(ctx context.Context, storeID, branchID string) error {
	args := m.Called(ctx, storeID, branchID)
	return args.Error(0)
}

func (m *MockStoreRepository) RemoveBranch(ctx context.Context, storeID, branchID string) error {
	args := m.Called(ctx, storeID, branchID)
	return args.Error(0)
}

func (m *MockStoreRepository) IncrementViews(ctx context.Context, storeID string) error {
	args := m.Called(ctx, storeID)
	return args.Error(0)
}

func (m *MockStoreRepository) AppendReviewIfAbsent(ctx context.Context, storeID string, review *domain.Review) error {
	args := m.Called(ctx, storeID, review)
	return args.Error(0)
}

func (m *MockStoreRepository) UpdateReviewFields(ctx context.Context, storeID, reviewID string, patch domain.ReviewPatch) error {
	args := m.Called(ctx, storeID, reviewID, patch)
	return args.Error(0)
}

func (m *MockStoreRepository) RemoveReview(ctx context.Context, storeID, reviewID string) error {
	args := m.Called(ctx, storeID, reviewID)
	return args.Error(0)
}

func (m *MockStoreRepository) AppendReply(ctx context.Context, storeID, reviewID string, reply *domain.Reply) error {
	args := m.Called(ctx, storeID, reviewID, reply)
	return args.Error(0)
}

func (m *MockStoreRepository) UpdateReplyText(ctx context.Context, storeID, reviewID, replyID, text string, updatedAt time.Time) error {
	args := m.Called(ctx, storeID, reviewID, replyID, text, updatedAt)
	return args.Error(0)
}

func (m *MockStoreRepository) RemoveReply(ctx context.Context, storeID, reviewID, replyID string) error {
	args := m.Called(ctx, storeID, reviewID, replyID)
	return args.Error(0)
}

func (m *MockStoreRepository) SetRatingAggregate(ctx context.Context, storeID string, average float64, count int) error {
	args := m.Called(ctx, storeID, average, count)
	return args.Error(0)
}

type MockReplyNotifier struct {
	mock.Mock
}

func (m *MockReplyNotifier) PublishReplyCreated(ctx context.Context, event *domain.ReplyCreatedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if b, ok := args.Get(0).([]byte); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
