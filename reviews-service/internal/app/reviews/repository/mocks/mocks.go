package mocks

import (
	"context"

	"marketplace/reviews-service/internal/app/reviews/entity"
	"marketplace/reviews-service/internal/app/reviews/repository"

	"github.com/stretchr/testify/mock"
)

// MockReviewRepository мок для ReviewRepository
type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) Create(ctx context.Context, review *entity.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *MockReviewRepository) ListActive(ctx context.Context) ([]entity.Review, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Review), args.Error(1)
}

func (m *MockReviewRepository) ListActiveByProduct(ctx context.Context, productID uint) ([]entity.Review, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Review), args.Error(1)
}

func (m *MockReviewRepository) GetByID(ctx context.Context, id uint) (*entity.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Review), args.Error(1)
}

func (m *MockReviewRepository) GetActiveByID(ctx context.Context, id uint) (*entity.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Review), args.Error(1)
}

func (m *MockReviewRepository) ExistsByUserAndProduct(ctx context.Context, userID, productID uint) (bool, error) {
	args := m.Called(ctx, userID, productID)
	return args.Bool(0), args.Error(1)
}

func (m *MockReviewRepository) Deactivate(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockProductRepository мок для ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetActive(ctx context.Context, id uint) (*entity.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Product), args.Error(1)
}

func (m *MockProductRepository) GetForUpdate(ctx context.Context, id uint) (*entity.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Product), args.Error(1)
}

func (m *MockProductRepository) UpdateRating(ctx context.Context, id uint, rating *float64) error {
	args := m.Called(ctx, id, rating)
	return args.Error(0)
}

func (m *MockProductRepository) ListIDs(ctx context.Context) ([]uint, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uint), args.Error(1)
}

// MockStore выполняет fn сразу, передавая те же моки репозиториев.
// Вызов Transaction не записывается в ожидания; TxErr имитирует ошибку коммита
type MockStore struct {
	ReviewRepo  *MockReviewRepository
	ProductRepo *MockProductRepository
	TxErr       error
	TxCalls     int
}

func NewMockStore() *MockStore {
	return &MockStore{
		ReviewRepo:  new(MockReviewRepository),
		ProductRepo: new(MockProductRepository),
	}
}

func (m *MockStore) Reviews() repository.ReviewRepository {
	return m.ReviewRepo
}

func (m *MockStore) Products() repository.ProductRepository {
	return m.ProductRepo
}

func (m *MockStore) Transaction(ctx context.Context, fn func(repos repository.Repositories) error) error {
	m.TxCalls++
	if err := fn(m); err != nil {
		return err
	}
	return m.TxErr
}

// MockMessagePublisher мок для Kafka MessagePublisher
type MockMessagePublisher struct {
	mock.Mock
	Messages [][]byte
}

func (m *MockMessagePublisher) PublishMessage(ctx context.Context, key string, value []byte) error {
	m.Messages = append(m.Messages, value)
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockMessagePublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockReviewCache мок для ReviewCache
type MockReviewCache struct {
	mock.Mock
}

func (m *MockReviewCache) GetActive(ctx context.Context) ([]entity.Review, int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]entity.Review), args.Get(1).(int64), args.Error(2)
}

func (m *MockReviewCache) SetActive(ctx context.Context, generation int64, reviews []entity.Review) error {
	args := m.Called(ctx, generation, reviews)
	return args.Error(0)
}

func (m *MockReviewCache) GetProductReviews(ctx context.Context, productID uint) ([]entity.Review, int64, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]entity.Review), args.Get(1).(int64), args.Error(2)
}

func (m *MockReviewCache) SetProductReviews(ctx context.Context, productID uint, generation int64, reviews []entity.Review) error {
	args := m.Called(ctx, productID, generation, reviews)
	return args.Error(0)
}

func (m *MockReviewCache) Invalidate(ctx context.Context, productID uint) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}

// MockAuditRepository мок для AuditRepository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Insert(ctx context.Context, record *entity.ReviewAuditRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}
