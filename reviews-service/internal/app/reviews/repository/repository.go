package repository

import (
	"context"
	"errors"

	"marketplace/reviews-service/internal/app/reviews/entity"
)

const metricsService = "reviews-service"

var (
	// Стандартные ошибки репозитория для обработки в service layer
	ErrReviewNotFound  = errors.New("review not found")
	ErrProductNotFound = errors.New("product not found")
	ErrDuplicateReview = errors.New("review for this product already exists")
	ErrDuplicateEvent  = errors.New("audit event already stored")
)

// ReviewRepository определяет методы для работы с отзывами в PostgreSQL
type ReviewRepository interface {
	Create(ctx context.Context, review *entity.Review) error
	ListActive(ctx context.Context) ([]entity.Review, error)
	ListActiveByProduct(ctx context.Context, productID uint) ([]entity.Review, error)
	GetByID(ctx context.Context, id uint) (*entity.Review, error)
	GetActiveByID(ctx context.Context, id uint) (*entity.Review, error)
	// ExistsByUserAndProduct не учитывает is_active
	ExistsByUserAndProduct(ctx context.Context, userID, productID uint) (bool, error)
	Deactivate(ctx context.Context, id uint) error
}

// ProductRepository - товары читаются, меняется только рейтинг
type ProductRepository interface {
	GetActive(ctx context.Context, id uint) (*entity.Product, error)
	// GetForUpdate блокирует строку товара до конца транзакции (SELECT ... FOR UPDATE)
	GetForUpdate(ctx context.Context, id uint) (*entity.Product, error)
	UpdateRating(ctx context.Context, id uint, rating *float64) error
	ListIDs(ctx context.Context) ([]uint, error)
}

// Repositories - набор репозиториев, привязанных к одному соединению или транзакции
type Repositories interface {
	Reviews() ReviewRepository
	Products() ProductRepository
}

// Store открывает единицу работы: все обращения внутри fn идут в одной транзакции,
// ошибка из fn откатывает ее
type Store interface {
	Repositories
	Transaction(ctx context.Context, fn func(repos Repositories) error) error
}

// AuditRepository - журнал событий отзывов в MongoDB
type AuditRepository interface {
	// Insert идемпотентен по event_id: повтор возвращает ErrDuplicateEvent
	Insert(ctx context.Context, record *entity.ReviewAuditRecord) error
}
