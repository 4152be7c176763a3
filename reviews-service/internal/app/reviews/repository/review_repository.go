package repository

import (
	"context"
	"errors"
	"fmt"

	"marketplace/pkg/metrics"
	"marketplace/reviews-service/internal/app/reviews/entity"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const uniqueViolation = "23505"

type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository создает новый репозиторий отзывов
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

// Create сохраняет отзыв. Нарушение уникального индекса (user_id, product_id)
// возвращается как ErrDuplicateReview - это закрывает гонку двух одновременных запросов
func (r *reviewRepository) Create(ctx context.Context, review *entity.Review) error {
	timer := metrics.NewDbTimer(metricsService, metrics.DbOpInsert, "reviews")
	err := r.db.WithContext(ctx).Create(review).Error
	timer.ObserveDuration(err)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateReview
		}
		return fmt.Errorf("failed to create review: %w", err)
	}

	return nil
}

// ListActive возвращает активные отзывы в порядке добавления
func (r *reviewRepository) ListActive(ctx context.Context) ([]entity.Review, error) {
	var reviews []entity.Review

	timer := metrics.NewDbTimer(metricsService, metrics.DbOpSelect, "reviews")
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&reviews).Error
	timer.ObserveDuration(err)

	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	if reviews == nil {
		reviews = []entity.Review{}
	}

	return reviews, nil
}

// ListActiveByProduct использует индекс idx_reviews_product
func (r *reviewRepository) ListActiveByProduct(ctx context.Context, productID uint) ([]entity.Review, error) {
	var reviews []entity.Review

	timer := metrics.NewDbTimer(metricsService, metrics.DbOpSelect, "reviews")
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND is_active = ?", productID, true).
		Order("id ASC").
		Find(&reviews).Error
	timer.ObserveDuration(err)

	if err != nil {
		return nil, fmt.Errorf("failed to list product reviews: %w", err)
	}
	if reviews == nil {
		reviews = []entity.Review{}
	}

	return reviews, nil
}

// GetByID находит отзыв в любом статусе
func (r *reviewRepository) GetByID(ctx context.Context, id uint) (*entity.Review, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *reviewRepository) GetActiveByID(ctx context.Context, id uint) (*entity.Review, error) {
	return r.first(ctx, "id = ? AND is_active = ?", id, true)
}

func (r *reviewRepository) first(ctx context.Context, query string, args ...interface{}) (*entity.Review, error) {
	var review entity.Review

	timer := metrics.NewDbTimer(metricsService, metrics.DbOpSelect, "reviews")
	err := r.db.WithContext(ctx).Where(query, args...).First(&review).Error
	timer.ObserveDuration(err)

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}

	return &review, nil
}

func (r *reviewRepository) ExistsByUserAndProduct(ctx context.Context, userID, productID uint) (bool, error) {
	var count int64

	timer := metrics.NewDbTimer(metricsService, metrics.DbOpSelect, "reviews")
	err := r.db.WithContext(ctx).
		Model(&entity.Review{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Count(&count).Error
	timer.ObserveDuration(err)

	if err != nil {
		return false, fmt.Errorf("failed to check existing review: %w", err)
	}

	return count > 0, nil
}

// Deactivate выполняет мягкое удаление. Уже неактивный отзыв дает ErrReviewNotFound
func (r *reviewRepository) Deactivate(ctx context.Context, id uint) error {
	timer := metrics.NewDbTimer(metricsService, metrics.DbOpUpdate, "reviews")
	result := r.db.WithContext(ctx).
		Model(&entity.Review{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	timer.ObserveDuration(result.Error)

	if result.Error != nil {
		return fmt.Errorf("failed to deactivate review: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrReviewNotFound
	}

	return nil
}
