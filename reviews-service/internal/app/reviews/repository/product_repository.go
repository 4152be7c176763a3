package repository

import (
	"context"
	"errors"
	"fmt"

	"marketplace/pkg/metrics"
	"marketplace/reviews-service/internal/app/reviews/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

// GetActive находит товар, только если он активен
func (r *productRepository) GetActive(ctx context.Context, id uint) (*entity.Product, error) {
	var product entity.Product

	timer := metrics.NewDbTimer(metricsService, metrics.DbOpSelect, "products")
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&product).Error
	timer.ObserveDuration(err)

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return &product, nil
}

// GetForUpdate возвращает товар в любом статусе и держит блокировку строки.
// Вне транзакции блокировка снимается сразу после запроса
func (r *productRepository) GetForUpdate(ctx context.Context, id uint) (*entity.Product, error) {
	var product entity.Product

	timer := metrics.NewDbTimer(metricsService, metrics.DbOpSelect, "products")
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("id = ?", id).
		First(&product).Error
	timer.ObserveDuration(err)

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to lock product: %w", err)
	}

	return &product, nil
}

// UpdateRating записывает агрегированный рейтинг; nil сохраняется как NULL
func (r *productRepository) UpdateRating(ctx context.Context, id uint, rating *float64) error {
	timer := metrics.NewDbTimer(metricsService, metrics.DbOpUpdate, "products")
	result := r.db.WithContext(ctx).
		Model(&entity.Product{}).
		Where("id = ?", id).
		Update("rating", rating)
	timer.ObserveDuration(result.Error)

	if result.Error != nil {
		return fmt.Errorf("failed to update product rating: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

func (r *productRepository) ListIDs(ctx context.Context) ([]uint, error) {
	var ids []uint

	timer := metrics.NewDbTimer(metricsService, metrics.DbOpSelect, "products")
	err := r.db.WithContext(ctx).
		Model(&entity.Product{}).
		Order("id ASC").
		Pluck("id", &ids).Error
	timer.ObserveDuration(err)

	if err != nil {
		return nil, fmt.Errorf("failed to list product ids: %w", err)
	}

	return ids, nil
}
