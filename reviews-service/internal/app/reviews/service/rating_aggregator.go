package service

import (
	"context"
	"errors"
	"fmt"

	"marketplace/pkg/logger"
	"marketplace/pkg/metrics"
	"marketplace/reviews-service/internal/app/reviews/entity"
	"marketplace/reviews-service/internal/app/reviews/events"
	"marketplace/reviews-service/internal/app/reviews/repository"
)

const (
	triggerReviewSetChanged = "review_set_changed"
	triggerReconcile        = "reconcile"
)

// RatingAggregator поддерживает products.rating равным среднему оценок активных отзывов
type RatingAggregator struct {
	store repository.Store
}

func NewRatingAggregator(store repository.Store) *RatingAggregator {
	return &RatingAggregator{store: store}
}

// Recompute пересчитывает рейтинг на переданных репозиториях.
// Внутри транзакции видит еще не закоммиченные изменения этой транзакции
func (a *RatingAggregator) Recompute(ctx context.Context, repos repository.Repositories, productID uint) (*float64, error) {
	reviews, err := repos.Reviews().ListActiveByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to load active reviews: %w", err)
	}

	rating := entity.AverageGrade(reviews)

	if err := repos.Products().UpdateRating(ctx, productID, rating); err != nil {
		return nil, fmt.Errorf("failed to store rating: %w", err)
	}

	return rating, nil
}

// HandleReviewSetChanged подписывается на events.Dispatcher
func (a *RatingAggregator) HandleReviewSetChanged(ctx context.Context, repos repository.Repositories, event events.ReviewSetChanged) error {
	rating, err := a.Recompute(ctx, repos, event.ProductID)
	if err != nil {
		metrics.RatingRecomputations.WithLabelValues(triggerReviewSetChanged, "failed").Inc()
		return err
	}

	metrics.RatingRecomputations.WithLabelValues(triggerReviewSetChanged, "success").Inc()
	ev := logger.Ctx(ctx).Debug().Uint("product_id", event.ProductID)
	if rating != nil {
		ev = ev.Float64("rating", *rating)
	}
	ev.Msg("Product rating recomputed")

	return nil
}

// RecomputeAll сверяет рейтинги всех товаров, каждый в своей транзакции.
// Ошибка по одному товару не останавливает остальные
func (a *RatingAggregator) RecomputeAll(ctx context.Context) error {
	ids, err := a.store.Products().ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list products: %w", err)
	}

	var errs []error
	for _, id := range ids {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		err := a.store.Transaction(ctx, func(repos repository.Repositories) error {
			if _, err := repos.Products().GetForUpdate(ctx, id); err != nil {
				return err
			}
			_, err := a.Recompute(ctx, repos, id)
			return err
		})
		if err != nil {
			metrics.RatingRecomputations.WithLabelValues(triggerReconcile, "failed").Inc()
			logger.Error().Err(err).Uint("product_id", id).Msg("Failed to reconcile product rating")
			errs = append(errs, fmt.Errorf("product %d: %w", id, err))
			continue
		}
		metrics.RatingRecomputations.WithLabelValues(triggerReconcile, "success").Inc()
	}

	logger.Info().
		Int("products", len(ids)).
		Int("failed", len(errs)).
		Msg("Rating reconciliation finished")

	return errors.Join(errs...)
}
