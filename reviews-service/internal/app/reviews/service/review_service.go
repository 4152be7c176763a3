package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"marketplace/pkg/logger"
	"marketplace/pkg/metrics"
	"marketplace/reviews-service/internal/app/reviews/entity"
	"marketplace/reviews-service/internal/app/reviews/events"
	"marketplace/reviews-service/internal/app/reviews/infrastructure"
	"marketplace/reviews-service/internal/app/reviews/policy"
	"marketplace/reviews-service/internal/app/reviews/repository"
)

// ReviewService обрабатывает бизнес-логику отзывов
// Координирует транзакцию в PostgreSQL, кеш Redis и публикацию в Kafka
type ReviewService struct {
	store          repository.Store
	dispatcher     *events.Dispatcher
	cache          infrastructure.ReviewCache
	publisher      infrastructure.MessagePublisher
	publishTimeout time.Duration // ограничивает ожидание Kafka после коммита
}

const defaultPublishTimeout = 3 * time.Second

// NewReviewService создает новый сервис отзывов с внедрением зависимостей
func NewReviewService(
	store repository.Store,
	dispatcher *events.Dispatcher,
	cache infrastructure.ReviewCache,
	publisher infrastructure.MessagePublisher,
) *ReviewService {
	return &ReviewService{
		store:          store,
		dispatcher:     dispatcher,
		cache:          cache,
		publisher:      publisher,
		publishTimeout: defaultPublishTimeout,
	}
}

// ListActive возвращает все активные отзывы. Сначала пробует кеш
func (s *ReviewService) ListActive(ctx context.Context) ([]entity.Review, error) {
	cached, generation, cacheErr := s.cache.GetActive(ctx)
	if cacheErr != nil {
		logger.Ctx(ctx).Warn().Err(cacheErr).Msg("Reviews cache unavailable, reading from database")
	} else if cached != nil {
		return cached, nil
	}

	reviews, err := s.store.Reviews().ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}

	// без поколения писать в кеш нельзя: список мог устареть
	if cacheErr == nil {
		if err := s.cache.SetActive(ctx, generation, reviews); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("Failed to cache active reviews")
		}
	}

	return reviews, nil
}

// ListActiveForProduct возвращает активные отзывы товара.
// Наличие и активность товара всегда проверяются по БД
func (s *ReviewService) ListActiveForProduct(ctx context.Context, productID uint) ([]entity.Review, error) {
	if _, err := s.store.Products().GetActive(ctx, productID); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	cached, generation, cacheErr := s.cache.GetProductReviews(ctx, productID)
	if cacheErr != nil {
		logger.Ctx(ctx).Warn().Err(cacheErr).Uint("product_id", productID).Msg("Reviews cache unavailable, reading from database")
	} else if cached != nil {
		return cached, nil
	}

	reviews, err := s.store.Reviews().ListActiveByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list product reviews: %w", err)
	}

	if cacheErr == nil {
		if err := s.cache.SetProductReviews(ctx, productID, generation, reviews); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Uint("product_id", productID).Msg("Failed to cache product reviews")
		}
	}

	return reviews, nil
}

// CreateReview создает отзыв и пересчитывает рейтинг товара в одной транзакции
// 1. Проверяет оценку до обращения к хранилищу
// 2. Блокирует строку товара, проверяет активность, дубликат и self-review
// 3. Сохраняет отзыв и публикует ReviewSetChanged
// 4. После коммита сбрасывает кеш и отправляет REVIEW_CREATED в Kafka
func (s *ReviewService) CreateReview(ctx context.Context, actor entity.Actor, req *entity.CreateReviewRequest) (*entity.Review, error) {
	if !entity.ValidGrade(req.Grade) {
		metrics.ReviewsRejected.WithLabelValues("create", "validation").Inc()
		return nil, ErrValidation
	}
	if !policy.CanCreateReview(actor) {
		metrics.ReviewsRejected.WithLabelValues("create", "forbidden").Inc()
		return nil, ErrForbidden
	}

	var review *entity.Review
	var rating *float64

	err := s.store.Transaction(ctx, func(repos repository.Repositories) error {
		product, err := repos.Products().GetForUpdate(ctx, req.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				return ErrProductNotFound
			}
			return err
		}
		if !product.IsActive {
			return ErrProductNotFound
		}

		exists, err := repos.Reviews().ExistsByUserAndProduct(ctx, actor.ID, product.ID)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateReview
		}

		if policy.IsSelfReview(actor, product) {
			return ErrSelfReview
		}

		review = &entity.Review{
			UserID:      actor.ID,
			ProductID:   product.ID,
			Comment:     req.Comment,
			CommentDate: time.Now().UTC(),
			Grade:       req.Grade,
			IsActive:    true,
		}
		if err := repos.Reviews().Create(ctx, review); err != nil {
			if errors.Is(err, repository.ErrDuplicateReview) {
				return ErrDuplicateReview
			}
			return err
		}

		rating, err = s.applyReviewSetChanged(ctx, repos, product.ID)
		return err
	})
	if err != nil {
		s.recordRejection("create", err)
		return nil, wrapUnexpected("failed to create review", err)
	}

	metrics.ReviewsCreated.Inc()
	metrics.ReviewsRating.Observe(float64(review.Grade))
	logger.Ctx(ctx).Info().
		Uint("review_id", review.ID).
		Uint("product_id", review.ProductID).
		Uint("user_id", review.UserID).
		Int("grade", review.Grade).
		Msg("Review created")

	s.afterCommit(ctx, entity.NewReviewEvent(entity.EventReviewCreated, review, actor, rating))

	return review, nil
}

// DeleteReview выполняет мягкое удаление: автор или администратор.
// Уже удаленный отзыв считается отсутствующим
func (s *ReviewService) DeleteReview(ctx context.Context, actor entity.Actor, reviewID uint) error {
	var review *entity.Review
	var rating *float64

	err := s.store.Transaction(ctx, func(repos repository.Repositories) error {
		var err error
		review, err = repos.Reviews().GetActiveByID(ctx, reviewID)
		if err != nil {
			if errors.Is(err, repository.ErrReviewNotFound) {
				return ErrReviewNotFound
			}
			return err
		}

		if !policy.CanRemoveReview(actor, review) {
			return ErrForbidden
		}

		// блокировка товара сериализует изменения набора отзывов и рейтинга
		if _, err := repos.Products().GetForUpdate(ctx, review.ProductID); err != nil {
			return err
		}

		if err := repos.Reviews().Deactivate(ctx, review.ID); err != nil {
			if errors.Is(err, repository.ErrReviewNotFound) {
				return ErrReviewNotFound
			}
			return err
		}
		review.IsActive = false

		rating, err = s.applyReviewSetChanged(ctx, repos, review.ProductID)
		return err
	})
	if err != nil {
		s.recordRejection("delete", err)
		return wrapUnexpected("failed to delete review", err)
	}

	actorLabel := "owner"
	if actor.ID != review.UserID {
		actorLabel = entity.RoleAdmin
	}
	metrics.ReviewsDeleted.WithLabelValues(actorLabel).Inc()
	logger.Ctx(ctx).Info().
		Uint("review_id", review.ID).
		Uint("product_id", review.ProductID).
		Uint("actor_id", actor.ID).
		Str("actor", actorLabel).
		Msg("Review deleted")

	s.afterCommit(ctx, entity.NewReviewEvent(entity.EventReviewDeleted, review, actor, rating))

	return nil
}

// GetReview возвращает отзыв по ID в любом статусе. Только для администратора
func (s *ReviewService) GetReview(ctx context.Context, actor entity.Actor, reviewID uint) (*entity.Review, error) {
	if !policy.CanAudit(actor) {
		return nil, ErrForbidden
	}

	review, err := s.store.Reviews().GetByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}

	return review, nil
}

// applyReviewSetChanged рассылает событие подписчикам и читает итоговый рейтинг
// (строка товара уже заблокирована этой транзакцией)
func (s *ReviewService) applyReviewSetChanged(ctx context.Context, repos repository.Repositories, productID uint) (*float64, error) {
	if err := s.dispatcher.Dispatch(ctx, repos, events.ReviewSetChanged{ProductID: productID}); err != nil {
		return nil, err
	}

	product, err := repos.Products().GetForUpdate(ctx, productID)
	if err != nil {
		return nil, err
	}

	return product.Rating, nil
}

// afterCommit выполняет побочные эффекты, которые не должны влиять на ответ:
// отмена запроса клиентом не должна прерывать их
func (s *ReviewService) afterCommit(ctx context.Context, event entity.ReviewEvent) {
	ctx = context.WithoutCancel(ctx)

	if err := s.cache.Invalidate(ctx, event.ProductID); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Uint("product_id", event.ProductID).Msg("Failed to invalidate reviews cache")
	}

	publishCtx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()

	if err := s.publishReviewEvent(publishCtx, event); err != nil {
		// Отзыв уже сохранен, проблемы с Kafka не критичны
		logger.Ctx(ctx).Error().Err(err).
			Str("event_type", event.EventType).
			Uint("review_id", event.ReviewID).
			Msg("Failed to publish review event")
	}
}

// publishReviewEvent отправляет событие об отзыве в Kafka
func (s *ReviewService) publishReviewEvent(ctx context.Context, event entity.ReviewEvent) error {
	eventData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal review event: %w", err)
	}

	// Ключ = ProductID: события одного товара идут в одну партицию
	key := strconv.FormatUint(uint64(event.ProductID), 10)
	if err := s.publisher.PublishMessage(ctx, key, eventData); err != nil {
		return fmt.Errorf("failed to publish to kafka: %w", err)
	}

	return nil
}

func (s *ReviewService) recordRejection(operation string, err error) {
	var reason string
	switch {
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrReviewNotFound):
		reason = "not_found"
	case errors.Is(err, ErrDuplicateReview):
		reason = "duplicate"
	case errors.Is(err, ErrSelfReview):
		reason = "self_review"
	case errors.Is(err, ErrForbidden):
		reason = "forbidden"
	default:
		return
	}
	metrics.ReviewsRejected.WithLabelValues(operation, reason).Inc()
}

// wrapUnexpected оставляет бизнес-ошибки как есть, остальные оборачивает
func wrapUnexpected(msg string, err error) error {
	for _, known := range []error{ErrValidation, ErrProductNotFound, ErrReviewNotFound, ErrDuplicateReview, ErrSelfReview, ErrForbidden} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}
