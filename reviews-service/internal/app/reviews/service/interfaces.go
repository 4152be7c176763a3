package service

import (
	"context"

	"marketplace/reviews-service/internal/app/reviews/entity"
)

type ReviewServiceInterface interface {
	ListActive(ctx context.Context) ([]entity.Review, error)
	ListActiveForProduct(ctx context.Context, productID uint) ([]entity.Review, error)
	CreateReview(ctx context.Context, actor entity.Actor, req *entity.CreateReviewRequest) (*entity.Review, error)
	DeleteReview(ctx context.Context, actor entity.Actor, reviewID uint) error
	GetReview(ctx context.Context, actor entity.Actor, reviewID uint) (*entity.Review, error)
}

// RatingReconcilerInterface используется cron-задачей воркера
type RatingReconcilerInterface interface {
	RecomputeAll(ctx context.Context) error
}

// AuditServiceInterface используется Kafka consumer воркера
type AuditServiceInterface interface {
	ProcessReviewEvent(ctx context.Context, event *entity.ReviewEvent) error
}
