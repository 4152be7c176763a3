package infrastructure

import (
	"context"

	"marketplace/reviews-service/internal/app/reviews/entity"
)

// MessagePublisher интерфейс для отправки сообщений в очередь (Kafka)
// Используется для dependency injection и упрощения тестирования
type MessagePublisher interface {
	PublishMessage(ctx context.Context, key string, value []byte) error
	Close() error
}

// ReviewCache кеширует списки активных отзывов.
// Get-методы возвращают nil при промахе (закешированный пустой список - пустой срез)
// и поколение списка. Set пишет список под поколением, полученным до чтения из БД:
// после Invalidate поколение растет, и список, прочитанный раньше, никто уже не увидит
type ReviewCache interface {
	GetActive(ctx context.Context) ([]entity.Review, int64, error)
	SetActive(ctx context.Context, generation int64, reviews []entity.Review) error
	GetProductReviews(ctx context.Context, productID uint) ([]entity.Review, int64, error)
	SetProductReviews(ctx context.Context, productID uint, generation int64, reviews []entity.Review) error
	// Invalidate сдвигает поколение общего списка и списка товара
	Invalidate(ctx context.Context, productID uint) error
}
