package events

import (
	"context"
	"fmt"
	"sync"

	"marketplace/reviews-service/internal/app/reviews/repository"
)

// ReviewSetChanged - набор активных отзывов товара изменился (создание или мягкое удаление)
type ReviewSetChanged struct {
	ProductID uint
}

// ReviewSetChangedHandler выполняется внутри транзакции вызывающего кода.
// repos привязаны к этой транзакции; ошибка обработчика откатывает ее
type ReviewSetChangedHandler func(ctx context.Context, repos repository.Repositories, event ReviewSetChanged) error

// Dispatcher синхронно доставляет доменные события подписчикам
type Dispatcher struct {
	mu       sync.RWMutex
	handlers []ReviewSetChangedHandler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Subscribe регистрирует обработчик. Обычно вызывается один раз при сборке сервиса
func (d *Dispatcher) Subscribe(handler ReviewSetChangedHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, handler)
}

// Dispatch вызывает обработчики в порядке подписки и останавливается на первой ошибке
func (d *Dispatcher) Dispatch(ctx context.Context, repos repository.Repositories, event ReviewSetChanged) error {
	d.mu.RLock()
	handlers := make([]ReviewSetChangedHandler, len(d.handlers))
	copy(handlers, d.handlers)
	d.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, repos, event); err != nil {
			return fmt.Errorf("review set changed handler failed for product %d: %w", event.ProductID, err)
		}
	}

	return nil
}
