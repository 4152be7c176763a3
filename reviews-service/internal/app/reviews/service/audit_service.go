package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace/pkg/logger"
	"marketplace/pkg/metrics"
	"marketplace/reviews-service/internal/app/reviews/entity"
	"marketplace/reviews-service/internal/app/reviews/repository"

	"github.com/google/uuid"
)

var ErrInvalidEvent = errors.New("invalid review event")

// AuditService сохраняет события отзывов из Kafka в журнал MongoDB
type AuditService struct {
	auditRepo repository.AuditRepository
	now       func() time.Time
}

func NewAuditService(auditRepo repository.AuditRepository) *AuditService {
	return &AuditService{
		auditRepo: auditRepo,
		now:       time.Now,
	}
}

// ProcessReviewEvent идемпотентен: повторная доставка того же event_id не ошибка.
// Невалидное событие возвращает ErrInvalidEvent, повторять его бессмысленно
func (s *AuditService) ProcessReviewEvent(ctx context.Context, event *entity.ReviewEvent) error {
	if err := validateEvent(event); err != nil {
		metrics.AuditRecordsStored.WithLabelValues("failed").Inc()
		return err
	}

	record := entity.NewReviewAuditRecord(event, s.now().UTC())

	if err := s.auditRepo.Insert(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicateEvent) {
			metrics.AuditRecordsStored.WithLabelValues("duplicate").Inc()
			logger.Debug().Str("event_id", record.EventID).Msg("Audit event already stored, skipping")
			return nil
		}
		metrics.AuditRecordsStored.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to store audit record: %w", err)
	}

	metrics.AuditRecordsStored.WithLabelValues("stored").Inc()
	logger.Info().
		Str("event_id", record.EventID).
		Str("event_type", record.EventType).
		Uint("review_id", record.ReviewID).
		Msg("Audit record stored")

	return nil
}

func validateEvent(event *entity.ReviewEvent) error {
	if event == nil {
		return fmt.Errorf("%w: empty event", ErrInvalidEvent)
	}
	if event.EventID == uuid.Nil {
		return fmt.Errorf("%w: missing event_id", ErrInvalidEvent)
	}
	switch event.EventType {
	case entity.EventReviewCreated, entity.EventReviewDeleted:
	default:
		return fmt.Errorf("%w: unknown event type %q", ErrInvalidEvent, event.EventType)
	}
	if event.ReviewID == 0 || event.ProductID == 0 {
		return fmt.Errorf("%w: missing review or product id", ErrInvalidEvent)
	}
	return nil
}
