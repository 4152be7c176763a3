package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventReviewCreated = "REVIEW_CREATED"
	EventReviewDeleted = "REVIEW_DELETED"
)

// ReviewEvent публикуется в Kafka после коммита транзакции
type ReviewEvent struct {
	EventID       uuid.UUID `json:"event_id"`
	EventType     string    `json:"event_type"` // REVIEW_CREATED, REVIEW_DELETED
	ReviewID      uint      `json:"review_id"`
	ProductID     uint      `json:"product_id"`
	UserID        uint      `json:"user_id"`  // автор отзыва
	ActorID       uint      `json:"actor_id"` // кто выполнил операцию
	Grade         int       `json:"grade"`
	ProductRating *float64  `json:"product_rating"` // рейтинг товара после коммита
	Timestamp     time.Time `json:"timestamp"`
}

func NewReviewEvent(eventType string, review *Review, actor Actor, rating *float64) ReviewEvent {
	return ReviewEvent{
		EventID:       uuid.New(),
		EventType:     eventType,
		ReviewID:      review.ID,
		ProductID:     review.ProductID,
		UserID:        review.UserID,
		ActorID:       actor.ID,
		Grade:         review.Grade,
		ProductRating: rating,
		Timestamp:     time.Now().UTC(),
	}
}

// ReviewAuditRecord - запись журнала аудита в MongoDB (коллекция review_audit)
type ReviewAuditRecord struct {
	EventID       string    `bson:"event_id"`
	EventType     string    `bson:"event_type"`
	ReviewID      uint      `bson:"review_id"`
	ProductID     uint      `bson:"product_id"`
	UserID        uint      `bson:"user_id"`
	ActorID       uint      `bson:"actor_id"`
	Grade         int       `bson:"grade"`
	ProductRating *float64  `bson:"product_rating"`
	OccurredAt    time.Time `bson:"occurred_at"`
	ReceivedAt    time.Time `bson:"received_at"`
}

func NewReviewAuditRecord(event *ReviewEvent, receivedAt time.Time) *ReviewAuditRecord {
	return &ReviewAuditRecord{
		EventID:       event.EventID.String(),
		EventType:     event.EventType,
		ReviewID:      event.ReviewID,
		ProductID:     event.ProductID,
		UserID:        event.UserID,
		ActorID:       event.ActorID,
		Grade:         event.Grade,
		ProductRating: event.ProductRating,
		OccurredAt:    event.Timestamp,
		ReceivedAt:    receivedAt,
	}
}
