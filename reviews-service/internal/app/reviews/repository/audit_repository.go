package repository

import (
	"context"
	"fmt"
	"time"

	"marketplace/pkg/logger"
	"marketplace/reviews-service/internal/app/reviews/entity"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const auditCollection = "review_audit"

type auditRepository struct {
	collection *mongo.Collection
}

// NewAuditRepository создает журнал аудита в MongoDB.
// Уникальный индекс по event_id делает повторную доставку из Kafka безопасной
func NewAuditRepository(db *mongo.Database) AuditRepository {
	collection := db.Collection(auditCollection)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "event_id", Value: 1}},
			Options: options.Index().SetName("event_id_uniq").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "review_id", Value: 1}, {Key: "occurred_at", Value: 1}},
			Options: options.Index().SetName("review_id_idx"),
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		// индексы могут уже существовать
		logger.Warn().Err(err).Str("collection", auditCollection).Msg("Failed to create audit indexes")
	}

	return &auditRepository{collection: collection}
}

func (r *auditRepository) Insert(ctx context.Context, record *entity.ReviewAuditRecord) error {
	if _, err := r.collection.InsertOne(ctx, record); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEvent
		}
		return fmt.Errorf("failed to insert audit record: %w", err)
	}
	return nil
}
