package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"marketplace/reviews-service/internal/app/reviews/entity"
	"marketplace/reviews-service/internal/app/reviews/repository"
	"marketplace/reviews-service/internal/app/reviews/repository/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newAuditEvent() *entity.ReviewEvent {
	return &entity.ReviewEvent{
		EventID:   uuid.New(),
		EventType: entity.EventReviewCreated,
		ReviewID:  15,
		ProductID: 1,
		UserID:    2,
		ActorID:   2,
		Grade:     4,
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestProcessReviewEvent_Stored(t *testing.T) {
	auditRepo := new(mocks.MockAuditRepository)
	svc := NewAuditService(auditRepo)
	received := time.Date(2024, 5, 1, 12, 0, 3, 0, time.UTC)
	svc.now = func() time.Time { return received }

	ctx := context.Background()
	event := newAuditEvent()

	auditRepo.On("Insert", ctx, mock.MatchedBy(func(r *entity.ReviewAuditRecord) bool {
		return r.EventID == event.EventID.String() &&
			r.ReviewID == 15 &&
			r.OccurredAt.Equal(event.Timestamp) &&
			r.ReceivedAt.Equal(received)
	})).Return(nil)

	err := svc.ProcessReviewEvent(ctx, event)

	assert.NoError(t, err)
	auditRepo.AssertExpectations(t)
}

func TestProcessReviewEvent_DuplicateIsSuccess(t *testing.T) {
	auditRepo := new(mocks.MockAuditRepository)
	svc := NewAuditService(auditRepo)

	ctx := context.Background()
	auditRepo.On("Insert", ctx, mock.Anything).Return(repository.ErrDuplicateEvent)

	assert.NoError(t, svc.ProcessReviewEvent(ctx, newAuditEvent()))
}

func TestProcessReviewEvent_StorageError(t *testing.T) {
	auditRepo := new(mocks.MockAuditRepository)
	svc := NewAuditService(auditRepo)

	ctx := context.Background()
	auditRepo.On("Insert", ctx, mock.Anything).Return(errors.New("mongo timeout"))

	err := svc.ProcessReviewEvent(ctx, newAuditEvent())

	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidEvent)
}

func TestProcessReviewEvent_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(e *entity.ReviewEvent)
	}{
		{"missing event id", func(e *entity.ReviewEvent) { e.EventID = uuid.Nil }},
		{"unknown type", func(e *entity.ReviewEvent) { e.EventType = "REVIEW_UPDATED" }},
		{"missing review id", func(e *entity.ReviewEvent) { e.ReviewID = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auditRepo := new(mocks.MockAuditRepository)
			svc := NewAuditService(auditRepo)

			event := newAuditEvent()
			tt.mutate(event)

			err := svc.ProcessReviewEvent(context.Background(), event)

			assert.ErrorIs(t, err, ErrInvalidEvent)
			auditRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
		})
	}

	assert.ErrorIs(t, NewAuditService(new(mocks.MockAuditRepository)).ProcessReviewEvent(context.Background(), nil), ErrInvalidEvent)
}
