package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"marketplace/pkg/logger"
	"marketplace/pkg/metrics"
	"marketplace/reviews-service/internal/app/reviews/entity"
	"marketplace/reviews-service/internal/app/reviews/service"

	"github.com/segmentio/kafka-go"
)

const (
	metricsService = "reviews-worker"

	// после стольких неудачных попыток подряд ошибка логируется как Error
	escalateAfterAttempts = 5
	// задержка между попытками растет линейно до maxRetryDelaySteps*backoff
	maxRetryDelaySteps = 10
)

// errPoisonMessage - сообщение, которое никогда не обработается успешно
var errPoisonMessage = errors.New("poison message")

// messageReader - часть kafka.Reader, нужная consumer
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer читает события review_events и пишет их в журнал аудита
type KafkaConsumer struct {
	reader   messageReader
	auditSvc service.AuditServiceInterface
	topic    string
	groupID  string
	backoff  time.Duration
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewKafkaConsumer создает новый Kafka consumer
func NewKafkaConsumer(brokers []string, topic, groupID string, auditSvc service.AuditServiceInterface) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		StartOffset:    kafka.FirstOffset, // журнал аудита должен видеть всю историю
		CommitInterval: 0,                 // коммит синхронный, только после успешной записи
		ReadBackoffMin: 100 * time.Millisecond,
		ReadBackoffMax: 1 * time.Second,
	})

	return &KafkaConsumer{
		reader:   reader,
		auditSvc: auditSvc,
		topic:    topic,
		groupID:  groupID,
		backoff:  time.Second,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start запускает consumer в отдельной горутине
func (c *KafkaConsumer) Start(ctx context.Context) {
	logger.Info().Str("topic", c.topic).Str("group", c.groupID).Msg("Starting Kafka consumer")
	go c.consume(ctx)
}

// Stop останавливает consumer и ждет завершения текущего сообщения
func (c *KafkaConsumer) Stop() {
	logger.Info().Msg("Stopping Kafka consumer...")
	close(c.stopChan)
	<-c.doneChan
	if err := c.reader.Close(); err != nil {
		logger.Error().Err(err).Msg("Error closing Kafka reader")
	}
	logger.Info().Msg("Kafka consumer stopped")
}

func (c *KafkaConsumer) consume(ctx context.Context) {
	defer close(c.doneChan)

	for {
		select {
		case <-c.stopChan:
			return
		default:
		}

		readCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		message, err := c.reader.FetchMessage(readCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			metrics.RecordKafkaConsumeError(metricsService, c.topic)
			logger.Error().Err(err).Msg("Error fetching message")
			c.sleep(ctx, c.backoff)
			continue
		}

		if !c.handle(ctx, message) {
			// остановка во время повторов: offset не коммитим,
			// группа продолжит с этого сообщения
			return
		}

		if err := c.reader.CommitMessages(ctx, message); err != nil {
			logger.Error().Err(err).Int64("offset", message.Offset).Msg("Error committing message")
		}
	}
}

// handle повторяет обработку одного сообщения, пока она не удастся.
// Пропустить сообщение нельзя: коммит следующего offset партиции сдвинет группу и за него.
// Возвращает false только при остановке consumer
func (c *KafkaConsumer) handle(ctx context.Context, message kafka.Message) bool {
	start := time.Now()

	for attempt := 1; ; attempt++ {
		err := c.processMessage(ctx, message)
		if err == nil {
			metrics.RecordKafkaMessageConsumed(metricsService, c.topic, c.groupID, time.Since(start))
			return true
		}

		metrics.RecordKafkaConsumeError(metricsService, c.topic)

		if errors.Is(err, errPoisonMessage) {
			logger.Error().Err(err).
				Int64("offset", message.Offset).
				Int("partition", message.Partition).
				Msg("Skipping malformed review event")
			return true
		}

		ev := logger.Warn()
		if attempt >= escalateAfterAttempts {
			ev = logger.Error()
		}
		ev.Err(err).
			Int("attempt", attempt).
			Int64("offset", message.Offset).
			Int("partition", message.Partition).
			Msg("Error processing message, retrying")

		if !c.sleep(ctx, c.retryDelay(attempt)) {
			return false
		}
	}
}

func (c *KafkaConsumer) retryDelay(attempt int) time.Duration {
	if attempt > maxRetryDelaySteps {
		attempt = maxRetryDelaySteps
	}
	return time.Duration(attempt) * c.backoff
}

// processMessage обрабатывает одно сообщение из Kafka
func (c *KafkaConsumer) processMessage(ctx context.Context, message kafka.Message) error {
	var event entity.ReviewEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return fmt.Errorf("%w: failed to unmarshal review event: %v", errPoisonMessage, err)
	}

	logger.Debug().
		Str("event_type", event.EventType).
		Uint("review_id", event.ReviewID).
		Int64("offset", message.Offset).
		Int("partition", message.Partition).
		Msg("Received review event")

	if err := c.auditSvc.ProcessReviewEvent(ctx, &event); err != nil {
		if errors.Is(err, service.ErrInvalidEvent) {
			return fmt.Errorf("%w: %v", errPoisonMessage, err)
		}
		return fmt.Errorf("failed to process review event: %w", err)
	}

	return nil
}

// sleep возвращает false, если ожидание прервано остановкой
func (c *KafkaConsumer) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-c.stopChan:
		return false
	case <-ctx.Done():
		return false
	}
}
