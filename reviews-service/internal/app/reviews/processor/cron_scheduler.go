package processor

import (
	"context"

	"marketplace/pkg/logger"
	"marketplace/reviews-service/internal/app/reviews/service"

	"github.com/robfig/cron/v3"
)

// CronScheduler периодически сверяет рейтинги товаров с активными отзывами
type CronScheduler struct {
	cron       *cron.Cron
	reconciler service.RatingReconcilerInterface
}

func NewCronScheduler(reconciler service.RatingReconcilerInterface) *CronScheduler {
	cronLogger := cron.PrintfLogger(logger.Ctx(context.Background()))
	c := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	return &CronScheduler{
		cron:       c,
		reconciler: reconciler,
	}
}

// Start регистрирует задачу и сразу выполняет одну сверку
func (s *CronScheduler) Start(ctx context.Context, schedule string) error {
	logger.Info().Str("schedule", schedule).Msg("Starting cron scheduler")

	_, err := s.cron.AddFunc(schedule, func() {
		logger.Info().Msg("Cron job triggered: reconciling product ratings")
		s.reconcile(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()

	logger.Info().Msg("Performing initial rating reconciliation...")
	s.reconcile(ctx)

	return nil
}

func (s *CronScheduler) reconcile(ctx context.Context) {
	if err := s.reconciler.RecomputeAll(ctx); err != nil {
		logger.Error().Err(err).Msg("Rating reconciliation finished with errors")
		return
	}
	logger.Info().Msg("Rating reconciliation completed")
}

func (s *CronScheduler) Stop() {
	logger.Info().Msg("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info().Msg("Cron scheduler stopped")
}

func (s *CronScheduler) GetEntries() []cron.Entry {
	return s.cron.Entries()
}
