package app

import (
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/mistbook/internal/infrastructure/config"
	"github.com/eslsoft/mistbook/internal/infrastructure/server"
	"github.com/eslsoft/mistbook/internal/scheduler"
	"github.com/eslsoft/mistbook/internal/usecase"
	"github.com/eslsoft/mistbook/pkg/dayclock"
)

// Container aggregates the application dependencies produced by Wire.
type Container struct {
	Logger   *logrus.Logger
	Server   *server.Server
	Archiver usecase.ArchiverUsecase
}

// provideClock anchors day-boundary arithmetic to the configured timezone.
func provideClock(cfg *config.Config) (dayclock.Clock, error) {
	return dayclock.New(cfg.Scheduler.Timezone)
}

func provideSchedulerParams(cfg *config.Config) scheduler.Params {
	return scheduler.Params{
		LearningSteps:           cfg.Scheduler.LearningSteps,
		InitialEase:             cfg.Scheduler.InitialEase,
		MinEase:                 cfg.Scheduler.MinEase,
		MaxEase:                 cfg.Scheduler.MaxEase,
		EaseBonus:               cfg.Scheduler.EaseBonus,
		EasePenalty:             cfg.Scheduler.EasePenalty,
		GraduationThresholdDays: cfg.Scheduler.GraduationThresholdDays,
		MaxIntervalDays:         cfg.Scheduler.MaxIntervalDays,
	}
}

func provideRetentionDays(cfg *config.Config) int {
	return cfg.Archiver.RetentionDays
}

func provideArchiverBatchSize(cfg *config.Config) int32 {
	return cfg.Archiver.BatchSize
}
