package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Seeder provisions a tenant's default chart of accounts.
type Seeder interface {
	SeedDefaultChart(ctx context.Context, tenantID uuid.UUID) (int, error)
}

// SeedChartJob handles tenant:seed_chart tasks.
type SeedChartJob struct {
	seeder Seeder
	logger *slog.Logger
}

// NewSeedChartJob constructs the job handler.
func NewSeedChartJob(seeder Seeder, logger *slog.Logger) *SeedChartJob {
	return &SeedChartJob{seeder: seeder, logger: logger}
}

// Handle processes one seeding task. Seeding is idempotent, so retries are safe.
func (j *SeedChartJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload SeedChartPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.TenantID == uuid.Nil {
		return asynq.SkipRetry
	}
	created, err := j.seeder.SeedDefaultChart(ctx, payload.TenantID)
	if err != nil {
		j.logger.Error("seed chart failed",
			slog.String("tenant_id", payload.TenantID.String()),
			slog.Any("error", err))
		return err
	}
	j.logger.Info("seed chart completed",
		slog.String("tenant_id", payload.TenantID.String()),
		slog.Int("created", created))
	return nil
}
