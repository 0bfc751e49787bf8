package jobs

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTenantSeedChart seeds the default chart of accounts for a tenant.
	TaskTenantSeedChart = "tenant:seed_chart"
)

// SeedChartPayload identifies the tenant whose chart should be seeded.
type SeedChartPayload struct {
	TenantID uuid.UUID `json:"tenant_id"`
}

// NewSeedChartTask constructs an Asynq task.
func NewSeedChartTask(payload SeedChartPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTenantSeedChart, data), nil
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	client := asynq.NewClient(redisOpts)
	return &Client{client: client}, nil
}

// EnqueueSeedChart enqueues a chart seeding task for the tenant.
func (c *Client) EnqueueSeedChart(ctx context.Context, tenantID uuid.UUID) error {
	task, err := NewSeedChartTask(SeedChartPayload{TenantID: tenantID})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
	return err
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
