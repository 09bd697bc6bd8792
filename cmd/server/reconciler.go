package main

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/cx-tal-miterani/seat-inventory/internal/activities"
	"github.com/cx-tal-miterani/seat-inventory/internal/config"
	"github.com/cx-tal-miterani/seat-inventory/internal/logging"
	"github.com/cx-tal-miterani/seat-inventory/internal/service"
	"github.com/cx-tal-miterani/seat-inventory/internal/workflows"
	"github.com/cx-tal-miterani/seat-inventory/shared/models"
)

// startReconciler runs the Temporal worker inside the server process, so the
// reconciliation activity goes through the same engine as HTTP requests, and
// makes sure the cron workflow is scheduled.
func startReconciler(ctx context.Context, cfg *config.Config, reservations service.ReservationService, logger *zap.Logger) (func(), error) {
	logger.Info("Connecting to Temporal...", zap.String("host", cfg.TemporalHost))
	c, err := client.Dial(client.Options{
		HostPort: cfg.TemporalHost,
		Logger:   logging.NewTemporalLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Temporal: %w", err)
	}

	w := worker.New(c, models.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.ReconcileInventoryWorkflow)

	acts := activities.NewActivities(reservations)
	w.RegisterActivityWithOptions(acts.ReconcileInventory, activity.RegisterOptions{Name: models.ActivityReconcileInventory})

	if err := w.Start(); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to start Temporal worker: %w", err)
	}

	// An already running cron execution with the same id is reused.
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:           models.ReconcileWorkflowID,
		TaskQueue:    models.TaskQueue,
		CronSchedule: cfg.ReconcileSchedule,
	}, workflows.ReconcileInventoryWorkflow)
	if err != nil {
		w.Stop()
		c.Close()
		return nil, fmt.Errorf("failed to schedule reconciliation: %w", err)
	}

	logger.Info("Inventory reconciliation scheduled",
		zap.String("workflow_id", run.GetID()),
		zap.String("schedule", cfg.ReconcileSchedule),
	)

	return func() {
		w.Stop()
		c.Close()
	}, nil
}
