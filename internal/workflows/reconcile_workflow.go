package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/cx-tal-miterani/seat-inventory/shared/models"
)

const (
	// ReconcileTimeout bounds a single reconciliation pass
	ReconcileTimeout = 2 * time.Minute
	// MaxReconcileAttempts is the maximum number of activity retries
	MaxReconcileAttempts = 3
)

// ReconcileInventoryWorkflow runs one reconciliation pass. It is started
// with a cron schedule, so every run is a fresh execution.
func ReconcileInventoryWorkflow(ctx workflow.Context) (*models.ReconcileReport, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Inventory reconciliation started")

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: ReconcileTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    MaxReconcileAttempts,
		},
	})

	var report models.ReconcileReport
	if err := workflow.ExecuteActivity(ctx, models.ActivityReconcileInventory).Get(ctx, &report); err != nil {
		logger.Error("Inventory reconciliation failed", "error", err)
		return nil, err
	}

	if !report.Clean() {
		logger.Warn("Inventory reconciliation found drift",
			"flightsRepaired", report.FlightsRepaired,
			"conflictingBookings", report.ConflictingBookings,
		)
	} else {
		logger.Info("Inventory reconciliation found no drift", "flightsChecked", report.FlightsChecked)
	}
	return &report, nil
}
