package activities

import (
	"context"

	"go.temporal.io/sdk/activity"

	"github.com/cx-tal-miterani/seat-inventory/internal/service"
	"github.com/cx-tal-miterani/seat-inventory/shared/models"
)

// Activities holds dependencies for the reconciliation activities
type Activities struct {
	reservations service.ReservationService
}

// NewActivities creates a new Activities instance
func NewActivities(reservations service.ReservationService) *Activities {
	return &Activities{reservations: reservations}
}

// ReconcileInventory repairs flight inventory against live bookings.
// It runs in the server process, so it shares the engine's lock with
// request handling.
func (a *Activities) ReconcileInventory(ctx context.Context) (*models.ReconcileReport, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Reconciling seat inventory")

	report, err := a.reservations.Reconcile(ctx)
	if err != nil {
		logger.Error("Reconciliation failed", "error", err)
		return nil, err
	}

	logger.Info("Reconciliation finished",
		"flightsChecked", report.FlightsChecked,
		"flightsRepaired", report.FlightsRepaired,
		"seatsReleased", report.SeatsReleased,
		"seatsRestored", report.SeatsRestored,
	)
	return report, nil
}
