package models

// Temporal identifiers shared by the server and the reconciliation worker
const (
	TaskQueue                  = "seat-inventory-queue"
	ReconcileWorkflowID        = "inventory-reconcile"
	ActivityReconcileInventory = "ReconcileInventory"
)

// ReconcileReport summarizes one reconciliation pass over the inventory
type ReconcileReport struct {
	FlightsChecked      int      `json:"flightsChecked"`
	FlightsRepaired     int      `json:"flightsRepaired"`
	SeatsReleased       int      `json:"seatsReleased"`
	SeatsRestored       int      `json:"seatsRestored"`
	ConflictingBookings []uint64 `json:"conflictingBookings,omitempty"`
}

// Clean reports whether the pass found nothing to repair or report.
func (r *ReconcileReport) Clean() bool {
	return r.FlightsRepaired == 0 && len(r.ConflictingBookings) == 0
}
