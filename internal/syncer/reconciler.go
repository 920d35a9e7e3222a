package syncer

import (
	"context"
	"fmt"
	"log"

	"github.com/casavista/appointment-engine/internal/appointment"
)

// ScanSource lists every non-deleted appointment with its joined advisor and
// property rows, the reconciler's scan input. Cancelled and no-show rows are
// included: their mirror entries may still carry a missed status sync.
type ScanSource interface {
	ListUndeletedDetails(ctx context.Context) ([]appointment.AppointmentDetail, error)
}

// Report summarizes one reconcile run.
type Report struct {
	Total  int
	Synced int
	Failed int
	Errors []string
}

// Reconciler is the catch-up path for mirror rows the coordinator missed:
// a sync call that failed soft leaves the mirror stale until the next run.
type Reconciler struct {
	src   ScanSource
	coord *Coordinator
}

func NewReconciler(src ScanSource, coord *Coordinator) *Reconciler {
	return &Reconciler{src: src, coord: coord}
}

// Run upserts a mirror row for every non-deleted appointment. Per-appointment
// failures are collected, never aborting the scan.
func (r *Reconciler) Run(ctx context.Context) (Report, error) {
	details, err := r.src.ListUndeletedDetails(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list appointments: %w", err)
	}

	report := Report{Total: len(details)}

	for i := range details {
		d := &details[i]

		if err := r.coord.OnUpdated(ctx, d); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", d.ID, err))
			continue
		}
		if err := r.coord.OnStatusChanged(ctx, d.ID, d.Status); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", d.ID, err))
			continue
		}
		report.Synced++
	}

	if report.Failed > 0 {
		log.Printf("reconcile run: %d/%d mirror rows failed", report.Failed, report.Total)
	}

	return report, nil
}
