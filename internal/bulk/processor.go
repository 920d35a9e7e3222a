package bulk

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/casavista/appointment-engine/internal/appointment"
)

type OperationKind string

const (
	OpDelete   OperationKind = "delete"
	OpStatus   OperationKind = "status"
	OpReassign OperationKind = "reassign"
	OpExport   OperationKind = "export"
)

var ErrUnknownOperation = errors.New("unknown bulk operation")

// Operation is one action applied independently to every selected id.
type Operation struct {
	Kind OperationKind

	// status change
	Status appointment.Status
	Params appointment.TransitionParams

	// reassignment
	AdvisorID uuid.UUID
}

// Mutator is the per-record surface the processor drives. It is the same
// service the single-record paths use, so bulk actions inherit the state
// machine, conflict checks, and sync routing for free.
type Mutator interface {
	SoftDelete(ctx context.Context, id uuid.UUID) error
	ChangeStatus(ctx context.Context, id uuid.UUID, to appointment.Status, p appointment.TransitionParams) (*appointment.Appointment, error)
	Reassign(ctx context.Context, id, advisorID uuid.UUID) (*appointment.Appointment, error)
	DetailsByIDs(ctx context.Context, ids []uuid.UUID) ([]appointment.AppointmentDetail, error)
}

type Failure struct {
	ID  uuid.UUID
	Err string
}

// Result itemizes every input id as either succeeded or failed; partial
// failure is the normal case, never collapsed into a total failure.
type Result struct {
	Succeeded []uuid.UUID
	Failed    []Failure

	// CSV holds the flat-file payload for export operations.
	CSV []byte
}

// Processor applies one operation across a selection with per-id failure
// isolation.
type Processor struct {
	mutator Mutator
	refresh func(ctx context.Context) error
}

// NewProcessor builds a processor. refresh, when non-nil, is invoked exactly
// once after all per-id mutations settle (typically a list-cache invalidation).
func NewProcessor(mutator Mutator, refresh func(ctx context.Context) error) *Processor {
	return &Processor{mutator: mutator, refresh: refresh}
}

// Apply snapshots the selection, clears it before the first store call, then
// issues one independent mutation per id. Export is read-only and produces
// the CSV payload instead of mutating.
func (p *Processor) Apply(ctx context.Context, sel *Selection, op Operation) (Result, error) {
	ids := sel.Snapshot()
	sel.Clear()

	var res Result

	switch op.Kind {
	case OpDelete, OpStatus, OpReassign:
		res = p.mutate(ctx, ids, op)
	case OpExport:
		var err error
		res, err = p.export(ctx, ids)
		if err != nil {
			return Result{}, err
		}
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownOperation, op.Kind)
	}

	if op.Kind != OpExport && p.refresh != nil {
		if err := p.refresh(ctx); err != nil {
			log.Printf("bulk refresh failed: %v", err)
		}
	}

	return res, nil
}

func (p *Processor) mutate(ctx context.Context, ids []uuid.UUID, op Operation) Result {
	var res Result

	for _, id := range ids {
		var err error
		switch op.Kind {
		case OpDelete:
			err = p.mutator.SoftDelete(ctx, id)
		case OpStatus:
			_, err = p.mutator.ChangeStatus(ctx, id, op.Status, op.Params)
		case OpReassign:
			_, err = p.mutator.Reassign(ctx, id, op.AdvisorID)
		}

		if err != nil {
			res.Failed = append(res.Failed, Failure{ID: id, Err: err.Error()})
			continue
		}
		res.Succeeded = append(res.Succeeded, id)
	}

	return res
}

var exportHeader = []string{"id", "client_name", "client_email", "client_phone", "appointment_date", "appointment_type", "status", "property", "advisor"}

func (p *Processor) export(ctx context.Context, ids []uuid.UUID) (Result, error) {
	details, err := p.mutator.DetailsByIDs(ctx, ids)
	if err != nil {
		return Result{}, fmt.Errorf("load appointments for export: %w", err)
	}

	found := make(map[uuid.UUID]bool, len(details))

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return Result{}, err
	}

	for i := range details {
		d := &details[i]
		found[d.ID] = true

		phone := ""
		if d.ClientPhone != nil {
			phone = *d.ClientPhone
		}
		property := ""
		if d.Property != nil {
			property = d.Property.Title
		} else if d.PropertyID != nil {
			property = strconv.FormatInt(*d.PropertyID, 10)
		}
		advisor := ""
		if d.Advisor != nil {
			advisor = d.Advisor.Name
		}

		record := []string{
			d.ID.String(),
			d.ClientName,
			d.ClientEmail,
			phone,
			d.AppointmentDate.UTC().Format(time.RFC3339),
			string(d.AppointmentType),
			string(d.Status),
			property,
			advisor,
		}
		if err := w.Write(record); err != nil {
			return Result{}, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return Result{}, err
	}

	var res Result
	res.CSV = buf.Bytes()
	for _, id := range ids {
		if found[id] {
			res.Succeeded = append(res.Succeeded, id)
		} else {
			res.Failed = append(res.Failed, Failure{ID: id, Err: appointment.ErrAppointmentNotFound.Error()})
		}
	}

	return res, nil
}
