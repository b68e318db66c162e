package triage

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists triage history. It is the only source of truth for a
// patient's triage state.
type Repository interface {
	// FindTriageHistory returns every record of the patient, newest first.
	FindTriageHistory(ctx context.Context, patientID uuid.UUID) ([]*Record, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	// Save inserts a new record and returns it with identity and timestamps set.
	Save(ctx context.Context, r *Record) (*Record, error)
	// Update applies the patch to the stored record atomically and returns it.
	Update(ctx context.Context, id uuid.UUID, p Patch) (*Record, error)
	// WithPatientLock runs fn while holding an exclusive per-patient lock. Every
	// repository call made with the context passed to fn joins the same unit of
	// work, which commits only if fn returns nil.
	WithPatientLock(ctx context.Context, patientID uuid.UUID, fn func(ctx context.Context) error) error
}
