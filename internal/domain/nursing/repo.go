package nursing

import (
	"context"

	"github.com/google/uuid"
)

type VitalsRepository interface {
	Create(ctx context.Context, e *VitalsEntry) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*VitalsEntry, int, error)
}

type EvolutionNoteRepository interface {
	Create(ctx context.Context, n *EvolutionNote) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*EvolutionNote, int, error)
}

type MedicationAdministrationRepository interface {
	Create(ctx context.Context, m *MedicationAdministration) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*MedicationAdministration, int, error)
}
