package nursing

import (
	"time"

	"github.com/google/uuid"

	"github.com/ehr/ward/internal/domain/triage"
)

// VitalsEntry maps to the vitals_entry table. Anomalies are computed on write
// with the monitoring thresholds, never the triage ones.
type VitalsEntry struct {
	ID           uuid.UUID        `db:"id" json:"id"`
	PatientID    uuid.UUID        `db:"patient_id" json:"patient_id"`
	RecordedByID uuid.UUID        `db:"recorded_by_id" json:"recorded_by_id"`
	Vitals       triage.Vitals    `db:"-" json:"vitals"`
	Anomalies    []triage.Anomaly `db:"anomalies" json:"anomalies"`
	Note         *string          `db:"note" json:"note,omitempty"`
	RecordedAt   time.Time        `db:"recorded_at" json:"recorded_at"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
}

// EvolutionNote maps to the evolution_note table.
type EvolutionNote struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	AuthorID  uuid.UUID `db:"author_id" json:"author_id"`
	Body      string    `db:"body" json:"body"`
	WrittenAt time.Time `db:"written_at" json:"written_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// MedicationAdministration maps to the medication_administration table.
type MedicationAdministration struct {
	ID               uuid.UUID `db:"id" json:"id"`
	PatientID        uuid.UUID `db:"patient_id" json:"patient_id"`
	AdministeredByID uuid.UUID `db:"administered_by_id" json:"administered_by_id"`
	Medication       string    `db:"medication" json:"medication"`
	Dose             string    `db:"dose" json:"dose"`
	Route            *string   `db:"route" json:"route,omitempty"`
	Note             *string   `db:"note" json:"note,omitempty"`
	AdministeredAt   time.Time `db:"administered_at" json:"administered_at"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}
