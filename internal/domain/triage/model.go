package triage

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Priority is the acuity assigned by triage.
type Priority string

const (
	PriorityRed    Priority = "red"
	PriorityOrange Priority = "orange"
	PriorityYellow Priority = "yellow"
	PriorityGreen  Priority = "green"
)

// Priorities lists every level from most to least severe.
var Priorities = []Priority{PriorityRed, PriorityOrange, PriorityYellow, PriorityGreen}

// Severity ranks the priority; higher is more urgent. Unknown values rank 0.
func (p Priority) Severity() int {
	switch p {
	case PriorityRed:
		return 4
	case PriorityOrange:
		return 3
	case PriorityYellow:
		return 2
	case PriorityGreen:
		return 1
	}
	return 0
}

// MoreSevereThan reports whether p must be seen before other.
func (p Priority) MoreSevereThan(other Priority) bool {
	return p.Severity() > other.Severity()
}

func (p Priority) Valid() bool { return p.Severity() > 0 }

// ParsePriority accepts the lower-case level names.
func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown priority %q", s)
	}
	return p, nil
}

// Anomaly is a monitoring finding, independent of Priority.
type Anomaly string

const (
	AnomalyHighBloodPressure   Anomaly = "high_blood_pressure"
	AnomalyLowBloodPressure    Anomaly = "low_blood_pressure"
	AnomalyFever               Anomaly = "fever"
	AnomalyHypothermia         Anomaly = "hypothermia"
	AnomalyTachycardia         Anomaly = "tachycardia"
	AnomalyBradycardia         Anomaly = "bradycardia"
	AnomalyLowOxygenSaturation Anomaly = "low_oxygen_saturation"
)

// State is derived from triage history and never stored.
type State string

const (
	StateUntriaged State = "untriaged"
	StateTriaged   State = "triaged"
)

// StateOf derives the patient state from the number of triage records.
func StateOf(records int) State {
	if records == 0 {
		return StateUntriaged
	}
	return StateTriaged
}

// Action is a nursing action that may require triage first.
type Action string

const (
	ActionRecordVitals         Action = "record_vitals"
	ActionRecordEvolutionNote  Action = "record_evolution_note"
	ActionAdministerMedication Action = "administer_medication"
)

// Gated reports whether the action needs a triaged patient.
func (a Action) Gated() bool {
	switch a {
	case ActionRecordVitals, ActionRecordEvolutionNote, ActionAdministerMedication:
		return true
	}
	return false
}

func (a Action) describe() string {
	switch a {
	case ActionRecordVitals:
		return "recording vital signs"
	case ActionRecordEvolutionNote:
		return "recording an evolution note"
	case ActionAdministerMedication:
		return "administering medication"
	}
	return string(a)
}

// Authorization is the gate's answer for one patient and action. A denial is
// a value, not an error.
type Authorization struct {
	Allowed bool                     `json:"allowed"`
	State   State                    `json:"state"`
	Denial  *PreconditionFailedError `json:"denial,omitempty"`
}

// Record maps to the triage_record table.
type Record struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PatientID      uuid.UUID `db:"patient_id" json:"patient_id"`
	ClinicianID    uuid.UUID `db:"clinician_id" json:"clinician_id"`
	ChiefComplaint string    `db:"chief_complaint" json:"chief_complaint"`
	Vitals         Vitals    `db:"-" json:"vitals"`
	Priority       Priority  `db:"priority" json:"priority"`
	TriagedAt      time.Time `db:"triaged_at" json:"triaged_at"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Submission is the input of a new triage.
type Submission struct {
	PatientID      uuid.UUID  `json:"patient_id"`
	ClinicianID    uuid.UUID  `json:"clinician_id"`
	ChiefComplaint string     `json:"chief_complaint"`
	Vitals         Vitals     `json:"vitals"`
	TriagedAt      *time.Time `json:"triaged_at,omitempty"`
}

// Patch edits an existing record. Nil fields are left unchanged; vitals are
// merged field by field.
type Patch struct {
	ChiefComplaint *string `json:"chief_complaint,omitempty"`
	Vitals         *Vitals `json:"vitals,omitempty"`
}

// Apply returns the patched copy of r, recomputing the priority only when the
// patch carries vitals.
func (p Patch) Apply(r Record) Record {
	if p.ChiefComplaint != nil {
		r.ChiefComplaint = strings.TrimSpace(*p.ChiefComplaint)
	}
	if p.Vitals != nil {
		r.Vitals = r.Vitals.Merge(*p.Vitals)
		r.Priority = Classify(r.Vitals)
	}
	return r
}
