package nursing

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/ward/internal/domain/triage"
)

// Guard runs fn only when the patient may receive the action. *triage.Gate
// satisfies it.
type Guard interface {
	Guard(ctx context.Context, patientID uuid.UUID, action triage.Action, fn func(ctx context.Context) error) error
}

type Service struct {
	gate        Guard
	vitals      VitalsRepository
	notes       EvolutionNoteRepository
	medications MedicationAdministrationRepository
	metrics     *triage.Metrics
	logger      zerolog.Logger
	now         func() time.Time
}

func NewService(
	gate Guard,
	vitals VitalsRepository,
	notes EvolutionNoteRepository,
	medications MedicationAdministrationRepository,
) *Service {
	return &Service{
		gate:        gate,
		vitals:      vitals,
		notes:       notes,
		medications: medications,
		logger:      zerolog.Nop(),
		now:         time.Now,
	}
}

// SetMetrics attaches optional anomaly counters.
func (s *Service) SetMetrics(m *triage.Metrics) {
	s.metrics = m
}

func (s *Service) SetLogger(logger zerolog.Logger) {
	s.logger = logger.With().Str("component", "nursing").Logger()
}

func (s *Service) log(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		lg := l.With().Str("component", "nursing").Logger()
		return &lg
	}
	return &s.logger
}

// -- Vitals --

// RecordVitals stores a monitoring reading for a triaged patient with its
// anomalies attached.
func (s *Service) RecordVitals(ctx context.Context, e *VitalsEntry) error {
	var errs []triage.FieldError
	errs = requireIDs(errs, e.PatientID, "recorded_by_id", e.RecordedByID)
	if err := triage.ValidateMeasurements(e.Vitals); err != nil {
		errs = append(errs, err.(*triage.ValidationError).Fields...)
	}
	if len(errs) > 0 {
		return &triage.ValidationError{Fields: errs}
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = s.now().UTC()
	}
	e.Anomalies = triage.DetectAnomalies(e.Vitals)

	err := s.gate.Guard(ctx, e.PatientID, triage.ActionRecordVitals, func(ctx context.Context) error {
		return s.vitals.Create(ctx, e)
	})
	if err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.ObserveAnomalies(e.Anomalies)
	}
	if len(e.Anomalies) > 0 {
		s.log(ctx).Warn().
			Str("patient_id", e.PatientID.String()).
			Str("vitals_id", e.ID.String()).
			Interface("anomalies", e.Anomalies).
			Msg("abnormal vital signs recorded")
	}
	return nil
}

func (s *Service) ListVitals(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*VitalsEntry, int, error) {
	return s.vitals.ListByPatient(ctx, patientID, limit, offset)
}

// -- Evolution Notes --

func (s *Service) RecordEvolutionNote(ctx context.Context, n *EvolutionNote) error {
	var errs []triage.FieldError
	errs = requireIDs(errs, n.PatientID, "author_id", n.AuthorID)
	n.Body = strings.TrimSpace(n.Body)
	if n.Body == "" {
		errs = append(errs, triage.FieldError{Field: "body", Message: "is required"})
	}
	if len(errs) > 0 {
		return &triage.ValidationError{Fields: errs}
	}
	if n.WrittenAt.IsZero() {
		n.WrittenAt = s.now().UTC()
	}
	return s.gate.Guard(ctx, n.PatientID, triage.ActionRecordEvolutionNote, func(ctx context.Context) error {
		return s.notes.Create(ctx, n)
	})
}

func (s *Service) ListEvolutionNotes(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*EvolutionNote, int, error) {
	return s.notes.ListByPatient(ctx, patientID, limit, offset)
}

// -- Medication Administration --

func (s *Service) AdministerMedication(ctx context.Context, m *MedicationAdministration) error {
	var errs []triage.FieldError
	errs = requireIDs(errs, m.PatientID, "administered_by_id", m.AdministeredByID)
	if strings.TrimSpace(m.Medication) == "" {
		errs = append(errs, triage.FieldError{Field: "medication", Message: "is required"})
	}
	if strings.TrimSpace(m.Dose) == "" {
		errs = append(errs, triage.FieldError{Field: "dose", Message: "is required"})
	}
	if len(errs) > 0 {
		return &triage.ValidationError{Fields: errs}
	}
	if m.AdministeredAt.IsZero() {
		m.AdministeredAt = s.now().UTC()
	}
	err := s.gate.Guard(ctx, m.PatientID, triage.ActionAdministerMedication, func(ctx context.Context) error {
		return s.medications.Create(ctx, m)
	})
	if err != nil {
		return err
	}
	s.log(ctx).Info().
		Str("patient_id", m.PatientID.String()).
		Str("administration_id", m.ID.String()).
		Str("medication", m.Medication).
		Msg("medication administered")
	return nil
}

func (s *Service) ListMedicationAdministrations(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*MedicationAdministration, int, error) {
	return s.medications.ListByPatient(ctx, patientID, limit, offset)
}

func requireIDs(errs []triage.FieldError, patientID uuid.UUID, actorField string, actorID uuid.UUID) []triage.FieldError {
	if patientID == uuid.Nil {
		errs = append(errs, triage.FieldError{Field: "patient_id", Message: "is required"})
	}
	if actorID == uuid.Nil {
		errs = append(errs, triage.FieldError{Field: actorField, Message: "is required"})
	}
	return errs
}
