package integration

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/ehr/ward/internal/domain/nursing"
	"github.com/ehr/ward/internal/domain/triage"
)

func newNursingService() (*nursing.Service, *triage.Gate) {
	gate := triage.NewGate(triage.NewRepoPG(globalPool))
	svc := nursing.NewService(
		gate,
		nursing.NewVitalsRepoPG(globalPool),
		nursing.NewEvolutionNoteRepoPG(globalPool),
		nursing.NewMedicationAdministrationRepoPG(globalPool),
	)
	return svc, gate
}

func TestNursing_GatedWrites(t *testing.T) {
	ctx := context.Background()
	tenantID := uniqueTenantID("nursing")
	createTenantSchema(t, ctx, tenantID)

	svc, gate := newNursingService()
	patientID := uuid.New()
	nurseID := uuid.New()

	t.Run("DeniedBeforeTriage", func(t *testing.T) {
		err := withTenantConn(ctx, tenantID, func(ctx context.Context) error {
			err := svc.RecordVitals(ctx, &nursing.VitalsEntry{
				PatientID: patientID, RecordedByID: nurseID, Vitals: triage.Vitals{HeartRate: ptrInt(90)},
			})
			if !triage.IsPreconditionFailed(err) {
				t.Errorf("expected PreconditionFailedError, got %v", err)
			}
			_, total, err := svc.ListVitals(ctx, patientID, 20, 0)
			if err != nil {
				return err
			}
			if total != 0 {
				t.Errorf("expected no vitals stored, got %d", total)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("AllowedAfterTriage", func(t *testing.T) {
		err := withTenantConn(ctx, tenantID, func(ctx context.Context) error {
			if _, err := gate.SubmitTriage(ctx, triageSubmission(patientID)); err != nil {
				return err
			}
			entry := &nursing.VitalsEntry{
				PatientID: patientID, RecordedByID: nurseID,
				Vitals: triage.Vitals{Systolic: ptrInt(150), Temperature: ptrFloat(35.5)},
			}
			if err := svc.RecordVitals(ctx, entry); err != nil {
				return err
			}
			items, total, err := svc.ListVitals(ctx, patientID, 20, 0)
			if err != nil {
				return err
			}
			if total != 1 || len(items) != 1 {
				t.Fatalf("expected 1 vitals entry, got %d", total)
			}
			got := items[0].Anomalies
			if len(got) != 2 || got[0] != triage.AnomalyHighBloodPressure || got[1] != triage.AnomalyHypothermia {
				t.Errorf("expected stored anomalies, got %v", got)
			}

			note := &nursing.EvolutionNote{PatientID: patientID, AuthorID: nurseID, Body: "stable overnight"}
			if err := svc.RecordEvolutionNote(ctx, note); err != nil {
				return err
			}
			route := "oral"
			med := &nursing.MedicationAdministration{
				PatientID: patientID, AdministeredByID: nurseID, Medication: "paracetamol", Dose: "1 g", Route: &route,
			}
			if err := svc.AdministerMedication(ctx, med); err != nil {
				return err
			}
			meds, total, err := svc.ListMedicationAdministrations(ctx, patientID, 20, 0)
			if err != nil {
				return err
			}
			if total != 1 || meds[0].Route == nil || *meds[0].Route != "oral" {
				t.Errorf("unexpected administrations: %d", total)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}
