package integration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/ward/internal/domain/triage"
)

func TestTriageRepoPG(t *testing.T) {
	ctx := context.Background()
	tenantID := uniqueTenantID("triage")
	createTenantSchema(t, ctx, tenantID)

	gate := triage.NewGate(triage.NewRepoPG(globalPool))
	patientID := uuid.New()

	t.Run("UntriagedByDefault", func(t *testing.T) {
		err := withTenantConn(ctx, tenantID, func(ctx context.Context) error {
			auth, err := gate.Authorize(ctx, patientID, triage.ActionRecordVitals)
			if err != nil {
				return err
			}
			if auth.Allowed || auth.State != triage.StateUntriaged {
				t.Errorf("expected denial for untriaged patient, got %+v", auth)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Authorize: %v", err)
		}
	})

	var first *triage.Record
	t.Run("SubmitAndHistoryOrder", func(t *testing.T) {
		err := withTenantConn(ctx, tenantID, func(ctx context.Context) error {
			earlier := time.Now().Add(-time.Hour).UTC()
			sub := triageSubmission(patientID)
			sub.TriagedAt = &earlier
			var err error
			if first, err = gate.SubmitTriage(ctx, sub); err != nil {
				return err
			}
			if _, err := gate.SubmitTriage(ctx, triageSubmission(patientID)); err != nil {
				return err
			}

			records, state, err := gate.History(ctx, patientID)
			if err != nil {
				return err
			}
			if state != triage.StateTriaged || len(records) != 2 {
				t.Fatalf("expected 2 records and triaged, got %d and %s", len(records), state)
			}
			if records[1].ID != first.ID {
				t.Error("expected history newest first")
			}
			if records[0].Priority != triage.PriorityOrange {
				t.Errorf("expected orange, got %s", records[0].Priority)
			}
			if records[0].Vitals.Temperature == nil || *records[0].Vitals.Temperature != 38.6 {
				t.Errorf("expected temperature to round-trip, got %v", records[0].Vitals.Temperature)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("SubmitTriage: %v", err)
		}
	})

	t.Run("UpdateRecomputesPriority", func(t *testing.T) {
		err := withTenantConn(ctx, tenantID, func(ctx context.Context) error {
			updated, err := gate.UpdateTriage(ctx, first.ID, triage.Patch{Vitals: &triage.Vitals{OxygenSaturation: ptrInt(88)}})
			if err != nil {
				return err
			}
			if updated.Priority != triage.PriorityRed {
				t.Errorf("expected red, got %s", updated.Priority)
			}
			got, err := gate.Get(ctx, first.ID)
			if err != nil {
				return err
			}
			if got.Priority != triage.PriorityRed || got.ChiefComplaint != "shortness of breath" {
				t.Errorf("unexpected stored record: %+v", got)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("UpdateTriage: %v", err)
		}
	})

	t.Run("FractionalTemperatureKeepsPriority", func(t *testing.T) {
		err := withTenantConn(ctx, tenantID, func(ctx context.Context) error {
			sub := triageSubmission(uuid.New())
			sub.Vitals.Temperature = ptrFloat(39.04)
			rec, err := gate.SubmitTriage(ctx, sub)
			if err != nil {
				return err
			}
			if rec.Priority != triage.PriorityRed {
				t.Fatalf("expected red at submit, got %s", rec.Priority)
			}
			updated, err := gate.UpdateTriage(ctx, rec.ID, triage.Patch{Vitals: &triage.Vitals{PainScore: ptrInt(3)}})
			if err != nil {
				return err
			}
			if updated.Priority != triage.PriorityRed {
				t.Errorf("pain-only update changed priority to %s", updated.Priority)
			}
			if updated.Vitals.Temperature == nil || *updated.Vitals.Temperature != 39.04 {
				t.Errorf("expected 39.04 to round-trip, got %v", updated.Vitals.Temperature)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("round-trip: %v", err)
		}
	})

	t.Run("GetNotFound", func(t *testing.T) {
		err := withTenantConn(ctx, tenantID, func(ctx context.Context) error {
			_, err := gate.Get(ctx, uuid.New())
			return err
		})
		if !errors.Is(err, triage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestTriageGate_GuardRollsBack(t *testing.T) {
	ctx := context.Background()
	tenantID := uniqueTenantID("rollback")
	createTenantSchema(t, ctx, tenantID)

	repo := triage.NewRepoPG(globalPool)
	gate := triage.NewGate(repo)
	patientID := uuid.New()
	boom := errors.New("boom")

	err := withTenantConn(ctx, tenantID, func(ctx context.Context) error {
		if _, err := gate.SubmitTriage(ctx, triageSubmission(patientID)); err != nil {
			return err
		}
		err := gate.Guard(ctx, patientID, triage.ActionRecordVitals, func(ctx context.Context) error {
			if _, err := repo.Save(ctx, &triage.Record{
				PatientID: patientID, ClinicianID: uuid.New(), ChiefComplaint: "x",
				Priority: triage.PriorityGreen, TriagedAt: time.Now(),
			}); err != nil {
				return err
			}
			return boom
		})
		if err != boom {
			t.Errorf("expected fn error unchanged, got %v", err)
		}
		records, _, err := gate.History(ctx, patientID)
		if err != nil {
			return err
		}
		if len(records) != 1 {
			t.Errorf("expected the guarded write to roll back, got %d records", len(records))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// A guarded write racing the first triage must observe either no history
// (denied) or the committed triage (allowed), never a write that lands
// before the triage it was authorized against.
func TestTriageGate_ConcurrentFirstTriage(t *testing.T) {
	ctx := context.Background()
	tenantID := uniqueTenantID("race")
	createTenantSchema(t, ctx, tenantID)

	gate := triage.NewGate(triage.NewRepoPG(globalPool))
	patientID := uuid.New()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var allowed, denied int
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := withTenantConn(ctx, tenantID, func(ctx context.Context) error {
				return gate.Guard(ctx, patientID, triage.ActionAdministerMedication, func(ctx context.Context) error {
					return nil
				})
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				allowed++
			case triage.IsPreconditionFailed(err):
				denied++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := withTenantConn(ctx, tenantID, func(ctx context.Context) error {
			_, err := gate.SubmitTriage(ctx, triageSubmission(patientID))
			return err
		})
		if err != nil {
			t.Errorf("SubmitTriage: %v", err)
		}
	}()
	wg.Wait()

	if allowed+denied != 8 {
		t.Errorf("expected 8 outcomes, got %d", allowed+denied)
	}
	err := withTenantConn(ctx, tenantID, func(ctx context.Context) error {
		auth, err := gate.Authorize(ctx, patientID, triage.ActionAdministerMedication)
		if err != nil {
			return err
		}
		if !auth.Allowed {
			t.Error("expected allowed once triage committed")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
}
