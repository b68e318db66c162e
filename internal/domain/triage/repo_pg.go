package triage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/ward/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const recordCols = `id, patient_id, clinician_id, chief_complaint,
	systolic, diastolic, heart_rate, respiratory_rate, temperature, oxygen_saturation,
	capillary_glucose, pain_score, weight_kg, height_cm,
	priority, triaged_at, created_at, updated_at`

func scanRecord(row pgx.Row) (*Record, error) {
	var r Record
	v := &r.Vitals
	err := row.Scan(&r.ID, &r.PatientID, &r.ClinicianID, &r.ChiefComplaint,
		&v.Systolic, &v.Diastolic, &v.HeartRate, &v.RespiratoryRate, &v.Temperature, &v.OxygenSaturation,
		&v.CapillaryGlucose, &v.PainScore, &v.WeightKg, &v.HeightCm,
		&r.Priority, &r.TriagedAt, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &r, err
}

func (r *repoPG) FindTriageHistory(ctx context.Context, patientID uuid.UUID) ([]*Record, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+recordCols+` FROM triage_record WHERE patient_id = $1 ORDER BY triaged_at DESC, created_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	return scanRecord(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+recordCols+` FROM triage_record WHERE id = $1`, id))
}

func (r *repoPG) Save(ctx context.Context, rec *Record) (*Record, error) {
	out := *rec
	out.ID = uuid.New()
	v := out.Vitals
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO triage_record (id, patient_id, clinician_id, chief_complaint,
			systolic, diastolic, heart_rate, respiratory_rate, temperature, oxygen_saturation,
			capillary_glucose, pain_score, weight_kg, height_cm, priority, triaged_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		RETURNING created_at, updated_at`,
		out.ID, out.PatientID, out.ClinicianID, out.ChiefComplaint,
		v.Systolic, v.Diastolic, v.HeartRate, v.RespiratoryRate, v.Temperature, v.OxygenSaturation,
		v.CapillaryGlucose, v.PainScore, v.WeightKg, v.HeightCm, out.Priority, out.TriagedAt,
	).Scan(&out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Update locks the row, applies the patch in Go so the priority rule lives in
// one place, and writes the result back in the same transaction.
func (r *repoPG) Update(ctx context.Context, id uuid.UUID, p Patch) (*Record, error) {
	var out *Record
	err := db.InTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		cur, err := scanRecord(tx.QueryRow(ctx, `SELECT `+recordCols+` FROM triage_record WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		next := p.Apply(*cur)
		v := next.Vitals
		err = tx.QueryRow(ctx, `
			UPDATE triage_record SET chief_complaint=$2,
				systolic=$3, diastolic=$4, heart_rate=$5, respiratory_rate=$6, temperature=$7,
				oxygen_saturation=$8, capillary_glucose=$9, pain_score=$10, weight_kg=$11, height_cm=$12,
				priority=$13, updated_at=NOW()
			WHERE id = $1
			RETURNING updated_at`,
			id, next.ChiefComplaint,
			v.Systolic, v.Diastolic, v.HeartRate, v.RespiratoryRate, v.Temperature,
			v.OxygenSaturation, v.CapillaryGlucose, v.PainScore, v.WeightKg, v.HeightCm,
			next.Priority,
		).Scan(&next.UpdatedAt)
		if err != nil {
			return err
		}
		out = &next
		return nil
	})
	return out, err
}

// WithPatientLock takes a transaction-scoped advisory lock keyed by patient id.
// Triage submission and every guarded nursing write take the same lock, so a
// history read inside fn stays valid until commit.
func (r *repoPG) WithPatientLock(ctx context.Context, patientID uuid.UUID, fn func(ctx context.Context) error) error {
	return db.InTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, patientID.String()); err != nil {
			return fmt.Errorf("lock patient %s: %w", patientID, err)
		}
		return fn(ctx)
	})
}
