package nursing

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/ward/internal/domain/triage"
	"github.com/ehr/ward/internal/platform/db"
)

// =========== Vitals Repository ===========

type vitalsRepoPG struct{ pool *pgxpool.Pool }

func NewVitalsRepoPG(pool *pgxpool.Pool) VitalsRepository {
	return &vitalsRepoPG{pool: pool}
}

const vitalsCols = `id, patient_id, recorded_by_id,
	systolic, diastolic, heart_rate, respiratory_rate, temperature, oxygen_saturation,
	capillary_glucose, pain_score, weight_kg, height_cm,
	anomalies, note, recorded_at, created_at`

func (r *vitalsRepoPG) scanEntry(row pgx.Row) (*VitalsEntry, error) {
	var e VitalsEntry
	var anomalies []string
	v := &e.Vitals
	err := row.Scan(&e.ID, &e.PatientID, &e.RecordedByID,
		&v.Systolic, &v.Diastolic, &v.HeartRate, &v.RespiratoryRate, &v.Temperature, &v.OxygenSaturation,
		&v.CapillaryGlucose, &v.PainScore, &v.WeightKg, &v.HeightCm,
		&anomalies, &e.Note, &e.RecordedAt, &e.CreatedAt)
	e.Anomalies = make([]triage.Anomaly, len(anomalies))
	for i, a := range anomalies {
		e.Anomalies[i] = triage.Anomaly(a)
	}
	return &e, err
}

func (r *vitalsRepoPG) Create(ctx context.Context, e *VitalsEntry) error {
	e.ID = uuid.New()
	anomalies := make([]string, len(e.Anomalies))
	for i, a := range e.Anomalies {
		anomalies[i] = string(a)
	}
	v := e.Vitals
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO vitals_entry (id, patient_id, recorded_by_id,
			systolic, diastolic, heart_rate, respiratory_rate, temperature, oxygen_saturation,
			capillary_glucose, pain_score, weight_kg, height_cm, anomalies, note, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		RETURNING created_at`,
		e.ID, e.PatientID, e.RecordedByID,
		v.Systolic, v.Diastolic, v.HeartRate, v.RespiratoryRate, v.Temperature, v.OxygenSaturation,
		v.CapillaryGlucose, v.PainScore, v.WeightKg, v.HeightCm, anomalies, e.Note, e.RecordedAt,
	).Scan(&e.CreatedAt)
}

func (r *vitalsRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*VitalsEntry, int, error) {
	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM vitals_entry WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn.Query(ctx, `SELECT `+vitalsCols+` FROM vitals_entry WHERE patient_id = $1 ORDER BY recorded_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*VitalsEntry
	for rows.Next() {
		e, err := r.scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}

// =========== Evolution Note Repository ===========

type evolutionNoteRepoPG struct{ pool *pgxpool.Pool }

func NewEvolutionNoteRepoPG(pool *pgxpool.Pool) EvolutionNoteRepository {
	return &evolutionNoteRepoPG{pool: pool}
}

const noteCols = `id, patient_id, author_id, body, written_at, created_at`

func (r *evolutionNoteRepoPG) scanNote(row pgx.Row) (*EvolutionNote, error) {
	var n EvolutionNote
	err := row.Scan(&n.ID, &n.PatientID, &n.AuthorID, &n.Body, &n.WrittenAt, &n.CreatedAt)
	return &n, err
}

func (r *evolutionNoteRepoPG) Create(ctx context.Context, n *EvolutionNote) error {
	n.ID = uuid.New()
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO evolution_note (id, patient_id, author_id, body, written_at)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at`,
		n.ID, n.PatientID, n.AuthorID, n.Body, n.WrittenAt,
	).Scan(&n.CreatedAt)
}

func (r *evolutionNoteRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*EvolutionNote, int, error) {
	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM evolution_note WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn.Query(ctx, `SELECT `+noteCols+` FROM evolution_note WHERE patient_id = $1 ORDER BY written_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*EvolutionNote
	for rows.Next() {
		n, err := r.scanNote(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}
	return items, total, rows.Err()
}

// =========== Medication Administration Repository ===========

type medicationAdministrationRepoPG struct{ pool *pgxpool.Pool }

func NewMedicationAdministrationRepoPG(pool *pgxpool.Pool) MedicationAdministrationRepository {
	return &medicationAdministrationRepoPG{pool: pool}
}

const medAdminCols = `id, patient_id, administered_by_id, medication, dose, route, note, administered_at, created_at`

func (r *medicationAdministrationRepoPG) scanAdministration(row pgx.Row) (*MedicationAdministration, error) {
	var m MedicationAdministration
	err := row.Scan(&m.ID, &m.PatientID, &m.AdministeredByID, &m.Medication, &m.Dose, &m.Route, &m.Note, &m.AdministeredAt, &m.CreatedAt)
	return &m, err
}

func (r *medicationAdministrationRepoPG) Create(ctx context.Context, m *MedicationAdministration) error {
	m.ID = uuid.New()
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO medication_administration (id, patient_id, administered_by_id, medication, dose, route, note, administered_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at`,
		m.ID, m.PatientID, m.AdministeredByID, m.Medication, m.Dose, m.Route, m.Note, m.AdministeredAt,
	).Scan(&m.CreatedAt)
}

func (r *medicationAdministrationRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*MedicationAdministration, int, error) {
	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM medication_administration WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn.Query(ctx, `SELECT `+medAdminCols+` FROM medication_administration WHERE patient_id = $1 ORDER BY administered_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*MedicationAdministration
	for rows.Next() {
		m, err := r.scanAdministration(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}
