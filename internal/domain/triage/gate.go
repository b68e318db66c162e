package triage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Gate tracks whether patients have been triaged and blocks gated nursing
// actions until they are. It holds no patient state of its own; every
// decision is a fresh read from the repository.
type Gate struct {
	repo    Repository
	metrics *Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

func NewGate(repo Repository) *Gate {
	return &Gate{repo: repo, logger: zerolog.Nop(), now: time.Now}
}

// SetMetrics attaches optional Prometheus metrics.
func (g *Gate) SetMetrics(m *Metrics) {
	g.metrics = m
}

// Metrics returns the attached metrics (may be nil).
func (g *Gate) Metrics() *Metrics {
	return g.metrics
}

func (g *Gate) SetLogger(logger zerolog.Logger) {
	g.logger = logger.With().Str("component", "triage_gate").Logger()
}

// State returns the patient's current triage state.
func (g *Gate) State(ctx context.Context, patientID uuid.UUID) (State, error) {
	history, err := g.repo.FindTriageHistory(ctx, patientID)
	if err != nil {
		return "", repoErr("find history", err)
	}
	return StateOf(len(history)), nil
}

// Authorize answers whether action may be performed for the patient right
// now. It is advisory: callers that go on to write must use Guard so the
// check and the write see the same state.
func (g *Gate) Authorize(ctx context.Context, patientID uuid.UUID, action Action) (Authorization, error) {
	state, err := g.State(ctx, patientID)
	if err != nil {
		return Authorization{}, err
	}
	auth := decide(patientID, action, state)
	g.record(ctx, auth, patientID, action)
	return auth, nil
}

func decide(patientID uuid.UUID, action Action, state State) Authorization {
	if action.Gated() && state == StateUntriaged {
		return Authorization{State: state, Denial: newPreconditionFailed(patientID, action)}
	}
	return Authorization{Allowed: true, State: state}
}

// log returns the request-scoped logger carried by ctx, falling back to the
// gate's own logger outside of a request.
func (g *Gate) log(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		lg := l.With().Str("component", "triage_gate").Logger()
		return &lg
	}
	return &g.logger
}

func (g *Gate) record(ctx context.Context, auth Authorization, patientID uuid.UUID, action Action) {
	if g.metrics != nil {
		g.metrics.observeAuthorization(action, auth.Allowed)
	}
	if !auth.Allowed {
		g.log(ctx).Debug().
			Str("patient_id", patientID.String()).
			Str("action", string(action)).
			Msg("gated action denied: patient not triaged")
	}
}

// Guard authorizes action and, only if allowed, runs fn. The authorization
// read and everything fn writes through the context it receives happen under
// the same per-patient lock, so a concurrent triage cannot interleave between
// check and write. A denial is returned as *PreconditionFailedError and fn is
// not called. Errors from fn are returned unchanged and roll back the unit.
func (g *Gate) Guard(ctx context.Context, patientID uuid.UUID, action Action, fn func(ctx context.Context) error) error {
	var denial *PreconditionFailedError
	var fnErr error
	err := g.repo.WithPatientLock(ctx, patientID, func(ctx context.Context) error {
		history, err := g.repo.FindTriageHistory(ctx, patientID)
		if err != nil {
			return err
		}
		auth := decide(patientID, action, StateOf(len(history)))
		g.record(ctx, auth, patientID, action)
		if !auth.Allowed {
			denial = auth.Denial
			return denial
		}
		fnErr = fn(ctx)
		return fnErr
	})
	switch {
	case denial != nil:
		return denial
	case fnErr != nil:
		return fnErr
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return repoErr("guard", err)
}

// SubmitTriage validates and classifies a new triage and stores it. The first
// record moves the patient from untriaged to triaged.
func (g *Gate) SubmitTriage(ctx context.Context, sub Submission) (*Record, error) {
	if err := validateSubmission(sub); err != nil {
		return nil, err
	}

	triagedAt := g.now().UTC()
	if sub.TriagedAt != nil {
		triagedAt = sub.TriagedAt.UTC()
	}
	rec := &Record{
		PatientID:      sub.PatientID,
		ClinicianID:    sub.ClinicianID,
		ChiefComplaint: strings.TrimSpace(sub.ChiefComplaint),
		Vitals:         sub.Vitals,
		Priority:       Classify(sub.Vitals),
		TriagedAt:      triagedAt,
	}

	var saved *Record
	var first bool
	err := g.repo.WithPatientLock(ctx, sub.PatientID, func(ctx context.Context) error {
		history, err := g.repo.FindTriageHistory(ctx, sub.PatientID)
		if err != nil {
			return err
		}
		first = len(history) == 0
		saved, err = g.repo.Save(ctx, rec)
		return err
	})
	if err != nil {
		return nil, repoErr("save", err)
	}

	if g.metrics != nil {
		g.metrics.observeClassification(SourceTriage, saved.Priority)
	}
	g.log(ctx).Info().
		Str("patient_id", saved.PatientID.String()).
		Str("triage_id", saved.ID.String()).
		Str("priority", string(saved.Priority)).
		Bool("first_triage", first).
		Msg("triage submitted")
	return saved, nil
}

// UpdateTriage edits an existing record. The priority is recomputed only when
// the patch carries vitals. The patient's state is never affected.
func (g *Gate) UpdateTriage(ctx context.Context, id uuid.UUID, patch Patch) (*Record, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}
	rec, err := g.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, repoErr("update", err)
	}
	if patch.Vitals != nil && g.metrics != nil {
		g.metrics.observeClassification(SourceTriage, rec.Priority)
	}
	g.log(ctx).Info().
		Str("triage_id", rec.ID.String()).
		Str("priority", string(rec.Priority)).
		Bool("reclassified", patch.Vitals != nil).
		Msg("triage updated")
	return rec, nil
}

// Get returns a single triage record.
func (g *Gate) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	rec, err := g.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repoErr("get", err)
	}
	return rec, nil
}

// History returns the patient's records newest first together with the state
// derived from them.
func (g *Gate) History(ctx context.Context, patientID uuid.UUID) ([]*Record, State, error) {
	history, err := g.repo.FindTriageHistory(ctx, patientID)
	if err != nil {
		return nil, "", repoErr("find history", err)
	}
	return history, StateOf(len(history)), nil
}

func validateSubmission(sub Submission) error {
	var errs []FieldError
	if sub.PatientID == uuid.Nil {
		errs = append(errs, FieldError{Field: "patient_id", Message: "is required"})
	}
	if sub.ClinicianID == uuid.Nil {
		errs = append(errs, FieldError{Field: "clinician_id", Message: "is required"})
	}
	if strings.TrimSpace(sub.ChiefComplaint) == "" {
		errs = append(errs, FieldError{Field: "chief_complaint", Message: "is required"})
	}
	errs = append(errs, sub.Vitals.validateTriage()...)
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func validatePatch(p Patch) error {
	var errs []FieldError
	if p.ChiefComplaint == nil && (p.Vitals == nil || p.Vitals.IsEmpty()) {
		errs = append(errs, FieldError{Field: "patch", Message: "must change at least one field"})
	}
	if p.ChiefComplaint != nil && strings.TrimSpace(*p.ChiefComplaint) == "" {
		errs = append(errs, FieldError{Field: "chief_complaint", Message: "must not be blank"})
	}
	if p.Vitals != nil {
		errs = append(errs, p.Vitals.validateRanges()...)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
