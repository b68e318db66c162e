package triage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned by repositories when a triage record does not exist.
var ErrNotFound = errors.New("triage record not found")

// FieldError is one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports input the caller must correct before retrying.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// PreconditionFailedError is returned when a gated action is attempted for an
// untriaged patient. The message is meant for the operator.
type PreconditionFailedError struct {
	PatientID uuid.UUID `json:"patient_id"`
	Action    Action    `json:"action"`
	Message   string    `json:"message"`
}

func newPreconditionFailed(patientID uuid.UUID, action Action) *PreconditionFailedError {
	return &PreconditionFailedError{
		PatientID: patientID,
		Action:    action,
		Message:   fmt.Sprintf("triage must be performed before %s", action.describe()),
	}
}

func (e *PreconditionFailedError) Error() string { return e.Message }

// RepositoryError wraps a storage failure unchanged. The gate never retries.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string { return "triage repository: " + e.Op + ": " + e.Err.Error() }

func (e *RepositoryError) Unwrap() error { return e.Err }

func repoErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *RepositoryError
	if errors.As(err, &re) {
		return err
	}
	return &RepositoryError{Op: op, Err: err}
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsPreconditionFailed reports whether err is a *PreconditionFailedError.
func IsPreconditionFailed(err error) bool {
	var pf *PreconditionFailedError
	return errors.As(err, &pf)
}
