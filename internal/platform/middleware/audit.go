package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/ward/internal/platform/auth"
)

const patientsPrefix = "/api/v1/patients/"

// PatientAudit logs every request that touches a patient's chart: who, which
// patient, what action and the outcome.
func PatientAudit(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			patientID, resource, ok := patientRoute(req.URL.Path)
			if !ok {
				return next(c)
			}

			err := next(c)

			status := c.Response().Status
			if he, isHTTP := err.(*echo.HTTPError); isHTTP {
				status = he.Code
			}
			rid, _ := c.Get("request_id").(string)
			logger.Info().
				Str("type", "patient_audit").
				Str("request_id", rid).
				Str("user_id", auth.UserIDFromContext(req.Context())).
				Strs("user_roles", auth.RolesFromContext(req.Context())).
				Str("patient_id", patientID).
				Str("resource", resource).
				Str("action", methodAction(req.Method)).
				Int("status", status).
				Msg("patient_access")

			return err
		}
	}
}

// patientRoute splits /api/v1/patients/<uuid>/<resource>.
func patientRoute(path string) (patientID, resource string, ok bool) {
	rest, found := strings.CutPrefix(path, patientsPrefix)
	if !found {
		return "", "", false
	}
	id, resource, _ := strings.Cut(rest, "/")
	if _, err := uuid.Parse(id); err != nil {
		return "", "", false
	}
	if i := strings.IndexByte(resource, '/'); i >= 0 {
		resource = resource[:i]
	}
	return id, resource, true
}

func methodAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	}
	return "read"
}
