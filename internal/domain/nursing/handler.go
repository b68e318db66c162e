package nursing

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/ward/internal/domain/triage"
	"github.com/ehr/ward/internal/platform/auth"
	"github.com/ehr/ward/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Read endpoints – admin, physician, nurse
	readGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse"))
	readGroup.GET("/patients/:patient_id/vitals", h.ListVitals)
	readGroup.GET("/patients/:patient_id/evolution-notes", h.ListEvolutionNotes)
	readGroup.GET("/patients/:patient_id/medication-administrations", h.ListMedicationAdministrations)

	// Write endpoints – nurse
	writeGroup := api.Group("", auth.RequireRole("nurse"))
	writeGroup.POST("/patients/:patient_id/vitals", h.RecordVitals)
	writeGroup.POST("/patients/:patient_id/evolution-notes", h.RecordEvolutionNote)
	writeGroup.POST("/patients/:patient_id/medication-administrations", h.AdministerMedication)
}

func patientParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	return id, nil
}

// actor returns id when set, otherwise the authenticated clinician.
func actor(c echo.Context, id uuid.UUID) uuid.UUID {
	if id != uuid.Nil {
		return id
	}
	return triage.ClinicianFromContext(c)
}

// -- Vitals Handlers --

func (h *Handler) RecordVitals(c echo.Context) error {
	patientID, err := patientParam(c)
	if err != nil {
		return err
	}
	var e VitalsEntry
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e.PatientID = patientID
	e.RecordedByID = actor(c, e.RecordedByID)
	if err := h.svc.RecordVitals(c.Request().Context(), &e); err != nil {
		return triage.ErrorResponse(err)
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) ListVitals(c echo.Context) error {
	patientID, err := patientParam(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListVitals(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// -- Evolution Note Handlers --

func (h *Handler) RecordEvolutionNote(c echo.Context) error {
	patientID, err := patientParam(c)
	if err != nil {
		return err
	}
	var n EvolutionNote
	if err := c.Bind(&n); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	n.PatientID = patientID
	n.AuthorID = actor(c, n.AuthorID)
	if err := h.svc.RecordEvolutionNote(c.Request().Context(), &n); err != nil {
		return triage.ErrorResponse(err)
	}
	return c.JSON(http.StatusCreated, n)
}

func (h *Handler) ListEvolutionNotes(c echo.Context) error {
	patientID, err := patientParam(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListEvolutionNotes(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// -- Medication Administration Handlers --

func (h *Handler) AdministerMedication(c echo.Context) error {
	patientID, err := patientParam(c)
	if err != nil {
		return err
	}
	var m MedicationAdministration
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m.PatientID = patientID
	m.AdministeredByID = actor(c, m.AdministeredByID)
	if err := h.svc.AdministerMedication(c.Request().Context(), &m); err != nil {
		return triage.ErrorResponse(err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) ListMedicationAdministrations(c echo.Context) error {
	patientID, err := patientParam(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListMedicationAdministrations(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
