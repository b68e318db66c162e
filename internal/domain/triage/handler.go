package triage

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/ward/internal/platform/auth"
	"github.com/ehr/ward/pkg/pagination"
)

type Handler struct {
	gate *Gate
}

func NewHandler(gate *Gate) *Handler {
	return &Handler{gate: gate}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Read endpoints – admin, physician, nurse
	read := api.Group("", auth.RequireRole("admin", "physician", "nurse"))
	read.POST("/triage/classify", h.Classify)
	read.GET("/patients/:patient_id/triage", h.ListHistory)
	read.GET("/patients/:patient_id/authorization", h.Authorize)
	read.GET("/triage-records/:id", h.GetRecord)

	// Write endpoints – nurse (admin always passes)
	write := api.Group("", auth.RequireRole("nurse"))
	write.POST("/patients/:patient_id/triage", h.SubmitTriage)
	write.PUT("/triage-records/:id", h.UpdateRecord)
}

// ClassifyResponse is the result of a classification preview.
type ClassifyResponse struct {
	Priority      Priority            `json:"priority"`
	Anomalies     []Anomaly           `json:"anomalies"`
	Contributions map[string]Priority `json:"contributions"`
	BMI           *float64            `json:"bmi,omitempty"`
}

func (h *Handler) Classify(c echo.Context) error {
	var v Vitals
	if err := c.Bind(&v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if errs := v.validateRanges(); len(errs) > 0 {
		return ErrorResponse(&ValidationError{Fields: errs})
	}
	resp := ClassifyResponse{
		Priority:      Classify(v),
		Anomalies:     DetectAnomalies(v),
		Contributions: Contributions(v),
		BMI:           v.BMI(),
	}
	if m := h.gate.Metrics(); m != nil {
		m.ObservePreview(resp.Priority)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) SubmitTriage(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	var sub Submission
	if err := c.Bind(&sub); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sub.PatientID = patientID
	if sub.ClinicianID == uuid.Nil {
		sub.ClinicianID = ClinicianFromContext(c)
	}
	rec, err := h.gate.SubmitTriage(c.Request().Context(), sub)
	if err != nil {
		return ErrorResponse(err)
	}
	return c.JSON(http.StatusCreated, rec)
}

// HistoryResponse is a page of triage records plus the derived state.
type HistoryResponse struct {
	State State `json:"state"`
	*pagination.Response
}

func (h *Handler) ListHistory(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	records, state, err := h.gate.History(c.Request().Context(), patientID)
	if err != nil {
		return ErrorResponse(err)
	}
	pg := pagination.FromContext(c)
	page := pagination.Slice(records, pg)
	return c.JSON(http.StatusOK, HistoryResponse{
		State:    state,
		Response: pagination.NewResponse(page, len(records), pg.Limit, pg.Offset),
	})
}

func (h *Handler) Authorize(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	action := Action(c.QueryParam("action"))
	if !action.Gated() {
		return echo.NewHTTPError(http.StatusBadRequest, "action must be one of record_vitals, record_evolution_note, administer_medication")
	}
	result, err := h.gate.Authorize(c.Request().Context(), patientID, action)
	if err != nil {
		return ErrorResponse(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) GetRecord(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rec, err := h.gate.Get(c.Request().Context(), id)
	if err != nil {
		return ErrorResponse(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) UpdateRecord(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var p Patch
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rec, err := h.gate.UpdateTriage(c.Request().Context(), id, p)
	if err != nil {
		return ErrorResponse(err)
	}
	return c.JSON(http.StatusOK, rec)
}

// ClinicianFromContext returns the authenticated user as a clinician id, or
// uuid.Nil when the subject is not a UUID.
func ClinicianFromContext(c echo.Context) uuid.UUID {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil
	}
	return id
}

// ErrorBody is the JSON shape of typed triage errors.
type ErrorBody struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// ErrorResponse maps gate and guarded-write errors to HTTP errors. Denials
// become 409 with code "triage_required" and carry the operator message.
func ErrorResponse(err error) *echo.HTTPError {
	var ve *ValidationError
	var pf *PreconditionFailedError
	switch {
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, ErrorBody{
			Code: "validation_failed", Message: ve.Error(), Fields: ve.Fields,
		})
	case errors.As(err, &pf):
		return echo.NewHTTPError(http.StatusConflict, ErrorBody{
			Code: "triage_required", Message: pf.Message,
		})
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "triage record not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "storage unavailable").SetInternal(err)
}
