package triage

import "math"

// maxTemperature is the highest accepted body temperature in °C.
const maxTemperature = 50.0

// Vitals is a single set of vital-sign measurements. A nil field means the
// value was not measured; it is skipped by every rule and never defaulted.
type Vitals struct {
	Systolic         *int     `json:"systolic,omitempty"`
	Diastolic        *int     `json:"diastolic,omitempty"`
	HeartRate        *int     `json:"heart_rate,omitempty"`
	RespiratoryRate  *int     `json:"respiratory_rate,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	OxygenSaturation *int     `json:"oxygen_saturation,omitempty"`
	CapillaryGlucose *int     `json:"capillary_glucose,omitempty"`
	PainScore        *int     `json:"pain_score,omitempty"`
	WeightKg         *float64 `json:"weight_kg,omitempty"`
	HeightCm         *float64 `json:"height_cm,omitempty"`
}

// Merge returns a copy of v with every field that is set in patch replaced.
func (v Vitals) Merge(patch Vitals) Vitals {
	out := v
	if patch.Systolic != nil {
		out.Systolic = patch.Systolic
	}
	if patch.Diastolic != nil {
		out.Diastolic = patch.Diastolic
	}
	if patch.HeartRate != nil {
		out.HeartRate = patch.HeartRate
	}
	if patch.RespiratoryRate != nil {
		out.RespiratoryRate = patch.RespiratoryRate
	}
	if patch.Temperature != nil {
		out.Temperature = patch.Temperature
	}
	if patch.OxygenSaturation != nil {
		out.OxygenSaturation = patch.OxygenSaturation
	}
	if patch.CapillaryGlucose != nil {
		out.CapillaryGlucose = patch.CapillaryGlucose
	}
	if patch.PainScore != nil {
		out.PainScore = patch.PainScore
	}
	if patch.WeightKg != nil {
		out.WeightKg = patch.WeightKg
	}
	if patch.HeightCm != nil {
		out.HeightCm = patch.HeightCm
	}
	return out
}

// IsEmpty reports whether no field is measured.
func (v Vitals) IsEmpty() bool {
	return v == Vitals{}
}

// BMI returns the body-mass index rounded to one decimal, or nil when weight
// or height is missing.
func (v Vitals) BMI() *float64 {
	if v.WeightKg == nil || v.HeightCm == nil || *v.HeightCm <= 0 {
		return nil
	}
	m := *v.HeightCm / 100
	bmi := math.Round(*v.WeightKg/(m*m)*10) / 10
	return &bmi
}

// validateTriage checks the fields a triage submission must carry and the
// ranges of the optional ones.
func (v Vitals) validateTriage() []FieldError {
	var errs []FieldError
	required := []struct {
		field   string
		present bool
	}{
		{"systolic", v.Systolic != nil},
		{"diastolic", v.Diastolic != nil},
		{"heart_rate", v.HeartRate != nil},
		{"respiratory_rate", v.RespiratoryRate != nil},
		{"temperature", v.Temperature != nil},
		{"oxygen_saturation", v.OxygenSaturation != nil},
	}
	for _, r := range required {
		if !r.present {
			errs = append(errs, FieldError{Field: r.field, Message: "is required"})
		}
	}
	return append(errs, v.validateRanges()...)
}

// validateRanges rejects values that cannot be physical measurements. It does
// not judge clinical normality; that is the classifier's job.
func (v Vitals) validateRanges() []FieldError {
	var errs []FieldError
	nonNegative := func(field string, p *int) {
		if p != nil && *p < 0 {
			errs = append(errs, FieldError{Field: field, Message: "must not be negative"})
		}
	}
	nonNegative("systolic", v.Systolic)
	nonNegative("diastolic", v.Diastolic)
	nonNegative("heart_rate", v.HeartRate)
	nonNegative("respiratory_rate", v.RespiratoryRate)
	nonNegative("capillary_glucose", v.CapillaryGlucose)

	if v.OxygenSaturation != nil && (*v.OxygenSaturation < 0 || *v.OxygenSaturation > 100) {
		errs = append(errs, FieldError{Field: "oxygen_saturation", Message: "must be between 0 and 100"})
	}
	if v.PainScore != nil && (*v.PainScore < 0 || *v.PainScore > 10) {
		errs = append(errs, FieldError{Field: "pain_score", Message: "must be between 0 and 10"})
	}
	if v.Temperature != nil && (*v.Temperature <= 0 || *v.Temperature > maxTemperature) {
		errs = append(errs, FieldError{Field: "temperature", Message: "must be above 0 and at most 50"})
	}
	if v.WeightKg != nil && *v.WeightKg <= 0 {
		errs = append(errs, FieldError{Field: "weight_kg", Message: "must be positive"})
	}
	if v.HeightCm != nil && *v.HeightCm <= 0 {
		errs = append(errs, FieldError{Field: "height_cm", Message: "must be positive"})
	}
	return errs
}

// ValidateMeasurements checks a monitoring reading: at least one value and no
// impossible ranges. Nothing is required.
func ValidateMeasurements(v Vitals) error {
	var errs []FieldError
	if v.IsEmpty() {
		errs = append(errs, FieldError{Field: "vitals", Message: "at least one measurement is required"})
	}
	errs = append(errs, v.validateRanges()...)
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
