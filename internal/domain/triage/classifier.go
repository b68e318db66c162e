package triage

// band is one severity tier for a single vital. A value triggers the band when
// it is strictly above high or strictly below low; a nil bound is not checked.
type band struct {
	priority Priority
	high     *float64
	low      *float64
}

func (b band) triggered(x float64) bool {
	return (b.high != nil && x > *b.high) || (b.low != nil && x < *b.low)
}

func bound(f float64) *float64 { return &f }

// vitalBands lists the bands of one vital from most to least severe.
type vitalBands struct {
	name  string
	value func(Vitals) (float64, bool)
	bands []band
}

// triageBands are the acuity thresholds. They must stay bit-for-bit stable:
// existing triage history was classified with them.
var triageBands = []vitalBands{
	{
		name:  "systolic",
		value: func(v Vitals) (float64, bool) { return intValue(v.Systolic) },
		bands: []band{
			{PriorityRed, bound(180), bound(90)},
			{PriorityOrange, bound(160), bound(100)},
			{PriorityYellow, bound(140), bound(110)},
		},
	},
	{
		name:  "diastolic",
		value: func(v Vitals) (float64, bool) { return intValue(v.Diastolic) },
		bands: []band{
			{PriorityRed, bound(110), bound(60)},
			{PriorityOrange, bound(100), bound(70)},
			{PriorityYellow, bound(90), bound(80)},
		},
	},
	{
		name:  "heart_rate",
		value: func(v Vitals) (float64, bool) { return intValue(v.HeartRate) },
		bands: []band{
			{PriorityRed, bound(130), bound(50)},
			{PriorityOrange, bound(110), bound(60)},
			{PriorityYellow, bound(100), bound(70)},
		},
	},
	{
		name:  "temperature",
		value: func(v Vitals) (float64, bool) { return floatValue(v.Temperature) },
		bands: []band{
			{PriorityRed, bound(39), nil},
			{PriorityOrange, bound(38.5), nil},
			{PriorityYellow, bound(37.8), nil},
		},
	},
	{
		name:  "oxygen_saturation",
		value: func(v Vitals) (float64, bool) { return intValue(v.OxygenSaturation) },
		bands: []band{
			{PriorityRed, nil, bound(90)},
			{PriorityOrange, nil, bound(95)},
			{PriorityYellow, nil, bound(97)},
		},
	},
}

// Classify returns the acuity priority of a reading: the most severe band
// triggered by any measured vital, or PriorityGreen when none triggers.
func Classify(v Vitals) Priority {
	result := PriorityGreen
	for _, vb := range triageBands {
		p, ok := vb.classify(v)
		if ok && p.MoreSevereThan(result) {
			result = p
		}
	}
	return result
}

// Contributions reports, per measured vital, the band it triggered. Vitals that
// are absent or within range are omitted.
func Contributions(v Vitals) map[string]Priority {
	out := make(map[string]Priority)
	for _, vb := range triageBands {
		if p, ok := vb.classify(v); ok {
			out[vb.name] = p
		}
	}
	return out
}

func (vb vitalBands) classify(v Vitals) (Priority, bool) {
	x, ok := vb.value(v)
	if !ok {
		return "", false
	}
	for _, b := range vb.bands {
		if b.triggered(x) {
			return b.priority, true
		}
	}
	return "", false
}

// anomalyRule flags a single monitoring finding.
type anomalyRule struct {
	anomaly Anomaly
	match   func(Vitals) bool
}

func above(p *int, limit int) bool { return p != nil && *p > limit }
func below(p *int, limit int) bool { return p != nil && *p < limit }
func aboveF(p *float64, limit float64) bool { return p != nil && *p > limit }
func belowF(p *float64, limit float64) bool { return p != nil && *p < limit }

// monitoringRules are the normal/abnormal thresholds used while a patient is on
// the ward. They are deliberately distinct from triageBands. Order is BP,
// temperature, heart rate, SpO2.
var monitoringRules = []anomalyRule{
	{AnomalyHighBloodPressure, func(v Vitals) bool { return above(v.Systolic, 140) || above(v.Diastolic, 90) }},
	{AnomalyLowBloodPressure, func(v Vitals) bool { return below(v.Systolic, 90) || below(v.Diastolic, 60) }},
	{AnomalyFever, func(v Vitals) bool { return aboveF(v.Temperature, 37.5) }},
	{AnomalyHypothermia, func(v Vitals) bool { return belowF(v.Temperature, 36) }},
	{AnomalyTachycardia, func(v Vitals) bool { return above(v.HeartRate, 100) }},
	{AnomalyBradycardia, func(v Vitals) bool { return below(v.HeartRate, 60) }},
	{AnomalyLowOxygenSaturation, func(v Vitals) bool { return below(v.OxygenSaturation, 95) }},
}

// DetectAnomalies returns the monitoring findings for a reading in a stable
// order. The result is never nil.
func DetectAnomalies(v Vitals) []Anomaly {
	out := []Anomaly{}
	for _, r := range monitoringRules {
		if r.match(v) {
			out = append(out, r.anomaly)
		}
	}
	return out
}

func intValue(p *int) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return float64(*p), true
}

func floatValue(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}
