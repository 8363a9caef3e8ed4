package models

const (
	CalibrationIdentity            = "identity"
	CalibrationInsufficientSamples = "identity_insufficient_samples"
	CalibrationPlattIsotonicBlend  = "platt_isotonic_blend"
)

// CalibrationSample pairs a raw probability with a closed-trade outcome (0 or 1).
type CalibrationSample struct {
	RawProbability float64 `json:"raw_probability" db:"raw_probability"`
	Outcome        int     `json:"outcome" db:"outcome"`
}

type CalibratedProbability struct {
	Method                string   `json:"method"`
	CalibratedProbability float64  `json:"calibrated_probability"`
	SampleSize            int      `json:"sample_size"`
	MinSamplesRequired    int      `json:"min_samples_required,omitempty"`
	Platt                 *float64 `json:"platt,omitempty"`
	Isotonic              *float64 `json:"isotonic,omitempty"`
}
