package models

// QualityVerdict is recomputed every cycle and never persisted on its own.
type QualityVerdict struct {
	IsUsable       bool     `json:"is_usable"`
	StaleData      bool     `json:"stale_data"`
	MissingStrikes bool     `json:"missing_strikes"`
	AnomalyFlags   []string `json:"anomaly_flags"`
	Warnings       []string `json:"warnings"`
}

// HasFlag reports whether flag was raised.
func (v QualityVerdict) HasFlag(flag string) bool {
	for _, f := range v.AnomalyFlags {
		if f == flag {
			return true
		}
	}
	return false
}
