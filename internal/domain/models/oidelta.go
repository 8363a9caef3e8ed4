package models

const (
	OIDeltaMarketClosed   = "Market Closed"
	OIDeltaNoPrevious     = "No Previous Data"
	OIDeltaDataGap        = "Data Gap - Skip"
	OIDeltaFetchFailed    = "Snapshot Fetch Failed"
	OIDeltaATMFilterEmpty = "ATM Filter Empty"
)

// OIDelta is the intraday change in near-ATM open interest between snapshots.
type OIDelta struct {
	CEDelta                 int    `json:"ce_delta"`
	PEDelta                 int    `json:"pe_delta"`
	Classification          string `json:"classification"`
	BullishProbability      int    `json:"bullish_probability"`
	BearishProbability      int    `json:"bearish_probability"`
	AccelerationDirection   string `json:"acceleration_direction"`
	AccelerationProbability int    `json:"acceleration_probability"`
}
