package http

// APIResponse is the envelope of every API response. Data carries the typed
// payload, or the error list when Status is 4xx/5xx.
type APIResponse[T any] struct {
	Status  int    `json:"status" example:"200"`
	Message string `json:"message" example:"OK"`
	Data    T      `json:"data"`
}

// ValidationError describes one rejected request field. Field holds the json
// (or query) name the client sent.
type ValidationError struct {
	Code    string                 `json:"code" example:"ERR_SYMBOL"`
	Field   string                 `json:"field,omitempty" example:"symbol"`
	Message string                 `json:"message" example:"symbol must look like NSE:NIFTY50-INDEX"`
	Params  map[string]interface{} `json:"params,omitempty"`
}
