package broker

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// number decodes JSON numbers, numeric strings and null. Anything that is
// not a finite number becomes NaN.
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*n = number(math.NaN())
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			*n = number(math.NaN())
			return nil
		}
		s = strings.TrimSpace(str)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		v = math.NaN()
	}
	*n = number(v)
	return nil
}

// text decodes strings and bare numbers (epoch expiries) as text.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = text(strings.TrimSpace(s))
		return nil
	}
	*t = text(b)
	return nil
}

type quotesResponse struct {
	S       string `json:"s"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	D       []struct {
		N string                     `json:"n"`
		S string                     `json:"s"`
		V map[string]json.RawMessage `json:"v"`
	} `json:"d"`
}

type chainResponse struct {
	S       string `json:"s"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		OptionsChain []chainEntry `json:"optionsChain"`
	} `json:"data"`
}

// chainEntry is one optionsChain element. Optional IV and expiry come
// under several spellings depending on the API version.
type chainEntry struct {
	StrikePrice       *number `json:"strike_price"`
	OptionType        string  `json:"option_type"`
	OI                *number `json:"oi"`
	OIChange          *number `json:"oich"`
	Volume            *number `json:"volume"`
	LTP               *number `json:"ltp"`
	IV                *number `json:"iv"`
	ImpliedVolatility *number `json:"implied_volatility"`
	ImpliedVolCamel   *number `json:"impliedVolatility"`
	Expiry            text    `json:"expiry"`
	ExpiryDate        text    `json:"expiry_date"`
	ExpiryDateCamel   text    `json:"expiryDate"`
	Exd               text    `json:"exd"`
}

func (e chainEntry) iv() *float64 {
	for _, v := range []*number{e.IV, e.ImpliedVolatility, e.ImpliedVolCamel} {
		if v != nil && !math.IsNaN(float64(*v)) {
			f := float64(*v)
			return &f
		}
	}
	return nil
}

func (e chainEntry) expiry() string {
	for _, v := range []text{e.Expiry, e.ExpiryDate, e.ExpiryDateCamel, e.Exd} {
		if v != "" {
			return string(v)
		}
	}
	return ""
}

func value(n *number) float64 {
	if n == nil {
		return math.NaN()
	}
	return float64(*n)
}
