package models

const (
	SideBuyCE   = "BUY CE OTM"
	SideBuyPE   = "BUY PE OTM"
	SideNoTrade = "NO TRADE / WAIT"
)

type BiasScore struct {
	MarketScore   int      `json:"market_score"`
	MarketBias    string   `json:"market_bias"`
	Confidence    int      `json:"confidence"`
	CEOTMBuyScore int      `json:"ce_otm_buy_score"`
	PEOTMBuyScore int      `json:"pe_otm_buy_score"`
	PreferredSide string   `json:"preferred_side"`
	Factors       []string `json:"factors"`
}
