package chain

import (
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/services/features"
)

const (
	StructureCallWriting = "Call Writing Dominant (Bearish Bias)"
	StructurePutWriting  = "Put Writing Dominant (Bullish Bias)"
	StructureBothWriting = "Both Side Writing (Range Formation)"
	StructureUnclear     = "Unclear Structure"

	TrapCall = "Possible Call Trap (Above Resistance)"
	TrapPut  = "Possible Put Trap (Below Support)"
	TrapNone = "No Trap Detected"

	BreakoutBullish = "Bullish Breakout"
	BreakoutBearish = "Bearish Breakdown"
	BreakoutNone    = "No Breakout"

	CoveringCalls = "Bullish Short Covering (Calls)"
	CoveringPuts  = "Bearish Short Covering (Puts)"
	CoveringNone  = "No Short Covering"
)

// DetectWriting reads the writing structure from the net OI change per side.
func DetectWriting(ce, pe []models.ChainRow) string {
	ceChg, peChg := sumOf(ce, oiChange), sumOf(pe, oiChange)
	switch {
	case ceChg > 0 && peChg < 0:
		return StructureCallWriting
	case peChg > 0 && ceChg < 0:
		return StructurePutWriting
	case ceChg > 0 && peChg > 0:
		return StructureBothWriting
	}
	return StructureUnclear
}

func DetectTrap(spot, resistance, support float64) string {
	switch {
	case spot > resistance:
		return TrapCall
	case spot < support:
		return TrapPut
	}
	return TrapNone
}

func DetectBreakout(spot, resistance, support float64) string {
	switch {
	case spot > resistance:
		return BreakoutBullish
	case spot < support:
		return BreakoutBearish
	}
	return BreakoutNone
}

func DetectShortCovering(ce, pe []models.ChainRow) string {
	if sumOf(ce, oiChange) < 0 {
		return CoveringCalls
	}
	if sumOf(pe, oiChange) < 0 {
		return CoveringPuts
	}
	return CoveringNone
}

// DetectVolumeSpike flags ATM volume above multiplier times the chain average.
func DetectVolumeSpike(rows []models.ChainRow, atm, multiplier float64) models.VolumeSpike {
	var ceRow, peRow *models.ChainRow
	vols := make([]float64, 0, len(rows))
	for i := range rows {
		vols = append(vols, rows[i].Volume)
		if rows[i].StrikePrice != atm {
			continue
		}
		switch rows[i].OptionType {
		case models.CE:
			if ceRow == nil {
				ceRow = &rows[i]
			}
		case models.PE:
			if peRow == nil {
				peRow = &rows[i]
			}
		}
	}
	var out models.VolumeSpike
	if ceRow == nil && peRow == nil {
		return out
	}
	threshold := features.Mean(vols) * multiplier
	out.CESpike = ceRow != nil && ceRow.Volume > threshold
	out.PESpike = peRow != nil && peRow.Volume > threshold
	out.Spike = out.CESpike || out.PESpike
	return out
}
