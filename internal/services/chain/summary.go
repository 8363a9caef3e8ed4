package chain

import "github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"

// VolumeSpikeMultiplier is how far ATM volume must exceed the chain mean.
const VolumeSpikeMultiplier = 2.0

// Summarize computes the per-snapshot chain readings used by every engine.
func Summarize(snap models.Snapshot) models.ChainSummary {
	ce, pe := SplitCEPE(snap.Rows)
	totalCE, totalPE := TotalOI(ce, pe)
	resistance, support := OILevels(ce, pe)
	atm := ATMStrike(snap.Rows, snap.Spot)

	return models.ChainSummary{
		Symbol:        snap.Symbol,
		SnapshotTime:  snap.SnapshotTime,
		Spot:          snap.Spot,
		ATM:           atm,
		TotalCEOI:     totalCE,
		TotalPEOI:     totalPE,
		PCR:           PCR(totalPE, totalCE),
		Resistance:    resistance,
		Support:       support,
		MaxPain:       MaxPain(snap.Rows),
		Structure:     DetectWriting(ce, pe),
		Trap:          DetectTrap(snap.Spot, resistance, support),
		Breakout:      DetectBreakout(snap.Spot, resistance, support),
		ShortCovering: DetectShortCovering(ce, pe),
		VolumeSpike:   DetectVolumeSpike(snap.Rows, atm, VolumeSpikeMultiplier),
	}
}

// PCRNote is the one-line PCR reading shown with a decision.
func PCRNote(pcr float64) string {
	switch {
	case pcr < 0.8:
		return "Low PCR bearish"
	case pcr <= 1.2:
		return "Balanced PCR range"
	}
	return "High PCR bullish"
}

// MaxPainNote tells whether spot sits within 0.15% of max pain.
func MaxPainNote(spot, maxPain float64) string {
	den := spot
	if den < 1 {
		den = 1
	}
	d := spot - maxPain
	if d < 0 {
		d = -d
	}
	if d/den < 0.0015 {
		return "Near max pain range magnet"
	}
	return "Away from max pain"
}
