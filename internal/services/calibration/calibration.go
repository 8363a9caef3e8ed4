// Package calibration maps raw heuristic probabilities onto observed hit
// rates with a blend of Platt scaling and isotonic regression.
package calibration

import (
	"math"
	"slices"
	"sort"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/services/features"
)

const (
	DefaultMinSamples = 30

	plattIterations = 200
	plattRate       = 0.1
	plattWeight     = 0.6
	isotonicWeight  = 0.4
	logitEps        = 1e-5
	minProb         = 0.01
	maxProb         = 0.99
	neutralProb     = 0.5
)

// Block is one step of the isotonic fit: samples in [XMin, XMax] map to Mean.
type Block struct {
	XMin float64
	XMax float64
	Mean float64
}

func sigmoid(z float64) float64 {
	if z > 20 {
		return 1
	}
	if z < -20 {
		return 0
	}
	return 1 / (1 + math.Exp(-z))
}

func logit(p float64) float64 {
	return math.Log(p / (1 - p))
}

// FitPlatt fits sigmoid(a*logit(p)+b) by batch gradient descent.
func FitPlatt(samples []models.CalibrationSample) (a, b float64) {
	a, b = 1.0, 0.0
	n := float64(max(1, len(samples)))
	for range plattIterations {
		var da, db float64
		for _, s := range samples {
			x := logit(features.Clamp(s.RawProbability, logitEps, 1-logitEps))
			err := sigmoid(a*x+b) - float64(s.Outcome)
			da += err * x
			db += err
		}
		a -= plattRate * (da / n)
		b -= plattRate * (db / n)
	}
	return a, b
}

// FitIsotonic runs pool-adjacent-violators over samples sorted by raw
// probability. Block means are nondecreasing.
func FitIsotonic(samples []models.CalibrationSample) []Block {
	points := make([]models.CalibrationSample, len(samples))
	copy(points, samples)
	sort.SliceStable(points, func(i, j int) bool {
		if points[i].RawProbability != points[j].RawProbability {
			return points[i].RawProbability < points[j].RawProbability
		}
		return points[i].Outcome < points[j].Outcome
	})

	type pool struct {
		xMin, xMax, sum, count float64
	}
	pools := make([]pool, 0, len(points))
	for _, p := range points {
		pools = append(pools, pool{p.RawProbability, p.RawProbability, float64(p.Outcome), 1})
		for len(pools) >= 2 {
			b1, b2 := pools[len(pools)-2], pools[len(pools)-1]
			if b1.sum/b1.count <= b2.sum/b2.count {
				break
			}
			pools = append(pools[:len(pools)-2], pool{b1.xMin, b2.xMax, b1.sum + b2.sum, b1.count + b2.count})
		}
	}

	blocks := make([]Block, len(pools))
	for i, p := range pools {
		blocks[i] = Block{XMin: p.xMin, XMax: p.xMax, Mean: p.sum / p.count}
	}
	return blocks
}

// ApplyIsotonic looks p up in the step function, clamping to the nearest
// boundary block outside the fitted range.
func ApplyIsotonic(blocks []Block, p float64) float64 {
	if len(blocks) == 0 {
		return p
	}
	p = features.Clamp(p, 0, 1)
	for _, b := range blocks {
		if b.XMin <= p && p <= b.XMax {
			return features.Clamp(b.Mean, 0, 1)
		}
	}
	if p < blocks[0].XMin {
		return features.Clamp(blocks[0].Mean, 0, 1)
	}
	return features.Clamp(blocks[len(blocks)-1].Mean, 0, 1)
}

// bounded clamps raw into [minProb, maxProb]; NaN maps to a coin flip.
func bounded(raw float64) float64 {
	if math.IsNaN(raw) {
		return neutralProb
	}
	return features.Clamp(raw, minProb, maxProb)
}

// Identity passes the probability through when calibration is switched off.
func Identity(raw float64) models.CalibratedProbability {
	return models.CalibratedProbability{
		Method:                models.CalibrationIdentity,
		CalibratedProbability: bounded(raw),
	}
}

// Calibrate returns the blended calibrated probability, or the clamped raw
// probability when fewer than minSamples samples are available. A NaN raw
// probability is treated as 0.5; samples with a NaN raw probability are
// ignored.
func Calibrate(raw float64, samples []models.CalibrationSample, minSamples int) models.CalibratedProbability {
	p := bounded(raw)
	samples = slices.DeleteFunc(slices.Clone(samples), func(s models.CalibrationSample) bool {
		return math.IsNaN(s.RawProbability)
	})
	required := max(1, minSamples)
	if len(samples) < required {
		return models.CalibratedProbability{
			Method:                models.CalibrationInsufficientSamples,
			CalibratedProbability: p,
			SampleSize:            len(samples),
			MinSamplesRequired:    required,
		}
	}

	a, b := FitPlatt(samples)
	platt := sigmoid(a*logit(p) + b)
	iso := ApplyIsotonic(FitIsotonic(samples), p)

	return models.CalibratedProbability{
		Method:                models.CalibrationPlattIsotonicBlend,
		CalibratedProbability: features.Clamp(plattWeight*platt+isotonicWeight*iso, minProb, maxProb),
		SampleSize:            len(samples),
		Platt:                 &platt,
		Isotonic:              &iso,
	}
}
