package eventmodels

import (
	"fmt"
	"math"
)

type SurfaceModelType string

const (
	SurfaceModelRBF SurfaceModelType = "rbf"
	SurfaceModelRFV SurfaceModelType = "rfv"
)

func NewSurfaceModelType(s string) (SurfaceModelType, error) {
	switch s {
	case "rbf", "RBF":
		return SurfaceModelRBF, nil
	case "rfv", "RFV":
		return SurfaceModelRFV, nil
	default:
		return "", fmt.Errorf("NewSurfaceModelType: invalid surface model: %s", s)
	}
}

// SurfaceModel is a fitted implied volatility curve. Implementations are
// immutable once produced; a new fit supersedes the previous one.
type SurfaceModel interface {
	// Evaluate returns the model IV at log-moneyness k = ln(strike / spot).
	Evaluate(k float64) float64

	// FitResidual is the RMS deviation between the fitted curve and the
	// market IVs used to obtain it.
	FitResidual() float64

	ModelType() SurfaceModelType
}

// RBFParameters holds the fitted weights of a multiquadric radial basis
// interpolation over the observed log-moneyness grid.
type RBFParameters struct {
	Centers  []float64
	Weights  []float64
	Epsilon  float64
	Residual float64
}

func (p *RBFParameters) Evaluate(k float64) float64 {
	total := 0.0
	for i, c := range p.Centers {
		total += p.Weights[i] * Multiquadric(k-c, p.Epsilon)
	}

	return total
}

func (p *RBFParameters) FitResidual() float64 {
	return p.Residual
}

func (p *RBFParameters) ModelType() SurfaceModelType {
	return SurfaceModelRBF
}

func Multiquadric(r, epsilon float64) float64 {
	scaled := r / epsilon
	return math.Sqrt(1 + scaled*scaled)
}

// RFVParameters holds the coefficients of the rational smile
// iv(k) = (a + b*k + c*k^2) / (1 + d*k + e*k^2).
type RFVParameters struct {
	A, B, C, D, E float64
	Residual      float64
}

func (p *RFVParameters) Evaluate(k float64) float64 {
	return (p.A + p.B*k + p.C*k*k) / (1 + p.D*k + p.E*k*k)
}

func (p *RFVParameters) FitResidual() float64 {
	return p.Residual
}

func (p *RFVParameters) ModelType() SurfaceModelType {
	return SurfaceModelRFV
}
