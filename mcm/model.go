// Package mcm defines the contract of the MCM atmospheric model as the
// harness consumes it: a one-time, dataset-loading initialization followed by
// pure per-point evaluations. The numerical internals of the model are opaque
// to the rest of the repository.
package mcm

import "fmt"

// PointInput carries the nine scalar physical inputs for one evaluation.
// The two geomagnetic indices travel as a pair, matching the model's calling
// convention.
type PointInput struct {
	AltitudeKm     float64
	DayOfYear      float64
	LocalTimeHours float64
	LatitudeDeg    float64
	LongitudeDeg   float64
	F107           float64 // instantaneous F10.7 solar flux
	F107Mean       float64 // 81-day mean F10.7
	Kp             [2]float64
}

// OutputFlags selects the optional output groups for a whole batch.
type OutputFlags struct {
	ComputeWinds       bool
	ComputeUncertainty bool
}

// ResultBundle is the fixed 16-field result of one point evaluation. Fields
// belonging to an output group whose flag was off are left at zero.
type ResultBundle struct {
	Dens float64 // total mass density [g/cm3]
	Temp float64 // temperature at altitude [K]
	Wmm  float64 // mean molecular mass [g/mol]

	// Species number densities [1/cm3]
	DH  float64
	DHe float64
	DO  float64
	DN2 float64
	DO2 float64
	DN  float64

	Tinf float64 // exospheric temperature [K]

	DensUnc float64 // relative density uncertainty [%]
	DensStd float64 // density standard deviation [g/cm3]

	XWind    float64 // zonal wind [m/s]
	YWind    float64 // meridional wind [m/s]
	XWindStd float64
	YWindStd float64
}

// Evaluator is the opaque point-evaluation capability.
//
// Initialize loads the reference datasets and must succeed before the first
// Evaluate call. It is invoked once per batch; implementations treat repeated
// calls with identical paths as a no-op. Evaluate is not safe for concurrent
// use, the state established by Initialize is shared.
type Evaluator interface {
	Initialize(dtmDataDir, umDataDir string) error
	Evaluate(in PointInput, flags OutputFlags) (ResultBundle, error)
}

// InitError reports a failed dataset load. It is fatal for the whole batch.
type InitError struct {
	DtmDataDir string
	UmDataDir  string
	Err        error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("model initialization failed (dtm=%s, um=%s): %v", e.DtmDataDir, e.UmDataDir, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// EvalError reports a point whose inputs fall outside the model's valid
// domain.
type EvalError struct {
	Quantity string
	Value    float64
	Msg      string
}

func (e *EvalError) Error() string {
	if e.Quantity == "" {
		return "evaluation failed: " + e.Msg
	}

	return fmt.Sprintf("evaluation failed: %s=%g %s", e.Quantity, e.Value, e.Msg)
}
