package mcm

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
)

// SurrogateModel is a deterministic, pure-Go stand-in for the native MCM
// library, used in builds where the Fortran model is not linked and in tests.
// It honors the full Evaluator contract: dataset directories must exist at
// Initialize, evaluation rejects inputs outside the MCM domain, and identical
// inputs always produce identical outputs.
//
// The values themselves come from a simple analytic thermosphere (Bates
// temperature profile, per-species hydrostatic falloff) and carry no physical
// authority.
type SurrogateModel struct {
	mu          sync.Mutex
	initialized bool
	dtmDataDir  string
	umDataDir   string
}

func NewSurrogateModel() *SurrogateModel {
	return &SurrogateModel{}
}

// Initialize checks both dataset directories and latches the model state.
// A second call with the same paths is a no-op, a second call with different
// paths is an error - the loaded state cannot be swapped out mid-process.
func (m *SurrogateModel) Initialize(dtmDataDir, umDataDir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		if dtmDataDir == m.dtmDataDir && umDataDir == m.umDataDir {
			return nil
		}

		return &InitError{
			DtmDataDir: dtmDataDir,
			UmDataDir:  umDataDir,
			Err:        errors.New("model already initialized with different dataset directories"),
		}
	}

	for _, dir := range []string{dtmDataDir, umDataDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return &InitError{DtmDataDir: dtmDataDir, UmDataDir: umDataDir, Err: err}
		}
		if !info.IsDir() {
			return &InitError{
				DtmDataDir: dtmDataDir,
				UmDataDir:  umDataDir,
				Err:        fmt.Errorf("dataset path is not a directory: %s", dir),
			}
		}
	}

	m.dtmDataDir = dtmDataDir
	m.umDataDir = umDataDir
	m.initialized = true

	return nil
}

// Model domain limits, matching the documented MCM input ranges.
const (
	maxAltitudeKm = 1500.0
	maxKpIndex    = 9.0
)

func (m *SurrogateModel) Evaluate(in PointInput, flags OutputFlags) (ResultBundle, error) {
	m.mu.Lock()
	initialized := m.initialized
	m.mu.Unlock()

	if !initialized {
		return ResultBundle{}, &EvalError{Msg: "model not initialized"}
	}

	if err := checkDomain(in); err != nil {
		return ResultBundle{}, err
	}

	return evaluateAnalytic(in, flags), nil
}

func checkDomain(in PointInput) error {
	switch {
	case in.AltitudeKm < 0 || in.AltitudeKm > maxAltitudeKm:
		return &EvalError{Quantity: "altitude", Value: in.AltitudeKm, Msg: fmt.Sprintf("outside model domain [0, %g] km", maxAltitudeKm)}
	case in.DayOfYear < 0 || in.DayOfYear > 366:
		return &EvalError{Quantity: "day_of_year", Value: in.DayOfYear, Msg: "outside model domain [0, 366]"}
	case in.LocalTimeHours < 0 || in.LocalTimeHours > 24:
		return &EvalError{Quantity: "local_time", Value: in.LocalTimeHours, Msg: "outside model domain [0, 24] hours"}
	case in.LatitudeDeg < -90 || in.LatitudeDeg > 90:
		return &EvalError{Quantity: "latitude", Value: in.LatitudeDeg, Msg: "outside model domain [-90, 90] degrees"}
	case in.LongitudeDeg < 0 || in.LongitudeDeg > 360:
		return &EvalError{Quantity: "longitude", Value: in.LongitudeDeg, Msg: "outside model domain [0, 360] degrees"}
	case in.F107 <= 0 || in.F107Mean <= 0:
		return &EvalError{Quantity: "f107", Value: in.F107, Msg: "solar flux must be positive"}
	case in.Kp[0] < 0 || in.Kp[0] > maxKpIndex:
		return &EvalError{Quantity: "kp1", Value: in.Kp[0], Msg: fmt.Sprintf("outside model domain [0, %g]", maxKpIndex)}
	case in.Kp[1] < 0 || in.Kp[1] > maxKpIndex:
		return &EvalError{Quantity: "kp2", Value: in.Kp[1], Msg: fmt.Sprintf("outside model domain [0, %g]", maxKpIndex)}
	}

	return nil
}

// Species constants: molar mass [g/mol] and reference number density [1/cm3]
// at the 120 km base altitude.
var species = []struct {
	molarMass float64
	baseDens  float64
}{
	{1.008, 3.0e7},   // H
	{4.0026, 3.4e7},  // He
	{15.999, 7.6e10}, // O
	{28.014, 4.0e11}, // N2
	{31.998, 7.5e10}, // O2
	{14.007, 4.3e9},  // N
}

const (
	avogadro        = 6.02214076e23
	gasConstant     = 8.31446 // [J/(mol K)]
	baseAltitudeKm  = 120.0
	baseTemperature = 380.0 // [K] at the base altitude
)

func evaluateAnalytic(in PointInput, flags OutputFlags) ResultBundle {
	latRad := in.LatitudeDeg * math.Pi / 180
	lonRad := in.LongitudeDeg * math.Pi / 180

	// Exospheric temperature driven by solar flux, geomagnetic activity and a
	// diurnal/seasonal modulation
	kpMean := (in.Kp[0] + in.Kp[1]) / 2
	tinf := 680 + 3.2*(in.F107Mean-70) + 1.9*(in.F107-in.F107Mean) + 26*kpMean
	tinf *= 1 + 0.12*math.Cos(latRad)*math.Cos(2*math.Pi*(in.LocalTimeHours-14)/24)
	tinf *= 1 + 0.03*math.Cos(2*math.Pi*(in.DayOfYear-27)/365.25)

	// Bates profile above the base altitude, shallow linear decay below it
	var temp float64
	if in.AltitudeKm >= baseAltitudeKm {
		temp = tinf - (tinf-baseTemperature)*math.Exp(-0.018*(in.AltitudeKm-baseAltitudeKm))
	} else {
		temp = baseTemperature - 1.6*(baseAltitudeKm-in.AltitudeKm)
	}

	res := ResultBundle{Temp: temp, Tinf: tinf}

	// Hydrostatic falloff per species with temperature-dependent scale height
	gravity := 9.5 // [m/s2] representative value for thermospheric altitudes
	var numDensSum, massDensSum float64
	numDens := make([]float64, len(species))
	for i, sp := range species {
		scaleHeightKm := gasConstant * temp / (sp.molarMass * 1e-3 * gravity) / 1000
		numDens[i] = sp.baseDens * math.Exp(-(in.AltitudeKm-baseAltitudeKm)/scaleHeightKm)
		numDensSum += numDens[i]
		massDensSum += numDens[i] * sp.molarMass
	}

	res.DH = numDens[0]
	res.DHe = numDens[1]
	res.DO = numDens[2]
	res.DN2 = numDens[3]
	res.DO2 = numDens[4]
	res.DN = numDens[5]

	res.Dens = massDensSum / avogadro
	res.Wmm = massDensSum / numDensSum

	if flags.ComputeUncertainty {
		res.DensUnc = 4.5 + 1.8*kpMean + 0.004*in.AltitudeKm
		res.DensStd = res.Dens * res.DensUnc / 100
	}

	if flags.ComputeWinds {
		res.XWind = -62*math.Sin(latRad)*math.Sin(2*math.Pi*in.LocalTimeHours/24) + 9*math.Sin(lonRad)
		res.YWind = 38*math.Cos(latRad)*math.Cos(2*math.Pi*(in.LocalTimeHours-3)/24) + 12*kpMean
		res.XWindStd = 14 + 0.15*math.Abs(res.XWind)
		res.YWindStd = 14 + 0.15*math.Abs(res.YWind)
	}

	return res
}
