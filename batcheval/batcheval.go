// Package batcheval drives the evaluation of one batch request: a single
// model initialization followed by one evaluation per point, in strict index
// order.
package batcheval

import (
	"fmt"
	"log/slog"

	"fast_mcm/mcm"
	"fast_mcm/protocol"
	"fast_mcm/utils"
)

// PointError identifies the batch index whose evaluation failed. The wire
// protocol has no per-point status channel, so the first failing point aborts
// the remaining batch and no response is produced.
type PointError struct {
	Index int // zero-based index into the batch
	Err   error
}

func (e *PointError) Error() string {
	return fmt.Sprintf("evaluation failed at batch index %d: %v", e.Index, e.Err)
}

func (e *PointError) Unwrap() error {
	return e.Err
}

// Run evaluates a whole batch against the model.
//
// The expensive dataset initialization runs exactly once regardless of batch
// size - that amortization is the entire point of batching. The per-point
// loop is sequential and index-ascending; the model's internal state is not
// safe for concurrent evaluation and consecutive nearby inputs may benefit
// from model-internal caching.
func Run(ev mcm.Evaluator, req *protocol.BatchRequest) (*protocol.BatchResponse, error) {
	logger := slog.Default()
	prefix := "batcheval.Run() - "
	perfMetrics := utils.NewPerfMetrics()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	if err := ev.Initialize(req.DtmDataDir, req.UmDataDir); err != nil {
		return nil, fmt.Errorf("model initialization failed: %w", err)
	}
	perfMetrics.RecordLap("init")

	resp := protocol.NewBatchResponse(req)
	flags := mcm.OutputFlags{
		ComputeWinds:       req.ComputeWinds,
		ComputeUncertainty: req.ComputeUncertainty,
	}

	for i := 0; i < req.Length; i++ {
		in := mcm.PointInput{
			AltitudeKm:     req.Altitude[i],
			DayOfYear:      req.DayOfYear[i],
			LocalTimeHours: req.LocalTime[i],
			LatitudeDeg:    req.Latitude[i],
			LongitudeDeg:   req.Longitude[i],
			F107:           req.F107[i],
			F107Mean:       req.F107Mean[i],
			Kp:             [2]float64{req.Kp1[i], req.Kp2[i]},
		}

		res, err := ev.Evaluate(in, flags)
		if err != nil {
			return nil, &PointError{Index: i, Err: err}
		}

		setPoint(resp, i, res)
	}
	perfMetrics.RecordLap("evaluate")

	logger.Info(prefix + fmt.Sprintf("evaluated %d points in %s", req.Length, perfMetrics.ToString(true)))

	return resp, nil
}

func setPoint(resp *protocol.BatchResponse, i int, res mcm.ResultBundle) {
	resp.Dens[i] = res.Dens
	resp.Temp[i] = res.Temp
	resp.Wmm[i] = res.Wmm
	resp.DH[i] = res.DH
	resp.DHe[i] = res.DHe
	resp.DO[i] = res.DO
	resp.DN2[i] = res.DN2
	resp.DO2[i] = res.DO2
	resp.DN[i] = res.DN
	resp.Tinf[i] = res.Tinf
	resp.DensUnc[i] = res.DensUnc
	resp.DensStd[i] = res.DensStd
	resp.XWind[i] = res.XWind
	resp.YWind[i] = res.YWind
	resp.XWindStd[i] = res.XWindStd
	resp.YWindStd[i] = res.YWindStd
}
