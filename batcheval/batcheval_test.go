package batcheval

import (
	"errors"
	"testing"

	"fast_mcm/mcm"
	"fast_mcm/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEvaluator records initialization and evaluation calls and can be told
// to fail at a specific batch index.
type fakeEvaluator struct {
	initCalls      int
	initErr        error
	evaluatedInput []mcm.PointInput
	failAtCall     int // 1-based call number to fail on, 0 disables
}

func (f *fakeEvaluator) Initialize(dtmDataDir, umDataDir string) error {
	f.initCalls++
	return f.initErr
}

func (f *fakeEvaluator) Evaluate(in mcm.PointInput, flags mcm.OutputFlags) (mcm.ResultBundle, error) {
	f.evaluatedInput = append(f.evaluatedInput, in)

	if f.failAtCall > 0 && len(f.evaluatedInput) == f.failAtCall {
		return mcm.ResultBundle{}, &mcm.EvalError{Quantity: "altitude", Value: in.AltitudeKm, Msg: "outside model domain"}
	}

	// Deterministic output derived from the inputs so index alignment is checkable
	return mcm.ResultBundle{
		Dens: in.AltitudeKm * 2,
		Temp: in.LatitudeDeg + 500,
		Tinf: in.Kp[0]*10 + in.Kp[1],
	}, nil
}

func makeRequest(length int) *protocol.BatchRequest {
	mono := func(start float64) []float64 {
		vals := make([]float64, length)
		for i := range vals {
			vals[i] = start + float64(i)
		}
		return vals
	}

	return &protocol.BatchRequest{
		Length:     length,
		Altitude:   mono(100),
		DayOfYear:  mono(10),
		LocalTime:  mono(1),
		Latitude:   mono(-40),
		Longitude:  mono(20),
		F107:       mono(140),
		F107Mean:   mono(145),
		Kp1:        mono(2),
		Kp2:        mono(3),
		DtmDataDir: "/data/dtm/",
		UmDataDir:  "/data/um/",
	}
}

func TestRun_InitializeExactlyOnce(t *testing.T) {
	fake := &fakeEvaluator{}

	resp, err := Run(fake, makeRequest(50))
	require.NoError(t, err)

	assert.Equal(t, 1, fake.initCalls)
	assert.Len(t, fake.evaluatedInput, 50)
	assert.Len(t, resp.Dens, 50)
}

func TestRun_IndexAscendingOrderAndAlignment(t *testing.T) {
	fake := &fakeEvaluator{}
	req := makeRequest(10)

	resp, err := Run(fake, req)
	require.NoError(t, err)

	for i := 0; i < req.Length; i++ {
		// Evaluations happen in index order with the right per-point inputs
		assert.Equal(t, req.Altitude[i], fake.evaluatedInput[i].AltitudeKm)
		assert.Equal(t, [2]float64{req.Kp1[i], req.Kp2[i]}, fake.evaluatedInput[i].Kp)

		// Outputs land at the same index
		assert.Equal(t, req.Altitude[i]*2, resp.Dens[i])
		assert.Equal(t, req.Latitude[i]+500, resp.Temp[i])
	}
}

func TestRun_AllOutputArraysMatchLength(t *testing.T) {
	fake := &fakeEvaluator{}
	req := makeRequest(7)

	resp, err := Run(fake, req)
	require.NoError(t, err)

	for _, arr := range [][]float64{
		resp.Dens, resp.Temp, resp.Wmm, resp.DH, resp.DHe, resp.DO,
		resp.DN2, resp.DO2, resp.DN, resp.Tinf, resp.DensUnc, resp.DensStd,
		resp.XWind, resp.YWind, resp.XWindStd, resp.YWindStd,
	} {
		assert.Len(t, arr, req.Length)
	}
}

func TestRun_InitFailureAbortsBeforeEvaluation(t *testing.T) {
	fake := &fakeEvaluator{initErr: &mcm.InitError{DtmDataDir: "/bad", UmDataDir: "/bad", Err: errors.New("no such dataset")}}

	resp, err := Run(fake, makeRequest(5))

	require.Nil(t, resp)
	var initErr *mcm.InitError
	require.ErrorAs(t, err, &initErr)
	assert.Empty(t, fake.evaluatedInput)
}

func TestRun_PointFailureAbortsRemainingBatch(t *testing.T) {
	fake := &fakeEvaluator{failAtCall: 3}

	resp, err := Run(fake, makeRequest(10))

	require.Nil(t, resp)

	var pointErr *PointError
	require.ErrorAs(t, err, &pointErr)
	assert.Equal(t, 2, pointErr.Index)

	var evalErr *mcm.EvalError
	assert.ErrorAs(t, err, &evalErr)

	// The loop stopped at the failing point
	assert.Len(t, fake.evaluatedInput, 3)
}

func TestRun_RejectsMismatchedArraysBeforeInit(t *testing.T) {
	fake := &fakeEvaluator{}
	req := makeRequest(5)
	req.Longitude = req.Longitude[:3]

	_, err := Run(fake, req)

	var formatErr *protocol.FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, "longitude", formatErr.Field)
	assert.Zero(t, fake.initCalls)
}

func TestRun_BatchingEquivalence(t *testing.T) {
	// A batch of n points yields the same outputs as n batches of one point
	dtmDir := t.TempDir()
	umDir := t.TempDir()

	req := makeRequest(6)
	req.DtmDataDir = dtmDir
	req.UmDataDir = umDir
	req.ComputeWinds = true
	req.ComputeUncertainty = true

	batchResp, err := Run(mcm.NewSurrogateModel(), req)
	require.NoError(t, err)

	for i := 0; i < req.Length; i++ {
		single := &protocol.BatchRequest{
			Length:             1,
			Altitude:           req.Altitude[i : i+1],
			DayOfYear:          req.DayOfYear[i : i+1],
			LocalTime:          req.LocalTime[i : i+1],
			Latitude:           req.Latitude[i : i+1],
			Longitude:          req.Longitude[i : i+1],
			F107:               req.F107[i : i+1],
			F107Mean:           req.F107Mean[i : i+1],
			Kp1:                req.Kp1[i : i+1],
			Kp2:                req.Kp2[i : i+1],
			ComputeWinds:       true,
			ComputeUncertainty: true,
			DtmDataDir:         dtmDir,
			UmDataDir:          umDir,
		}

		singleResp, err := Run(mcm.NewSurrogateModel(), single)
		require.NoError(t, err)

		assert.Equal(t, batchResp.Dens[i], singleResp.Dens[0], "index %d", i)
		assert.Equal(t, batchResp.Temp[i], singleResp.Temp[0], "index %d", i)
		assert.Equal(t, batchResp.XWind[i], singleResp.XWind[0], "index %d", i)
		assert.Equal(t, batchResp.DensStd[i], singleResp.DensStd[0], "index %d", i)
	}
}
