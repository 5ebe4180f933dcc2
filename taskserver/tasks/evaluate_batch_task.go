package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"fast_mcm/batcheval"
	"fast_mcm/protocol"
	"fast_mcm/utils"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/vmihailenco/msgpack/v5"
)

type EvaluateBatchTaskInput struct {
	UserId         string `json:"userId" validate:"required"`
	TargetStoreKey string `json:"targetStoreKey" validate:"required"`

	Altitude  []float64 `json:"altitude" validate:"required"`
	DayOfYear []float64 `json:"dayOfYear" validate:"required"`
	LocalTime []float64 `json:"localTime" validate:"required"`
	Latitude  []float64 `json:"latitude" validate:"required"`
	Longitude []float64 `json:"longitude" validate:"required"`
	F107      []float64 `json:"f107" validate:"required"`
	F107Mean  []float64 `json:"f107m" validate:"required"`
	Kp1       []float64 `json:"kp1" validate:"required"`
	Kp2       []float64 `json:"kp2" validate:"required"`

	ComputeWinds       bool `json:"computeWinds"`
	ComputeUncertainty bool `json:"computeUncertainty"`

	DtmDataDir string `json:"dtmDataDir"`
	UmDataDir  string `json:"umDataDir"`
}

type EvaluateBatchTaskResult struct {
	Length int `msgpack:"length" json:"length"`

	Altitude  []float64 `msgpack:"altitude"  json:"altitude"`
	DayOfYear []float64 `msgpack:"dayOfYear" json:"dayOfYear"`
	LocalTime []float64 `msgpack:"localTime" json:"localTime"`
	Latitude  []float64 `msgpack:"latitude"  json:"latitude"`
	Longitude []float64 `msgpack:"longitude" json:"longitude"`
	F107      []float64 `msgpack:"f107"      json:"f107"`
	F107Mean  []float64 `msgpack:"f107m"     json:"f107m"`
	Kp1       []float64 `msgpack:"kp1"       json:"kp1"`
	Kp2       []float64 `msgpack:"kp2"       json:"kp2"`

	Dens    []float64 `msgpack:"dens"     json:"dens"`
	Temp    []float64 `msgpack:"temp"     json:"temp"`
	Wmm     []float64 `msgpack:"wmm"      json:"wmm"`
	DH      []float64 `msgpack:"d_H"      json:"d_H"`
	DHe     []float64 `msgpack:"d_He"     json:"d_He"`
	DO      []float64 `msgpack:"d_O"      json:"d_O"`
	DN2     []float64 `msgpack:"d_N2"     json:"d_N2"`
	DO2     []float64 `msgpack:"d_O2"     json:"d_O2"`
	DN      []float64 `msgpack:"d_N"      json:"d_N"`
	Tinf    []float64 `msgpack:"tinf"     json:"tinf"`
	DensUnc []float64 `msgpack:"dens_unc" json:"dens_unc"`
	DensStd []float64 `msgpack:"dens_std" json:"dens_std"`

	XWind    []float64 `msgpack:"xwind"     json:"xwind"`
	YWind    []float64 `msgpack:"ywind"     json:"ywind"`
	XWindStd []float64 `msgpack:"xwind_std" json:"xwind_std"`
	YWindStd []float64 `msgpack:"ywind_std" json:"ywind_std"`
}

// Task that evaluates one batch of points against the MCM model
//
// Input payload struct: EvaluateBatchTaskInput
// Task result struct written to the result store: EvaluateBatchTaskResult
func (deps *TaskDeps) ProcessEvaluateBatchTask(ctx context.Context, task *asynq.Task) error {
	perfMetrics := utils.NewPerfMetrics()
	logger := slog.Default()
	prefix := "ProcessEvaluateBatchTask() - "

	logger.Debug(prefix + "entering")

	var input EvaluateBatchTaskInput
	if err := json.Unmarshal(task.Payload(), &input); err != nil {
		logger.Error(prefix+"failed to unmarshal task input", "err", err)
		return err
	}

	validate := validator.New()
	if err := validate.Struct(input); err != nil {
		logger.Error(prefix+"input validation error:", "err", err)
		return err
	}

	batchReq := batchRequestFromTaskInput(&input, deps.defaultDtmDataDir, deps.defaultUmDataDir)
	if err := batchReq.Validate(); err != nil {
		logger.Error(prefix+"inconsistent batch arrays:", "err", err)
		return err
	}
	perfMetrics.RecordLap("init")

	batchResp, err := batcheval.Run(deps.model, batchReq)
	if err != nil {
		logger.Error(prefix+"batch evaluation failed:", "err", err)
		return err
	}
	perfMetrics.RecordLap("evaluate")

	taskResult := taskResultFromBatch(batchResp)

	blobExtension := "msgpack"
	bytePayload, err := msgpack.Marshal(taskResult)
	if err != nil {
		logger.Error(prefix+"failed to encode task result as msgpack", "err", err)
		return err
	}

	resultStore := deps.resultStoreFactory.ForUser(input.UserId)

	err = resultStore.PutBytes(ctx, input.TargetStoreKey, bytePayload, "evaluateBatch", blobExtension)
	if err != nil {
		logger.Error(prefix+"failed to write result to result store", "err", err)
		return err
	}
	perfMetrics.RecordLap("store")

	payloadSizeMB := float32(len(bytePayload)) / (1024 * 1024)
	logger.Info(prefix + fmt.Sprintf("task completed in %s (numPoints=%d, resultPayload=%.2fMB)", perfMetrics.ToString(true), batchReq.Length, payloadSizeMB))

	return nil
}

func batchRequestFromTaskInput(input *EvaluateBatchTaskInput, defaultDtmDataDir string, defaultUmDataDir string) *protocol.BatchRequest {
	req := &protocol.BatchRequest{
		Length:             len(input.Altitude),
		Altitude:           input.Altitude,
		DayOfYear:          input.DayOfYear,
		LocalTime:          input.LocalTime,
		Latitude:           input.Latitude,
		Longitude:          input.Longitude,
		F107:               input.F107,
		F107Mean:           input.F107Mean,
		Kp1:                input.Kp1,
		Kp2:                input.Kp2,
		ComputeWinds:       input.ComputeWinds,
		ComputeUncertainty: input.ComputeUncertainty,
		DtmDataDir:         input.DtmDataDir,
		UmDataDir:          input.UmDataDir,
	}

	if req.DtmDataDir == "" {
		req.DtmDataDir = defaultDtmDataDir
	}
	if req.UmDataDir == "" {
		req.UmDataDir = defaultUmDataDir
	}

	return req
}

func taskResultFromBatch(batchResp *protocol.BatchResponse) *EvaluateBatchTaskResult {
	req := batchResp.Request

	return &EvaluateBatchTaskResult{
		Length:    req.Length,
		Altitude:  req.Altitude,
		DayOfYear: req.DayOfYear,
		LocalTime: req.LocalTime,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		F107:      req.F107,
		F107Mean:  req.F107Mean,
		Kp1:       req.Kp1,
		Kp2:       req.Kp2,
		Dens:      batchResp.Dens,
		Temp:      batchResp.Temp,
		Wmm:       batchResp.Wmm,
		DH:        batchResp.DH,
		DHe:       batchResp.DHe,
		DO:        batchResp.DO,
		DN2:       batchResp.DN2,
		DO2:       batchResp.DO2,
		DN:        batchResp.DN,
		Tinf:      batchResp.Tinf,
		DensUnc:   batchResp.DensUnc,
		DensStd:   batchResp.DensStd,
		XWind:     batchResp.XWind,
		YWind:     batchResp.YWind,
		XWindStd:  batchResp.XWindStd,
		YWindStd:  batchResp.YWindStd,
	}
}
