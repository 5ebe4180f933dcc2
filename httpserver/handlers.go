package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"fast_mcm/batcheval"
	"fast_mcm/mcm"
	"fast_mcm/protocol"
	"fast_mcm/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type evaluateBatchRequest struct {
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

	// Optional overrides of the server's default dataset directories
	DtmDataDir string `json:"dtmDataDir"`
	UmDataDir  string `json:"umDataDir"`
}

type evaluateBatchResponse struct {
	Length int `json:"length"`

	Altitude  []float64 `json:"altitude"`
	DayOfYear []float64 `json:"dayOfYear"`
	LocalTime []float64 `json:"localTime"`
	Latitude  []float64 `json:"latitude"`
	Longitude []float64 `json:"longitude"`
	F107      []float64 `json:"f107"`
	F107Mean  []float64 `json:"f107m"`
	Kp1       []float64 `json:"kp1"`
	Kp2       []float64 `json:"kp2"`

	Dens    []float64 `json:"dens"`
	Temp    []float64 `json:"temp"`
	Wmm     []float64 `json:"wmm"`
	DH      []float64 `json:"d_H"`
	DHe     []float64 `json:"d_He"`
	DO      []float64 `json:"d_O"`
	DN2     []float64 `json:"d_N2"`
	DO2     []float64 `json:"d_O2"`
	DN      []float64 `json:"d_N"`
	Tinf    []float64 `json:"tinf"`
	DensUnc []float64 `json:"dens_unc"`
	DensStd []float64 `json:"dens_std"`

	XWind    []float64 `json:"xwind"`
	YWind    []float64 `json:"ywind"`
	XWindStd []float64 `json:"xwind_std"`
	YWindStd []float64 `json:"ywind_std"`
}

type EvalHandlers struct {
	model             mcm.Evaluator
	defaultDtmDataDir string
	defaultUmDataDir  string

	// The model's state is not safe for concurrent evaluation, so requests are
	// serialized here
	evalMutex sync.Mutex
}

func NewEvalHandlers(model mcm.Evaluator, defaultDtmDataDir string, defaultUmDataDir string) *EvalHandlers {
	return &EvalHandlers{
		model:             model,
		defaultDtmDataDir: defaultDtmDataDir,
		defaultUmDataDir:  defaultUmDataDir,
	}
}

func (h *EvalHandlers) MapRoutes(router *gin.Engine) {
	router.GET("/", h.handleRoot)
	router.POST("/evaluate", h.handleEvaluateBatch)
}

func (h *EvalHandlers) handleRoot(c *gin.Context) {
	c.String(http.StatusOK, fmt.Sprintf("MCM batch evaluation server is alive at %v", time.Now().Format(time.RFC3339)))
}

func (h *EvalHandlers) handleEvaluateBatch(c *gin.Context) {
	perfMetrics := utils.NewPerfMetrics()
	logger := slog.Default()
	prefix := "handleEvaluateBatch - "

	var reqBody evaluateBatchRequest
	if err := c.ShouldBindJSON(&reqBody); err != nil {
		logger.Error(prefix+"failed to parse request body", "err", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	validate := validator.New()
	if err := validate.Struct(reqBody); err != nil {
		logger.Error(prefix+"request validation error:", "err", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	batchReq := batchRequestFromBody(&reqBody, h.defaultDtmDataDir, h.defaultUmDataDir)
	if err := batchReq.Validate(); err != nil {
		logger.Error(prefix+"inconsistent batch arrays:", "err", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	perfMetrics.RecordLap("parse")

	h.evalMutex.Lock()
	batchResp, err := batcheval.Run(h.model, batchReq)
	h.evalMutex.Unlock()
	perfMetrics.RecordLap("evaluate")

	if err != nil {
		var initErr *mcm.InitError
		var pointErr *batcheval.PointError

		switch {
		case errors.As(err, &initErr):
			logger.Error(prefix+"model initialization failed", "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		case errors.As(err, &pointErr):
			logger.Error(prefix+"point evaluation failed", "index", pointErr.Index, "err", err)
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "index": pointErr.Index})
		default:
			logger.Error(prefix+"batch evaluation failed", "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, responseBodyFromBatch(batchResp))

	logger.Info(prefix + fmt.Sprintf("evaluated %d points in %s", batchReq.Length, perfMetrics.ToString(true)))
}

func batchRequestFromBody(body *evaluateBatchRequest, defaultDtmDataDir string, defaultUmDataDir string) *protocol.BatchRequest {
	req := &protocol.BatchRequest{
		Length:             len(body.Altitude),
		Altitude:           body.Altitude,
		DayOfYear:          body.DayOfYear,
		LocalTime:          body.LocalTime,
		Latitude:           body.Latitude,
		Longitude:          body.Longitude,
		F107:               body.F107,
		F107Mean:           body.F107Mean,
		Kp1:                body.Kp1,
		Kp2:                body.Kp2,
		ComputeWinds:       body.ComputeWinds,
		ComputeUncertainty: body.ComputeUncertainty,
		DtmDataDir:         body.DtmDataDir,
		UmDataDir:          body.UmDataDir,
	}

	if req.DtmDataDir == "" {
		req.DtmDataDir = defaultDtmDataDir
	}
	if req.UmDataDir == "" {
		req.UmDataDir = defaultUmDataDir
	}

	return req
}

func responseBodyFromBatch(batchResp *protocol.BatchResponse) *evaluateBatchResponse {
	req := batchResp.Request

	return &evaluateBatchResponse{
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
