// Package pipe implements the stdin/stdout compute-process mode: one batch
// request in, one batch response out, then exit.
package pipe

import (
	"fmt"
	"io"
	"log/slog"

	"fast_mcm/batcheval"
	"fast_mcm/mcm"
	"fast_mcm/protocol"
	"fast_mcm/utils"
)

// Run reads one batch request from r, evaluates it and writes the response to
// w. Nothing is written to w unless the whole batch evaluated successfully, so
// the caller never has to deal with a truncated response.
func Run(r io.Reader, w io.Writer, ev mcm.Evaluator) error {
	logger := slog.Default()
	prefix := "pipe.Run() - "
	perfMetrics := utils.NewPerfMetrics()

	req, err := protocol.ReadBatchRequest(r)
	if err != nil {
		return fmt.Errorf("failed to read batch request: %w", err)
	}
	perfMetrics.RecordLap("read")

	logger.Debug(prefix + fmt.Sprintf("read batch request with %d points (winds=%v, uncertainty=%v)", req.Length, req.ComputeWinds, req.ComputeUncertainty))

	resp, err := batcheval.Run(ev, req)
	if err != nil {
		return err
	}
	perfMetrics.RecordLap("evaluate")

	if err := protocol.WriteBatchResponse(w, resp); err != nil {
		return fmt.Errorf("failed to write batch response: %w", err)
	}
	perfMetrics.RecordLap("write")

	logger.Info(prefix + fmt.Sprintf("batch of %d points completed in %s", req.Length, perfMetrics.ToString(true)))

	return nil
}
