package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "go.uber.org/automaxprocs"

	_ "github.com/joho/godotenv/autoload"

	"fast_mcm/batcheval"
	"fast_mcm/httpbridge"
	"fast_mcm/httpserver"
	"fast_mcm/mcm"
	"fast_mcm/pipe"
	"fast_mcm/protocol"
	"fast_mcm/taskserver"

	"github.com/lmittmann/tint"
)

// Exit codes of the pipe mode. Each error class must surface as a
// distinguishable failure so the caller never mistakes a failed run for a
// truncated response.
const (
	exitCodeFormatError = 2
	exitCodeInitError   = 3
	exitCodeEvalError   = 4
)

func main() {
	// Stdout carries the batch response in pipe mode, so all logging goes to stderr
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelInfo, TimeFormat: time.TimeOnly}))
	slog.SetDefault(logger)

	mode := "pipe"
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	switch mode {
	case "pipe":
		runPipe(logger)
	case "server":
		httpserver.Run()
	case "taskserver":
		taskserver.Run()
	case "bridge":
		httpbridge.Run()
	default:
		fmt.Fprintf(os.Stderr, "usage: %s [pipe|server|taskserver|bridge]\n", os.Args[0])
		os.Exit(1)
	}
}

func runPipe(logger *slog.Logger) {
	err := pipe.Run(os.Stdin, os.Stdout, mcm.NewSurrogateModel())
	if err == nil {
		return
	}

	logger.Error("batch run failed", "err", err)

	var formatErr *protocol.FormatError
	var initErr *mcm.InitError
	var pointErr *batcheval.PointError
	switch {
	case errors.As(err, &formatErr):
		os.Exit(exitCodeFormatError)
	case errors.As(err, &initErr):
		os.Exit(exitCodeInitError)
	case errors.As(err, &pointErr):
		os.Exit(exitCodeEvalError)
	default:
		os.Exit(1)
	}
}
