// Package taskserver runs batch evaluations as queued asynq tasks, with
// results written to the redis+blob temp result store.
package taskserver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fast_mcm/mcm"
	"fast_mcm/taskserver/tasks"
	"fast_mcm/utils"

	"github.com/hibiken/asynq"
)

func Run() {
	logger := slog.Default()

	logger.Info("Starting MCM batch evaluation task server...")

	var cfg Config
	if err := LoadConfig(&cfg); err != nil {
		logger.Error("failed to load config from environment variables:", "err", err)
		os.Exit(1)
	}
	logger.Info(fmt.Sprintf("RedisUrl=%v", cfg.RedisUrl))

	dtmDataDir := cfg.DtmDataDir
	umDataDir := cfg.UmDataDir

	// Worker deployments may pull the reference datasets from blob storage
	// instead of baking them into the image
	if cfg.DatasetBlobPrefix != "" {
		fetcher := utils.NewDatasetFetcher(cfg.AzureStorageConnectionString, cfg.AzureStorageContainerName)

		fetchCtx, fetchCancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer fetchCancel()

		numFiles, err := fetcher.FetchDatasetDir(fetchCtx, cfg.DatasetBlobPrefix, cfg.DatasetCacheDir)
		if err != nil {
			logger.Error("failed to fetch reference datasets from blob storage", "err", err)
			os.Exit(1)
		}
		logger.Info(fmt.Sprintf("Fetched %d dataset files from blob prefix %s into %s", numFiles, cfg.DatasetBlobPrefix, cfg.DatasetCacheDir))

		dtmDataDir = cfg.DatasetCacheDir + "/"
		umDataDir = cfg.DatasetCacheDir + "/um/"
	}

	resultStoreFactory := utils.NewTempResultStoreFactory(cfg.RedisUrl, cfg.AzureStorageConnectionString, cfg.AzureStorageContainerName, cfg.ResultTtlSeconds)

	asynqRedisConnOpt, err := asynq.ParseRedisURI(cfg.RedisUrl)
	if err != nil {
		logger.Error("failed to parse Redis URL for usage with asynq", "err", err)
		os.Exit(1)
	}

	// The model's initialized state is shared and not safe for concurrent
	// evaluation, so exactly one task at a time
	wantedAsynqConcurrency := 1
	asynqServer := asynq.NewServer(
		asynqRedisConnOpt,
		asynq.Config{
			Concurrency:       wantedAsynqConcurrency,
			TaskCheckInterval: 500 * time.Millisecond,
		},
	)

	storeFactory := tasks.ResultStoreFactoryFunc(func(userId string) tasks.ResultStore {
		return resultStoreFactory.ForUser(userId)
	})
	taskDeps := tasks.NewTaskDeps(storeFactory, mcm.NewSurrogateModel(), dtmDataDir, umDataDir)

	taskMux := asynq.NewServeMux()
	taskMux.HandleFunc(tasks.TaskType_EvaluateBatch, taskDeps.ProcessEvaluateBatchTask)

	// Start Asynq server in goroutine
	go func() {
		logger.Info(fmt.Sprintf("Starting Asynq server with concurrency=%d ...", wantedAsynqConcurrency))
		if err := asynqServer.Run(taskMux); err != nil {
			logger.Error("asynq server error", "err", err)
			os.Exit(1)
		}
	}()

	// Signal handling for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down Asynq server...")
	asynqServer.Shutdown()
}
