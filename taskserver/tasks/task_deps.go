package tasks

import (
	"context"

	"fast_mcm/mcm"
)

// ResultStore is where a completed task's encoded batch response ends up.
// Satisfied by utils.TempResultStore.
type ResultStore interface {
	PutBytes(ctx context.Context, key string, payloadBytes []byte, blobPrefix string, blobExtension string) error
}

type ResultStoreFactory interface {
	ForUser(userId string) ResultStore
}

// ResultStoreFactoryFunc adapts a plain function to the ResultStoreFactory
// interface.
type ResultStoreFactoryFunc func(userId string) ResultStore

func (f ResultStoreFactoryFunc) ForUser(userId string) ResultStore {
	return f(userId)
}

type TaskDeps struct {
	resultStoreFactory ResultStoreFactory
	model              mcm.Evaluator
	defaultDtmDataDir  string
	defaultUmDataDir   string
}

func NewTaskDeps(resultStoreFactory ResultStoreFactory, model mcm.Evaluator, defaultDtmDataDir string, defaultUmDataDir string) *TaskDeps {
	return &TaskDeps{
		resultStoreFactory: resultStoreFactory,
		model:              model,
		defaultDtmDataDir:  defaultDtmDataDir,
		defaultUmDataDir:   defaultUmDataDir,
	}
}
