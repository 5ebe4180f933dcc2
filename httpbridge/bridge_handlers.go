package httpbridge

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"fast_mcm/taskserver/tasks"
	"fast_mcm/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/vmihailenco/msgpack/v5"
)

type TaskStatusResponse struct {
	TaskId   string `json:"taskId" binding:"required"`
	Status   string `json:"status" binding:"required"` // "pending", "running", "succeeded", "failed"
	ErrorMsg string `json:"errorMsg,omitempty"`        // If the task failed, this field will contain the error message
}

type BridgeHandlers struct {
	asynqClient        *asynq.Client
	asyncInspector     *asynq.Inspector
	resultStoreFactory *utils.TempResultStoreFactory
	queueName          string
}

func NewBridgeHandlers(redisConnOpt asynq.RedisConnOpt, resultStoreFactory *utils.TempResultStoreFactory) *BridgeHandlers {
	client := asynq.NewClient(redisConnOpt)
	inspector := asynq.NewInspector(redisConnOpt)

	return &BridgeHandlers{
		asynqClient:        client,
		asyncInspector:     inspector,
		resultStoreFactory: resultStoreFactory,
		queueName:          "default",
	}
}

// Sets up the bridge routes
func (h *BridgeHandlers) MapRoutes(router *gin.Engine) {
	router.GET("", h.handleRoot)
	router.POST("/enqueue_task/:task_type", h.handleEnqueueTask)
	router.GET("/task_status/:task_id", h.handleTaskStatus)
	router.GET("/task_result/:user_id/:store_key", h.handleTaskResult)
}

func (h *BridgeHandlers) handleRoot(c *gin.Context) {
	c.String(http.StatusOK, fmt.Sprintf("MCM batch evaluation http bridge is alive at %v", time.Now().Format(time.RFC3339)))
}

func (h *BridgeHandlers) handleEnqueueTask(c *gin.Context) {
	logger := slog.Default()
	prefix := "handleEnqueueTask - "

	taskTypeString := c.Param("task_type")
	if !tasks.IsValidTaskType(taskTypeString) {
		logger.Error(prefix+"illegal task type specified", "taskTypeString", taskTypeString)
		c.JSON(http.StatusBadRequest, gin.H{"error": "illegal task type specified"})
		return
	}

	// The payload passes through to the task untouched
	payload, err := c.GetRawData()
	if err != nil {
		logger.Error(prefix+"failed to read request body", "err", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	task := asynq.NewTask(taskTypeString, payload)

	taskInfo, err := h.asynqClient.Enqueue(
		task,
		asynq.Queue(h.queueName),
		asynq.MaxRetry(0),
		asynq.Retention(time.Hour*2))

	if err != nil {
		logger.Error(prefix+"failed to enqueue task", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue task"})
		return
	}

	statusString := mapTaskStateToStatusString(taskInfo.State)
	response := TaskStatusResponse{TaskId: taskInfo.ID, Status: statusString}
	if statusString == "failed" {
		response.ErrorMsg = taskInfo.LastErr
	}

	c.JSON(http.StatusOK, response)
}

func (h *BridgeHandlers) handleTaskStatus(c *gin.Context) {
	logger := slog.Default()
	prefix := "handleTaskStatus - "

	taskId := c.Param("task_id")

	taskInfo, err := h.asyncInspector.GetTaskInfo(h.queueName, taskId)
	if err != nil {
		logger.Error(prefix+"error getting task info:", "err", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}

	statusString := mapTaskStateToStatusString(taskInfo.State)

	slog.Debug(prefix+"task info:", "taskId", taskId, "statusString", statusString, "lastErr", taskInfo.LastErr)

	response := TaskStatusResponse{TaskId: taskInfo.ID, Status: statusString}
	if statusString == "failed" {
		response.ErrorMsg = taskInfo.LastErr
	}

	c.JSON(http.StatusOK, response)
}

// Fetches a completed batch result from the temp result store and returns it
// as JSON.
func (h *BridgeHandlers) handleTaskResult(c *gin.Context) {
	perfMetrics := utils.NewPerfMetrics()
	logger := slog.Default()
	prefix := "handleTaskResult - "

	userId := c.Param("user_id")
	storeKey := c.Param("store_key")

	resultStore := h.resultStoreFactory.ForUser(userId)

	payloadBytes, err := resultStore.GetBytes(c.Request.Context(), storeKey)
	if err != nil {
		logger.Error(prefix+"failed to fetch stored result:", "err", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
		return
	}
	perfMetrics.RecordLap("fetch")

	var taskResult tasks.EvaluateBatchTaskResult
	if err := msgpack.Unmarshal(payloadBytes, &taskResult); err != nil {
		logger.Error(prefix+"failed to decode stored result:", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to decode stored result"})
		return
	}
	perfMetrics.RecordLap("decode")

	c.JSON(http.StatusOK, taskResult)

	logger.Debug(prefix + "done in: " + perfMetrics.ToString(true))
}

func mapTaskStateToStatusString(taskState asynq.TaskState) string {
	switch taskState {
	case asynq.TaskStatePending:
		return "pending"
	case asynq.TaskStateActive:
		return "running"
	case asynq.TaskStateCompleted:
		return "succeeded"
	case asynq.TaskStateArchived:
		return "failed"
	}

	return "unknown"
}
