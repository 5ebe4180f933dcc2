package tasks

const (
	TaskType_EvaluateBatch = "evaluate_batch"
)

var AllTaskTypeStrings = []string{
	TaskType_EvaluateBatch,
}

func IsValidTaskType(taskTypeString string) bool {
	for _, t := range AllTaskTypeStrings {
		if taskTypeString == t {
			return true
		}
	}

	return false
}
