package catalyst

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/fabricward/fabricward/pkg/engine"
)

// TaskStatus returns the current status of a controller task.
func (c *Client) TaskStatus(ctx context.Context, taskID string) (*TaskStatus, error) {
	data, err := c.request(ctx, "task", "get_task_status_from_tasks_by_id",
		http.MethodGet, "/dna/intent/api/v1/task/"+taskID, nil, nil)
	if err != nil {
		return nil, err
	}
	var env struct {
		Response TaskStatus `json:"response"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, engine.NewError(engine.FailGatewayHTTP, "decode task status", err).
			WithOperation("task.get_task_status_from_tasks_by_id")
	}
	status := env.Response
	if status.TaskID == "" {
		status.TaskID = taskID
	}
	return &status, nil
}

// defaultSuccessMarkers are the progress substrings that mark a task as
// successfully finished when the caller supplies no predicate of its own.
var defaultSuccessMarkers = []string{"complete", "successfully", "performed successfully"}

// taskSucceeded applies the terminal success predicate for one poll.
func taskSucceeded(status *TaskStatus, future engine.TaskFuture) bool {
	progress := strings.ToLower(status.Progress)
	if future.SuccessMatch != "" {
		return strings.Contains(progress, strings.ToLower(future.SuccessMatch))
	}
	for _, marker := range defaultSuccessMarkers {
		if strings.Contains(progress, marker) {
			return true
		}
	}
	return false
}

// TaskDone reports whether a polled status satisfies the future's
// terminal success predicate. Long-running waits that interleave other
// work between polls use this instead of AwaitTask.
func TaskDone(status *TaskStatus, future engine.TaskFuture) bool {
	return taskSucceeded(status, future)
}

// AwaitTask polls a task future until it resolves. It returns the final
// status on success; a task.failed error when the controller reports
// isError; a task.timeout error when the elapsed time exceeds timeout.
// Context cancellation aborts the loop and marks the wait failed.
func AwaitTask(
	ctx context.Context,
	tasks Tasks,
	future engine.TaskFuture,
	timeout, interval time.Duration,
) (*TaskStatus, error) {
	deadline := time.Now().Add(timeout)
	for {
		status, err := tasks.TaskStatus(ctx, future.TaskID)
		if err != nil {
			return nil, err
		}
		if status.IsError {
			return nil, engine.Errorf(engine.FailTaskFailed, "%s", status.ErrorMessage()).
				WithDetail("task_id", future.TaskID)
		}
		if taskSucceeded(status, future) {
			return status, nil
		}
		if time.Now().After(deadline) {
			return nil, engine.Errorf(engine.FailTaskTimeout,
				"task %s did not finish within %s", future.TaskID, timeout).
				WithDetail("task_id", future.TaskID).
				WithDetail("progress", status.Progress)
		}
		select {
		case <-ctx.Done():
			return nil, engine.NewError(engine.FailTaskTimeout, "task wait cancelled", ctx.Err()).
				WithDetail("task_id", future.TaskID)
		case <-time.After(interval):
		}
	}
}
