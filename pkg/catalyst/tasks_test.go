package catalyst

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fabricward/fabricward/pkg/engine"
)

// scriptedTasks replays a fixed sequence of task statuses.
type scriptedTasks struct {
	statuses []TaskStatus
	polls    int
}

func (s *scriptedTasks) TaskStatus(_ context.Context, taskID string) (*TaskStatus, error) {
	i := s.polls
	if i >= len(s.statuses) {
		i = len(s.statuses) - 1
	}
	s.polls++
	status := s.statuses[i]
	status.TaskID = taskID
	return &status, nil
}

func TestAwaitTaskSuccess(t *testing.T) {
	tasks := &scriptedTasks{statuses: []TaskStatus{
		{Progress: "in progress"},
		{Progress: "in progress"},
		{Progress: "task performed successfully"},
	}}

	status, err := AwaitTask(context.Background(), tasks,
		engine.TaskFuture{TaskID: "t-1"}, time.Second, time.Millisecond)
	if err != nil {
		t.Fatalf("AwaitTask: %v", err)
	}
	if status.TaskID != "t-1" {
		t.Errorf("unexpected status: %+v", status)
	}
	if tasks.polls != 3 {
		t.Errorf("expected 3 polls, got %d", tasks.polls)
	}
}

func TestAwaitTaskCustomSuccessMatch(t *testing.T) {
	tasks := &scriptedTasks{statuses: []TaskStatus{
		{Progress: "Device Discovery Completed For Session"},
	}}

	_, err := AwaitTask(context.Background(), tasks,
		engine.TaskFuture{TaskID: "t-2", SuccessMatch: "discovery completed"},
		time.Second, time.Millisecond)
	if err != nil {
		t.Fatalf("AwaitTask: %v", err)
	}
}

func TestAwaitTaskFailure(t *testing.T) {
	tasks := &scriptedTasks{statuses: []TaskStatus{
		{IsError: true, FailureReason: "NCSO10231: site already has a fabric"},
	}}

	_, err := AwaitTask(context.Background(), tasks,
		engine.TaskFuture{TaskID: "t-3"}, time.Second, time.Millisecond)
	if err == nil {
		t.Fatal("expected failure")
	}
	var rerr *engine.ReconcileError
	if !errors.As(err, &rerr) || rerr.Kind != engine.FailTaskFailed {
		t.Errorf("expected %s, got %v", engine.FailTaskFailed, err)
	}
	if rerr.Details["task_id"] != "t-3" {
		t.Errorf("expected task_id detail, got %#v", rerr.Details)
	}
}

func TestAwaitTaskTimeout(t *testing.T) {
	tasks := &scriptedTasks{statuses: []TaskStatus{{Progress: "in progress"}}}

	_, err := AwaitTask(context.Background(), tasks,
		engine.TaskFuture{TaskID: "t-4"}, 10*time.Millisecond, time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout")
	}
	if engine.KindOf(err) != engine.FailTaskTimeout {
		t.Errorf("expected %s, got %v", engine.FailTaskTimeout, err)
	}
}

func TestAwaitTaskCancelled(t *testing.T) {
	tasks := &scriptedTasks{statuses: []TaskStatus{{Progress: "in progress"}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := AwaitTask(ctx, tasks,
		engine.TaskFuture{TaskID: "t-5"}, time.Minute, time.Millisecond)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if engine.KindOf(err) != engine.FailTaskTimeout {
		t.Errorf("expected %s, got %v", engine.FailTaskTimeout, err)
	}
}

func TestPaginate(t *testing.T) {
	// Three pages: two full, one short.
	total := PageSize*2 + 7
	var offsets []int
	all, err := Paginate(context.Background(), func(_ context.Context, offset int) ([]int, error) {
		offsets = append(offsets, offset)
		n := PageSize
		if remaining := total - (offset - 1); remaining < n {
			n = remaining
		}
		page := make([]int, n)
		return page, nil
	})
	if err != nil {
		t.Fatalf("Paginate: %v", err)
	}
	if len(all) != total {
		t.Errorf("expected %d records, got %d", total, len(all))
	}
	want := []int{1, 1 + PageSize, 1 + 2*PageSize}
	if len(offsets) != len(want) {
		t.Fatalf("expected offsets %v, got %v", want, offsets)
	}
	for i := range want {
		if offsets[i] != want[i] {
			t.Errorf("offset[%d] = %d, want %d", i, offsets[i], want[i])
		}
	}
}

func TestPaginateEmptyFirstPage(t *testing.T) {
	all, err := Paginate(context.Background(), func(_ context.Context, _ int) ([]string, error) {
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Paginate: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("expected no records, got %d", len(all))
	}
}
