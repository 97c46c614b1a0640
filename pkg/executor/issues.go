package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fabricward/fabricward/pkg/engine"
)

// executionPollTimeout bounds one suggested-actions execution wait.
const executionPollTimeout = 300 * time.Second

func (e *Executor) applyIssueDefinition(ctx context.Context, action engine.Action,
	result engine.ActionResult) (engine.ActionResult, error) {

	if action.Type == engine.ActionDelete {
		if err := e.gateway.DeleteCustomIssueDefinition(ctx, action.PreviousID); err != nil {
			return result, err
		}
		result.Outcome = engine.OutcomeDeleted
		return result, nil
	}

	payload := map[string]any{}
	for key, value := range action.Entity.Payload {
		if key == "prevName" {
			continue
		}
		payload[key] = value
	}

	if action.Type == engine.ActionCreate {
		created, err := e.gateway.CreateCustomIssueDefinition(ctx, payload)
		if err != nil {
			return result, err
		}
		result.Outcome = engine.OutcomeCreated
		result.Message = fmt.Sprintf("definition %s created", created.ID)
		return result, nil
	}

	updated, err := e.gateway.UpdateCustomIssueDefinition(ctx, action.PreviousID, payload)
	if err != nil {
		return result, err
	}
	result.Outcome = engine.OutcomeUpdated
	result.Message = fmt.Sprintf("definition %s updated", updated.ID)
	return result, nil
}

func (e *Executor) applySystemIssue(ctx context.Context, action engine.Action,
	result engine.ActionResult) (engine.ActionResult, error) {

	payload := map[string]any{}
	for _, field := range []string{
		"issueEnabled", "priority", "synchronizeToHealthThreshold", "thresholdValue",
	} {
		if value := action.Entity.Field(field); value != nil {
			payload[field] = value
		}
	}
	if _, err := e.gateway.UpdateSystemIssueDefinition(ctx, action.PreviousID, payload); err != nil {
		return result, err
	}
	result.Outcome = engine.OutcomeUpdated
	return result, nil
}

// applyIssueAction runs one imperative issue operation over the issue
// IDs the gather phase matched.
func (e *Executor) applyIssueAction(ctx context.Context, action engine.Action,
	result engine.ActionResult) (engine.ActionResult, error) {

	ids := stringList(action.Entity.Field("issueIds"))
	if len(ids) == 0 {
		result.Outcome = engine.OutcomeNoUpdate
		result.Message = "no matching open issues"
		return result, nil
	}

	switch action.Entity.StringField("processType") {
	case "resolution":
		response, err := e.gateway.ResolveIssues(ctx, ids)
		if err != nil {
			return result, err
		}
		result.Outcome = engine.OutcomeUpdated
		result.Message = fmt.Sprintf("resolved %d issues", len(ids))
		result.Response = response
		return result, nil

	case "ignore":
		hours, _ := action.Entity.Field("ignoreHours").(int)
		if hours == 0 {
			hours = 24
		}
		response, err := e.gateway.IgnoreIssues(ctx, ids, hours)
		if err != nil {
			return result, err
		}
		result.Outcome = engine.OutcomeUpdated
		result.Message = fmt.Sprintf("ignored %d issues for %dh", len(ids), hours)
		result.Response = response
		return result, nil

	case "command_execution":
		for _, id := range ids {
			if err := e.executeSuggestedActions(ctx, id); err != nil {
				return result, err
			}
		}
		result.Outcome = engine.OutcomeUpdated
		result.Message = fmt.Sprintf("executed suggested commands on %d issues", len(ids))
		return result, nil
	}
	return result, engine.Errorf(engine.FailSchemaEnumViolation,
		"unknown issue process type %q", action.Entity.StringField("processType"))
}

// executeSuggestedActions starts one suggested-commands execution and
// polls it to completion.
func (e *Executor) executeSuggestedActions(ctx context.Context, issueID string) error {
	executionID, err := e.gateway.ExecuteSuggestedActions(ctx, issueID)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(executionPollTimeout)
	for {
		status, err := e.gateway.GetExecutionStatus(ctx, executionID)
		if err != nil {
			return err
		}
		// A bapiError ends the wait whatever status the record carries.
		if status.BapiError != "" || strings.EqualFold(status.Status, "FAILURE") {
			return engine.Errorf(engine.FailTaskFailed,
				"suggested actions on issue %s failed: %s", issueID, status.BapiError).
				WithDetail("execution_id", executionID)
		}
		if strings.EqualFold(status.Status, "SUCCESS") {
			return nil
		}
		if time.Now().After(deadline) {
			return engine.Errorf(engine.FailTaskTimeout,
				"suggested actions on issue %s did not finish within %s",
				issueID, executionPollTimeout).
				WithDetail("execution_id", executionID)
		}
		select {
		case <-ctx.Done():
			return engine.NewError(engine.FailTaskTimeout, "execution wait cancelled", ctx.Err())
		case <-time.After(e.opts.PollInterval):
		}
	}
}
