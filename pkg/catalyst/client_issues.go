package catalyst

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fabricward/fabricward/pkg/engine"
)

// GetCustomIssueDefinitions returns user-defined issue definitions
// filtered by name. A 404 yields an empty slice.
func (c *Client) GetCustomIssueDefinitions(ctx context.Context, name string) ([]IssueDefinition, error) {
	params := map[string]any{}
	if name != "" {
		params["name"] = name
	}
	var defs []IssueDefinition
	_, err := c.getJSON(ctx, "issues",
		"get_all_the_custom_issue_definitions_based_on_the_given_filters",
		"/dna/intent/api/v1/customIssueDefinitions", params, &defs)
	if err != nil {
		return nil, err
	}
	return defs, nil
}

// CreateCustomIssueDefinition creates a user-defined issue definition.
// The endpoint is synchronous and returns the created definition.
func (c *Client) CreateCustomIssueDefinition(ctx context.Context, payload map[string]any) (*IssueDefinition, error) {
	data, err := c.request(ctx, "issues", "creates_a_new_user_defined_issue_definitions",
		http.MethodPost, "/dna/intent/api/v1/customIssueDefinitions", nil, payload)
	if err != nil {
		return nil, err
	}
	return decodeIssueDefinition(data)
}

// UpdateCustomIssueDefinition updates a user-defined issue definition.
func (c *Client) UpdateCustomIssueDefinition(ctx context.Context, id string, payload map[string]any) (*IssueDefinition, error) {
	data, err := c.request(ctx, "issues", "updates_an_existing_custom_issue_definition",
		http.MethodPut, "/dna/intent/api/v1/customIssueDefinitions/"+id, nil, payload)
	if err != nil {
		return nil, err
	}
	return decodeIssueDefinition(data)
}

// DeleteCustomIssueDefinition removes a user-defined issue definition.
func (c *Client) DeleteCustomIssueDefinition(ctx context.Context, id string) error {
	_, err := c.request(ctx, "issues", "deletes_an_existing_custom_issue_definition",
		http.MethodDelete, "/dna/intent/api/v1/customIssueDefinitions/"+id, nil, nil)
	return err
}

func decodeIssueDefinition(data []byte) (*IssueDefinition, error) {
	var env struct {
		Response IssueDefinition `json:"response"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, engine.NewError(engine.FailGatewayHTTP, "decode issue definition", err)
	}
	return &env.Response, nil
}

// GetSystemIssueDefinitions returns system issue trigger definitions for a
// device type and enabled flag.
func (c *Client) GetSystemIssueDefinitions(ctx context.Context, deviceType string, issueEnabled bool) ([]SystemIssueDefinition, error) {
	var defs []SystemIssueDefinition
	_, err := c.getJSON(ctx, "issues",
		"returns_all_issue_trigger_definitions_for_given_filters",
		"/dna/intent/api/v1/systemIssueDefinitions",
		map[string]any{"deviceType": deviceType, "issueEnabled": issueEnabled}, &defs)
	if err != nil {
		return nil, err
	}
	return defs, nil
}

// UpdateSystemIssueDefinition updates one system issue definition.
func (c *Client) UpdateSystemIssueDefinition(ctx context.Context, id string, payload map[string]any) (*SystemIssueDefinition, error) {
	data, err := c.request(ctx, "issues", "issue_trigger_definition_update",
		http.MethodPut, "/dna/intent/api/v1/systemIssueDefinitions/"+id, nil, payload)
	if err != nil {
		return nil, err
	}
	var env struct {
		Response SystemIssueDefinition `json:"response"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, engine.NewError(engine.FailGatewayHTTP, "decode system issue definition", err)
	}
	return &env.Response, nil
}

// ListIssues returns open issues matching the given filters.
func (c *Client) ListIssues(ctx context.Context, params map[string]any) ([]Issue, error) {
	var issues []Issue
	_, err := c.getJSON(ctx, "issues", "issues", "/dna/intent/api/v1/issues", params, &issues)
	if err != nil {
		return nil, err
	}
	return issues, nil
}

// ResolveIssues resolves the given issue IDs in one batched call.
func (c *Client) ResolveIssues(ctx context.Context, issueIDs []string) (map[string]any, error) {
	return c.postIssueAction(ctx, "resolve_the_given_lists_of_issues", "/dna/intent/api/v1/assuranceIssues/resolve",
		map[string]any{"issueIds": issueIDs})
}

// IgnoreIssues ignores the given issue IDs for ignoreHours hours.
func (c *Client) IgnoreIssues(ctx context.Context, issueIDs []string, ignoreHours int) (map[string]any, error) {
	body := map[string]any{"issueIds": issueIDs}
	if ignoreHours > 0 {
		body["ignoreHours"] = ignoreHours
	}
	return c.postIssueAction(ctx, "ignore_the_given_list_of_issues", "/dna/intent/api/v1/assuranceIssues/ignore", body)
}

func (c *Client) postIssueAction(ctx context.Context, function, path string, body map[string]any) (map[string]any, error) {
	data, err := c.request(ctx, "issues", function, http.MethodPost, path, nil, body)
	if err != nil {
		return nil, err
	}
	var env struct {
		Response map[string]any `json:"response"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, engine.NewError(engine.FailGatewayHTTP, "decode issue action response", err).
			WithOperation("issues." + function)
	}
	return env.Response, nil
}

// ExecuteSuggestedActions runs the suggested action commands of an issue
// and returns the execution ID to poll.
func (c *Client) ExecuteSuggestedActions(ctx context.Context, issueID string) (string, error) {
	data, err := c.request(ctx, "issues", "execute_suggested_actions_commands",
		http.MethodPost, "/dna/intent/api/v1/execute-suggested-actions-commands", nil,
		map[string]any{"entity_type": "issue_id", "entity_value": issueID})
	if err != nil {
		return "", err
	}
	var env struct {
		ExecutionID string `json:"executionId"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return "", engine.NewError(engine.FailGatewayHTTP, "decode execution response", err).
			WithOperation("issues.execute_suggested_actions_commands")
	}
	if env.ExecutionID == "" {
		return "", engine.Errorf(engine.FailGatewayController,
			"suggested actions returned no executionId").WithEntity(issueID)
	}
	return env.ExecutionID, nil
}

// GetExecutionStatus returns the status of a suggested-actions execution.
func (c *Client) GetExecutionStatus(ctx context.Context, executionID string) (*ExecutionStatus, error) {
	data, err := c.request(ctx, "task", "get_business_api_execution_details",
		http.MethodGet, "/dna/intent/api/v1/dnacaap/management/execution-status/"+executionID, nil, nil)
	if err != nil {
		return nil, err
	}
	var status ExecutionStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, engine.NewError(engine.FailGatewayHTTP, "decode execution status", err)
	}
	return &status, nil
}
