package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/julianstephens/cadence/internal/calendar"
	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/controller"
	"github.com/julianstephens/cadence/internal/errors"
	"github.com/julianstephens/cadence/internal/logger"
	"github.com/julianstephens/cadence/internal/metrics"
	"github.com/julianstephens/cadence/internal/models"
)

func (s *Server) registerTools() {
	addTool(s, "get_activity_instances",
		"List scheduled activity instances whose effective date falls in a date range", s.handleGetActivityInstances)
	addTool(s, "get_progress",
		"Get progress (expected, completed, percentage, streak, prediction) for a goal or mechanism", s.handleGetProgress)
	addTool(s, "move_activity",
		"Move one activity instance to another date", s.handleMoveActivity)
	addTool(s, "toggle_completion",
		"Mark an activity instance done, or undo it if already done", s.handleToggleCompletion)
	addTool(s, "complete_goal",
		"Mark a goal completed. The goal must be at 100% and the actor must supervise its owner", s.handleCompleteGoal)
	addTool(s, "reopen_goal",
		"Return a completed goal to in progress. The actor must supervise its owner", s.handleReopenGoal)
}

// addTool registers h and counts its calls by outcome.
func addTool[In, Out any](s *Server, name, description string, h mcp.ToolHandlerFor[In, Out]) {
	mcp.AddTool(s.mcpServer, &mcp.Tool{Name: name, Description: description},
		func(ctx context.Context, req *mcp.CallToolRequest, in In) (*mcp.CallToolResult, Out, error) {
			res, out, err := h(ctx, req, in)
			status := "ok"
			if err != nil {
				status = "error"
				logger.Warn("Tool call failed", "tool", name, "error", err)
			}
			metrics.ToolCalls.WithLabelValues(name, status).Inc()
			return res, out, err
		})
}

// toolError shows the user-facing message to the client while keeping the
// cause available to errors.Is.
type toolError struct {
	err error
}

func (e toolError) Error() string { return errors.UserMessage(e.err) }

func (e toolError) Unwrap() error { return e.err }

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return toolError{err: err}
}

// Tool input/output types

type getInstancesInput struct {
	From string `json:"from" jsonschema:"first date of the range (YYYY-MM-DD)"`
	To   string `json:"to" jsonschema:"last date of the range (YYYY-MM-DD)"`
}

type instancesOutput struct {
	Instances []models.ActivityInstance `json:"instances"`
	LocalOnly bool                      `json:"local_only"`
}

type getProgressInput struct {
	ID string `json:"id" jsonschema:"goal or mechanism id"`
}

type progressOutput struct {
	ID       string          `json:"id"`
	Progress models.Progress `json:"progress"`
}

type moveInput struct {
	InstanceID   string `json:"instance_id,omitempty" jsonschema:"instance id returned by get_activity_instances"`
	MechanismID  string `json:"mechanism_id,omitempty" jsonschema:"mechanism id, used with original_date when instance_id is not given"`
	OriginalDate string `json:"original_date,omitempty" jsonschema:"the date the recurrence rule placed the instance on (YYYY-MM-DD)"`
	NewDate      string `json:"new_date" jsonschema:"date to move the instance to (YYYY-MM-DD)"`
}

type toggleInput struct {
	InstanceID   string `json:"instance_id,omitempty" jsonschema:"instance id returned by get_activity_instances"`
	MechanismID  string `json:"mechanism_id,omitempty" jsonschema:"mechanism id, used with original_date when instance_id is not given"`
	OriginalDate string `json:"original_date,omitempty" jsonschema:"the date the recurrence rule placed the instance on (YYYY-MM-DD)"`
}

type mutationOutput struct {
	Instance models.ActivityInstance `json:"instance"`
	Outcome  controller.Outcome      `json:"outcome"`
	Message  string                  `json:"message"`
}

type goalInput struct {
	GoalID  string `json:"goal_id" jsonschema:"goal id"`
	ActorID string `json:"actor_id" jsonschema:"id of the user performing the change"`
}

// goalView flattens a goal for clients; timestamps are RFC 3339 strings.
type goalView struct {
	ID          string               `json:"id"`
	Description string               `json:"description"`
	Status      constants.GoalStatus `json:"status"`
	CompletedBy string               `json:"completed_by,omitempty"`
	CompletedAt string               `json:"completed_at,omitempty"`
}

func viewGoal(g models.Goal) goalView {
	v := goalView{ID: g.ID, Description: g.Description, Status: g.Status(), CompletedBy: g.CompletedBy}
	if g.CompletedAt != nil {
		v.CompletedAt = g.CompletedAt.Format(time.RFC3339)
	}
	return v
}

type goalOutput struct {
	Goal     goalView        `json:"goal"`
	Progress models.Progress `json:"progress"`
	Message  string          `json:"message"`
}

// Tool handlers

func (s *Server) handleGetActivityInstances(ctx context.Context, req *mcp.CallToolRequest, input getInstancesInput) (*mcp.CallToolResult, instancesOutput, error) {
	instances, err := s.ctrl.GetActivityInstances(input.From, input.To)
	if err != nil {
		return nil, instancesOutput{}, wrap(err)
	}
	if instances == nil {
		instances = []models.ActivityInstance{}
	}
	return nil, instancesOutput{Instances: instances, LocalOnly: s.ctrl.LocalOnly()}, nil
}

func (s *Server) handleGetProgress(ctx context.Context, req *mcp.CallToolRequest, input getProgressInput) (*mcp.CallToolResult, progressOutput, error) {
	p, err := s.ctrl.GetProgress(input.ID)
	if err != nil {
		return nil, progressOutput{}, wrap(err)
	}
	return nil, progressOutput{ID: input.ID, Progress: p}, nil
}

func (s *Server) handleMoveActivity(ctx context.Context, req *mcp.CallToolRequest, input moveInput) (*mcp.CallToolResult, mutationOutput, error) {
	key, err := s.resolve(input.InstanceID, input.MechanismID, input.OriginalDate)
	if err != nil {
		return nil, mutationOutput{}, wrap(err)
	}
	outcome, err := s.ctrl.MoveActivity(ctx, key, input.NewDate)
	if err != nil {
		return nil, mutationOutput{}, wrap(err)
	}
	return s.mutationResult(key, outcome, fmt.Sprintf("Moved %s to %s", key.ID(), input.NewDate))
}

func (s *Server) handleToggleCompletion(ctx context.Context, req *mcp.CallToolRequest, input toggleInput) (*mcp.CallToolResult, mutationOutput, error) {
	key, err := s.resolve(input.InstanceID, input.MechanismID, input.OriginalDate)
	if err != nil {
		return nil, mutationOutput{}, wrap(err)
	}
	outcome, err := s.ctrl.ToggleCompletion(ctx, key)
	if err != nil {
		return nil, mutationOutput{}, wrap(err)
	}
	return s.mutationResult(key, outcome, "")
}

func (s *Server) handleCompleteGoal(ctx context.Context, req *mcp.CallToolRequest, input goalInput) (*mcp.CallToolResult, goalOutput, error) {
	goal, err := s.ctrl.CompleteGoal(ctx, input.GoalID, input.ActorID)
	if err != nil {
		return nil, goalOutput{}, wrap(err)
	}
	return s.goalResult(goal, fmt.Sprintf("Goal %q completed", goal.Description))
}

func (s *Server) handleReopenGoal(ctx context.Context, req *mcp.CallToolRequest, input goalInput) (*mcp.CallToolResult, goalOutput, error) {
	goal, err := s.ctrl.ReopenGoal(ctx, input.GoalID, input.ActorID)
	if err != nil {
		return nil, goalOutput{}, wrap(err)
	}
	return s.goalResult(goal, fmt.Sprintf("Goal %q reopened", goal.Description))
}

// resolve accepts either a display id or an explicit (mechanism, original date) pair.
func (s *Server) resolve(instanceID, mechanismID, originalDate string) (calendar.InstanceKey, error) {
	if instanceID != "" {
		return s.ctrl.Resolve(instanceID)
	}
	if mechanismID == "" || originalDate == "" {
		return calendar.InstanceKey{}, errors.Invalid("instance", "", "pass instance_id or both mechanism_id and original_date")
	}
	return calendar.InstanceKey{MechanismID: mechanismID, OriginalDate: originalDate}, nil
}

func (s *Server) mutationResult(key calendar.InstanceKey, outcome controller.Outcome, message string) (*mcp.CallToolResult, mutationOutput, error) {
	inst, err := s.ctrl.Instance(key)
	if err != nil {
		return nil, mutationOutput{}, wrap(err)
	}
	if message == "" {
		state := "open"
		if inst.IsCompleted {
			state = "done"
		}
		message = fmt.Sprintf("%s on %s is %s", inst.MechanismDescription, inst.EffectiveDate, state)
	}
	if outcome == controller.OutcomeLocalOnly {
		message += " (kept locally, persistence unavailable)"
	}
	return nil, mutationOutput{Instance: inst, Outcome: outcome, Message: message}, nil
}

func (s *Server) goalResult(goal models.Goal, message string) (*mcp.CallToolResult, goalOutput, error) {
	p, err := s.ctrl.GetProgress(goal.ID)
	if err != nil {
		return nil, goalOutput{}, wrap(err)
	}
	return nil, goalOutput{Goal: viewGoal(goal), Progress: p, Message: message}, nil
}
