package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/controller"
	"github.com/julianstephens/cadence/internal/errors"
	"github.com/julianstephens/cadence/internal/metrics"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/storage/sqlite"
)

// setupTestServer builds a server over a SQLite store holding one goal with a
// three-day daily mechanism.
func setupTestServer(t *testing.T) (*Server, *sqlite.Store) {
	t.Helper()
	ctx := context.Background()

	store := sqlite.NewStore(filepath.Join(t.TempDir(), "cadence.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("Failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.SaveParticipation(ctx, models.Participation{ID: "p1", UserID: "u1", Generation: "2024", MechanismsStart: "2024-01-01", MechanismsEnd: "2024-01-14"}); err != nil {
		t.Fatalf("SaveParticipation failed: %v", err)
	}
	if err := store.AddGoal(ctx, models.Goal{ID: "g1", UserID: "u1", ParticipationID: "p1", Description: "Sleep better", Category: "health"}); err != nil {
		t.Fatalf("AddGoal failed: %v", err)
	}
	if err := store.AddMechanism(ctx, models.Mechanism{ID: "m1", GoalID: "g1", UserID: "u1", Description: "Lights out by 11", Frequency: constants.FrequencyDaily, StartDate: "2024-01-01", EndDate: "2024-01-03"}); err != nil {
		t.Fatalf("AddMechanism failed: %v", err)
	}
	if err := store.AddSupervisor(ctx, "sup-1", "u1"); err != nil {
		t.Fatalf("AddSupervisor failed: %v", err)
	}

	ctrl := controller.New(store, controller.Config{UserID: "u1", Today: func() string { return "2024-01-03" }})
	if err := ctrl.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	server, err := NewServer(ctrl)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	return server, store
}

func TestNewServer(t *testing.T) {
	server, _ := setupTestServer(t)
	if server.mcpServer == nil {
		t.Error("Expected non-nil mcpServer")
	}
	if server.ctrl == nil {
		t.Error("Expected non-nil controller")
	}
}

func TestHandleGetActivityInstances(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		input   getInstancesInput
		want    int
		wantErr bool
	}{
		{name: "whole mechanism", input: getInstancesInput{From: "2024-01-01", To: "2024-01-07"}, want: 3},
		{name: "single day", input: getInstancesInput{From: "2024-01-02", To: "2024-01-02"}, want: 1},
		{name: "after end date", input: getInstancesInput{From: "2024-01-08", To: "2024-01-14"}, want: 0},
		{name: "inverted range", input: getInstancesInput{From: "2024-01-07", To: "2024-01-01"}, wantErr: true},
		{name: "malformed date", input: getInstancesInput{From: "01/01/2024", To: "2024-01-07"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, out, err := server.handleGetActivityInstances(ctx, &mcp.CallToolRequest{}, tt.input)
			if tt.wantErr {
				if !errors.Is(err, errors.ErrValidation) {
					t.Errorf("error = %v, want validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(out.Instances) != tt.want {
				t.Errorf("got %d instances, want %d", len(out.Instances), tt.want)
			}
			if out.Instances == nil {
				t.Error("Instances should be an empty list, not null")
			}
		})
	}
}

func TestHandleMoveActivity(t *testing.T) {
	server, store := setupTestServer(t)
	ctx := context.Background()

	_, out, err := server.handleMoveActivity(ctx, &mcp.CallToolRequest{}, moveInput{
		MechanismID: "m1", OriginalDate: "2024-01-02", NewDate: "2024-01-06",
	})
	if err != nil {
		t.Fatalf("handleMoveActivity failed: %v", err)
	}
	if out.Outcome != controller.OutcomeConfirmed {
		t.Errorf("Outcome = %s, want confirmed", out.Outcome)
	}
	if out.Instance.EffectiveDate != "2024-01-06" || !out.Instance.IsException {
		t.Errorf("Instance = %+v", out.Instance)
	}

	records, err := store.ReadScheduleExceptions(ctx, "u1")
	if err != nil {
		t.Fatalf("ReadScheduleExceptions failed: %v", err)
	}
	if len(records) != 1 || records[0].MovedToDate != "2024-01-06" {
		t.Errorf("stored exceptions = %+v", records)
	}

	// Moved instance shows up in a range that excludes its original date
	_, week, err := server.handleGetActivityInstances(ctx, &mcp.CallToolRequest{}, getInstancesInput{From: "2024-01-04", To: "2024-01-07"})
	if err != nil {
		t.Fatal(err)
	}
	if len(week.Instances) != 1 || week.Instances[0].OriginalDate != "2024-01-02" {
		t.Errorf("instances = %+v", week.Instances)
	}

	tests := []struct {
		name  string
		input moveInput
	}{
		{"no reference", moveInput{NewDate: "2024-01-06"}},
		{"unknown instance id", moveInput{InstanceID: "m1@2030-01-01", NewDate: "2024-01-06"}},
		{"bad target", moveInput{MechanismID: "m1", OriginalDate: "2024-01-01", NewDate: "tomorrow"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := server.handleMoveActivity(ctx, &mcp.CallToolRequest{}, tt.input)
			if !errors.Is(err, errors.ErrValidation) {
				t.Errorf("error = %v, want validation error", err)
			}
		})
	}
}

func TestToggleAndGoalGate(t *testing.T) {
	server, store := setupTestServer(t)
	ctx := context.Background()
	req := &mcp.CallToolRequest{}

	_, list, err := server.handleGetActivityInstances(ctx, req, getInstancesInput{From: "2024-01-01", To: "2024-01-03"})
	if err != nil {
		t.Fatal(err)
	}

	_, _, err = server.handleCompleteGoal(ctx, req, goalInput{GoalID: "g1", ActorID: "sup-1"})
	if !errors.Is(err, errors.ErrPreconditionNotMet) {
		t.Fatalf("early complete error = %v, want ErrPreconditionNotMet", err)
	}
	if err.Error() != errors.UserMessage(errors.ErrPreconditionNotMet) {
		t.Errorf("error text = %q", err.Error())
	}

	for _, inst := range list.Instances {
		_, out, err := server.handleToggleCompletion(ctx, req, toggleInput{InstanceID: inst.ID})
		if err != nil {
			t.Fatalf("toggle %s failed: %v", inst.ID, err)
		}
		if !out.Instance.IsCompleted || !strings.Contains(out.Message, "done") {
			t.Errorf("toggle output = %+v", out)
		}
	}
	dates, err := store.ReadCompletions(ctx, "m1", "u1", "")
	if err != nil || len(dates) != 3 {
		t.Fatalf("stored completions = %v, %v", dates, err)
	}

	_, _, err = server.handleCompleteGoal(ctx, req, goalInput{GoalID: "g1", ActorID: "u1"})
	if !errors.Is(err, errors.ErrPermissionDenied) {
		t.Fatalf("participant complete error = %v, want ErrPermissionDenied", err)
	}

	_, out, err := server.handleCompleteGoal(ctx, req, goalInput{GoalID: "g1", ActorID: "sup-1"})
	if err != nil {
		t.Fatalf("supervisor complete failed: %v", err)
	}
	if out.Goal.Status != constants.GoalCompleted || out.Goal.CompletedBy != "sup-1" || out.Goal.CompletedAt == "" {
		t.Errorf("goal = %+v", out.Goal)
	}
	if out.Progress.Percentage != 100 {
		t.Errorf("Percentage = %d, want 100", out.Progress.Percentage)
	}

	_, out, err = server.handleReopenGoal(ctx, req, goalInput{GoalID: "g1", ActorID: "sup-1"})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if out.Goal.Status != constants.GoalInProgress {
		t.Errorf("status = %s after reopen", out.Goal.Status)
	}
	stored, err := store.GetGoal(ctx, "g1")
	if err != nil || stored.Completed {
		t.Errorf("stored goal = %+v, %v", stored, err)
	}
}

func TestHandleGetProgress(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()

	_, out, err := server.handleGetProgress(ctx, &mcp.CallToolRequest{}, getProgressInput{ID: "m1"})
	if err != nil {
		t.Fatalf("handleGetProgress failed: %v", err)
	}
	if out.Progress.TotalExpected != 3 || out.Progress.TotalCompleted != 0 {
		t.Errorf("progress = %+v", out.Progress)
	}

	if _, _, err := server.handleGetProgress(ctx, &mcp.CallToolRequest{}, getProgressInput{ID: "nope"}); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("error = %v, want validation error", err)
	}
}

func TestResources(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()

	week, err := server.handleWeekResource(ctx, &mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("handleWeekResource failed: %v", err)
	}
	var payload struct {
		From      string                    `json:"from"`
		To        string                    `json:"to"`
		Instances []models.ActivityInstance `json:"instances"`
	}
	if err := json.Unmarshal([]byte(week.Contents[0].Text), &payload); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if payload.From != "2024-01-01" || payload.To != "2024-01-07" || len(payload.Instances) != 3 {
		t.Errorf("week payload = %+v", payload)
	}

	goals, err := server.handleGoalsResource(ctx, &mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("handleGoalsResource failed: %v", err)
	}
	var entries []goalEntry
	if err := json.Unmarshal([]byte(goals.Contents[0].Text), &entries); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(entries) != 1 || entries[0].Goal.ID != "g1" || entries[0].Progress.TotalExpected != 3 {
		t.Errorf("goal entries = %+v", entries)
	}
}

func TestToolCallsOverSession(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	if _, err := server.mcpServer.Connect(ctx, serverTransport, nil); err != nil {
		t.Fatalf("server Connect failed: %v", err)
	}
	client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client Connect failed: %v", err)
	}
	defer session.Close()

	okBefore := testutil.ToFloat64(metrics.ToolCalls.WithLabelValues("get_progress", "ok"))
	errBefore := testutil.ToFloat64(metrics.ToolCalls.WithLabelValues("get_progress", "error"))

	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "get_progress", Arguments: map[string]any{"id": "g1"}})
	if err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %+v", res.Content)
	}

	res, err = session.CallTool(ctx, &mcp.CallToolParams{Name: "get_progress", Arguments: map[string]any{"id": "nope"}})
	if err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}
	if !res.IsError {
		t.Error("expected a tool error for an unknown id")
	}

	if got := testutil.ToFloat64(metrics.ToolCalls.WithLabelValues("get_progress", "ok")) - okBefore; got != 1 {
		t.Errorf("ok calls = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.ToolCalls.WithLabelValues("get_progress", "error")) - errBefore; got != 1 {
		t.Errorf("error calls = %v, want 1", got)
	}
}
