package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/utils"
)

const (
	weekURI  = "cadence://week"
	goalsURI = "cadence://goals"
)

func (s *Server) registerResources() {
	// cadence://week - instances for the current Monday-Sunday week
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         weekURI,
		Name:        "This Week",
		Description: "Activity instances scheduled this week",
		MIMEType:    "application/json",
	}, s.handleWeekResource)

	// cadence://goals - every goal with its progress
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         goalsURI,
		Name:        "Goals",
		Description: "Goals with their current progress",
		MIMEType:    "application/json",
	}, s.handleGoalsResource)
}

// Resource handlers

func (s *Server) handleWeekResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	start, err := utils.StartOfWeek(s.ctrl.Today())
	if err != nil {
		return nil, fmt.Errorf("failed to find week start: %w", err)
	}
	end, err := utils.AddDays(start, 6)
	if err != nil {
		return nil, fmt.Errorf("failed to find week end: %w", err)
	}
	instances, err := s.ctrl.GetActivityInstances(start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}

	return jsonResource(weekURI, map[string]interface{}{
		"from":       start,
		"to":         end,
		"instances":  instances,
		"local_only": s.ctrl.LocalOnly(),
	})
}

type goalEntry struct {
	Goal     goalView        `json:"goal"`
	Progress models.Progress `json:"progress"`
}

func (s *Server) handleGoalsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	goals := s.ctrl.Goals()
	entries := make([]goalEntry, 0, len(goals))
	for _, g := range goals {
		p, err := s.ctrl.GetProgress(g.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to compute progress for %s: %w", g.ID, err)
		}
		entries = append(entries, goalEntry{Goal: viewGoal(g), Progress: p})
	}
	return jsonResource(goalsURI, entries)
}

func jsonResource(uri string, v interface{}) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
