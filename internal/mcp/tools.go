package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/symptom-kbs-mcp-server/internal/domain"
)

// SymptomsParams is the input of diagnose_symptoms and rank_conditions.
type SymptomsParams struct {
	Symptoms []string `json:"symptoms" jsonschema:"reported symptoms, free text"`
}

// ListSymptomsParams is the input of list_symptoms.
type ListSymptomsParams struct {
	Registered bool `json:"registered,omitempty" jsonschema:"list the managed registry instead of every referenced symptom"`
}

// DiseaseParams is the input of get_disease.
type DiseaseParams struct {
	ID string `json:"id" jsonschema:"disease id"`
}

// SearchParams is the input of search_diseases.
type SearchParams struct {
	Name    string `json:"name,omitempty" jsonschema:"case-insensitive substring of the disease name"`
	Symptom string `json:"symptom,omitempty" jsonschema:"symptom the disease must list"`
}

// RenameParams is the input of rename_symptom.
type RenameParams struct {
	OldName string `json:"old_name"`
	NewName string `json:"new_name"`
}

// RecentParams is the input of recent_searches.
type RecentParams struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum entries, default 20"`
}

// NoParams is the input of tools that take no arguments.
type NoParams struct{}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "diagnose_symptoms",
		Description: "Rank candidate diseases for the reported symptoms using the knowledge base rules, with confidence and an explanation of which rules fired.",
	}, s.handleDiagnose)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "rank_conditions",
		Description: "Score every disease by direct overlap between the reported symptoms and the symptoms the disease lists, without using rules.",
	}, s.handleRankConditions)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_symptoms",
		Description: "List the symptoms known to the knowledge base.",
	}, s.handleListSymptoms)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_disease",
		Description: "Return a disease with its description, symptoms, diagnostics, treatment and references.",
	}, s.handleGetDisease)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "search_diseases",
		Description: "Find diseases by name and/or symptom.",
	}, s.handleSearchDiseases)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "knowledge_status",
		Description: "Report the knowledge base version, load state, consistency warnings and schema errors.",
	}, s.handleStatus)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "reload_knowledge",
		Description: "Discard the cached knowledge base and load it again from its source.",
	}, s.handleReload)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "rename_symptom",
		Description: "Rename a symptom everywhere it appears: the registry, every disease and every rule.",
	}, s.handleRenameSymptom)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "recent_searches",
		Description: "Show recently diagnosed symptom sets and the diseases most often ranked first.",
	}, s.handleRecentSearches)

	s.logger.WithField("tool_count", 9).Debug("Registered MCP tools")
}

func (s *Server) handleDiagnose(ctx context.Context, req *mcp.CallToolRequest, params SymptomsParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "diagnose_symptoms").Debug("Tool invoked")

	if len(params.Symptoms) == 0 {
		return s.createErrorResult("Missing required parameter", errors.New("symptoms is required")), nil, nil
	}

	d, err := s.service.Diagnose(ctx, params.Symptoms)
	if err != nil {
		return s.createErrorResult("Diagnosis failed", err), nil, nil
	}

	return textResult(formatDiagnosis(d.Results)), d, nil
}

func (s *Server) handleRankConditions(ctx context.Context, req *mcp.CallToolRequest, params SymptomsParams) (*mcp.CallToolResult, any, error) {
	if len(params.Symptoms) == 0 {
		return s.createErrorResult("Missing required parameter", errors.New("symptoms is required")), nil, nil
	}

	matches, err := s.service.RankConditions(ctx, params.Symptoms)
	if err != nil {
		return s.createErrorResult("Ranking failed", err), nil, nil
	}

	return textResult(formatConditions(matches)), map[string]any{"conditions": matches}, nil
}

func (s *Server) handleListSymptoms(ctx context.Context, req *mcp.CallToolRequest, params ListSymptomsParams) (*mcp.CallToolResult, any, error) {
	list := s.service.Symptoms
	if params.Registered {
		list = s.service.RegisteredSymptoms
	}

	symptoms, err := list(ctx)
	if err != nil {
		return s.createErrorResult("Could not list symptoms", err), nil, nil
	}

	text := "No symptoms found."
	if len(symptoms) > 0 {
		text = fmt.Sprintf("%d symptoms: %s", len(symptoms), strings.Join(symptoms, ", "))
	}
	return textResult(text), map[string]any{"symptoms": symptoms}, nil
}

func (s *Server) handleGetDisease(ctx context.Context, req *mcp.CallToolRequest, params DiseaseParams) (*mcp.CallToolResult, any, error) {
	if params.ID == "" {
		return s.createErrorResult("Missing required parameter", errors.New("id is required")), nil, nil
	}

	d, err := s.service.Disease(ctx, params.ID)
	if err != nil {
		return s.createErrorResult("Disease lookup failed", err), nil, nil
	}
	return textResult(formatDisease(d)), d, nil
}

func (s *Server) handleSearchDiseases(ctx context.Context, req *mcp.CallToolRequest, params SearchParams) (*mcp.CallToolResult, any, error) {
	diseases, err := s.service.SearchDiseases(ctx, params.Name, params.Symptom)
	if err != nil {
		return s.createErrorResult("Search failed", err), nil, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d diseases found.", len(diseases))
	for _, d := range diseases {
		fmt.Fprintf(&b, "\n- %s (%s)", d.Name, d.ID)
	}
	return textResult(b.String()), map[string]any{"diseases": diseases}, nil
}

func (s *Server) handleStatus(ctx context.Context, req *mcp.CallToolRequest, _ NoParams) (*mcp.CallToolResult, any, error) {
	if s.service.Status().Status == domain.StatusNotLoaded {
		// a failed load is still reported through the status
		_, _ = s.service.Snapshot(ctx)
	}
	status := s.service.Status()
	return textResult(formatStatus(status)), status, nil
}

func (s *Server) handleReload(ctx context.Context, req *mcp.CallToolRequest, _ NoParams) (*mcp.CallToolResult, any, error) {
	status, err := s.service.Reload(ctx)
	if err != nil {
		return s.createErrorResult("Reload failed", err), status, nil
	}
	return textResult(formatStatus(status)), status, nil
}

func (s *Server) handleRenameSymptom(ctx context.Context, req *mcp.CallToolRequest, params RenameParams) (*mcp.CallToolResult, any, error) {
	changed, err := s.service.RenameSymptom(ctx, params.OldName, params.NewName)
	if err != nil {
		return s.createErrorResult("Rename failed", err), nil, nil
	}

	text := fmt.Sprintf("Renamed %q to %q everywhere.", params.OldName, params.NewName)
	if !changed {
		text = fmt.Sprintf("Nothing changed: %q is not referenced or already equals %q.", params.OldName, params.NewName)
	}
	return textResult(text), map[string]any{"changed": changed}, nil
}

func (s *Server) handleRecentSearches(ctx context.Context, req *mcp.CallToolRequest, params RecentParams) (*mcp.CallToolResult, any, error) {
	summary, err := s.service.RecentSearches(ctx, params.Limit)
	if err != nil {
		return s.createErrorResult("Could not read search history", err), nil, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d searches recorded.", summary.Total)
	for _, e := range summary.Recent {
		top := "no match"
		if e.TopDiseaseID != "" {
			top = fmt.Sprintf("%s %.0f%%", e.TopDiseaseID, e.TopConfidence*100)
		}
		fmt.Fprintf(&b, "\n- %s [%s] -> %s", e.CreatedAt.Format("2006-01-02 15:04"), strings.Join(e.Symptoms, ", "), top)
	}
	return textResult(b.String()), summary, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// createErrorResult creates a standardized error result for tool calls
func (s *Server) createErrorResult(message string, err error) *mcp.CallToolResult {
	errorText := fmt.Sprintf("Error: %s", message)
	if err != nil {
		errorText += fmt.Sprintf(" - %v", err)
	}

	var schemaErr *domain.SchemaError
	if errors.As(err, &schemaErr) {
		errorText += "\n" + strings.Join(schemaErr.Errors, "\n")
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: errorText},
		},
		IsError: true,
	}
}
