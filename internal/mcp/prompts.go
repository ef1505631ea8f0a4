package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(&mcp.Prompt{
		Name:        "symptom_intake",
		Description: "Walk through the patient's symptoms, run diagnose_symptoms and explain the candidates without giving medical advice.",
		Arguments: []*mcp.PromptArgument{
			{Name: "symptoms", Description: "comma separated symptoms as the patient describes them", Required: true},
			{Name: "duration", Description: "how long the symptoms have lasted"},
		},
	}, s.handleIntakePrompt)

	s.mcpServer.AddPrompt(&mcp.Prompt{
		Name:        "review_knowledge_base",
		Description: "Audit the knowledge base for schema problems, conflicting rules and diseases no rule reaches.",
	}, s.handleReviewPrompt)
}

func (s *Server) handleIntakePrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	args := req.Params.Arguments
	symptoms := strings.TrimSpace(args["symptoms"])
	if symptoms == "" {
		return nil, fmt.Errorf("symptoms argument is required")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "A patient reports: %s.", symptoms)
	if d := strings.TrimSpace(args["duration"]); d != "" {
		fmt.Fprintf(&b, " Duration: %s.", d)
	}
	b.WriteString(`

1. Split the report into individual symptoms and call diagnose_symptoms with them.
2. If nothing matches, call list_symptoms and retry with the closest known terms.
3. Present each candidate with its confidence and the rules that fired, then call get_disease for the top candidate and summarise diagnostics and treatment.
4. Say clearly that this is decision support from a rule base, not a diagnosis, and recommend seeing a clinician for severe or persistent symptoms.`)

	return &mcp.GetPromptResult{
		Description: "Symptom intake",
		Messages: []*mcp.PromptMessage{
			{Role: "user", Content: &mcp.TextContent{Text: b.String()}},
		},
	}, nil
}

func (s *Server) handleReviewPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	text := `Review the symptom knowledge base.

1. Call knowledge_status and list every schema error and consistency warning.
2. Read kb://rules and kb://diseases. Report diseases that no rule concludes and rules whose symptoms appear in no disease.
3. Suggest concrete fixes: merged duplicates, renamed symptoms (rename_symptom) and confidence changes, each with a one-line reason.`

	return &mcp.GetPromptResult{
		Description: "Knowledge base review",
		Messages: []*mcp.PromptMessage{
			{Role: "user", Content: &mcp.TextContent{Text: text}},
		},
	}, nil
}
