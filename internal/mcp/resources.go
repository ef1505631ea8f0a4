package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	resourceStatus   = "kb://status"
	resourceSymptoms = "kb://symptoms"
	resourceDiseases = "kb://diseases"
	resourceRules    = "kb://rules"
	diseasePrefix    = "kb://diseases/"
)

func (s *Server) registerResources() {
	for _, r := range []*mcp.Resource{
		{URI: resourceStatus, Name: "knowledge_status", Description: "Load status of the knowledge base", MIMEType: "application/json"},
		{URI: resourceSymptoms, Name: "symptoms", Description: "Every symptom referenced by a disease or rule", MIMEType: "application/json"},
		{URI: resourceDiseases, Name: "diseases", Description: "All diseases", MIMEType: "application/json"},
		{URI: resourceRules, Name: "rules", Description: "All diagnostic rules", MIMEType: "application/json"},
	} {
		s.mcpServer.AddResource(r, s.readResource)
	}

	s.mcpServer.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: diseasePrefix + "{id}",
		Name:        "disease",
		Description: "One disease by id",
		MIMEType:    "application/json",
	}, s.readResource)
}

func (s *Server) readResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	s.logger.WithField("uri", uri).Debug("Resource read")

	v, err := s.resourceValue(ctx, uri)
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: uri, MIMEType: "application/json", Text: string(data)},
		},
	}, nil
}

func (s *Server) resourceValue(ctx context.Context, uri string) (any, error) {
	switch {
	case uri == resourceStatus:
		if _, err := s.service.Snapshot(ctx); err != nil {
			s.logger.WithError(err).Debug("Knowledge base not usable")
		}
		return s.service.Status(), nil
	case uri == resourceSymptoms:
		return s.service.Symptoms(ctx)
	case uri == resourceDiseases:
		return s.service.Diseases(ctx)
	case uri == resourceRules:
		return s.service.Rules(ctx)
	case strings.HasPrefix(uri, diseasePrefix):
		d, err := s.service.Disease(ctx, strings.TrimPrefix(uri, diseasePrefix))
		if err != nil {
			return nil, mcp.ResourceNotFoundError(uri)
		}
		return d, nil
	default:
		return nil, mcp.ResourceNotFoundError(uri)
	}
}
