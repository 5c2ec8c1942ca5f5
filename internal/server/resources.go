package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const guidelinesURI = "jarmap://usage-guidelines"
const schemaURIPrefix = "jarmap://schemas/"

func (s *Server) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         guidelinesURI,
		Name:        "Usage Guidelines",
		Description: "How to drive the jarmap analysis tools",
		MIMEType:    "text/markdown",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{
					URI:      guidelinesURI,
					MIMEType: "text/markdown",
					Text:     s.systemPrompt,
				},
			},
		}, nil
	})

	// One template serves every tool's argument schema; the tool name is
	// the final URI segment.
	schemaMap := buildSchemaMap()
	s.mcpServer.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: schemaURIPrefix + "{tool_name}",
		Name:        "Tool Schema",
		Description: "JSON schema for the named tool's arguments",
		MIMEType:    "application/schema+json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		toolName := strings.TrimPrefix(req.Params.URI, schemaURIPrefix)
		schemaJSON, ok := schemaMap[toolName]
		if !ok {
			return nil, fmt.Errorf("unknown tool schema: %q", toolName)
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{
					URI:      req.Params.URI,
					MIMEType: "application/schema+json",
					Text:     schemaJSON,
				},
			},
		}, nil
	})
}

// buildSchemaMap derives each tool's argument schema from its args struct.
// The render and query tools share their arg types, so several names map
// to the same schema.
func buildSchemaMap() map[string]string {
	m := make(map[string]string)
	addSchema[AnalyzeArgs](m, "analyze")
	addSchema[AnalyzeStatusArgs](m, "analyze_status")
	addSchema[RenderArgs](m, "call_graph")
	addSchema[RenderArgs](m, "disassemble")
	addSchema[RenderArgs](m, "class_structure")
	addSchema[MethodQueryArgs](m, "callers")
	addSchema[MethodQueryArgs](m, "callees")
	return m
}

func addSchema[T any](m map[string]string, name string) {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		return
	}
	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return
	}
	m[name] = string(schemaJSON)
}
