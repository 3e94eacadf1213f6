package forge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterMCP registers forge tools on an MCP server.
func (f *Forge) RegisterMCP(srv *mcp.Server) {
	f.registerExtractTool(srv)
	f.registerGenerateTool(srv)
	f.registerTemplatesTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// addTool wires a decode+endpoint pair into the SDK handler shape: tool
// errors come back as in-band results, successful responses as one JSON
// TextContent.
func addTool(srv *mcp.Server, tool *mcp.Tool, endpoint func(ctx context.Context, args json.RawMessage) (any, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resp, err := endpoint(ctx, req.Params.Arguments)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(errors.New(err.Error()))
			return &res, nil
		}

		data, err := json.Marshal(resp)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

// --- extract ---

func (f *Forge) registerExtractTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "reqsmith_extract",
		Description: "Extract typed artifacts (headings, requirements, notes, interfaces) from a .reqifz or .reqif file.",
		InputSchema: inputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "File path to extract"},
		}, []string{"path"}),
	}

	addTool(srv, tool, func(ctx context.Context, args json.RawMessage) (any, error) {
		var r struct {
			Path string `json:"path"`
		}
		if err := json.Unmarshal(args, &r); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}
		artifacts, err := f.extractor.ExtractFile(ctx, r.Path)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"count":     len(artifacts),
			"artifacts": artifacts,
		}, nil
	})
}

// --- generate ---

func (f *Forge) registerGenerateTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "reqsmith_generate",
		Description: "Run the full pipeline on a .reqifz file: extract, generate test cases with the configured model, write the CSV.",
		InputSchema: inputSchema(map[string]any{
			"path":     map[string]any{"type": "string", "description": "File path to process"},
			"template": map[string]any{"type": "string", "description": "Prompt template name (empty = auto-select)"},
		}, []string{"path"}),
	}

	addTool(srv, tool, func(ctx context.Context, args json.RawMessage) (any, error) {
		var r struct {
			Path     string `json:"path"`
			Template string `json:"template"`
		}
		if err := json.Unmarshal(args, &r); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}

		g := f
		if r.Template != "" {
			// Per-call template override without mutating shared state.
			override := *f
			override.cfg.Template = r.Template
			g = &override
		}
		return g.ProcessFile(ctx, r.Path)
	})
}

// --- templates ---

func (f *Forge) registerTemplatesTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "reqsmith_templates",
		Description: "List the loaded prompt templates.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	addTool(srv, tool, func(_ context.Context, _ json.RawMessage) (any, error) {
		type info struct {
			Name        string   `json:"name"`
			Description string   `json:"description"`
			Category    string   `json:"category,omitempty"`
			Tags        []string `json:"tags,omitempty"`
		}
		var out []info
		for _, name := range f.prompts.List() {
			t, _ := f.prompts.Info(name)
			out = append(out, info{
				Name:        name,
				Description: t.Description,
				Category:    t.Category,
				Tags:        t.Tags,
			})
		}
		return map[string]any{"templates": out}, nil
	})
}
