// Package mcptools exposes the lead form helpers as MCP tools so assistants
// can check identifiers, look up communes, validate answers and draft the
// fallback WhatsApp message.
package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/goliatone/go-leadform/components/localities"
	"github.com/goliatone/go-leadform/pkg/deeplink"
	"github.com/goliatone/go-leadform/pkg/form"
	"github.com/goliatone/go-leadform/pkg/rut"
	"github.com/goliatone/go-leadform/pkg/session"
)

const defaultSuggestionLimit = 10

// Deps are the components the tools read from.
type Deps struct {
	Definition *form.Definition
	Localities *localities.Index
	Links      *deeplink.Builder
}

// NewServer returns an MCP server with every tool registered.
func NewServer(version string, deps Deps) (*server.MCPServer, error) {
	if deps.Definition == nil || deps.Localities == nil || deps.Links == nil {
		return nil, errors.New("mcptools: definition, localities and links are required")
	}
	srv := server.NewMCPServer("leadform", version, server.WithToolCapabilities(false))
	Register(srv, deps)
	return srv, nil
}

// Register adds the tools to srv.
func Register(srv *server.MCPServer, deps Deps) {
	registerValidateRUT(srv)
	registerSearchLocalities(srv, deps.Localities)
	registerValidateAnswers(srv, deps)
	registerBuildLink(srv, deps.Links)
}

type toolFunc func(ctx context.Context, args map[string]any) (any, error)

// addTool runs fn and returns its result as JSON text. Errors become tool
// errors, never protocol errors.
func addTool(srv *server.MCPServer, tool mcp.Tool, fn toolFunc) {
	srv.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resp, err := fn(ctx, req.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		data, err := json.Marshal(resp)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("marshal: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	})
}

// RUTResult describes a checked identifier.
type RUTResult struct {
	Input     string `json:"input"`
	Valid     bool   `json:"valid"`
	Formatted string `json:"formatted"`
	Compact   string `json:"compact"`
	Expected  string `json:"expectedCheckDigit,omitempty"`
}

func registerValidateRUT(srv *server.MCPServer) {
	tool := mcp.NewTool("validate_rut",
		mcp.WithDescription("Check a Chilean RUT (modulus 11 check digit) and return its formatted and compact forms."),
		mcp.WithString("rut", mcp.Required(), mcp.Description("RUT with or without dots and dash, e.g. 12.345.678-5")),
	)
	addTool(srv, tool, func(_ context.Context, args map[string]any) (any, error) {
		input, _ := args["rut"].(string)
		if strings.TrimSpace(input) == "" {
			return nil, errors.New("rut is required")
		}
		res := RUTResult{
			Input:     input,
			Valid:     rut.Valid(rut.Format(input)),
			Formatted: rut.Format(input),
			Compact:   rut.Compact(input),
		}
		if c := rut.Compact(input); len(c) > 1 {
			if dv, err := rut.CheckDigit(c[:len(c)-1]); err == nil {
				res.Expected = string(dv)
			}
		}
		return res, nil
	})
}

// LocalityResult lists suggestions and the closest commune for a query.
type LocalityResult struct {
	Query       string                 `json:"query"`
	Suggestions []localities.Entry     `json:"suggestions"`
	Correction  *localities.Correction `json:"correction,omitempty"`
}

func registerSearchLocalities(srv *server.MCPServer, idx *localities.Index) {
	tool := mcp.NewTool("search_localities",
		mcp.WithDescription("Suggest Chilean communes by prefix and resolve a typed name to the closest commune and its region."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Commune name or prefix, accents optional")),
		mcp.WithNumber("limit", mcp.Description("Maximum suggestions (default 10)")),
	)
	addTool(srv, tool, func(_ context.Context, args map[string]any) (any, error) {
		query, _ := args["query"].(string)
		limit := defaultSuggestionLimit
		if v, ok := args["limit"].(float64); ok && v > 0 {
			limit = int(v)
		}
		res := LocalityResult{Query: query, Suggestions: idx.Suggestions(query, limit)}
		if res.Suggestions == nil {
			res.Suggestions = []localities.Entry{}
		}
		if c := idx.Autocorrect(query); c.Valid || c.Corrected {
			res.Correction = &c
		}
		return res, nil
	})
}

// AnswersResult reports form validity for a set of answers.
type AnswersResult struct {
	Valid        bool              `json:"valid"`
	Errors       map[string]string `json:"errors,omitempty"`
	FirstInvalid int               `json:"firstInvalidStep"`
	Values       map[string]string `json:"values"`
}

func registerValidateAnswers(srv *server.MCPServer, deps Deps) {
	tool := mcp.NewTool("validate_answers",
		mcp.WithDescription("Validate lead form answers (field name to value) and report the messages a user would see."),
		mcp.WithObject("answers", mcp.Required(), mcp.Description("Field name to answer, e.g. {\"rut\": \"12345678-5\"}")),
	)
	addTool(srv, tool, func(_ context.Context, args map[string]any) (any, error) {
		answers, err := stringMap(args["answers"])
		if err != nil {
			return nil, err
		}
		s := session.New(deps.Definition, session.WithLocalities(deps.Localities))
		for name, v := range answers {
			if err := s.SetValue(name, v); err != nil {
				return nil, err
			}
		}
		valid := s.IsFormValid()
		view := s.View()
		res := AnswersResult{Valid: valid, Errors: view.Errors, FirstInvalid: -1, Values: s.Answers()}
		if !valid {
			res.FirstInvalid = view.CurrentStep
		}
		return res, nil
	})
}

func registerBuildLink(srv *server.MCPServer, links *deeplink.Builder) {
	tool := mcp.NewTool("build_whatsapp_link",
		mcp.WithDescription("Draft the WhatsApp message and deep link sent as the fallback contact channel."),
		mcp.WithObject("answers", mcp.Required(), mcp.Description("Field name to answer")),
		mcp.WithBoolean("has_attachment", mcp.Description("Whether a document was attached")),
		mcp.WithString("user_agent", mcp.Description("Browser user agent; mobile agents get the app scheme")),
	)
	addTool(srv, tool, func(_ context.Context, args map[string]any) (any, error) {
		answers, err := stringMap(args["answers"])
		if err != nil {
			return nil, err
		}
		attached, _ := args["has_attachment"].(bool)
		ua, _ := args["user_agent"].(string)
		link, err := links.Build(answers, attached, ua)
		if err != nil {
			return nil, err
		}
		return link, nil
	})
}

func stringMap(raw any) (map[string]string, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, errors.New("answers must be an object")
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case string:
			out[k] = val
		case nil:
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out, nil
}
