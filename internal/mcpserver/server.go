// Package mcpserver exposes the query, serialize, extract and resolve
// operations as MCP tools so an agent can inspect captured trees.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/agentic-research/lina/api"
	"github.com/agentic-research/lina/internal/document"
	"github.com/agentic-research/lina/internal/engine"
	"github.com/agentic-research/lina/internal/extract"
	"github.com/agentic-research/lina/internal/ingest"
	"github.com/agentic-research/lina/internal/query"
	"github.com/agentic-research/lina/internal/tree"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Tools holds what the tool handlers need.
type Tools struct {
	// Resolver backs the resolve tool. When nil the tool is not registered.
	Resolver engine.Resolver
	// RootSelector is the default JSONPath for locating a snapshot root.
	RootSelector string
}

// New builds an MCP server with every tool registered.
func New(version string, t *Tools) *server.MCPServer {
	s := server.NewMCPServer("lina", version, server.WithToolCapabilities(false))

	snapshotArg := mcp.WithString("snapshot", mcp.Required(),
		mcp.Description("JSON element tree: {className, text, contentDescription, extras, children}"))
	selectorArg := mcp.WithString("selector",
		mcp.Description("JSONPath to the root element inside the snapshot"))
	groupsArg := mcp.WithString("groups", mcp.Required(),
		mcp.Description("Query group config: [{name, queries: [{keys, action, value}]}]"))
	formatArg := mcp.WithString("format", mcp.Enum("json", "yaml"),
		mcp.Description("Syntax of the config argument (default json)"))

	s.AddTool(mcp.NewTool("find_nodes",
		mcp.WithDescription("Find the nodes matching each query group and return them serialized, keyed by group name"),
		snapshotArg, selectorArg, groupsArg, formatArg,
	), t.findNodes)

	s.AddTool(mcp.NewTool("validate",
		mcp.WithDescription("Report whether every query group matches at least one node"),
		snapshotArg, selectorArg, groupsArg, formatArg,
	), t.validate)

	s.AddTool(mcp.NewTool("serialize",
		mcp.WithDescription("Serialize an element tree, or a source file parsed with tree-sitter, into a document"),
		mcp.WithString("snapshot", mcp.Description("JSON element tree")),
		selectorArg,
		mcp.WithString("source", mcp.Description("Source file contents to parse instead of a snapshot")),
		mcp.WithString("filename", mcp.Description("Name of the source file; its extension picks the grammar")),
	), t.serialize)

	s.AddTool(mcp.NewTool("extract",
		mcp.WithDescription("Run an extraction config against a serialized document"),
		mcp.WithString("document", mcp.Required(), mcp.Description("Document JSON")),
		mcp.WithString("spec", mcp.Required(),
			mcp.Description(`Extraction config: {"key": [[{key, action, where?, value?}, ...], ...]}`)),
		formatArg,
	), t.extract)

	if t.Resolver != nil {
		s.AddTool(mcp.NewTool("resolve",
			mcp.WithDescription("Classify a host event against the loaded profiles and return its payload"),
			mcp.WithString("event", mcp.Required(),
				mcp.Description("Event JSON: {packageName, eventType, timestamp, root}")),
		), t.resolve)
	}
	return s
}

// ServeStdio runs s over stdin and stdout until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func (t *Tools) snapshotRoot(req mcp.CallToolRequest) (tree.Node, error) {
	snapshot, err := req.RequireString("snapshot")
	if err != nil {
		return nil, err
	}
	return ingest.ParseSnapshot([]byte(snapshot), req.GetString("selector", t.RootSelector))
}

func configFormat(req mcp.CallToolRequest) api.Format {
	if req.GetString("format", "") == "yaml" {
		return api.FormatYAML
	}
	return api.FormatJSON
}

func (t *Tools) groups(req mcp.CallToolRequest) (api.QueryGroups, error) {
	raw, err := req.RequireString("groups")
	if err != nil {
		return nil, err
	}
	return api.ParseQueryGroups([]byte(raw), configFormat(req))
}

func (t *Tools) findNodes(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root, err := t.snapshotRoot(req)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("invalid snapshot", err), nil
	}
	groups, err := t.groups(req)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("invalid groups", err), nil
	}
	return documentResult(engine.FindDocuments(root, groups))
}

func (t *Tools) validate(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root, err := t.snapshotRoot(req)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("invalid snapshot", err), nil
	}
	groups, err := t.groups(req)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("invalid groups", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprint(query.Validate(root, groups))), nil
}

func (t *Tools) serialize(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var root tree.Node
	if src := req.GetString("source", ""); src != "" {
		filename := req.GetString("filename", "")
		if filename == "" {
			return mcp.NewToolResultError("filename is required with source"), nil
		}
		node, err := ingest.ParseSource(ctx, filepath.Base(filename), []byte(src))
		if err != nil {
			return mcp.NewToolResultErrorFromErr("parse source", err), nil
		}
		root = node
	} else {
		node, err := t.snapshotRoot(req)
		if err != nil {
			return mcp.NewToolResultErrorFromErr("invalid snapshot", err), nil
		}
		root = node
	}
	return documentResult(document.Serialize(root))
}

func (t *Tools) extract(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawDoc, err := req.RequireString("document")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rawSpec, err := req.RequireString("spec")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := document.ParseJSON([]byte(rawDoc))
	if err != nil {
		return mcp.NewToolResultErrorFromErr("invalid document", err), nil
	}
	spec, err := api.ParseExtraction([]byte(rawSpec), configFormat(req))
	if err != nil {
		return mcp.NewToolResultErrorFromErr("invalid spec", err), nil
	}
	return documentResult(extract.Extract(doc, spec))
}

func (t *Tools) resolve(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("event")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ev, err := ingest.ParseEvent([]byte(raw))
	if err != nil {
		return mcp.NewToolResultErrorFromErr("invalid event", err), nil
	}
	data, err := t.Resolver.Resolve(ev)
	if errors.Is(err, engine.ErrNoProfile) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err != nil {
		return nil, err
	}
	if data == nil {
		return mcp.NewToolResultText("null"), nil
	}
	body, err := engine.Envelope(ev, data).Marshal()
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(body)), nil
}

func documentResult(d document.Document) (*mcp.CallToolResult, error) {
	raw, err := document.Marshal(d)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(raw)), nil
}
