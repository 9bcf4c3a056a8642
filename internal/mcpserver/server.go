// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Raido's search and index tools for LLM integration via
// stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/raido/internal/api"
	"github.com/starford/raido/internal/query"
	"github.com/starford/raido/internal/store"
)

// Server wraps the MCP server with Raido tools.
type Server struct {
	mcp       *server.MCPServer
	store     *store.Store
	engine    *query.Engine
	reindexer api.Reindexer
}

// New creates a new MCP server with all Raido tools registered.
func New(st *store.Store, engine *query.Engine, reindexer api.Reindexer) *Server {
	s := &Server{store: st, engine: engine, reindexer: reindexer}

	s.mcp = server.NewMCPServer(
		"Raido",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Full-text search over the indexed PDF corpus. "+
			"Multiple terms are ANDed; exact phrases match as one span."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithString("rank", mcp.Description("Rank mode: none, asc, or desc (by hit count)")),
	), s.searchDocuments)

	s.mcp.AddTool(mcp.NewTool("read_page",
		mcp.WithDescription("Read the extracted plain text of one page of an indexed document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative document path (e.g. reports/q3.pdf)")),
		mcp.WithNumber("page", mcp.Description("0-based page index (default 0)")),
	), s.readPage)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List every document currently in the index."),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("reindex",
		mcp.WithDescription("Trigger a background index update. Returns immediately; "+
			"the run proceeds incrementally."),
		mcp.WithBoolean("reupdate", mcp.Description("Re-extract every document regardless of fingerprint")),
	), s.reindex)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rank := req.GetString("rank", "none")
	mode, err := query.ParseRankMode(rank)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	const limit = 20
	var matches []query.Match
	err = s.engine.Search(ctx, q, mode, func(m query.Match) bool {
		matches = append(matches, m)
		return len(matches) < limit
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(matches, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page := req.GetInt("page", 0)

	text, err := s.store.PageText(path, page)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s page %d", path, page)), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.store.Documents()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var paths []string
	for _, d := range docs {
		paths = append(paths, d.Path)
	}
	if len(paths) == 0 {
		return mcp.NewToolResultText("index is empty"), nil
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) reindex(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reupdate := req.GetBool("reupdate", false)
	if !s.reindexer.Trigger(reupdate) {
		return mcp.NewToolResultText("an index update is already running"), nil
	}
	return mcp.NewToolResultText("index update started"), nil
}
