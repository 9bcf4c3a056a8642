package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/raido/internal/extract"
	"github.com/starford/raido/internal/query"
	"github.com/starford/raido/internal/store"
	"github.com/starford/raido/internal/testutil"
	"github.com/starford/raido/internal/updater"
)

type fakeReindexer struct {
	busy      bool
	triggered int
}

func (f *fakeReindexer) Trigger(bool) bool {
	if f.busy {
		return false
	}
	f.triggered++
	return true
}
func (f *fakeReindexer) Running() bool { return f.busy }
func (f *fakeReindexer) Progress() int { return -1 }

func testServer(t *testing.T) (*Server, *store.Store, *fakeReindexer) {
	t.Helper()
	st := testutil.TestStore(t)
	f := &fakeReindexer{}
	return New(st, query.New(st), f), st, f
}

func putDoc(t *testing.T, st *store.Store, path string, pageTexts ...string) {
	t.Helper()
	var pages []extract.Page
	for i, text := range pageTexts {
		pages = append(pages, extract.Page{Index: i, Text: text})
	}
	texts, entries := updater.Tokenize(pages)
	b, err := st.Begin()
	if err != nil {
		t.Fatal(err)
	}
	defer b.Rollback()
	if err := b.PutDocument(path, "fp", texts, entries); err != nil {
		t.Fatal(err)
	}
	if err := b.Commit(); err != nil {
		t.Fatal(err)
	}
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct call-tool test helper; invoke the handler
	// functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_documents":
		result, err = srv.searchDocuments(ctx, req)
	case "read_page":
		result, err = srv.readPage(ctx, req)
	case "list_documents":
		result, err = srv.listDocuments(ctx, req)
	case "reindex":
		result, err = srv.reindex(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestSearchDocuments(t *testing.T) {
	srv, st, _ := testServer(t)
	putDoc(t, st, "a.pdf", "hello world")

	r := callTool(t, srv, "search_documents", map[string]interface{}{"query": "hello world"})
	text := resultText(r)
	if !strings.Contains(text, "a.pdf") || !strings.Contains(text, "hello world") {
		t.Errorf("search result = %q", text)
	}
}

func TestSearchDocumentsBadQuery(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "search_documents", map[string]interface{}{"query": ",,"})
	if !r.IsError {
		t.Error("expected error result for unsearchable query")
	}
}

func TestReadPage(t *testing.T) {
	srv, st, _ := testServer(t)
	putDoc(t, st, "doc.pdf", "page zero", "page one")

	r := callTool(t, srv, "read_page", map[string]interface{}{"path": "doc.pdf", "page": 1})
	if got := resultText(r); got != "page one" {
		t.Errorf("read_page = %q", got)
	}

	r = callTool(t, srv, "read_page", map[string]interface{}{"path": "missing.pdf"})
	if !r.IsError {
		t.Error("expected error for missing document")
	}
}

func TestListDocuments(t *testing.T) {
	srv, st, _ := testServer(t)

	r := callTool(t, srv, "list_documents", map[string]interface{}{})
	if got := resultText(r); got != "index is empty" {
		t.Errorf("empty list = %q", got)
	}

	putDoc(t, st, "a.pdf", "a")
	putDoc(t, st, "b.pdf", "b")
	r = callTool(t, srv, "list_documents", map[string]interface{}{})
	if got := resultText(r); got != "a.pdf\nb.pdf" {
		t.Errorf("list = %q", got)
	}
}

func TestReindexTool(t *testing.T) {
	srv, _, f := testServer(t)

	r := callTool(t, srv, "reindex", map[string]interface{}{})
	if got := resultText(r); got != "index update started" {
		t.Errorf("reindex = %q", got)
	}
	if f.triggered != 1 {
		t.Errorf("triggered = %d", f.triggered)
	}

	f.busy = true
	r = callTool(t, srv, "reindex", map[string]interface{}{})
	if got := resultText(r); got != "an index update is already running" {
		t.Errorf("busy reindex = %q", got)
	}
}
