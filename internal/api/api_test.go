package api

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"repoedit/internal/apply"
	"repoedit/internal/assistant"
	"repoedit/internal/edit"
	"repoedit/internal/session"
	"repoedit/internal/storage"
	"repoedit/internal/store"
)

// fakeProvider records requests and answers with a canned reply.
type fakeProvider struct {
	reply    string
	err      error
	requests []*assistant.Request
}

func (p *fakeProvider) Complete(_ context.Context, req *assistant.Request) (*assistant.Response, error) {
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	resp, _ := assistant.ParseReply(p.reply)
	return resp, nil
}

func (p *fakeProvider) Name() string  { return "fake" }
func (p *fakeProvider) Model() string { return "fake-1" }

type testEnv struct {
	server   *Server
	store    *store.Memory
	provider *fakeProvider
	journal  *storage.Journal
}

// newTestServer creates a server backed by an in-memory store and journal
func newTestServer(t *testing.T, files map[string]string) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := storage.Open(storage.MemoryPath, logger)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	journal := storage.NewJournal(db)

	st := store.NewMemory(files)
	provider := &fakeProvider{reply: "No changes needed."}
	orch := apply.NewOrchestrator(apply.NewReconciler(st, logger), journal, logger)

	cfg := DefaultServerConfig()
	cfg.Addr = ":0"
	server := NewServer(cfg, Deps{
		Store:        st,
		Orchestrator: orch,
		Provider:     provider,
		Sessions:     session.NewManager(10),
		History:      journal,
		Logger:       logger,
	})

	return &testEnv{server: server, store: st, provider: provider, journal: journal}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.server.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to parse response %q: %v", w.Body.String(), err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestServer(t, nil)

	w := env.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response HealthResponse
	decode(t, w, &response)
	if response.Status != "healthy" {
		t.Errorf("Expected status 'healthy', got %q", response.Status)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header")
	}
}

func TestReadyEndpoint(t *testing.T) {
	env := newTestServer(t, nil)

	w := env.do(t, http.MethodGet, "/ready", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	env.store.Fail = func(op, path string) error {
		return fmt.Errorf("network down: %w", store.ErrTransport)
	}
	w = env.do(t, http.MethodGet, "/ready", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503 with failing store, got %d", w.Code)
	}
}

func TestRootEndpoint(t *testing.T) {
	env := newTestServer(t, nil)

	w := env.do(t, http.MethodGet, "/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "/apply-edits") {
		t.Errorf("endpoint listing should mention /apply-edits: %s", w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown path, got %d", w.Code)
	}
}

func TestApplyEdits_CreatesFileInEmptyRepo(t *testing.T) {
	env := newTestServer(t, nil)

	w := env.do(t, http.MethodPost, "/apply-edits", EditsRequest{Edits: []edit.Edit{
		{FileName: "README.md", Action: edit.ActionWrite, Content: "# Hello"},
	}})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp ApplyResponse
	decode(t, w, &resp)
	if !resp.Success || len(resp.Results) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	r := resp.Results[0]
	if !r.Success || r.Action != apply.OutcomeCreated || r.File != "README.md" {
		t.Errorf("result = %+v", r)
	}
	if got := env.store.Snapshot()["README.md"]; got != "# Hello" {
		t.Errorf("stored content = %q", got)
	}
}

func TestApplyEdits_PerFileFailureIsStill200(t *testing.T) {
	env := newTestServer(t, map[string]string{"a.txt": "one\ntwo"})

	w := env.do(t, http.MethodPost, "/api/github/apply-edits", EditsRequest{Edits: []edit.Edit{
		{FileName: "a.txt", Action: edit.ActionDelete, Line: 2, Content: "three"},
		{FileName: "b.txt", Action: edit.ActionWrite, Content: "b"},
	}})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp ApplyResponse
	decode(t, w, &resp)
	if len(resp.Results) != 2 {
		t.Fatalf("got %d results", len(resp.Results))
	}
	if resp.Results[0].Success || resp.Results[0].Code != "DELETE_MISMATCH" {
		t.Errorf("a.txt result = %+v", resp.Results[0])
	}
	if !resp.Results[1].Success {
		t.Errorf("b.txt result = %+v", resp.Results[1])
	}
	if resp.Summary.Succeeded != 1 || resp.Summary.Failed != 1 {
		t.Errorf("summary = %+v", resp.Summary)
	}
	if env.store.Snapshot()["a.txt"] != "one\ntwo" {
		t.Error("a.txt must be untouched after a mismatch")
	}
}

func TestApplyEdits_BadRequests(t *testing.T) {
	env := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"not json", "edits please"},
		{"missing edits", `{}`},
		{"edits not array", `{"edits": "x"}`},
		{"unknown action", `{"edits": [{"file_name": "a", "action": "rename"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/apply-edits", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("Expected 400, got %d: %s", w.Code, w.Body.String())
			}
			var resp ErrorResponse
			decode(t, w, &resp)
			if resp.Code != "BAD_REQUEST" {
				t.Errorf("Code = %q, want BAD_REQUEST", resp.Code)
			}
		})
	}

	w := env.do(t, http.MethodGet, "/apply-edits", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /apply-edits = %d, want 405", w.Code)
	}
}

func TestApplyEdits_TransportFailure(t *testing.T) {
	env := newTestServer(t, map[string]string{"a.txt": "a"})
	env.store.Fail = func(op, path string) error {
		if op == "get" && path == "b.txt" {
			return fmt.Errorf("rate limited: %w", store.ErrTransport)
		}
		return nil
	}

	w := env.do(t, http.MethodPost, "/apply-edits", EditsRequest{Edits: []edit.Edit{
		{FileName: "a.txt", Action: edit.ActionWrite, Content: "A"},
		{FileName: "b.txt", Action: edit.ActionWrite, Content: "B"},
		{FileName: "c.txt", Action: edit.ActionWrite, Content: "C"},
	}})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Error   string         `json:"error"`
		Code    string         `json:"code"`
		Details []apply.Result `json:"details"`
	}
	decode(t, w, &resp)
	if resp.Code != "TRANSPORT_FAILURE" {
		t.Errorf("Code = %q, want TRANSPORT_FAILURE", resp.Code)
	}
	if len(resp.Details) != 2 || !resp.Details[0].Success {
		t.Errorf("details should hold the partial results: %+v", resp.Details)
	}
	snap := env.store.Snapshot()
	if snap["a.txt"] != "A" {
		t.Error("a.txt was committed before the failure and stays committed")
	}
	if _, ok := snap["c.txt"]; ok {
		t.Error("c.txt must not be processed after a transport failure")
	}
}

func TestPreviewEndpoint(t *testing.T) {
	env := newTestServer(t, map[string]string{"a.txt": "one\ntwo"})

	w := env.do(t, http.MethodPost, "/api/files/preview", EditsRequest{Edits: []edit.Edit{
		{FileName: "a.txt", Action: edit.ActionInsert, Line: 2, Content: "one and a half"},
	}})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp PreviewResponse
	decode(t, w, &resp)
	if len(resp.Previews) != 1 {
		t.Fatalf("got %d previews", len(resp.Previews))
	}
	p := resp.Previews[0]
	if p.After != "one\none and a half\ntwo" {
		t.Errorf("After = %q", p.After)
	}
	if !strings.Contains(p.Diff, "+one and a half") {
		t.Errorf("Diff = %q", p.Diff)
	}
	if env.store.Snapshot()["a.txt"] != "one\ntwo" {
		t.Error("preview must not commit")
	}
}

func TestChatEndpoint(t *testing.T) {
	env := newTestServer(t, map[string]string{"src/app.js": "let x = 1;"})
	env.provider.reply = `Sure: {"files": [{"file_name": "src/app.js", "action": "insert", "line": 1, "content": "// app"}]}`

	w := env.do(t, http.MethodPost, "/api/chat", ChatRequest{Message: "add a header", Files: []string{"src/app.js", "missing.js"}})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp ChatResponse
	decode(t, w, &resp)
	if resp.SessionID == "" {
		t.Fatal("expected a session id")
	}
	if w.Header().Get(SessionHeader) != resp.SessionID {
		t.Errorf("header session = %q, body = %q", w.Header().Get(SessionHeader), resp.SessionID)
	}
	if len(resp.Edits) != 1 || resp.Edits[0].Action != edit.ActionInsert {
		t.Errorf("Edits = %+v", resp.Edits)
	}

	first := env.provider.requests[0]
	if len(first.Files) != 1 || first.Files[0].Content != "let x = 1;" {
		t.Errorf("context files = %+v", first.Files)
	}
	if len(first.Paths) != 1 || first.Paths[0] != "src/app.js" {
		t.Errorf("context paths = %v", first.Paths)
	}
	if len(first.History) != 0 {
		t.Errorf("first turn history = %d, want 0", len(first.History))
	}

	// Second turn in the same session sees the first exchange.
	w = env.do(t, http.MethodPost, "/api/deepseek/chat", ChatRequest{Message: "thanks", SessionID: resp.SessionID})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	second := env.provider.requests[1]
	if len(second.History) != 2 {
		t.Fatalf("second turn history = %d, want 2", len(second.History))
	}
	if second.History[0].Content != "add a header" || second.History[1].Role != session.RoleAssistant {
		t.Errorf("history = %+v", second.History)
	}
}

func TestChatEndpoint_Errors(t *testing.T) {
	env := newTestServer(t, nil)

	w := env.do(t, http.MethodPost, "/api/chat", ChatRequest{Message: "  "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty message = %d, want 400", w.Code)
	}

	env.server.provider = nil
	w = env.do(t, http.MethodPost, "/api/chat", ChatRequest{Message: "hi"})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("no provider = %d, want 503", w.Code)
	}
}

func TestTreeAndContent(t *testing.T) {
	big := strings.Repeat("lorem ipsum dolor sit amet\n", 200)
	env := newTestServer(t, map[string]string{
		"README.md":      "# Demo",
		"src/app.js":     "let x = 1;",
		"docs/guide.txt": big,
	})

	w := env.do(t, http.MethodGet, "/api/files/tree", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("tree = %d", w.Code)
	}
	var tree []store.TreeEntry
	decode(t, w, &tree)
	if len(tree) != 3 || tree[0].Type != store.EntryDir {
		t.Errorf("tree = %+v", tree)
	}

	w = env.do(t, http.MethodGet, "/api/github/content/src/app.js", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("content = %d: %s", w.Code, w.Body.String())
	}
	var content ContentResponse
	decode(t, w, &content)
	if content.Content != "let x = 1;" || content.Path != "src/app.js" || content.Size != 10 {
		t.Errorf("content = %+v", content)
	}
	if content.Version != store.BlobVersion("let x = 1;") {
		t.Errorf("version = %q", content.Version)
	}

	w = env.do(t, http.MethodGet, "/api/files/content/nope.txt", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing file = %d, want 404", w.Code)
	}

	// Large responses are compressed when the client accepts gzip.
	req := httptest.NewRequest(http.MethodGet, "/api/files/content/docs/guide.txt", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	if rec.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("Content-Encoding = %q, want gzip", rec.Header().Get("Content-Encoding"))
	}
	zr, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	var gz ContentResponse
	if err := json.NewDecoder(zr).Decode(&gz); err != nil {
		t.Fatal(err)
	}
	if gz.Content != big {
		t.Error("decompressed content mismatch")
	}
}

func TestHistoryEndpoint(t *testing.T) {
	env := newTestServer(t, nil)

	env.do(t, http.MethodPost, "/apply-edits", EditsRequest{Edits: []edit.Edit{
		{FileName: "a.txt", Action: edit.ActionWrite, Content: "a"},
		{FileName: "gone.txt", Action: edit.ActionDeleteFile},
	}})

	w := env.do(t, http.MethodGet, "/api/history?limit=10", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("history = %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Entries []storage.JournalEntry `json:"entries"`
	}
	decode(t, w, &resp)
	if len(resp.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(resp.Entries))
	}
	if resp.Entries[0].File != "gone.txt" || resp.Entries[0].ErrorCode != "FILE_NOT_FOUND_FOR_DELETION" {
		t.Errorf("newest entry = %+v", resp.Entries[0])
	}

	w = env.do(t, http.MethodGet, "/api/history?batch="+resp.Entries[0].BatchID, nil)
	decode(t, w, &resp)
	if len(resp.Entries) != 2 || resp.Entries[0].File != "a.txt" {
		t.Errorf("batch entries = %+v", resp.Entries)
	}
}
