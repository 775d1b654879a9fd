package store

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/cli/go-gh/v2/pkg/api"
)

// rewriteTransport sends every request to the test server.
type rewriteTransport struct {
	target *url.URL
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = rt.target.Scheme
	req.URL.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

// fakeGitHub is a tiny contents API over a map.
type fakeGitHub struct {
	mu    sync.Mutex
	files map[string]string
	puts  []map[string]string
}

func (f *fakeGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	const prefix = "/repos/octo/demo/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		if r.URL.Path == "/repos/octo/demo" {
			_ = json.NewEncoder(w).Encode(map[string]string{"default_branch": "main"})
			return
		}
		http.NotFound(w, r)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, prefix)

	switch {
	case strings.HasPrefix(rest, "git/trees/"):
		var tree []map[string]interface{}
		for p, c := range f.files {
			tree = append(tree, map[string]interface{}{"path": p, "type": "blob", "size": len(c)})
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"tree": tree})

	case strings.HasPrefix(rest, "contents/"):
		p := strings.TrimPrefix(rest, "contents/")
		content, exists := f.files[p]
		switch r.Method {
		case http.MethodGet:
			if !exists {
				w.WriteHeader(http.StatusNotFound)
				_, _ = io.WriteString(w, `{"message":"Not Found"}`)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"type":     "file",
				"encoding": "base64",
				"size":     len(content),
				"path":     p,
				"sha":      string(BlobVersion(content)),
				"content":  base64.StdEncoding.EncodeToString([]byte(content)),
			})
		case http.MethodPut, http.MethodDelete:
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			f.puts = append(f.puts, body)
			if exists && body["sha"] != string(BlobVersion(content)) {
				w.WriteHeader(http.StatusConflict)
				_, _ = io.WriteString(w, `{"message":"sha does not match"}`)
				return
			}
			if r.Method == http.MethodDelete {
				delete(f.files, p)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{"commit": map[string]string{"sha": "c-del"}})
				return
			}
			data, _ := base64.StdEncoding.DecodeString(body["content"])
			f.files[p] = string(data)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"content": map[string]string{"sha": string(BlobVersion(string(data)))},
				"commit":  map[string]string{"sha": "c-put"},
			})
		}

	default:
		http.NotFound(w, r)
	}
}

func newTestGitHub(t *testing.T, files map[string]string) (*GitHub, *fakeGitHub) {
	t.Helper()
	fake := &fakeGitHub{files: files}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	target, _ := url.Parse(srv.URL)
	g, err := NewGitHub(GitHubConfig{
		Owner:     "octo",
		Repo:      "demo",
		Token:     "test-token",
		Transport: rewriteTransport{target: target},
	}, nil)
	if err != nil {
		t.Fatalf("NewGitHub() error = %v", err)
	}
	return g, fake
}

func TestNewGitHub_RequiresRepo(t *testing.T) {
	if _, err := NewGitHub(GitHubConfig{Owner: "octo", Token: "x"}, nil); err == nil {
		t.Error("NewGitHub() without repo should fail")
	}
}

func TestGitHub_GetFile(t *testing.T) {
	g, _ := newTestGitHub(t, map[string]string{"a.txt": "one\ntwo"})
	ctx := context.Background()

	f, err := g.GetFile(ctx, "a.txt")
	if err != nil {
		t.Fatalf("GetFile() error = %v", err)
	}
	if f.Content != "one\ntwo" || f.Version != BlobVersion("one\ntwo") {
		t.Errorf("GetFile() = %+v", f)
	}

	if _, err := g.GetFile(ctx, "missing.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetFile(missing) error = %v, want ErrNotFound", err)
	}
}

func TestGitHub_PutAndDelete(t *testing.T) {
	g, fake := newTestGitHub(t, map[string]string{"a.txt": "one"})
	ctx := context.Background()

	commit, err := g.PutFile(ctx, PutRequest{Path: "a.txt", Content: "two", Version: BlobVersion("one"), Message: "AI: a.txt"})
	if err != nil {
		t.Fatalf("PutFile() error = %v", err)
	}
	if commit.SHA != "c-put" || commit.Version != BlobVersion("two") {
		t.Errorf("commit = %+v", commit)
	}
	if fake.puts[0]["message"] != "AI: a.txt" {
		t.Errorf("message = %q", fake.puts[0]["message"])
	}

	_, err = g.PutFile(ctx, PutRequest{Path: "a.txt", Content: "three", Version: BlobVersion("one")})
	if !errors.Is(err, ErrVersionConflict) {
		t.Errorf("stale PutFile() error = %v, want ErrVersionConflict", err)
	}

	if _, err := g.DeleteFile(ctx, DeleteRequest{Path: "a.txt", Version: BlobVersion("two")}); err != nil {
		t.Fatalf("DeleteFile() error = %v", err)
	}
	if _, ok := fake.files["a.txt"]; ok {
		t.Error("a.txt not deleted")
	}
}

func TestGitHub_GetTree(t *testing.T) {
	g, _ := newTestGitHub(t, map[string]string{"src/a.go": "x", "README.md": "y"})

	tree, err := g.GetTree(context.Background())
	if err != nil {
		t.Fatalf("GetTree() error = %v", err)
	}
	if len(tree) != 2 || tree[0].Name != "src" || tree[0].Type != EntryDir {
		t.Errorf("tree = %+v", tree)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		op   string
		err  error
		want error
	}{
		{"missing file", "get", &api.HTTPError{StatusCode: http.StatusNotFound}, ErrNotFound},
		{"stale sha", "put", &api.HTTPError{StatusCode: http.StatusConflict, Message: "a.txt does not match abc"}, ErrVersionConflict},
		{"sha not supplied", "put", &api.HTTPError{StatusCode: http.StatusUnprocessableEntity, Message: "Invalid request.\n\n\"sha\" wasn't supplied."}, ErrVersionConflict},
		{"sha field error", "delete", &api.HTTPError{StatusCode: http.StatusUnprocessableEntity, Message: "Validation Failed", Errors: []api.HTTPErrorItem{{Field: "sha", Code: "missing_field"}}}, ErrVersionConflict},
		{"invalid path", "put", &api.HTTPError{StatusCode: http.StatusUnprocessableEntity, Message: "path contains a malformed path component"}, ErrRejected},
		{"invalid message", "delete", &api.HTTPError{StatusCode: http.StatusUnprocessableEntity, Message: "Invalid request.\n\nmessage is not a string."}, ErrRejected},
		{"conflict on read", "get", &api.HTTPError{StatusCode: http.StatusConflict, Message: "Git Repository is empty."}, ErrTransport},
		{"unprocessable read", "tree", &api.HTTPError{StatusCode: http.StatusUnprocessableEntity}, ErrTransport},
		{"server error", "put", &api.HTTPError{StatusCode: http.StatusBadGateway}, ErrTransport},
		{"network", "put", errors.New("connection refused"), ErrTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.op, "a.txt", tt.err)
			if !errors.Is(err, tt.want) {
				t.Errorf("classify() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodeContent(t *testing.T) {
	wrapped := "b25l\nCnR3\nbw==\n"
	got, err := decodeContent(wrapped, "base64")
	if err != nil || got != "one\ntwo" {
		t.Errorf("decodeContent() = %q, %v", got, err)
	}
	if _, err := decodeContent("x", "rot13"); err == nil {
		t.Error("unsupported encoding accepted")
	}
}
