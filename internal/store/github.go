package store

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/cli/go-gh/v2/pkg/api"
)

// GitHubConfig identifies the repository and credentials for GitHub.
type GitHubConfig struct {
	Host   string // "github.com" or a GHES hostname
	Owner  string
	Repo   string
	Branch string // empty uses the repository default branch
	Token  string
	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
	Timeout   time.Duration
}

// GitHub is a Store backed by the GitHub contents API. Versions are blob SHAs.
type GitHub struct {
	cfg    GitHubConfig
	client *api.RESTClient
	logger *slog.Logger
}

// NewGitHub creates a GitHub store.
func NewGitHub(cfg GitHubConfig, logger *slog.Logger) (*GitHub, error) {
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("github store: owner and repo are required")
	}
	if cfg.Host == "" {
		cfg.Host = "github.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	client, err := api.NewRESTClient(api.ClientOptions{
		Host:      cfg.Host,
		AuthToken: cfg.Token,
		Timeout:   cfg.Timeout,
		Transport: cfg.Transport,
		Headers: map[string]string{
			"Accept":               "application/vnd.github+json",
			"X-GitHub-Api-Version": "2022-11-28",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("github store: %w", err)
	}

	return &GitHub{cfg: cfg, client: client, logger: logger}, nil
}

type contentResponse struct {
	Type     string `json:"type"`
	Encoding string `json:"encoding"`
	Size     int    `json:"size"`
	Path     string `json:"path"`
	Content  string `json:"content"`
	SHA      string `json:"sha"`
}

type blobResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type writeResponse struct {
	Content *struct {
		SHA string `json:"sha"`
	} `json:"content"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

type treeResponse struct {
	Tree []struct {
		Path string `json:"path"`
		Type string `json:"type"`
		Size int    `json:"size"`
	} `json:"tree"`
	Truncated bool `json:"truncated"`
}

func (g *GitHub) repoPath(suffix string) string {
	return fmt.Sprintf("repos/%s/%s/%s", url.PathEscape(g.cfg.Owner), url.PathEscape(g.cfg.Repo), suffix)
}

func contentsPath(p string) string {
	segs := strings.Split(strings.Trim(p, "/"), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return "contents/" + strings.Join(segs, "/")
}

// classify maps go-gh errors onto the store sentinels.
func classify(op, path string, err error) error {
	var httpErr *api.HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%s %s: %w", op, path, ErrNotFound)
		case http.StatusConflict:
			if isWrite(op) {
				return fmt.Errorf("%s %s: %w: %s", op, path, ErrVersionConflict, httpErr.Message)
			}
		case http.StatusUnprocessableEntity:
			// GitHub also answers 422 when a write omits the sha of an
			// existing file. Any other 422 is a malformed request.
			if isWrite(op) && mentionsSHA(httpErr) {
				return fmt.Errorf("%s %s: %w: %s", op, path, ErrVersionConflict, httpErr.Message)
			}
			if isWrite(op) {
				return fmt.Errorf("%s %s: %w: %s", op, path, ErrRejected, httpErr.Message)
			}
		}
		return fmt.Errorf("%s %s: %w: HTTP %d: %s", op, path, ErrTransport, httpErr.StatusCode, httpErr.Message)
	}
	return fmt.Errorf("%s %s: %w: %v", op, path, ErrTransport, err)
}

func isWrite(op string) bool {
	return op == "put" || op == "delete"
}

var shaWord = regexp.MustCompile(`(?i)\bsha\b`)

func mentionsSHA(httpErr *api.HTTPError) bool {
	for _, item := range httpErr.Errors {
		if strings.EqualFold(item.Field, "sha") {
			return true
		}
	}
	return shaWord.MatchString(httpErr.Message)
}

// GetFile implements Store.
func (g *GitHub) GetFile(ctx context.Context, path string) (*File, error) {
	endpoint := g.repoPath(contentsPath(path))
	if g.cfg.Branch != "" {
		endpoint += "?ref=" + url.QueryEscape(g.cfg.Branch)
	}

	var raw json.RawMessage
	if err := g.client.DoWithContext(ctx, http.MethodGet, endpoint, nil, &raw); err != nil {
		return nil, classify("get", path, err)
	}
	// Directories come back as arrays.
	if len(bytes.TrimSpace(raw)) > 0 && bytes.TrimSpace(raw)[0] == '[' {
		return nil, fmt.Errorf("get %s: is a directory: %w", path, ErrNotFound)
	}

	var resp contentResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("get %s: %w: decode: %v", path, ErrTransport, err)
	}
	if resp.Type != "" && resp.Type != "file" {
		return nil, fmt.Errorf("get %s: is a %s: %w", path, resp.Type, ErrNotFound)
	}

	encoded, encoding := resp.Content, resp.Encoding
	// Files over 1MB arrive without inline content.
	if encoding == "none" || (encoded == "" && resp.Size > 0) {
		var blob blobResponse
		if err := g.client.DoWithContext(ctx, http.MethodGet, g.repoPath("git/blobs/"+resp.SHA), nil, &blob); err != nil {
			return nil, classify("get", path, err)
		}
		encoded, encoding = blob.Content, blob.Encoding
	}

	content, err := decodeContent(encoded, encoding)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w: %v", path, ErrTransport, err)
	}

	g.logger.Debug("Fetched file", "path", path, "size", resp.Size, "sha", resp.SHA)
	return &File{Path: path, Content: content, Size: resp.Size, Version: Version(resp.SHA)}, nil
}

func decodeContent(encoded, encoding string) (string, error) {
	switch encoding {
	case "base64", "":
		// GitHub wraps base64 at 60 columns.
		data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(encoded, "\n", ""))
		if err != nil {
			return "", fmt.Errorf("decode base64: %w", err)
		}
		return string(data), nil
	case "utf-8":
		return encoded, nil
	default:
		return "", fmt.Errorf("unsupported content encoding %q", encoding)
	}
}

func (g *GitHub) branch(ctx context.Context) (string, error) {
	if g.cfg.Branch != "" {
		return g.cfg.Branch, nil
	}
	var repo struct {
		DefaultBranch string `json:"default_branch"`
	}
	if err := g.client.DoWithContext(ctx, http.MethodGet, strings.TrimSuffix(g.repoPath(""), "/"), nil, &repo); err != nil {
		return "", classify("tree", "", err)
	}
	return repo.DefaultBranch, nil
}

// GetTree implements Store using the recursive git trees API.
func (g *GitHub) GetTree(ctx context.Context) ([]TreeEntry, error) {
	branch, err := g.branch(ctx)
	if err != nil {
		return nil, err
	}

	var resp treeResponse
	endpoint := g.repoPath("git/trees/" + url.PathEscape(branch) + "?recursive=1")
	if err := g.client.DoWithContext(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		var httpErr *api.HTTPError
		// An empty repository has no tree yet.
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusConflict {
			return []TreeEntry{}, nil
		}
		return nil, classify("tree", "", err)
	}
	if resp.Truncated {
		g.logger.Warn("Repository tree truncated by GitHub", "owner", g.cfg.Owner, "repo", g.cfg.Repo)
	}

	flat := make([]TreeEntry, 0, len(resp.Tree))
	for _, item := range resp.Tree {
		switch item.Type {
		case "blob":
			flat = append(flat, TreeEntry{Path: item.Path, Type: EntryFile, Size: item.Size})
		case "tree":
			flat = append(flat, TreeEntry{Path: item.Path, Type: EntryDir})
		}
	}
	return BuildTree(flat), nil
}

// PutFile implements Store.
func (g *GitHub) PutFile(ctx context.Context, req PutRequest) (*Commit, error) {
	body := map[string]string{
		"message": req.Message,
		"content": base64.StdEncoding.EncodeToString([]byte(req.Content)),
	}
	if req.Version != "" {
		body["sha"] = string(req.Version)
	}
	if g.cfg.Branch != "" {
		body["branch"] = g.cfg.Branch
	}

	var resp writeResponse
	if err := g.write(ctx, http.MethodPut, req.Path, body, &resp); err != nil {
		return nil, err
	}

	commit := &Commit{SHA: resp.Commit.SHA}
	if resp.Content != nil {
		commit.Version = Version(resp.Content.SHA)
	}
	g.logger.Info("Committed file", "path", req.Path, "commit", commit.SHA, "created", req.Version == "")
	return commit, nil
}

// DeleteFile implements Store.
func (g *GitHub) DeleteFile(ctx context.Context, req DeleteRequest) (*Commit, error) {
	body := map[string]string{
		"message": req.Message,
		"sha":     string(req.Version),
	}
	if g.cfg.Branch != "" {
		body["branch"] = g.cfg.Branch
	}

	var resp writeResponse
	if err := g.write(ctx, http.MethodDelete, req.Path, body, &resp); err != nil {
		return nil, err
	}

	g.logger.Info("Deleted file", "path", req.Path, "commit", resp.Commit.SHA)
	return &Commit{SHA: resp.Commit.SHA}, nil
}

func (g *GitHub) write(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	op := "put"
	if method == http.MethodDelete {
		op = "delete"
	}
	var r io.Reader = bytes.NewReader(data)
	if err := g.client.DoWithContext(ctx, method, g.repoPath(contentsPath(path)), r, out); err != nil {
		return classify(op, path, err)
	}
	return nil
}
