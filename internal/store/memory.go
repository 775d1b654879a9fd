package store

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process Store. Versions are git blob hashes of the
// content, so identical content always has the same token.
type Memory struct {
	mu      sync.Mutex
	files   map[string]string
	commits int

	// Fail, when set, is consulted before every operation; a non-nil
	// return is surfaced as the operation's error.
	Fail func(op, path string) error
}

// NewMemory returns a Memory seeded with files (path -> content).
func NewMemory(files map[string]string) *Memory {
	m := &Memory{files: make(map[string]string, len(files))}
	for p, c := range files {
		m.files[p] = c
	}
	return m
}

// BlobVersion is the git blob SHA-1 of content.
func BlobVersion(content string) Version {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(content))
	h.Write([]byte(content))
	return Version(hex.EncodeToString(h.Sum(nil)))
}

func (m *Memory) check(op, path string) error {
	if m.Fail == nil {
		return nil
	}
	return m.Fail(op, path)
}

func (m *Memory) nextCommit() string {
	m.commits++
	return fmt.Sprintf("mem-%06d", m.commits)
}

// GetFile implements Store.
func (m *Memory) GetFile(_ context.Context, path string) (*File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check("get", path); err != nil {
		return nil, err
	}
	content, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return &File{Path: path, Content: content, Size: len(content), Version: BlobVersion(content)}, nil
}

// GetTree implements Store.
func (m *Memory) GetTree(_ context.Context) ([]TreeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check("tree", ""); err != nil {
		return nil, err
	}
	flat := make([]TreeEntry, 0, len(m.files))
	for p, c := range m.files {
		flat = append(flat, TreeEntry{Path: p, Type: EntryFile, Size: len(c)})
	}
	return BuildTree(flat), nil
}

// PutFile implements Store.
func (m *Memory) PutFile(_ context.Context, req PutRequest) (*Commit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check("put", req.Path); err != nil {
		return nil, err
	}
	current, exists := m.files[req.Path]
	switch {
	case req.Version == "" && exists:
		return nil, fmt.Errorf("%s already exists: %w", req.Path, ErrVersionConflict)
	case req.Version != "" && !exists:
		return nil, fmt.Errorf("%s was removed: %w", req.Path, ErrVersionConflict)
	case req.Version != "" && BlobVersion(current) != req.Version:
		return nil, fmt.Errorf("%s changed since %s: %w", req.Path, req.Version, ErrVersionConflict)
	}

	m.files[req.Path] = req.Content
	return &Commit{Version: BlobVersion(req.Content), SHA: m.nextCommit()}, nil
}

// DeleteFile implements Store.
func (m *Memory) DeleteFile(_ context.Context, req DeleteRequest) (*Commit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check("delete", req.Path); err != nil {
		return nil, err
	}
	current, exists := m.files[req.Path]
	if !exists {
		return nil, fmt.Errorf("%s: %w", req.Path, ErrNotFound)
	}
	if BlobVersion(current) != req.Version {
		return nil, fmt.Errorf("%s changed since %s: %w", req.Path, req.Version, ErrVersionConflict)
	}

	delete(m.files, req.Path)
	return &Commit{SHA: m.nextCommit()}, nil
}

// Snapshot returns a copy of the stored files.
func (m *Memory) Snapshot() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]string, len(m.files))
	for p, c := range m.files {
		out[p] = c
	}
	return out
}

// BuildTree nests a flat list of file entries (paths separated by "/") into
// directories. Directories sort before files, then by name.
func BuildTree(flat []TreeEntry) []TreeEntry {
	type node struct {
		entry    TreeEntry
		children map[string]*node
	}
	root := &node{children: map[string]*node{}}

	for _, f := range flat {
		parts := strings.Split(f.Path, "/")
		cur := root
		for i, part := range parts {
			last := i == len(parts)-1
			child, ok := cur.children[part]
			if !ok {
				child = &node{
					entry:    TreeEntry{Name: part, Path: strings.Join(parts[:i+1], "/"), Type: EntryDir},
					children: map[string]*node{},
				}
				cur.children[part] = child
			}
			if last && f.Type != EntryDir {
				child.entry.Type = EntryFile
				child.entry.Size = f.Size
			}
			cur = child
		}
	}

	var build func(n *node) []TreeEntry
	build = func(n *node) []TreeEntry {
		if len(n.children) == 0 {
			return nil
		}
		out := make([]TreeEntry, 0, len(n.children))
		for _, c := range n.children {
			e := c.entry
			if e.Type == EntryDir {
				e.Children = build(c)
			}
			out = append(out, e)
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].Type != out[j].Type {
				return out[i].Type == EntryDir
			}
			return out[i].Name < out[j].Name
		})
		return out
	}
	if tree := build(root); tree != nil {
		return tree
	}
	return []TreeEntry{}
}
