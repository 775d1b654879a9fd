// Package store defines the remote repository content store the edit engine
// reads from and commits to.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound means the file (or repository) does not exist.
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict means the supplied version token is stale or missing.
	ErrVersionConflict = errors.New("version conflict")
	// ErrRejected means the store refused a write as malformed, for example
	// an invalid path. Retrying the same request cannot succeed.
	ErrRejected = errors.New("rejected by store")
	// ErrTransport wraps network, auth and rate-limit failures.
	ErrTransport = errors.New("store transport failure")
)

// Version is the opaque token a store hands out on read and requires on
// overwrite. The empty Version means "no prior file".
type Version string

// File is a file's content at a particular version.
type File struct {
	Path    string  `json:"path"`
	Content string  `json:"content"`
	Size    int     `json:"size"`
	Version Version `json:"version"`
}

// EntryType distinguishes files from directories in a tree listing.
type EntryType string

const (
	EntryFile EntryType = "file"
	EntryDir  EntryType = "dir"
)

// TreeEntry is one node of the repository tree.
type TreeEntry struct {
	Name     string      `json:"name"`
	Path     string      `json:"path"`
	Type     EntryType   `json:"type"`
	Size     int         `json:"size,omitempty"`
	Children []TreeEntry `json:"children,omitempty"`
}

// PutRequest creates or updates a file. An empty Version creates.
type PutRequest struct {
	Path    string
	Content string
	Version Version
	Message string
}

// DeleteRequest removes a file at Version.
type DeleteRequest struct {
	Path    string
	Version Version
	Message string
}

// Commit identifies the result of a write.
type Commit struct {
	// Version is the file's new token; empty after a delete.
	Version Version `json:"version,omitempty"`
	SHA     string  `json:"sha,omitempty"`
}

// Store is the remote, versioned file storage.
type Store interface {
	// GetFile returns ErrNotFound when path does not exist.
	GetFile(ctx context.Context, path string) (*File, error)
	GetTree(ctx context.Context) ([]TreeEntry, error)
	// PutFile returns ErrVersionConflict when req.Version is stale, or when it
	// is empty and the file already exists.
	PutFile(ctx context.Context, req PutRequest) (*Commit, error)
	DeleteFile(ctx context.Context, req DeleteRequest) (*Commit, error)
}
