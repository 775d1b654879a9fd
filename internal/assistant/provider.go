// Package assistant asks a language model for line-based edit suggestions.
package assistant

import (
	"context"

	"repoedit/internal/edit"
	"repoedit/internal/session"
)

// Provider defines the interface for AI edit suggestions
type Provider interface {
	// Complete sends the user's message with repository context and returns
	// the model's text plus any edits it proposed.
	Complete(ctx context.Context, req *Request) (*Response, error)

	// Name returns the provider name (e.g., "deepseek", "gemini")
	Name() string

	// Model returns the model name being used
	Model() string
}

// FileContext is a repository file shown to the model.
type FileContext struct {
	Path    string
	Content string
}

// Request contains everything the model sees for one turn.
type Request struct {
	Message string
	Files   []FileContext
	// Paths lists repository files so the model can reference ones it was not shown.
	Paths   []string
	History []session.Message
}

// Response is the model's reply.
type Response struct {
	// Text is the full reply, including any JSON block.
	Text  string      `json:"message"`
	Edits []edit.Edit `json:"edits"`
	// Dropped counts proposed edits that failed validation.
	Dropped int `json:"dropped,omitempty"`
}
