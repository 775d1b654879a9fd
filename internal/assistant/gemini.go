package assistant

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	apperrors "repoedit/internal/errors"
	"repoedit/internal/session"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// Gemini is a Provider backed by Google's Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
	prompt *PromptConfig
	logger *slog.Logger
}

// NewGemini creates a Gemini provider. Call Close when done.
func NewGemini(ctx context.Context, apiKey, model string, prompt *PromptConfig, logger *slog.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, apperrors.NewAppError(apperrors.AIUnavailable, "gemini API key is not configured", nil)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	if prompt == nil {
		prompt = DefaultPromptConfig()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client, model: model, prompt: prompt, logger: logger}, nil
}

// Name implements Provider.
func (g *Gemini) Name() string { return "gemini" }

// Model implements Provider.
func (g *Gemini) Model() string { return g.model }

// Close releases the underlying client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

// Complete implements Provider.
func (g *Gemini) Complete(ctx context.Context, req *Request) (*Response, error) {
	model := g.client.GenerativeModel(g.model)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(g.prompt.System)}}
	model.SetTemperature(0.2)

	cs := model.StartChat()
	cs.History = geminiHistory(req.History)

	g.logger.Debug("Gemini request", "model", g.model, "history", len(cs.History), "files", len(req.Files))

	resp, err := cs.SendMessage(ctx, genai.Text(g.prompt.BuildUserMessage(req)))
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.AIUnavailable, "gemini request failed", err)
	}

	text := candidateText(resp)
	if text == "" {
		return nil, apperrors.NewAppError(apperrors.AIUnavailable, "gemini returned no text", nil)
	}

	out, problems := ParseReply(text)
	for _, p := range problems {
		g.logger.Warn("Dropped proposed edit", "provider", "gemini", "error", p.Error())
	}
	return out, nil
}

// geminiHistory maps session roles onto Gemini's "user"/"model".
func geminiHistory(history []session.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(history))
	for _, h := range history {
		role := "user"
		if h.Role == session.RoleAssistant {
			role = "model"
		}
		out = append(out, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(h.Content)}})
	}
	return out
}

// candidateText joins the text parts of the first candidate.
func candidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}
