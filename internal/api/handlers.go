package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"repoedit/internal/apply"
	"repoedit/internal/assistant"
	"repoedit/internal/edit"
	"repoedit/internal/errors"
	"repoedit/internal/session"
	"repoedit/internal/store"
)

// EditsRequest is the body of apply and preview calls.
type EditsRequest struct {
	Edits []edit.Edit `json:"edits"`
}

// ApplyResponse reports per-file outcomes.
type ApplyResponse struct {
	Success bool           `json:"success"`
	Results []apply.Result `json:"results"`
	Summary apply.Summary  `json:"summary"`
}

// PreviewResponse carries one preview per file.
type PreviewResponse struct {
	Previews []apply.Preview `json:"previews"`
}

// ChatRequest is the body of a chat call.
type ChatRequest struct {
	Message   string   `json:"message"`
	SessionID string   `json:"sessionId,omitempty"`
	Files     []string `json:"files,omitempty"`
}

// ChatResponse is the model's reply with any proposed edits.
type ChatResponse struct {
	Message   string      `json:"message"`
	Edits     []edit.Edit `json:"edits"`
	SessionID string      `json:"sessionId"`
	Dropped   int         `json:"dropped,omitempty"`
}

// ContentResponse is a single file's content.
type ContentResponse struct {
	Content string        `json:"content"`
	Path    string        `json:"path"`
	Size    int           `json:"size"`
	Version store.Version `json:"version"`
}

func decodeEdits(w http.ResponseWriter, r *http.Request) ([]edit.Edit, bool) {
	var req EditsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body: "+err.Error())
		return nil, false
	}
	if req.Edits == nil {
		BadRequest(w, "edits must be an array")
		return nil, false
	}
	return req.Edits, true
}

// handleApplyEdits applies a batch and commits each file.
// POST /apply-edits
func (s *Server) handleApplyEdits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowed(w, http.MethodPost)
		return
	}
	if s.orchestrator == nil {
		WriteAppError(w, errors.NewAppError(errors.TransportFailure, "no content store configured", nil))
		return
	}

	edits, ok := decodeEdits(w, r)
	if !ok {
		return
	}

	results, err := s.orchestrator.Apply(r.Context(), edits)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Apply failed", "error", err.Error(), "files", len(results))
		appErr := errors.NewAppError(apply.CodeOf(err), "failed to apply edits", err).WithDetails(results)
		WriteError(w, appErr, http.StatusInternalServerError)
		return
	}

	WriteJSON(w, ApplyResponse{
		Success: true,
		Results: results,
		Summary: apply.Summarize(results),
	}, http.StatusOK)
}

// handlePreview computes diffs without committing.
// POST /api/files/preview
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowed(w, http.MethodPost)
		return
	}
	if s.orchestrator == nil {
		WriteAppError(w, errors.NewAppError(errors.TransportFailure, "no content store configured", nil))
		return
	}

	edits, ok := decodeEdits(w, r)
	if !ok {
		return
	}

	previews, err := s.orchestrator.Preview(r.Context(), edits)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, PreviewResponse{Previews: previews}, http.StatusOK)
}

// handleChat forwards a message with repository context to the provider.
// POST /api/chat
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowed(w, http.MethodPost)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		BadRequest(w, "message is required")
		return
	}
	if s.provider == nil {
		WriteAppError(w, errors.NewAppError(errors.AIUnavailable, "no AI provider configured", nil))
		return
	}

	st, ok := session.FromContext(r.Context())
	if !ok {
		st = s.sessions.Get(req.SessionID)
	}

	aiReq := &assistant.Request{
		Message: req.Message,
		History: st.History(),
	}
	if s.store != nil {
		if err := s.gatherContext(r, aiReq, req.Files); err != nil {
			WriteAppError(w, err)
			return
		}
	}

	resp, err := s.provider.Complete(r.Context(), aiReq)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "AI request failed", "provider", s.provider.Name(), "error", err.Error())
		WriteAppError(w, err)
		return
	}

	st.Append(session.RoleUser, req.Message)
	st.Append(session.RoleAssistant, resp.Text)

	WriteJSON(w, ChatResponse{
		Message:   resp.Text,
		Edits:     resp.Edits,
		SessionID: st.ID,
		Dropped:   resp.Dropped,
	}, http.StatusOK)
}

// gatherContext loads the tree listing and the referenced files. Files that
// do not exist are skipped; any other store failure aborts the chat.
func (s *Server) gatherContext(r *http.Request, aiReq *assistant.Request, paths []string) error {
	tree, err := s.store.GetTree(r.Context())
	if err != nil {
		return errors.NewAppError(errors.TransportFailure, "failed to list repository", err)
	}
	aiReq.Paths = flattenFiles(tree)

	for _, p := range paths {
		f, err := s.store.GetFile(r.Context(), p)
		if err != nil {
			if apply.CodeOf(err) == errors.NotFound {
				s.logger.WarnContext(r.Context(), "Context file not found", "path", p)
				continue
			}
			return errors.NewAppError(errors.TransportFailure, "failed to load "+p, err)
		}
		aiReq.Files = append(aiReq.Files, assistant.FileContext{Path: f.Path, Content: f.Content})
	}
	return nil
}

func flattenFiles(entries []store.TreeEntry) []string {
	var out []string
	for _, e := range entries {
		if e.Type == store.EntryDir {
			out = append(out, flattenFiles(e.Children)...)
			continue
		}
		out = append(out, e.Path)
	}
	return out
}

// handleTree returns the repository tree.
// GET /api/files/tree
func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w, http.MethodGet)
		return
	}
	if s.store == nil {
		WriteAppError(w, errors.NewAppError(errors.TransportFailure, "no content store configured", nil))
		return
	}

	tree, err := s.store.GetTree(r.Context())
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, tree, http.StatusOK)
}

// handleContent returns one file.
// GET /api/files/content/:path
func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w, http.MethodGet)
		return
	}
	if s.store == nil {
		WriteAppError(w, errors.NewAppError(errors.TransportFailure, "no content store configured", nil))
		return
	}

	path := GetPathParam(r, contentPrefix)
	if path == "" {
		path = GetPathParam(r, githubContentPrefix)
	}
	if path == "" {
		BadRequest(w, "file path is required")
		return
	}

	f, err := s.store.GetFile(r.Context(), path)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, ContentResponse{
		Content: f.Content,
		Path:    f.Path,
		Size:    f.Size,
		Version: f.Version,
	}, http.StatusOK)
}

// handleHistory lists journal entries, or one batch with ?batch=ID.
// GET /api/history
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w, http.MethodGet)
		return
	}
	if s.history == nil {
		WriteError(w, errors.NewAppError(errors.InternalError, "journal is disabled", nil), http.StatusServiceUnavailable)
		return
	}

	var (
		entries interface{}
		err     error
	)
	if batch := r.URL.Query().Get("batch"); batch != "" {
		entries, err = s.history.Batch(r.Context(), batch)
	} else {
		entries, err = s.history.List(r.Context(), QueryParamInt(r, "limit", 50))
	}
	if err != nil {
		InternalError(w, "failed to read journal", err)
		return
	}
	WriteJSON(w, map[string]interface{}{"entries": entries}, http.StatusOK)
}
