package api

import (
	"net/http"

	"repoedit/internal/version"
)

const (
	contentPrefix       = "/api/files/content/"
	githubContentPrefix = "/api/github/content/"
)

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	// Health and readiness checks
	s.router.HandleFunc("/health", s.handleHealth)
	s.router.HandleFunc("/ready", s.handleReady)

	// Edit application
	s.router.HandleFunc("/apply-edits", s.handleApplyEdits)
	s.router.HandleFunc("/api/github/apply-edits", s.handleApplyEdits)
	s.router.HandleFunc("/api/files/preview", s.handlePreview)

	// AI chat; the session rides in the request context
	chat := SessionMiddleware(s.sessions)(http.HandlerFunc(s.handleChat))
	s.router.Handle("/api/chat", chat)
	s.router.Handle("/api/deepseek/chat", chat)

	// Repository browsing
	s.router.HandleFunc("/api/files/tree", s.handleTree)
	s.router.HandleFunc("/api/github/tree", s.handleTree)
	s.router.HandleFunc(contentPrefix, s.handleContent)
	s.router.HandleFunc(githubContentPrefix, s.handleContent)

	// Apply journal
	s.router.HandleFunc("/api/history", s.handleHistory)

	// Root endpoint
	s.router.HandleFunc("/", s.handleRoot)
}

// handleRoot handles requests to the root path
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	// Only handle exact root path
	if r.URL.Path != "/" {
		NotFound(w, "no route for "+r.URL.Path)
		return
	}

	if r.Method != http.MethodGet {
		MethodNotAllowed(w, http.MethodGet)
		return
	}

	response := map[string]interface{}{
		"name":    "repoedit HTTP API",
		"version": version.Version,
		"endpoints": []string{
			"GET /health - Health check",
			"GET /ready - Readiness check",
			"POST /apply-edits - Apply line edits and commit (alias /api/github/apply-edits)",
			"POST /api/files/preview - Preview edits as unified diffs without committing",
			"POST /api/chat - Ask the AI for edit suggestions (alias /api/deepseek/chat)",
			"GET /api/files/tree - Repository tree (alias /api/github/tree)",
			"GET /api/files/content/:path - File content (alias /api/github/content/:path)",
			"GET /api/history?limit=N&batch=ID - Apply journal",
		},
	}

	WriteJSON(w, response, http.StatusOK)
}
