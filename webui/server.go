package webui

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/isdmx/codepad/config"
	"github.com/isdmx/codepad/execution"
	"github.com/isdmx/codepad/registry"
)

//go:embed templates/index.html
var templates embed.FS

// MaxRequestSize bounds the JSON body of a run request.
const MaxRequestSize = 1 << 20

// ModeMapper translates a language name into an editor display mode.
type ModeMapper interface {
	Mode(name string) string
}

// Language is one selector entry as served to the page.
type Language struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Label   string `json:"label"`
	Mode    string `json:"mode"`
}

// LanguagesResponse is the body of GET /api/languages.
type LanguagesResponse struct {
	Languages []Language `json:"languages"`
	Default   *Language  `json:"default"`
}

// RunRequest is the body of POST /api/run.
type RunRequest struct {
	Language string `json:"language"`
	Version  string `json:"version"`
	Code     string `json:"code"`
}

// RunResponse is the body of a successful POST /api/run.
type RunResponse struct {
	Output string `json:"output"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type pageData struct {
	MonacoURL         string
	DefaultMode       string
	Placeholder       string
	EagerSyncLanguage string
	DiscardStale      bool
}

// Server serves the browser page and its JSON API.
type Server struct {
	config  *config.Config
	logger  *zap.Logger
	catalog registry.Catalog
	mapper  ModeMapper
	runner  execution.Runner
	page    *template.Template
	router  chi.Router
}

// New creates a Server
func New(cfg *config.Config, logger *zap.Logger, catalog registry.Catalog, mapper ModeMapper, runner execution.Runner) (*Server, error) {
	page, err := template.ParseFS(templates, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse page template: %w", err)
	}

	s := &Server{
		config:  cfg,
		logger:  logger,
		catalog: catalog,
		mapper:  mapper,
		runner:  runner,
		page:    page,
	}
	s.router = s.routes()

	return s, nil
}

// Handler returns the HTTP handler for the page and API.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(echoRequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.Web.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{middleware.RequestIDHeader},
	}))

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/languages", s.handleLanguages)
		r.Get("/mode", s.handleMode)
		r.Post("/run", s.handleRun)
	})

	return r
}

// NewHTTPServer wraps the handler with the listen address and timeouts.
// No write timeout is set: a run lasts as long as the remote API takes.
func (s *Server) NewHTTPServer() *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Web.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		MonacoURL:         s.config.Web.MonacoURL,
		DefaultMode:       s.config.Editor.DefaultMode,
		Placeholder:       s.config.Editor.Placeholder,
		EagerSyncLanguage: s.config.Editor.EagerSyncLanguage,
		DiscardStale:      s.config.View.DiscardStaleResults,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, data); err != nil {
		s.logger.Error("failed to render page", zap.Error(err), zap.String("request_id", middleware.GetReqID(r.Context())))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"languages": len(s.catalog.Languages()),
	})
}

func (s *Server) handleLanguages(w http.ResponseWriter, _ *http.Request) {
	options := s.catalog.Languages()
	resp := LanguagesResponse{Languages: make([]Language, 0, len(options))}
	for _, opt := range options {
		resp.Languages = append(resp.Languages, s.language(opt))
	}
	if selected, ok := s.catalog.Default(); ok {
		lang := s.language(selected)
		resp.Default = &lang
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "name is required"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"mode": s.mapper.Mode(name)})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestSize)).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	lang := s.resolve(req.Language, req.Version)

	output, err := s.runner.Run(r.Context(), req.Code, lang)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, execution.ErrEmptyEditor) || errors.Is(err, execution.ErrNoLanguage) {
			status = http.StatusBadRequest
		}
		s.writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	s.writeJSON(w, http.StatusOK, RunResponse{Output: output})
}

// resolve maps the requested language to a registry entry. Names the
// registry does not know are passed through so the remote API reports on
// them; an empty name uses the default selection.
func (s *Server) resolve(name, version string) *registry.LanguageOption {
	if name == "" {
		selected, ok := s.catalog.Default()
		if !ok {
			return nil
		}
		return &selected
	}

	if opt, ok := s.catalog.Find(name, version); ok {
		return &opt
	}
	return &registry.LanguageOption{Name: name, Version: version}
}

func (s *Server) language(opt registry.LanguageOption) Language {
	return Language{
		Name:    opt.Name,
		Version: opt.Version,
		Label:   opt.Label(),
		Mode:    s.mapper.Mode(opt.Name),
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}

// echoRequestID returns the id assigned by middleware.RequestID so the
// page can quote it when reporting a failed run.
func echoRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(middleware.RequestIDHeader, middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}
