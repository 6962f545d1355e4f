package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/isdmx/codepad/config"
	"github.com/isdmx/codepad/execution"
	"github.com/isdmx/codepad/registry"
)

// ModeMapper translates a language name into an editor display mode
type ModeMapper interface {
	Mode(name string) string
}

// LanguageEntry is one language as reported by list_languages
type LanguageEntry struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Mode    string `json:"mode"`
}

// LanguageList is the list_languages result
type LanguageList struct {
	Languages []LanguageEntry `json:"languages"`
	Default   *LanguageEntry  `json:"default,omitempty"`
}

// MCPServer represents the MCP server
type MCPServer struct {
	config    *config.Config
	logger    *zap.Logger
	catalog   registry.Catalog
	mapper    ModeMapper
	runner    execution.Runner
	mcpServer *server.MCPServer

	httpServer *server.StreamableHTTPServer
}

// New creates a new MCPServer
func New(cfg *config.Config, logger *zap.Logger, catalog registry.Catalog, mapper ModeMapper, runner execution.Runner) (*MCPServer, error) {
	s := &MCPServer{
		config:  cfg,
		logger:  logger,
		catalog: catalog,
		mapper:  mapper,
		runner:  runner,
	}

	logger.Info("configuration loaded",
		zap.String("server.transport", s.config.Server.Transport),
		zap.Int("server.http_port", s.config.Server.HTTPPort),
		zap.String("piston.runtimes_url", s.config.Piston.RuntimesURL),
		zap.String("piston.execute_url", s.config.Piston.ExecuteURL),
		zap.Int("piston.timeout_sec", s.config.Piston.TimeoutSec),
		zap.String("registry.default_language", s.config.Registry.DefaultLanguage),
	)

	s.mcpServer = server.NewMCPServer("codepad", "Run code through a remote execution API")
	s.httpServer = server.NewStreamableHTTPServer(s.mcpServer)

	s.registerListLanguagesTool()
	s.registerRunCodeTool()

	return s, nil
}

// registerListLanguagesTool registers the list_languages tool
func (s *MCPServer) registerListLanguagesTool() {
	tool := mcp.Tool{
		Name:        "list_languages",
		Description: "List the languages and versions the execution API supports, with the default selection",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}

	s.mcpServer.AddTool(tool, s.handleListLanguages)
}

// registerRunCodeTool registers the run_code tool
func (s *MCPServer) registerRunCodeTool() {
	tool := mcp.Tool{
		Name:        "run_code",
		Description: "Run source code on the remote execution API and return its stdout, or stderr when stdout is empty",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"code": map[string]any{
					"type":        "string",
					"description": "Source code to run",
				},
				"language": map[string]any{
					"type":        "string",
					"description": "Language name as listed by list_languages; the default selection when omitted",
				},
				"version": map[string]any{
					"type":        "string",
					"description": "Language version; any listed version when omitted",
				},
			},
			Required: []string{"code"},
		},
	}

	s.mcpServer.AddTool(tool, s.handleRunCode)
}

func (s *MCPServer) handleListLanguages(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list := LanguageList{Languages: []LanguageEntry{}}
	for _, opt := range s.catalog.Languages() {
		list.Languages = append(list.Languages, s.entry(opt))
	}
	if selected, ok := s.catalog.Default(); ok {
		entry := s.entry(selected)
		list.Default = &entry
	}

	data, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("failed to encode language list: %w", err)
	}

	return textResult(string(data), false), nil
}

func (s *MCPServer) handleRunCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := request.RequireString("code")
	if err != nil {
		return nil, fmt.Errorf("code parameter is required: %w", err)
	}

	name := request.GetString("language", "")
	version := request.GetString("version", "")

	lang, err := s.resolve(name, version)
	if err != nil {
		return textResult(err.Error(), true), nil
	}

	s.logger.Info("run_code requested",
		zap.String("language", name),
		zap.String("version", version),
		zap.Int("code_len", len(code)))

	output, err := s.runner.Run(ctx, code, lang)
	if err != nil {
		return textResult(err.Error(), true), nil
	}

	return textResult(output, false), nil
}

// resolve finds the registry entry for name and version. An omitted name
// uses the default selection.
func (s *MCPServer) resolve(name, version string) (*registry.LanguageOption, error) {
	if name == "" {
		selected, ok := s.catalog.Default()
		if !ok {
			return nil, execution.ErrNoLanguage
		}
		return &selected, nil
	}

	opt, ok := s.catalog.Find(name, version)
	if !ok {
		if version != "" {
			return nil, fmt.Errorf("unsupported language: %s %s", name, version)
		}
		return nil, fmt.Errorf("unsupported language: %s", name)
	}
	return &opt, nil
}

func (s *MCPServer) entry(opt registry.LanguageOption) LanguageEntry {
	return LanguageEntry{Name: opt.Name, Version: opt.Version, Mode: s.mapper.Mode(opt.Name)}
}

func textResult(text string, isError bool) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: text,
			},
		},
		IsError: isError,
	}
}

// ServeStdio starts the server on stdio
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server on stdio")
	return server.ServeStdio(s.mcpServer)
}

// ServeHTTP starts the server on HTTP
func (s *MCPServer) ServeHTTP() error {
	port := s.config.Server.HTTPPort
	s.logger.Info("starting MCP server on HTTP", zap.Int("port", port))

	err := s.httpServer.Start(fmt.Sprintf(":%d", port))
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the HTTP transport
func (s *MCPServer) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// GetMCPServer returns the underlying MCP server
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}
