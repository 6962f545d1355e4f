package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/isdmx/codepad/config"
	"github.com/isdmx/codepad/execution"
	"github.com/isdmx/codepad/langmode"
	"github.com/isdmx/codepad/mcpserver"
	"github.com/isdmx/codepad/registry"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose list_languages and run_code as MCP tools",
	Long: `Run an MCP server exposing two tools:

  list_languages  the cached language list with editor modes
  run_code        run source remotely and return the output pane text

The transport is server.transport: "stdio" (default) or "http" on
server.http_port.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringP("transport", "t", "", "Transport: stdio, http (overrides server.transport)")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	transport, _ := cmd.Flags().GetString("transport")

	app := fx.New(
		commonOptions(configPath(cmd)),
		fx.Decorate(func(cfg *config.Config) (*config.Config, error) {
			switch transport {
			case "":
			case "stdio", "http":
				cfg.Server.Transport = transport
			default:
				return nil, fmt.Errorf("unsupported transport: %s", transport)
			}
			return cfg, nil
		}),
		fx.Provide(newMCPServer),
		fx.Invoke(loadRegistry, startMCPServer),
		fx.WithLogger(zapEventLogger),
	)

	return runApp(cmd.Context(), app)
}

func newMCPServer(cfg *config.Config, log *zap.Logger, catalog registry.Catalog, mapper *langmode.Mapper, runner execution.Runner) (*mcpserver.MCPServer, error) {
	return mcpserver.New(cfg, log, catalog, mapper, runner)
}

func startMCPServer(lc fx.Lifecycle, cfg *config.Config, srv *mcpserver.MCPServer, log *zap.Logger, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			switch cfg.Server.Transport {
			case "stdio":
				go func() {
					// Stdio ends when the client closes stdin.
					err := srv.ServeStdio()
					if err != nil {
						log.Error("MCP stdio server failed", zap.Error(err))
					}
					_ = shutdowner.Shutdown()
				}()
			case "http":
				go func() {
					if err := srv.ServeHTTP(); err != nil {
						log.Error("MCP HTTP server failed", zap.Error(err))
						_ = shutdowner.Shutdown(fx.ExitCode(1))
					}
				}()
			default:
				return fmt.Errorf("unsupported transport: %s", cfg.Server.Transport)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cfg.Server.Transport != "http" {
				return nil
			}
			return srv.Shutdown(ctx)
		},
	})
}
