package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/isdmx/codepad/config"
	"github.com/isdmx/codepad/execution"
	"github.com/isdmx/codepad/langmode"
	"github.com/isdmx/codepad/registry"
	"github.com/isdmx/codepad/webui"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the browser playground",
	Long: `Serve the browser playground and its JSON API on web.port.

The page embeds a Monaco editor loaded from web.monaco_url, a language
selector filled from the Piston runtimes endpoint, a Run button and an
output pane.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "Listen port (overrides web.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	port, _ := cmd.Flags().GetInt("port")

	app := fx.New(
		commonOptions(configPath(cmd)),
		fx.Decorate(func(cfg *config.Config) *config.Config {
			if port > 0 {
				cfg.Web.Port = port
			}
			return cfg
		}),
		fx.Provide(newWebServer),
		fx.Invoke(loadRegistry, startWebServer),
		fx.WithLogger(zapEventLogger),
	)

	return runApp(cmd.Context(), app)
}

func newWebServer(cfg *config.Config, log *zap.Logger, catalog registry.Catalog, mapper *langmode.Mapper, runner execution.Runner) (*webui.Server, error) {
	return webui.New(cfg, log, catalog, mapper, runner)
}

func startWebServer(lc fx.Lifecycle, srv *webui.Server, log *zap.Logger, shutdowner fx.Shutdowner) {
	httpServer := srv.NewHTTPServer()

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", httpServer.Addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", httpServer.Addr, err)
			}
			log.Info("web server listening", zap.String("addr", ln.Addr().String()))

			go func() {
				if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("web server failed", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return httpServer.Shutdown(ctx)
		},
	})
}
