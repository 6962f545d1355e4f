package main

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/isdmx/codepad/config"
	"github.com/isdmx/codepad/execution"
	"github.com/isdmx/codepad/langmode"
	"github.com/isdmx/codepad/logger"
	"github.com/isdmx/codepad/piston"
	"github.com/isdmx/codepad/registry"
)

// commonOptions provides the pieces every subcommand shares: config,
// logger, the Piston client, the language registry, the mode mapper and
// the execution client.
func commonOptions(path string) fx.Option {
	return fx.Options(
		fx.Provide(
			func() (*config.Config, error) {
				return config.Load(path)
			},
			logger.NewFromConfig,

			fx.Annotate(
				piston.NewFromConfig,
				fx.As(new(piston.RuntimeLister)),
				fx.As(new(piston.Executor)),
			),
			fx.Annotate(
				newRegistry,
				fx.As(new(registry.Catalog)),
			),
			newModeMapper,
			fx.Annotate(
				execution.New,
				fx.As(new(execution.Runner)),
			),
		),
	)
}

func newRegistry(cfg *config.Config, source piston.RuntimeLister, log *zap.Logger) *registry.Registry {
	return registry.New(source, log, registry.WithFallback(cfg.Registry.DefaultLanguage))
}

func newModeMapper(cfg *config.Config) *langmode.Mapper {
	return langmode.NewMapper(cfg.Editor.ModeOverrides)
}

func zapEventLogger(log *zap.Logger) fxevent.Logger {
	return &fxevent.ZapLogger{Logger: log}
}

// loadRegistry fetches the language list before any server starts
// listening. A failed fetch leaves the catalog empty; the registry logs
// the cause.
func loadRegistry(lc fx.Lifecycle, catalog registry.Catalog, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if catalog.Load(ctx) != nil {
				log.Warn("starting with an empty language list")
			}
			return nil
		},
	})
}

// runApp starts app, waits for a shutdown signal and stops it.
func runApp(ctx context.Context, app *fx.App) error {
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	sig := <-app.Wait()

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), app.StopTimeout())
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		return fmt.Errorf("failed to stop: %w", err)
	}

	if sig.ExitCode != 0 {
		return fmt.Errorf("exited with code %d", sig.ExitCode)
	}
	return nil
}
