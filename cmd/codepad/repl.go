package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/isdmx/codepad/config"
	"github.com/isdmx/codepad/editor"
	"github.com/isdmx/codepad/execution"
	"github.com/isdmx/codepad/langmode"
	"github.com/isdmx/codepad/registry"
	"github.com/isdmx/codepad/view"
)

const replHelp = `Lines that are not commands are appended to the buffer.

  :langs                  list languages (* marks the selection)
  :lang <name> [version]  select a language
  :run                    run the buffer with the selected language
  :show                   print the buffer and its mode
  :clear                  empty the buffer
  :help                   show this help
  :quit                   exit (also Ctrl+D)
`

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Terminal playground",
	Long: `Start a terminal playground. Type source lines into a buffer, pick a
language with :lang and run the buffer with :run. Output arrives
asynchronously, like the browser output pane.

` + replHelp,
	Args: cobra.NoArgs,
	RunE: runRepl,
}

func init() {
	replCmd.Flags().String("history", "", "History file path (default: ~/.codepad_history)")
	replCmd.Flags().String("log-file", "", "Write logs to this file instead of logging.output_paths")
	rootCmd.AddCommand(replCmd)
}

func runRepl(cmd *cobra.Command, _ []string) error {
	historyFile, _ := cmd.Flags().GetString("history")
	logFile, _ := cmd.Flags().GetString("log-file")
	if historyFile == "" {
		home, _ := os.UserHomeDir()
		historyFile = filepath.Join(home, ".codepad_history")
	}

	var (
		cfg     *config.Config
		log     *zap.Logger
		catalog registry.Catalog
		mapper  *langmode.Mapper
		runner  execution.Runner
	)
	app := fx.New(
		commonOptions(configPath(cmd)),
		fx.Decorate(func(cfg *config.Config) *config.Config {
			if logFile != "" {
				cfg.Logging.OutputPaths = []string{logFile}
			}
			return cfg
		}),
		fx.Populate(&cfg, &log, &catalog, &mapper, &runner),
		fx.NopLogger,
	)
	if err := app.Err(); err != nil {
		return err
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "codepad> ",
		HistoryFile:       historyFile,
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         ":quit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	session := newReplSession(ctx, cfg, log, catalog, mapper, runner, rl.Stdout())
	errCh := make(chan error, 1)
	go func() { errCh <- session.view.Run(ctx) }()

	fmt.Fprintln(rl.Stderr(), "codepad REPL (:help for commands, Ctrl+D to exit)")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		quit, err := session.handle(line)
		if err != nil {
			fmt.Fprintf(rl.Stderr(), "error: %v\n", err)
		}
		if quit {
			break
		}
	}

	cancel()
	return <-errCh
}

// replSession feeds terminal lines into a view. The view loop owns all
// playground state; the session only holds the buffer it types into.
type replSession struct {
	ctx    context.Context
	view   *view.View
	buffer *editor.Buffer
	mapper *langmode.Mapper
	out    io.Writer
}

func newReplSession(ctx context.Context, cfg *config.Config, log *zap.Logger, catalog registry.Catalog, mapper *langmode.Mapper, runner execution.Runner, out io.Writer) *replSession {
	buffer := editor.NewBuffer()

	// A terminal buffer has no ghost text, so it starts empty.
	host := editor.NewHost(buffer, log, editor.Options{
		DefaultMode:       cfg.Editor.DefaultMode,
		EagerSyncLanguage: cfg.Editor.EagerSyncLanguage,
	})

	v := view.New(host, catalog, runner, &terminalRenderer{out: out, mapper: mapper}, log,
		view.WithModeMapper(mapper),
		view.WithDiscardStale(cfg.View.DiscardStaleResults),
	)

	return &replSession{
		ctx:    ctx,
		view:   v,
		buffer: buffer,
		mapper: mapper,
		out:    out,
	}
}

// handle runs one input line and reports whether the session should end.
func (s *replSession) handle(line string) (bool, error) {
	if !strings.HasPrefix(line, ":") {
		s.buffer.AppendLine(line)
		return false, nil
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case ":quit", ":exit", ":q":
		return true, nil
	case ":help":
		fmt.Fprint(s.out, replHelp)
	case ":run":
		return false, s.view.Dispatch(s.ctx, view.RunRequested{})
	case ":lang":
		if len(fields) < 2 || len(fields) > 3 {
			return false, errors.New("usage: :lang <name> [version]")
		}
		ev := view.SelectLanguage{Name: fields[1]}
		if len(fields) == 3 {
			ev.Version = fields[2]
		}
		return false, s.view.Dispatch(s.ctx, ev)
	case ":langs":
		return false, s.listLanguages()
	case ":show":
		fmt.Fprintf(s.out, "[%s]\n%s", s.buffer.Mode(), s.buffer.Value())
		if v := s.buffer.Value(); v != "" && !strings.HasSuffix(v, "\n") {
			fmt.Fprintln(s.out)
		}
	case ":clear":
		s.buffer.Clear()
	default:
		return false, fmt.Errorf("unknown command %s (try :help)", fields[0])
	}
	return false, nil
}

func (s *replSession) listLanguages() error {
	state, err := s.view.State(s.ctx)
	if err != nil {
		return err
	}
	if len(state.Languages) == 0 {
		fmt.Fprintln(s.out, "no languages available")
		return nil
	}

	for _, opt := range state.Languages {
		mark := " "
		if state.Selected != nil && *state.Selected == opt {
			mark = "*"
		}
		fmt.Fprintf(s.out, "%s %s\n", mark, opt.Label())
	}
	return nil
}

// terminalRenderer writes view updates as plain lines.
type terminalRenderer struct {
	out    io.Writer
	mapper *langmode.Mapper
}

func (r *terminalRenderer) RenderLanguages(options []registry.LanguageOption, selected *registry.LanguageOption) {
	if selected == nil {
		fmt.Fprintf(r.out, "%d languages, none selected\n", len(options))
		return
	}
	fmt.Fprintf(r.out, "language: %s [%s]\n", selected.Label(), r.mapper.Mode(selected.Name))
}

func (r *terminalRenderer) RenderOutput(output string) {
	fmt.Fprintln(r.out, strings.TrimRight(output, "\n"))
}

func (r *terminalRenderer) Alert(message string) {
	fmt.Fprintf(r.out, "! %s\n", message)
}
