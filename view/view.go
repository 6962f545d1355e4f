// Package view composes the language selector, the editor host, the run
// action and the output pane.
//
// All view state is owned by the goroutine running View.Run. Front ends
// talk to it only through Dispatch; network work runs in separate
// goroutines that report back through the same event channel, so state is
// never shared.
package view

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/isdmx/codepad/execution"
	"github.com/isdmx/codepad/langmode"
	"github.com/isdmx/codepad/registry"
)

// ErrStopped is returned by Dispatch and State once Run has returned.
var ErrStopped = errors.New("view stopped")

// Editor is the part of editor.Host the view drives.
type Editor interface {
	Mount() error
	GetValue() (string, bool)
	SetMode(mode string) bool
}

// ModeMapper translates a language name into an editor display mode.
type ModeMapper interface {
	Mode(name string) string
}

// Renderer draws view state. Methods are called from the Run goroutine
// only.
type Renderer interface {
	RenderLanguages(options []registry.LanguageOption, selected *registry.LanguageOption)
	RenderOutput(output string)
	Alert(message string)
}

// Event is a message handled by the view loop.
type Event interface {
	isEvent()
}

// SelectLanguage selects the first registry entry named Name. An empty
// Version matches any version.
type SelectLanguage struct {
	Name    string
	Version string
}

// RunRequested runs the current editor text with the current selection.
type RunRequested struct{}

type languagesLoaded struct {
	options  []registry.LanguageOption
	selected registry.LanguageOption
	ok       bool
}

type runCompleted struct {
	generation uint64
	output     string
	err        error
}

type stateRequest struct {
	reply chan State
}

func (SelectLanguage) isEvent()  {}
func (RunRequested) isEvent()    {}
func (languagesLoaded) isEvent() {}
func (runCompleted) isEvent()    {}
func (stateRequest) isEvent()    {}

// State is a snapshot of the view.
type State struct {
	Languages  []registry.LanguageOption
	Selected   *registry.LanguageOption
	Output     string
	Running    int
	Generation uint64
}

// View is the event-driven application view.
type View struct {
	editor   Editor
	catalog  registry.Catalog
	runner   execution.Runner
	renderer Renderer
	mapper   ModeMapper
	logger   *zap.Logger

	discardStale bool

	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup

	state State
}

// Option defines a functional option for View
type Option func(*View)

// WithModeMapper sets the language-name to display-mode translation
func WithModeMapper(mapper ModeMapper) Option {
	return func(v *View) {
		v.mapper = mapper
	}
}

// WithDiscardStale controls whether a run result older than the newest
// started run is dropped. When false the last result to arrive wins.
func WithDiscardStale(discard bool) Option {
	return func(v *View) {
		v.discardStale = discard
	}
}

// WithEventBuffer sets the event channel capacity
func WithEventBuffer(size int) Option {
	return func(v *View) {
		v.events = make(chan Event, size)
	}
}

// New creates a View. Nothing happens until Run.
func New(editor Editor, catalog registry.Catalog, runner execution.Runner, renderer Renderer, logger *zap.Logger, opts ...Option) *View {
	v := &View{
		editor:       editor,
		catalog:      catalog,
		runner:       runner,
		renderer:     renderer,
		mapper:       langmode.NewMapper(nil),
		logger:       logger,
		discardStale: true,
		events:       make(chan Event, 16),
		done:         make(chan struct{}),
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// Run mounts the editor, starts the one-time language fetch and handles
// events until ctx is done. In-flight runs are canceled on return.
func (v *View) Run(ctx context.Context) error {
	defer close(v.done)

	if err := v.editor.Mount(); err != nil {
		return fmt.Errorf("failed to mount editor: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer v.wg.Wait()
	defer cancel()

	v.wg.Add(1)
	go func() {
		defer v.wg.Done()

		// Failures are logged by the registry and leave it empty.
		_ = v.catalog.Load(ctx)
		selected, ok := v.catalog.Default()
		v.post(ctx, languagesLoaded{
			options:  v.catalog.Languages(),
			selected: selected,
			ok:       ok,
		})
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-v.events:
			v.handle(ctx, ev)
		}
	}
}

// Dispatch queues ev for the view loop.
func (v *View) Dispatch(ctx context.Context, ev Event) error {
	select {
	case v.events <- ev:
		return nil
	case <-v.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns a snapshot taken on the view loop.
func (v *View) State(ctx context.Context) (State, error) {
	req := stateRequest{reply: make(chan State, 1)}
	if err := v.Dispatch(ctx, req); err != nil {
		return State{}, err
	}

	select {
	case s := <-req.reply:
		return s, nil
	case <-v.done:
		return State{}, ErrStopped
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

func (v *View) post(ctx context.Context, ev Event) {
	select {
	case v.events <- ev:
	case <-ctx.Done():
	}
}

func (v *View) handle(ctx context.Context, ev Event) {
	switch e := ev.(type) {
	case languagesLoaded:
		v.state.Languages = e.options
		v.state.Selected = nil
		if e.ok {
			selected := e.selected
			v.state.Selected = &selected
			v.applyMode()
		}
		v.renderLanguages()

	case SelectLanguage:
		opt, ok := v.find(e.Name, e.Version)
		if !ok {
			v.renderer.Alert(fmt.Sprintf("unknown language: %s", e.Name))
			return
		}
		v.state.Selected = &opt
		v.applyMode()
		v.renderLanguages()

	case RunRequested:
		v.startRun(ctx)

	case runCompleted:
		v.state.Running--
		if e.err != nil {
			v.renderer.Alert(e.err.Error())
			return
		}
		if v.discardStale && e.generation < v.state.Generation {
			v.logger.Debug("discarding stale run result",
				zap.Uint64("generation", e.generation),
				zap.Uint64("latest", v.state.Generation))
			return
		}
		v.state.Output = e.output
		v.renderer.RenderOutput(e.output)

	case stateRequest:
		e.reply <- v.snapshot()
	}
}

func (v *View) startRun(ctx context.Context) {
	text, _ := v.editor.GetValue()
	if text == "" {
		v.renderer.Alert(execution.ErrEmptyEditor.Error())
		return
	}
	if v.state.Selected == nil {
		v.renderer.Alert(execution.ErrNoLanguage.Error())
		return
	}

	v.state.Generation++
	v.state.Running++
	generation := v.state.Generation
	selected := *v.state.Selected

	v.wg.Add(1)
	go func() {
		defer v.wg.Done()

		output, err := v.runner.Run(ctx, text, &selected)
		v.post(ctx, runCompleted{generation: generation, output: output, err: err})
	}()
}

// applyMode keeps the editor display mode in step with the selection.
func (v *View) applyMode() {
	if v.state.Selected == nil {
		return
	}
	v.editor.SetMode(v.mapper.Mode(v.state.Selected.Name))
}

func (v *View) find(name, version string) (registry.LanguageOption, bool) {
	for _, opt := range v.state.Languages {
		if opt.Name == name && (version == "" || opt.Version == version) {
			return opt, true
		}
	}
	return registry.LanguageOption{}, false
}

func (v *View) renderLanguages() {
	s := v.snapshot()
	v.renderer.RenderLanguages(s.Languages, s.Selected)
}

func (v *View) snapshot() State {
	s := v.state
	s.Languages = make([]registry.LanguageOption, len(v.state.Languages))
	copy(s.Languages, v.state.Languages)
	if v.state.Selected != nil {
		selected := *v.state.Selected
		s.Selected = &selected
	}
	return s
}
