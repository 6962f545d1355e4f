// Package registry holds the catalog of languages the remote execution
// API supports, fetched once at startup, and the default selection.
package registry

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/isdmx/codepad/piston"
)

// FallbackLanguage is preferred as the default selection when present.
const FallbackLanguage = "javascript"

// LanguageOption is one (language, version) execution target.
type LanguageOption struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Label is the selector text for the option.
func (o LanguageOption) Label() string {
	return fmt.Sprintf("%s (%s)", o.Name, o.Version)
}

// Catalog is the read side of the registry used by the front ends.
type Catalog interface {
	Load(ctx context.Context) error
	Languages() []LanguageOption
	Default() (LanguageOption, bool)
	Find(name, version string) (LanguageOption, bool)
}

// Registry caches the runtimes catalog in memory. It is safe for
// concurrent use.
type Registry struct {
	source   piston.RuntimeLister
	logger   *zap.Logger
	fallback string

	mu         sync.RWMutex
	languages  []LanguageOption
	selected   LanguageOption
	hasDefault bool
}

// Option defines a functional option for Registry
type Option func(*Registry)

// WithFallback sets the language name preferred as default selection
func WithFallback(name string) Option {
	return func(r *Registry) {
		r.fallback = name
	}
}

// New creates an empty Registry reading from source
func New(source piston.RuntimeLister, logger *zap.Logger, opts ...Option) *Registry {
	r := &Registry{
		source:   source,
		logger:   logger,
		fallback: FallbackLanguage,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Load fetches the catalog and picks the default selection. On failure
// the error is logged, the list is left empty and no default is selected;
// the error is returned for callers that care but needs no further
// handling.
func (r *Registry) Load(ctx context.Context) error {
	runtimes, err := r.source.Runtimes(ctx)
	if err != nil {
		r.logger.Error("failed to fetch languages", zap.Error(err))

		r.mu.Lock()
		r.languages = nil
		r.selected = LanguageOption{}
		r.hasDefault = false
		r.mu.Unlock()
		return fmt.Errorf("failed to fetch languages: %w", err)
	}

	options := make([]LanguageOption, 0, len(runtimes))
	for _, rt := range runtimes {
		options = append(options, LanguageOption{Name: rt.Language, Version: rt.Version})
	}

	selected, ok := SelectDefault(options, r.fallback)

	r.mu.Lock()
	r.languages = options
	r.selected = selected
	r.hasDefault = ok
	r.mu.Unlock()

	r.logger.Info("languages loaded",
		zap.Int("count", len(options)),
		zap.String("default", selected.Label()),
		zap.Bool("has_default", ok))

	return nil
}

// Languages returns a copy of the cached list in registry order.
func (r *Registry) Languages() []LanguageOption {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]LanguageOption, len(r.languages))
	copy(out, r.languages)
	return out
}

// Default returns the default selection; false before a successful Load
// or when the catalog is empty.
func (r *Registry) Default() (LanguageOption, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.selected, r.hasDefault
}

// Find returns the first option named name. An empty version matches any
// version.
func (r *Registry) Find(name, version string) (LanguageOption, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, opt := range r.languages {
		if opt.Name == name && (version == "" || opt.Version == version) {
			return opt, true
		}
	}
	return LanguageOption{}, false
}

// SelectDefault picks the first option whose name equals fallback, else
// the first option. It reports false for an empty list.
func SelectDefault(options []LanguageOption, fallback string) (LanguageOption, bool) {
	if len(options) == 0 {
		return LanguageOption{}, false
	}

	for _, opt := range options {
		if opt.Name == fallback {
			return opt, true
		}
	}
	return options[0], true
}

var _ Catalog = (*Registry)(nil)
