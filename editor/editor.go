package editor

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrAlreadyMounted is returned by Host.Mount when called twice.
var ErrAlreadyMounted = errors.New("editor already mounted")

// LanguageServices is the capability surface a widget exposes to the
// pre-mount hook.
type LanguageServices interface {
	SetEagerModelSync(language string, eager bool)
}

// Instance is a mounted editor.
type Instance interface {
	Value() string
	Mode() string
	SetMode(mode string)
	Focus()
}

// MountOptions configures a widget at mount time.
type MountOptions struct {
	DefaultMode string
	Placeholder string
}

// Widget is an embeddable code editor.
type Widget interface {
	Services() LanguageServices
	Mount(opts MountOptions) (Instance, error)
}

// Options configures a Host.
type Options struct {
	DefaultMode       string
	Placeholder       string
	EagerSyncLanguage string
}

// DefaultOptions returns the stock editor configuration.
func DefaultOptions() Options {
	return Options{
		DefaultMode:       "javascript",
		Placeholder:       "// some comment",
		EagerSyncLanguage: "javascript",
	}
}

// Host owns one widget instance.
type Host struct {
	widget Widget
	opts   Options
	logger *zap.Logger

	mu       sync.RWMutex
	instance Instance
	services LanguageServices
}

// NewHost creates a Host for widget. Nothing is mounted until Mount.
func NewHost(widget Widget, logger *zap.Logger, opts Options) *Host {
	return &Host{
		widget: widget,
		opts:   opts,
		logger: logger,
	}
}

// Mount runs the initialization sequence:
//
//  1. pre-mount: eager model sync is enabled on the widget's language
//     services for the configured language;
//  2. the widget is mounted with the default mode and placeholder;
//  3. the instance and services handles are retained;
//  4. the instance is focused.
//
// Step 1 happens-before step 3.
func (h *Host) Mount() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.instance != nil {
		return ErrAlreadyMounted
	}

	services := h.widget.Services()
	if services != nil && h.opts.EagerSyncLanguage != "" {
		services.SetEagerModelSync(h.opts.EagerSyncLanguage, true)
	}

	instance, err := h.widget.Mount(MountOptions{
		DefaultMode: h.opts.DefaultMode,
		Placeholder: h.opts.Placeholder,
	})
	if err != nil {
		return err
	}

	h.instance = instance
	h.services = services
	instance.Focus()

	h.logger.Debug("editor mounted",
		zap.String("mode", h.opts.DefaultMode),
		zap.String("eager_sync_language", h.opts.EagerSyncLanguage))
	return nil
}

// GetValue returns the current document text; false before Mount.
func (h *Host) GetValue() (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.instance == nil {
		return "", false
	}
	return h.instance.Value(), true
}

// SetMode changes the live document's display mode without touching its
// text. It reports false when nothing is mounted.
func (h *Host) SetMode(mode string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.instance == nil {
		return false
	}
	h.instance.SetMode(mode)
	return true
}

// Mode returns the live display mode; false before Mount.
func (h *Host) Mode() (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.instance == nil {
		return "", false
	}
	return h.instance.Mode(), true
}

// Services returns the language services retained at mount.
func (h *Host) Services() LanguageServices {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.services
}
