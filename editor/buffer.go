package editor

import (
	"strings"
	"sync"
)

// Buffer is an in-memory Widget. The terminal front end edits it line by
// line; it is safe for concurrent use.
type Buffer struct {
	mu      sync.Mutex
	text    string
	mode    string
	focused bool
	mounted bool
	eager   map[string]bool
}

// NewBuffer creates an unmounted Buffer.
func NewBuffer() *Buffer {
	return &Buffer{eager: make(map[string]bool)}
}

// Services returns the buffer itself; it records eager sync flags.
func (b *Buffer) Services() LanguageServices {
	return b
}

// SetEagerModelSync records the flag for language.
func (b *Buffer) SetEagerModelSync(language string, eager bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.eager[language] = eager
}

// EagerModelSync reports whether eager sync is on for language.
func (b *Buffer) EagerModelSync(language string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.eager[language]
}

// Mount seeds the document with the placeholder text.
func (b *Buffer) Mount(opts MountOptions) (Instance, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.mode = opts.DefaultMode
	b.text = opts.Placeholder
	b.mounted = true
	return b, nil
}

func (b *Buffer) Value() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.text
}

func (b *Buffer) Mode() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.mode
}

func (b *Buffer) SetMode(mode string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.mode = mode
}

func (b *Buffer) Focus() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.focused = true
}

// Focused reports whether Focus was called.
func (b *Buffer) Focused() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.focused
}

// SetValue replaces the document.
func (b *Buffer) SetValue(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.text = text
}

// AppendLine adds line to the end of the document.
func (b *Buffer) AppendLine(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.text != "" && !strings.HasSuffix(b.text, "\n") {
		b.text += "\n"
	}
	b.text += line + "\n"
}

// Clear empties the document.
func (b *Buffer) Clear() {
	b.SetValue("")
}
