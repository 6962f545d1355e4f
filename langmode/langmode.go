// Package langmode translates registry language names into the
// editor widget's display-mode identifiers.
package langmode

// fixed holds the known naming mismatches between the execution API and
// the editor. These entries cannot be overridden.
var fixed = map[string]string{
	"c++": "cpp",
}

// Mode returns the display mode for name using the fixed table.
// Unknown names pass through unchanged.
func Mode(name string) string {
	if mode, ok := fixed[name]; ok {
		return mode
	}
	return name
}

// Mapper applies the fixed table plus configured extra entries.
type Mapper struct {
	table map[string]string
}

// NewMapper creates a Mapper. Entries in extra that collide with the
// fixed table are ignored.
func NewMapper(extra map[string]string) *Mapper {
	table := make(map[string]string, len(fixed)+len(extra))
	for name, mode := range extra {
		if name == "" || mode == "" {
			continue
		}
		table[name] = mode
	}
	for name, mode := range fixed {
		table[name] = mode
	}
	return &Mapper{table: table}
}

// Mode returns the display mode for name.
func (m *Mapper) Mode(name string) string {
	if mode, ok := m.table[name]; ok {
		return mode
	}
	return name
}
