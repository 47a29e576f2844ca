package spkconfig

import "sync"

var (
	mu      sync.RWMutex
	current = &Config{}
)

// Current returns the process-wide Config. Before cmd/spk calls
// SetCurrent during startup, Current returns an empty, zero-value
// Config (every field's own zero default applies).
func Current() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// SetCurrent installs cfg as the process-wide Config, normally called
// once during cmd/spk startup after Parse/ParseFile.
func SetCurrent(cfg *Config) {
	mu.Lock()
	defer mu.Unlock()
	current = cfg
}

// WithOverride installs cfg as the process-wide Config and returns a
// restore function that puts back whatever was current before, so
// tests exercising code that reads spkconfig.Current() can swap it via
// a scoped handle and reset global state afterward.
func WithOverride(cfg *Config) (restore func()) {
	mu.Lock()
	previous := current
	current = cfg
	mu.Unlock()

	return func() {
		mu.Lock()
		current = previous
		mu.Unlock()
	}
}
