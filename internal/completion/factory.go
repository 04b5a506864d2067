package completion

import (
	"fmt"

	"notepipe/internal/config"
	"notepipe/internal/port"
)

// ProviderFactory is a function that creates a Completer from the completion config.
type ProviderFactory func(cfg *config.CompletionConfig) (port.Completer, error)

// registry of completion provider factories, populated explicitly via RegisterProvider.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers a completion provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// NewCompleter creates a Completer for cfg.Provider using the registered factory.
// The result enforces cfg's per-call timeout and, when configured, its request pacing.
func NewCompleter(cfg *config.CompletionConfig) (port.Completer, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown completion provider: %s", cfg.Provider)
	}
	c, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating %s completer: %w", cfg.Provider, err)
	}
	c = NewTimed(c, cfg.Timeout())
	if cfg.RequestsPerMinute > 0 {
		c = NewLimited(c, cfg.RequestsPerMinute)
	}
	return c, nil
}
