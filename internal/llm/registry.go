package llm

import (
	"fmt"
	"sync"
)

// ProviderFactory builds a provider from its own environment settings.
type ProviderFactory func() (Provider, error)

var (
	registryMu sync.RWMutex
	providers  = make(map[string]ProviderFactory)
)

// RegisterProvider makes a provider selectable by AI_PROVIDER. Provider
// packages call it from init.
func RegisterProvider(name string, factory ProviderFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	providers[name] = factory
}

func NewProvider(name string) (Provider, error) {
	registryMu.RLock()
	factory, exists := providers[name]
	registryMu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
	return factory()
}
