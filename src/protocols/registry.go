package protocols

import (
	"fmt"
	"sort"
	"sync"

	"network-monitor/src/interfaces"
)

// Constructors keyed by protocol name ("raw", "stomp"). Each codec registers
// itself from init().
var (
	registry = make(map[string]interfaces.IProtocolConstructor)
	mu       sync.RWMutex
)

// -----------------------------------------------------------------------------

// Register adds a protocol constructor under name. Duplicate names are rejected.
func Register(name string, constructor interfaces.IProtocolConstructor) error {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[name]; exists {
		return fmt.Errorf("protocol constructor already registered for name: %s", name)
	}
	registry[name] = constructor
	return nil
}

// -----------------------------------------------------------------------------

// GetConstructor looks up the constructor registered under name.
func GetConstructor(name string) (interfaces.IProtocolConstructor, error) {
	mu.RLock()
	defer mu.RUnlock()
	constructor, exists := registry[name]
	if !exists {
		return nil, fmt.Errorf("unknown protocol: %s", name)
	}
	return constructor, nil
}

// -----------------------------------------------------------------------------

// Names lists the registered protocols in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
