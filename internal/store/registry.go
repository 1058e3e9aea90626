package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Config holds destination connection parameters. DSN, when set, takes
// precedence over the individual fields.
type Config struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	DSN      string
}

// Factory opens a store for a configuration.
type Factory func(ctx context.Context, cfg Config) (Store, error)

type backend struct {
	factory     Factory
	description string
}

var (
	registry = make(map[string]backend)
	mu       sync.RWMutex
)

// Register adds a backend to the registry under one or more driver names.
func Register(description string, factory Factory, names ...string) {
	mu.Lock()
	defer mu.Unlock()
	for _, name := range names {
		registry[name] = backend{factory: factory, description: description}
	}
}

// Open opens a store with the backend registered for cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	mu.RLock()
	b, ok := registry[cfg.Driver]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Driver)
	}
	return b.factory(ctx, cfg)
}

// Describe returns the description of a registered driver.
func Describe(name string) (string, error) {
	mu.RLock()
	defer mu.RUnlock()

	b, ok := registry[name]
	if !ok {
		return "", fmt.Errorf("unknown store driver: %s", name)
	}
	return b.description, nil
}

// List returns all registered driver names, sorted.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
