// Package plugin discovers the data sources mounted by the playground.
//
// Implementations are not loaded by reflection. Each backend kind registers
// a Factory under a name at startup (see Registry.Register), and a plugin
// folder contains one sub-directory per owner holding a manifest that names
// the kind and its options:
//
//	playground/
//	  friendly_user_1/plugin.yaml   ->  kind: memory
//	  friendly_user_2/plugin.yaml   ->  kind: badger, options: {db_path: ./db}
//
// The Loader turns that folder into (owner, instance) pairs.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/marmos91/playground/pkg/datasource"
)

var (
	// ErrUnknownKind is returned when a manifest names an unregistered kind.
	ErrUnknownKind = errors.New("unknown plugin kind")

	// ErrInvalidManifest is returned for manifests that fail to decode or validate.
	ErrInvalidManifest = errors.New("invalid plugin manifest")

	// ErrNoManifest is returned for candidate directories without a manifest.
	ErrNoManifest = errors.New("no plugin manifest")
)

// Spec is what a factory receives to build one instance.
type Spec struct {
	// Owner is the owner name, as written in the manifest or the folder name.
	Owner string

	// Dir is the absolute plugin directory.
	Dir string

	// Options holds the kind-specific options from the manifest.
	Options map[string]any
}

// ResolvePath returns p unchanged when absolute, otherwise joined with Dir.
func (s Spec) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.Dir, p)
}

// Factory creates a data source instance. The instance is not yet
// initialized: SetContext is called by the playground after mounting.
type Factory func(ctx context.Context, spec Spec) (datasource.DataSource, error)

// Registry maps plugin kinds to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under kind.
// Returns an error if kind is empty, factory is nil, or kind is taken.
func (r *Registry) Register(kind string, factory Factory) error {
	if kind == "" {
		return fmt.Errorf("cannot register plugin factory with empty kind")
	}
	if factory == nil {
		return fmt.Errorf("cannot register nil factory for kind %q", kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[kind]; exists {
		return fmt.Errorf("plugin kind %q already registered", kind)
	}

	r.factories[kind] = factory
	return nil
}

// Lookup returns the factory registered under kind.
func (r *Registry) Lookup(kind string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return factory, nil
}

// Kinds returns the registered kinds in lexical order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
