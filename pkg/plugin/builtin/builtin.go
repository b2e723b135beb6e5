// Package builtin registers the data source kinds shipped with the
// playground.
package builtin

import (
	"github.com/marmos91/playground/pkg/datasource/badger"
	"github.com/marmos91/playground/pkg/datasource/memory"
	"github.com/marmos91/playground/pkg/datasource/s3"
	"github.com/marmos91/playground/pkg/plugin"
)

// Register installs every builtin kind in reg.
func Register(reg *plugin.Registry) error {
	for _, register := range []func(*plugin.Registry) error{
		memory.Register,
		badger.Register,
		s3.Register,
	} {
		if err := register(reg); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding every builtin kind.
func NewRegistry() *plugin.Registry {
	reg := plugin.NewRegistry()
	if err := Register(reg); err != nil {
		// Kinds are distinct constants, a failure is a programming error
		panic(err)
	}
	return reg
}
