// Package badger implements a data source persisted in BadgerDB.
//
// Catalogs, registrations and samples are written through the ingestion API
// (PutCatalog, PutRegistration, PutSamples) and served read-only through
// datasource.DataSource. See keys.go for the key layout.
//
// Plugin manifest:
//
//	kind: badger
//	options:
//	  db_path: ./data     # relative to the plugin directory
package badger

import (
	"context"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/marmos91/playground/pkg/datasource"
	"github.com/marmos91/playground/pkg/plugin"
)

// Kind is the plugin kind under which Register installs the factory.
const Kind = "badger"

// Config configures a Source.
type Config struct {
	// DBPath is the BadgerDB directory. Required unless InMemory is set.
	DBPath string `mapstructure:"db_path"`

	// InMemory keeps the database in memory only.
	InMemory bool `mapstructure:"in_memory"`

	// BlockCacheSizeMB and IndexCacheSizeMB size the BadgerDB caches.
	// Defaults: 64MB and 32MB.
	BlockCacheSizeMB int64 `mapstructure:"block_cache_mb"`
	IndexCacheSizeMB int64 `mapstructure:"index_cache_mb"`

	// BadgerOptions overrides all of the above when set.
	BadgerOptions *badger.Options `mapstructure:"-"`
}

// Source is a BadgerDB-backed data source. It is safe for concurrent use.
type Source struct {
	datasource.Simple

	db *badger.DB
}

var _ datasource.DataSource = (*Source)(nil)

// New opens the database described by config.
func New(ctx context.Context, config Config) (*Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if config.BadgerOptions != nil {
		opts = *config.BadgerOptions
	} else {
		if config.DBPath == "" && !config.InMemory {
			return nil, fmt.Errorf("badger data source: db_path is required")
		}

		if config.InMemory {
			opts = badger.DefaultOptions("").WithInMemory(true)
		} else {
			opts = badger.DefaultOptions(config.DBPath)
		}

		opts = opts.WithLoggingLevel(badger.WARNING)
		opts = opts.WithCompression(options.None)

		blockCacheMB := config.BlockCacheSizeMB
		if blockCacheMB == 0 {
			blockCacheMB = 64
		}
		indexCacheMB := config.IndexCacheSizeMB
		if indexCacheMB == 0 {
			indexCacheMB = 32
		}

		opts = opts.WithBlockCacheSize(blockCacheMB << 20)
		opts = opts.WithIndexCacheSize(indexCacheMB << 20)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	return &Source{db: db}, nil
}

// Register installs the badger factory in reg. Relative db_path values are
// resolved against the plugin directory.
func Register(reg *plugin.Registry) error {
	return reg.Register(Kind, func(ctx context.Context, spec plugin.Spec) (datasource.DataSource, error) {
		var config Config
		if err := plugin.DecodeOptions(spec.Options, &config); err != nil {
			return nil, err
		}
		config.DBPath = spec.ResolvePath(config.DBPath)

		return New(ctx, config)
	})
}

// Close closes the database.
func (s *Source) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close BadgerDB: %w", err)
	}
	return nil
}
