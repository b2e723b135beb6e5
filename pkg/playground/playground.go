// Package playground implements the aggregating data source.
//
// A Playground mounts every data source found in a plugin folder under
// "<mount-path>/<OWNER>" and exposes them to its caller as one catalog
// namespace. Each operation resolves the owning data source by prefix,
// strips the prefix before delegating and re-adds it to identifiers in the
// result, so mounted data sources never see the aggregate namespace.
//
// Example:
//
//	reg := plugin.NewRegistry()
//	_ = memory.Register(reg)
//
//	pg := playground.New(plugin.NewLoader(reg))
//	err := pg.SetContext(ctx, &datasource.Context{
//	    SourceConfiguration: map[string]any{
//	        "mount-path":        "/MY/PATH",
//	        "playground-folder": "/srv/playground",
//	    },
//	}, logger)
//
//	regs, err := pg.GetCatalogRegistrations(ctx, "/")
package playground

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/marmos91/playground/pkg/datasource"
	"github.com/marmos91/playground/pkg/metrics"
	"github.com/marmos91/playground/pkg/mount"
	"github.com/marmos91/playground/pkg/plugin"
	"github.com/mitchellh/mapstructure"
)

// Operation names used in logs and metrics.
const (
	opSetContext      = "set_context"
	opRegistrations   = "get_catalog_registrations"
	opGetCatalog      = "get_catalog"
	opEnrichCatalog   = "enrich_catalog"
	opGetTimeRange    = "get_time_range"
	opGetAvailability = "get_availability"
	opRead            = "read"
	opClose           = "close"
)

// Loader discovers the data sources to mount.
// *plugin.Loader satisfies it.
type Loader interface {
	Discover(ctx context.Context, folder string) ([]plugin.Discovered, error)
}

// Settings is the source configuration understood by the playground.
type Settings struct {
	// MountPath is the root under which owners are mounted (required).
	MountPath string `mapstructure:"mount-path"`

	// PlaygroundFolder is the plugin folder. When empty the resource
	// locator of the context is used, which must be a file:// URL.
	PlaygroundFolder string `mapstructure:"playground-folder"`
}

// Option configures a Playground.
type Option func(*Playground)

// WithMetrics sets the metrics sink. Default: no-op.
func WithMetrics(m metrics.RouterMetrics) Option {
	return func(p *Playground) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithCollisionPolicy sets how overlapping mount prefixes are handled.
// Default: mount.PolicyReject.
func WithCollisionPolicy(policy mount.CollisionPolicy) Option {
	return func(p *Playground) {
		p.policy = policy
	}
}

// Playground is the aggregating data source. It implements
// datasource.DataSource and datasource.CatalogEnricher.
//
// The mount table is built once by SetContext and read-only afterwards;
// operations may run concurrently without locking.
type Playground struct {
	loader  Loader
	metrics metrics.RouterMetrics
	policy  mount.CollisionPolicy

	state atomic.Pointer[mountState]

	// initMu serializes SetContext and Close.
	initMu sync.Mutex
}

// mountState is what SetContext produces; it is replaced as a whole.
type mountState struct {
	table  *mount.Table
	logger datasource.Logger
}

var (
	_ datasource.DataSource      = (*Playground)(nil)
	_ datasource.CatalogEnricher = (*Playground)(nil)
)

// New creates an uninitialized Playground. Call SetContext before use.
func New(loader Loader, opts ...Option) *Playground {
	p := &Playground{
		loader:  loader,
		metrics: metrics.NewNoopRouterMetrics(),
		policy:  mount.PolicyReject,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetContext discovers the plugins, builds the mount table and initializes
// every mounted data source in mount order with the same context and logger.
//
// Missing settings, an unusable resource locator or an invalid mount table
// fail with ConfigurationError. A failing data source aborts initialization.
// Every discovered data source is closed when initialization fails, and so
// are the candidates the collision policy left out.
//
// Calling SetContext again unmounts and closes the current data sources
// before the plugin folder is scanned, so backends holding exclusive
// resources (such as a badger directory lock) can be opened again. Until it
// returns, operations fail with ConfigurationError.
func (p *Playground) SetContext(ctx context.Context, dsCtx *datasource.Context, logger datasource.Logger) (err error) {
	start := time.Now()
	defer func() { p.metrics.RecordOperation(opSetContext, "", time.Since(start), err) }()

	p.initMu.Lock()
	defer p.initMu.Unlock()

	if logger == nil {
		logger = datasource.NopLogger
	}
	if dsCtx == nil {
		return configurationError("no context provided", nil)
	}

	settings, err := decodeSettings(dsCtx.SourceConfiguration)
	if err != nil {
		return err
	}

	folder, err := pluginFolder(settings, dsCtx)
	if err != nil {
		return err
	}

	if previous := p.state.Swap(nil); previous != nil {
		p.metrics.SetMountedSources(0)
		if err := p.closeEntries(previous.table.Entries()); err != nil {
			logger.Log(datasource.LogWarning, fmt.Sprintf("Failed to close previously mounted data sources: %v", err))
		}
	}

	discovered, err := p.loader.Discover(ctx, folder)
	if err != nil {
		return configurationError("unable to load plugins", err)
	}

	candidates := make([]mount.Candidate, 0, len(discovered))
	for _, d := range discovered {
		candidates = append(candidates, mount.Candidate{Owner: d.Owner, Source: d.Source})
	}

	// release closes what was discovered but will not be served
	release := func(unused []mount.Candidate) {
		if err := p.closeCandidates(unused); err != nil {
			logger.Log(datasource.LogWarning, fmt.Sprintf("Failed to close unmounted data sources: %v", err))
		}
	}

	table, err := mount.Build(settings.MountPath, candidates, p.policy)
	if err != nil {
		release(candidates)
		return configurationError("invalid mount table", err)
	}
	release(table.Dropped())

	for _, entry := range table.Entries() {
		if err := entry.Source.SetContext(ctx, dsCtx, logger); err != nil {
			release(entryCandidates(table.Entries()))
			return fmt.Errorf("failed to initialize data source of owner %s: %w", entry.Owner, err)
		}
	}

	p.state.Store(&mountState{table: table, logger: logger})
	p.metrics.SetMountedSources(table.Len())

	logger.Log(datasource.LogInformation, fmt.Sprintf("Mounted %d data source(s) under %s", table.Len(), settings.MountPath))

	return nil
}

func decodeSettings(raw map[string]any) (Settings, error) {
	var settings Settings

	if err := mapstructure.Decode(raw, &settings); err != nil {
		return Settings{}, configurationError("invalid source configuration", err)
	}
	if settings.MountPath == "" {
		return Settings{}, configurationError("the mount-path setting is required", nil)
	}

	return settings, nil
}

func pluginFolder(settings Settings, dsCtx *datasource.Context) (string, error) {
	if settings.PlaygroundFolder != "" {
		return settings.PlaygroundFolder, nil
	}

	locator := dsCtx.ResourceLocator
	if locator == nil || locator.Path == "" {
		return "", configurationError("no resource locator provided", nil)
	}
	if locator.Scheme != "file" {
		return "", configurationError(fmt.Sprintf("expected 'file' URI scheme, but got '%s'", locator.Scheme), nil)
	}

	return locator.Path, nil
}

// Mounts returns the mount table, or nil before SetContext succeeded.
func (p *Playground) Mounts() *mount.Table {
	if state := p.state.Load(); state != nil {
		return state.table
	}
	return nil
}

// Close unmounts and closes every mounted data source implementing
// io.Closer. All sources are closed even if some fail; the failures are
// aggregated. Operations after Close fail with ConfigurationError until the
// next SetContext.
func (p *Playground) Close() error {
	p.initMu.Lock()
	defer p.initMu.Unlock()

	state := p.state.Swap(nil)
	if state == nil {
		return nil
	}
	p.metrics.SetMountedSources(0)

	return p.closeEntries(state.table.Entries())
}

func (p *Playground) closeEntries(entries []mount.Entry) error {
	return p.closeCandidates(entryCandidates(entries))
}

// closeCandidates closes every source implementing io.Closer, aggregating
// the failures.
func (p *Playground) closeCandidates(candidates []mount.Candidate) error {
	var result error
	for _, c := range candidates {
		closer, ok := c.Source.(io.Closer)
		if !ok {
			continue
		}

		start := time.Now()
		err := closer.Close()
		p.metrics.RecordOperation(opClose, c.Owner, time.Since(start), err)

		if err != nil {
			result = multierror.Append(result, fmt.Errorf("owner %s: %w", c.Owner, err))
		}
	}
	return result
}

func entryCandidates(entries []mount.Entry) []mount.Candidate {
	candidates := make([]mount.Candidate, 0, len(entries))
	for _, e := range entries {
		candidates = append(candidates, mount.Candidate{Owner: e.Owner, Source: e.Source})
	}
	return candidates
}

// mounted returns the table or ConfigurationError before initialization.
func (p *Playground) mounted() (*mount.Table, error) {
	table := p.Mounts()
	if table == nil {
		return nil, configurationError("the playground is not initialized", nil)
	}
	return table, nil
}

// resolve finds the entry owning id.
func (p *Playground) resolve(id string) (mount.Entry, error) {
	table, err := p.mounted()
	if err != nil {
		return mount.Entry{}, err
	}

	entry, ok := table.Resolve(id)
	if !ok {
		return mount.Entry{}, notFound(id)
	}
	return entry, nil
}

func (p *Playground) debug(format string, v ...any) {
	state := p.state.Load()
	if state == nil {
		return
	}
	state.logger.Log(datasource.LogDebug, fmt.Sprintf(format, v...))
}
