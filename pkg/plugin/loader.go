package plugin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/marmos91/playground/pkg/datasource"
	"gopkg.in/yaml.v3"
)

// ManifestNames are the file names tried, in order, in each plugin directory.
var ManifestNames = []string{"plugin.yaml", "plugin.yml", "plugin.json"}

var validate = validator.New()

// Manifest describes one plugin directory.
type Manifest struct {
	// Kind selects the registered factory.
	Kind string `yaml:"kind" json:"kind" validate:"required"`

	// Owner overrides the owner name derived from the directory name.
	Owner string `yaml:"owner,omitempty" json:"owner,omitempty" validate:"omitempty,excludesall=/"`

	// Title is informational.
	Title string `yaml:"title,omitempty" json:"title,omitempty"`

	// Options are passed to the factory.
	Options map[string]any `yaml:"options,omitempty" json:"options,omitempty"`
}

// Discovered is a constructed, not yet initialized, data source.
type Discovered struct {
	Owner  string
	Kind   string
	Dir    string
	Source datasource.DataSource
}

// Loader scans a plugin folder and builds data sources through a Registry.
type Loader struct {
	Registry *Registry

	// Logger receives debug messages about skipped candidates. May be nil.
	Logger datasource.Logger
}

// NewLoader creates a loader over reg.
func NewLoader(reg *Registry) *Loader {
	return &Loader{Registry: reg}
}

// Discover builds one data source per plugin directory directly below
// folder, in lexical directory order.
//
// A candidate that has no manifest, an invalid manifest, an unknown kind or
// a failing factory is skipped and logged at debug level; it never aborts
// discovery. Only an unreadable folder is an error.
func (l *Loader) Discover(ctx context.Context, folder string) ([]Discovered, error) {
	folder, err := filepath.Abs(folder)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve plugin folder: %w", err)
	}

	dirEntries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("failed to read plugin folder %s: %w", folder, err)
	}

	names := make([]string, 0, len(dirEntries))
	for _, e := range dirEntries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var (
		discovered []Discovered
		skipped    error
	)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dir := filepath.Join(folder, name)
		d, err := l.load(ctx, dir, name)
		if err != nil {
			l.debug(fmt.Sprintf("Unable to load plugin %s. Reason: %v", dir, err))
			skipped = multierror.Append(skipped, fmt.Errorf("%s: %w", name, err))
			continue
		}

		discovered = append(discovered, d)
	}

	if skipped != nil {
		l.debug(fmt.Sprintf("Discovered %d plugin(s) in %s, skipped: %v", len(discovered), folder, skipped))
	}

	return discovered, nil
}

func (l *Loader) load(ctx context.Context, dir, name string) (Discovered, error) {
	manifest, err := ReadManifest(dir)
	if err != nil {
		return Discovered{}, err
	}

	factory, err := l.Registry.Lookup(manifest.Kind)
	if err != nil {
		return Discovered{}, err
	}

	owner := manifest.Owner
	if owner == "" {
		owner = name
	}

	options := manifest.Options
	if options == nil {
		options = make(map[string]any)
	}

	source, err := factory(ctx, Spec{Owner: owner, Dir: dir, Options: options})
	if err != nil {
		return Discovered{}, fmt.Errorf("factory %q failed: %w", manifest.Kind, err)
	}
	if source == nil {
		return Discovered{}, fmt.Errorf("factory %q returned no data source", manifest.Kind)
	}

	return Discovered{Owner: owner, Kind: manifest.Kind, Dir: dir, Source: source}, nil
}

// ReadManifest reads and validates the manifest of a plugin directory.
func ReadManifest(dir string) (*Manifest, error) {
	for _, name := range ManifestNames {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}

		// JSON is a subset of YAML, one decoder serves all three names.
		var m Manifest
		if err := yaml.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidManifest, name, err)
		}
		if err := validate.Struct(&m); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidManifest, name, err)
		}
		return &m, nil
	}

	return nil, ErrNoManifest
}

func (l *Loader) debug(message string) {
	if l.Logger != nil {
		l.Logger.Log(datasource.LogDebug, message)
	}
}
