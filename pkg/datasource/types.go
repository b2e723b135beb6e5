package datasource

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

var (
	// MinTime is the earliest representable instant (0001-01-01T00:00:00Z).
	MinTime = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)

	// MaxTime is the latest representable instant (9999-12-31T23:59:59.999999999Z).
	MaxTime = time.Date(9999, time.December, 31, 23, 59, 59, 999999999, time.UTC)
)

// CatalogRegistration declares that a catalog exists at Path.
//
// Path is either absolute (starts with "/") or relative to the path the
// registrations were requested for.
type CatalogRegistration struct {
	Path        string `json:"path" mapstructure:"path"`
	Title       string `json:"title,omitempty" mapstructure:"title"`
	IsTransient bool   `json:"isTransient,omitempty" mapstructure:"is_transient"`
}

// RepresentationKind distinguishes original data from derived data.
type RepresentationKind string

const (
	KindOriginal RepresentationKind = ""
	KindMean     RepresentationKind = "mean"
	KindMin      RepresentationKind = "min"
	KindMax      RepresentationKind = "max"
)

// Representation describes how a resource is sampled.
type Representation struct {
	DataType     NexusDataType      `json:"dataType" mapstructure:"data_type"`
	SamplePeriod time.Duration      `json:"samplePeriod" mapstructure:"sample_period"`
	Kind         RepresentationKind `json:"kind,omitempty" mapstructure:"kind"`
	Parameters   map[string]any     `json:"parameters,omitempty" mapstructure:"parameters"`
}

// ID returns the identifier of the representation within its resource,
// e.g. "1_s", "100_ms" or "10_min_mean".
func (r Representation) ID() string {
	id := periodUnitString(r.SamplePeriod)
	if r.Kind != KindOriginal {
		id += "_" + string(r.Kind)
	}
	return id
}

// Validate checks that the representation can be used to size buffers.
func (r Representation) Validate() error {
	if !r.DataType.Valid() {
		return fmt.Errorf("representation has invalid data type 0x%x", uint16(r.DataType))
	}
	if r.SamplePeriod <= 0 {
		return fmt.Errorf("representation sample period must be positive, got %v", r.SamplePeriod)
	}
	return nil
}

type representationJSON struct {
	DataType     NexusDataType      `json:"dataType"`
	SamplePeriod string             `json:"samplePeriod"`
	Kind         RepresentationKind `json:"kind,omitempty"`
	Parameters   map[string]any     `json:"parameters,omitempty"`
}

// MarshalJSON encodes the sample period as a Go duration string ("1s").
func (r Representation) MarshalJSON() ([]byte, error) {
	return json.Marshal(representationJSON{
		DataType:     r.DataType,
		SamplePeriod: r.SamplePeriod.String(),
		Kind:         r.Kind,
		Parameters:   r.Parameters,
	})
}

func (r *Representation) UnmarshalJSON(data []byte) error {
	var raw representationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	period, err := time.ParseDuration(raw.SamplePeriod)
	if err != nil {
		return fmt.Errorf("invalid sample period %q: %w", raw.SamplePeriod, err)
	}
	*r = Representation{
		DataType:     raw.DataType,
		SamplePeriod: period,
		Kind:         raw.Kind,
		Parameters:   raw.Parameters,
	}
	return nil
}

// Resource is a measurement channel of a catalog.
type Resource struct {
	ID              string           `json:"id" mapstructure:"id"`
	Properties      map[string]any   `json:"properties,omitempty" mapstructure:"properties"`
	Representations []Representation `json:"representations,omitempty" mapstructure:"representations"`
}

// ResourceCatalog is a named collection of resources.
type ResourceCatalog struct {
	ID         string         `json:"id" mapstructure:"id"`
	Properties map[string]any `json:"properties,omitempty" mapstructure:"properties"`
	Resources  []Resource     `json:"resources,omitempty" mapstructure:"resources"`
}

// Find returns the resource and representation addressed by resourceID and
// representationID.
func (c ResourceCatalog) Find(resourceID, representationID string) (Resource, Representation, bool) {
	for _, resource := range c.Resources {
		if resource.ID != resourceID {
			continue
		}
		for _, rep := range resource.Representations {
			if rep.ID() == representationID {
				return resource, rep, true
			}
		}
	}
	return Resource{}, Representation{}, false
}

// CatalogItem binds one representation of one resource to its catalog.
type CatalogItem struct {
	Catalog        ResourceCatalog `json:"catalog"`
	Resource       Resource        `json:"resource"`
	Representation Representation  `json:"representation"`
}

// Path returns "<catalog id>/<resource id>/<representation id>".
func (i CatalogItem) Path() string {
	return i.Catalog.ID + "/" + i.Resource.ID + "/" + i.Representation.ID()
}

// ReadRequest asks a data source to fill Data and Status for one catalog item.
//
// Data holds one little-endian element per sample, Status one byte per sample
// (1 = valid, 0 = missing).
type ReadRequest struct {
	CatalogItem CatalogItem `json:"catalogItem"`
	Data        []byte      `json:"-"`
	Status      []byte      `json:"-"`
}

// TimeRange is the interval for which a catalog holds data.
type TimeRange struct {
	Begin time.Time `json:"begin"`
	End   time.Time `json:"end"`
}

// periodUnitString renders d with the largest unit that divides it exactly.
func periodUnitString(d time.Duration) string {
	units := []struct {
		size time.Duration
		name string
	}{
		{time.Hour, "h"},
		{time.Minute, "min"},
		{time.Second, "s"},
		{time.Millisecond, "ms"},
		{time.Microsecond, "us"},
	}

	if d <= 0 {
		return "0_ns"
	}
	for _, u := range units {
		if d%u.size == 0 {
			return strconv.FormatInt(int64(d/u.size), 10) + "_" + u.name
		}
	}
	return strconv.FormatInt(int64(d), 10) + "_ns"
}
