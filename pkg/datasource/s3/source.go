// Package s3 implements a data source reading catalogs and samples from an
// S3 bucket (or any S3 compatible object store). See layout.go for the
// object layout.
//
// Plugin manifest:
//
//	kind: s3
//	options:
//	  bucket: measurements
//	  region: eu-west-1
//	  key_prefix: friendly_user_3/
//	  endpoint: http://localhost:9000   # optional, MinIO / Localstack
package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/playground/internal/logger"
	"github.com/marmos91/playground/pkg/datasource"
	"github.com/marmos91/playground/pkg/plugin"
)

// Kind is the plugin kind under which Register installs the factory.
const Kind = "s3"

// Config configures a Source.
type Config struct {
	// Client is the S3 client. Required.
	Client Client

	// Bucket is the bucket name. Required.
	Bucket string

	// KeyPrefix is prepended to every key, e.g. "owner/".
	KeyPrefix string
}

// Source is an S3-backed data source. It is safe for concurrent use.
type Source struct {
	datasource.Simple

	client Client
	bucket string
	layout layout
}

var _ datasource.DataSource = (*Source)(nil)

// New creates a Source.
func New(config Config) (*Source, error) {
	if config.Client == nil {
		return nil, fmt.Errorf("s3 data source: client is required")
	}
	if config.Bucket == "" {
		return nil, fmt.Errorf("s3 data source: bucket is required")
	}

	return &Source{
		client: config.Client,
		bucket: config.Bucket,
		layout: newLayout(config.KeyPrefix),
	}, nil
}

// Register installs the s3 factory in reg.
func Register(reg *plugin.Registry) error {
	return reg.Register(Kind, func(ctx context.Context, spec plugin.Spec) (datasource.DataSource, error) {
		type S3SourceOptions struct {
			Bucket          string `mapstructure:"bucket"`
			Region          string `mapstructure:"region"`
			KeyPrefix       string `mapstructure:"key_prefix"`
			Endpoint        string `mapstructure:"endpoint"`
			AccessKeyID     string `mapstructure:"access_key_id"`
			SecretAccessKey string `mapstructure:"secret_access_key"`
			MaxRetries      int    `mapstructure:"max_retries"`
		}

		var opts S3SourceOptions
		if err := plugin.DecodeOptions(spec.Options, &opts); err != nil {
			return nil, err
		}

		if opts.Bucket == "" {
			return nil, fmt.Errorf("s3 data source: bucket is required")
		}
		if opts.Region == "" {
			return nil, fmt.Errorf("s3 data source: region is required")
		}

		client, err := NewClient(ctx, ClientConfig{
			Region:          opts.Region,
			Endpoint:        opts.Endpoint,
			AccessKeyID:     opts.AccessKeyID,
			SecretAccessKey: opts.SecretAccessKey,
			MaxRetries:      opts.MaxRetries,
		})
		if err != nil {
			return nil, err
		}

		logger.Debug("S3 data source of %s: bucket=%s, region=%s, prefix=%s",
			spec.Owner, opts.Bucket, opts.Region, opts.KeyPrefix)

		return New(Config{Client: client, Bucket: opts.Bucket, KeyPrefix: opts.KeyPrefix})
	})
}

// GetCatalogRegistrations lists the index entries below path, as absolute
// paths.
func (s *Source) GetCatalogRegistrations(ctx context.Context, path string) ([]datasource.CatalogRegistration, error) {
	entries, err := s.readIndex(ctx)
	if err != nil {
		return nil, err
	}

	registrations := []datasource.CatalogRegistration{}
	for _, entry := range entries {
		if strings.HasPrefix(entry.ID, path) {
			registrations = append(registrations, datasource.CatalogRegistration{Path: entry.ID, Title: entry.Title})
		}
	}
	return registrations, nil
}

func (s *Source) GetCatalog(ctx context.Context, catalogID string) (datasource.ResourceCatalog, error) {
	raw, err := s.getObject(ctx, s.layout.catalog(catalogID), "")
	if isNoSuchKey(err) {
		return datasource.ResourceCatalog{}, fmt.Errorf("%w: %s", datasource.ErrCatalogNotFound, catalogID)
	}
	if err != nil {
		return datasource.ResourceCatalog{}, fmt.Errorf("failed to load catalog %s: %w", catalogID, err)
	}

	var catalog datasource.ResourceCatalog
	if err := json.Unmarshal(raw, &catalog); err != nil {
		return datasource.ResourceCatalog{}, fmt.Errorf("failed to decode catalog %s: %w", catalogID, err)
	}
	return catalog, nil
}

// GetTimeRange derives the range from the day objects of every series of
// the catalog, or returns the full range if there are none.
func (s *Source) GetTimeRange(ctx context.Context, catalogID string) (datasource.TimeRange, error) {
	catalog, err := s.GetCatalog(ctx, catalogID)
	if err != nil {
		return datasource.TimeRange{}, err
	}

	prefix := s.layout.catalogData(catalogID)
	objects, err := s.list(ctx, prefix)
	if err != nil {
		return datasource.TimeRange{}, err
	}

	var (
		tr    datasource.TimeRange
		found bool
	)

	for key, size := range objects {
		// <resource>/<rep>/<day>.bin
		parts := strings.Split(strings.TrimPrefix(key, prefix), "/")
		if len(parts) != 3 {
			continue
		}
		dayStart, ok := parseDayObject(parts[2])
		if !ok {
			continue
		}
		_, rep, ok := catalog.Find(parts[0], parts[1])
		if !ok || size == 0 {
			continue
		}

		samples := size / int64(rep.DataType.ElementSize())
		dayEnd := dayStart.Add(time.Duration(samples) * rep.SamplePeriod)

		if !found || dayStart.Before(tr.Begin) {
			tr.Begin = dayStart
		}
		if !found || dayEnd.After(tr.End) {
			tr.End = dayEnd
		}
		found = true
	}

	if !found {
		return s.Simple.GetTimeRange(ctx, catalogID)
	}
	return tr, nil
}

// GetAvailability returns the fraction of samples of the first
// representation of the catalog present in [begin, end), computed from the
// day object sizes, or NaN if that representation has no data at all.
func (s *Source) GetAvailability(ctx context.Context, catalogID string, begin, end time.Time) (float64, error) {
	catalog, err := s.GetCatalog(ctx, catalogID)
	if err != nil {
		return 0, err
	}

	resource, rep, ok := firstRepresentation(catalog)
	if !ok {
		return math.NaN(), nil
	}

	series := s.layout.series(catalogID, resource.ID, rep.ID())
	objects, err := s.list(ctx, series)
	if err != nil {
		return 0, err
	}
	if len(objects) == 0 {
		return math.NaN(), nil
	}

	expected := int64(end.Sub(begin) / rep.SamplePeriod)
	if expected <= 0 {
		return 0, nil
	}

	var stored int64
	size := int64(rep.DataType.ElementSize())

	for dayStart := startOfDay(begin); dayStart.Before(end); dayStart = dayStart.Add(day) {
		objectSize, ok := objects[s.layout.dayObject(series, dayStart)]
		if !ok {
			continue
		}
		first, last := overlap(dayStart, begin, end, rep.SamplePeriod, objectSize/size)
		stored += last - first
	}

	return math.Min(1, float64(stored)/float64(expected)), nil
}

// Read fetches, per request and per day, the byte range of the day object
// overlapping [begin, end). Missing objects leave status 0.
func (s *Source) Read(
	ctx context.Context,
	begin, end time.Time,
	requests []datasource.ReadRequest,
	_ datasource.ReadDataHandler,
	progress datasource.ProgressReporter,
) error {
	for i, request := range requests {
		if err := s.readOne(ctx, begin, end, request); err != nil {
			return err
		}

		if progress != nil {
			progress(float64(i+1) / float64(len(requests)))
		}
	}
	return nil
}

func (s *Source) readOne(ctx context.Context, begin, end time.Time, request datasource.ReadRequest) error {
	item := request.CatalogItem

	catalog, err := s.GetCatalog(ctx, item.Catalog.ID)
	if err != nil {
		return err
	}

	resource, rep, ok := catalog.Find(item.Resource.ID, item.Representation.ID())
	if !ok {
		return fmt.Errorf("%w: %s", datasource.ErrResourceNotFound, item.Path())
	}

	if _, err := request.CheckBuffers(begin, end); err != nil {
		return err
	}

	series := s.layout.series(catalog.ID, resource.ID, rep.ID())
	objects, err := s.list(ctx, series)
	if err != nil {
		return err
	}

	size := int64(rep.DataType.ElementSize())

	for dayStart := startOfDay(begin); dayStart.Before(end); dayStart = dayStart.Add(day) {
		key := s.layout.dayObject(series, dayStart)

		objectSize, ok := objects[key]
		if !ok {
			continue
		}

		first, last := overlap(dayStart, begin, end, rep.SamplePeriod, objectSize/size)
		if last <= first {
			continue
		}

		byteRange := fmt.Sprintf("bytes=%d-%d", first*size, last*size-1)
		raw, err := s.getObject(ctx, key, byteRange)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", key, err)
		}

		// Index of the first fetched sample in the request buffers.
		offset := int64(dayStart.Add(time.Duration(first) * rep.SamplePeriod).Sub(begin) / rep.SamplePeriod)
		count := int64(len(raw)) / size

		copy(request.Data[offset*size:], raw[:count*size])
		for j := int64(0); j < count; j++ {
			request.Status[offset+j] = 1
		}
	}

	return nil
}

// overlap returns the half-open range [first, last) of sample indexes of
// the day starting at dayStart that lie in [begin, end), limited to the
// stored samples.
func overlap(dayStart, begin, end time.Time, period time.Duration, stored int64) (first, last int64) {
	if begin.After(dayStart) {
		first = int64((begin.Sub(dayStart) + period - 1) / period)
	}

	last = int64(day / period)
	if dayEnd := dayStart.Add(day); end.Before(dayEnd) {
		last = int64((end.Sub(dayStart) + period - 1) / period)
	}
	if last > stored {
		last = stored
	}
	if first > last {
		first = last
	}
	return first, last
}

func (s *Source) readIndex(ctx context.Context) ([]IndexEntry, error) {
	raw, err := s.getObject(ctx, s.layout.index(), "")
	if isNoSuchKey(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load index: %w", err)
	}

	var entries []IndexEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode index: %w", err)
	}
	return entries, nil
}

func (s *Source) getObject(ctx context.Context, key, byteRange string) ([]byte, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if byteRange != "" {
		input.Range = aws.String(byteRange)
	}

	out, err := s.client.GetObject(ctx, input)
	if err != nil {
		return nil, err
	}
	defer func() { _ = out.Body.Close() }()

	return io.ReadAll(out.Body)
}

func (s *Source) putObject(ctx context.Context, key string, body []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// list returns key -> size for every object below prefix.
func (s *Source) list(ctx context.Context, prefix string) (map[string]int64, error) {
	objects := make(map[string]int64)

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			objects[aws.ToString(obj.Key)] = aws.ToInt64(obj.Size)
		}
	}

	return objects, nil
}

func isNoSuchKey(err error) bool {
	var nsk *types.NoSuchKey
	return errors.As(err, &nsk)
}

func firstRepresentation(catalog datasource.ResourceCatalog) (datasource.Resource, datasource.Representation, bool) {
	for _, resource := range catalog.Resources {
		if len(resource.Representations) > 0 {
			return resource, resource.Representations[0], true
		}
	}
	return datasource.Resource{}, datasource.Representation{}, false
}
