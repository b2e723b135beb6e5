package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/playground/pkg/datasource"
	dstesting "github.com/marmos91/playground/pkg/datasource/testing"
	"github.com/marmos91/playground/pkg/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient is an in-memory bucket. ListObjectsV2 returns pageSize keys
// per page to exercise pagination.
type fakeClient struct {
	mu       sync.Mutex
	objects  map[string][]byte
	ranges   []string
	pageSize int
}

func newFakeClient() *fakeClient {
	return &fakeClient{objects: make(map[string][]byte), pageSize: 2}
}

func (c *fakeClient) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	body, ok := c.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String(aws.ToString(in.Key))}
	}

	if in.Range != nil {
		c.ranges = append(c.ranges, *in.Range)

		var first, last int
		if _, err := fmt.Sscanf(*in.Range, "bytes=%d-%d", &first, &last); err != nil {
			return nil, err
		}
		if last >= len(body) {
			last = len(body) - 1
		}
		body = body[first : last+1]
	}

	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (c *fakeClient) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.objects[aws.ToString(in.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func (c *fakeClient) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var keys []string
	for key := range c.objects {
		if strings.HasPrefix(key, aws.ToString(in.Prefix)) && key > aws.ToString(in.ContinuationToken) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	if len(keys) > c.pageSize {
		keys = keys[:c.pageSize]
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[len(keys)-1])
	}

	for _, key := range keys {
		out.Contents = append(out.Contents, types.Object{
			Key:  aws.String(key),
			Size: aws.Int64(int64(len(c.objects[key]))),
		})
	}
	return out, nil
}

func newSource(t *testing.T, client Client) *Source {
	t.Helper()

	source, err := New(Config{Client: client, Bucket: "measurements", KeyPrefix: "friendly_user_3"})
	require.NoError(t, err)
	return source
}

func seed(t *testing.T, source *Source, f dstesting.Fixture) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, source.PutIndex(ctx, []IndexEntry{{ID: f.Catalog.ID, Title: "test"}}))
	require.NoError(t, source.PutCatalog(ctx, f.Catalog))

	n, err := datasource.ElementCount(f.Representation, f.DataBegin, f.DataEnd)
	require.NoError(t, err)

	values := make([]float64, n)
	for i := range values {
		values[i] = f.Sample(i)
	}
	require.NoError(t, source.PutDay(ctx, f.Catalog.ID, f.ResourceID, f.Representation, f.DataBegin, values))
}

func TestS3Source(t *testing.T) {
	suite := &dstesting.SourceTestSuite{
		NewSource: func(t *testing.T, f dstesting.Fixture) datasource.DataSource {
			source := newSource(t, newFakeClient())
			seed(t, source, f)
			return source
		},
	}
	suite.Run(t)
}

func TestS3Source_Layout(t *testing.T) {
	client := newFakeClient()
	source := newSource(t, client)
	f := dstesting.DefaultFixture()
	seed(t, source, f)

	assert.Contains(t, client.objects, "friendly_user_3/index.json")
	assert.Contains(t, client.objects, "friendly_user_3/catalogs/TEST/CATALOG/catalog.json")
	assert.Len(t, client.objects["friendly_user_3/data/TEST/CATALOG/T1/1_s/2020-01-01.bin"], 60*8)
}

func TestS3Source_RangedRead(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	source := newSource(t, client)
	f := dstesting.DefaultFixture()
	seed(t, source, f)

	begin := f.DataBegin.Add(10 * time.Second)
	end := f.DataBegin.Add(70 * time.Second)

	request, err := datasource.NewReadRequest(f.Item(), begin, end)
	require.NoError(t, err)
	require.NoError(t, source.Read(ctx, begin, end, []datasource.ReadRequest{request}, nil, nil))

	assert.Equal(t, []string{"bytes=80-479"}, client.ranges)

	for i := 0; i < 50; i++ {
		require.Equal(t, byte(1), request.Status[i])
		assert.Equal(t, f.Sample(10+i), datasource.FLOAT64.Value(request.Data, i))
	}
	for i := 50; i < 60; i++ {
		assert.Equal(t, byte(0), request.Status[i])
	}
}

func TestS3Source_AcrossDays(t *testing.T) {
	ctx := context.Background()
	source := newSource(t, newFakeClient())
	f := dstesting.DefaultFixture()

	rep := datasource.Representation{DataType: datasource.INT32, SamplePeriod: time.Hour}
	f.Catalog.Resources[0].Representations = []datasource.Representation{rep}
	require.NoError(t, source.PutCatalog(ctx, f.Catalog))

	day1 := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	full := make([]float64, 24)
	for i := range full {
		full[i] = float64(i)
	}
	require.NoError(t, source.PutDay(ctx, f.Catalog.ID, f.ResourceID, rep, day1, full))
	require.NoError(t, source.PutDay(ctx, f.Catalog.ID, f.ResourceID, rep, day2, []float64{100, 101}))

	t.Run("TimeRange", func(t *testing.T) {
		tr, err := source.GetTimeRange(ctx, f.Catalog.ID)
		require.NoError(t, err)
		assert.Equal(t, day1, tr.Begin)
		assert.Equal(t, day2.Add(2*time.Hour), tr.End)
	})

	t.Run("Read", func(t *testing.T) {
		begin := day1.Add(22 * time.Hour)
		end := day2.Add(3 * time.Hour)

		item := datasource.CatalogItem{Catalog: f.Catalog, Resource: f.Catalog.Resources[0], Representation: rep}
		request, err := datasource.NewReadRequest(item, begin, end)
		require.NoError(t, err)
		require.NoError(t, source.Read(ctx, begin, end, []datasource.ReadRequest{request}, nil, nil))

		assert.Equal(t, []byte{1, 1, 1, 1, 0}, request.Status)
		assert.Equal(t, 22.0, datasource.INT32.Value(request.Data, 0))
		assert.Equal(t, 23.0, datasource.INT32.Value(request.Data, 1))
		assert.Equal(t, 100.0, datasource.INT32.Value(request.Data, 2))
		assert.Equal(t, 101.0, datasource.INT32.Value(request.Data, 3))
	})

	t.Run("Availability", func(t *testing.T) {
		availability, err := source.GetAvailability(ctx, f.Catalog.ID, day1, day2.Add(24*time.Hour))
		require.NoError(t, err)
		assert.InDelta(t, 26.0/48.0, availability, 1e-9)
	})

	t.Run("TooManySamples", func(t *testing.T) {
		err := source.PutDay(ctx, f.Catalog.ID, f.ResourceID, rep, day1, make([]float64, 25))
		assert.Error(t, err)
	})
}

func TestS3Source_NoData(t *testing.T) {
	ctx := context.Background()
	source := newSource(t, newFakeClient())
	f := dstesting.DefaultFixture()
	require.NoError(t, source.PutCatalog(ctx, f.Catalog))

	tr, err := source.GetTimeRange(ctx, f.Catalog.ID)
	require.NoError(t, err)
	assert.Equal(t, datasource.MinTime, tr.Begin)
	assert.Equal(t, datasource.MaxTime, tr.End)

	availability, err := source.GetAvailability(ctx, f.Catalog.ID, f.DataBegin, f.DataEnd)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(availability))

	// Without index every path is empty.
	registrations, err := source.GetCatalogRegistrations(ctx, "/")
	require.NoError(t, err)
	assert.Empty(t, registrations)
}

func TestRegister_Validation(t *testing.T) {
	reg := plugin.NewRegistry()
	require.NoError(t, Register(reg))
	factory, err := reg.Lookup(Kind)
	require.NoError(t, err)

	tests := []struct {
		name    string
		options map[string]any
	}{
		{"MissingBucket", map[string]any{"region": "eu-west-1"}},
		{"MissingRegion", map[string]any{"bucket": "b"}},
		{"UnknownOption", map[string]any{"bucket": "b", "region": "eu-west-1", "colour": "red"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := factory(context.Background(), plugin.Spec{Owner: "x", Options: tt.options})
			assert.Error(t, err)
		})
	}
}

func TestRegister_CustomEndpoint(t *testing.T) {
	reg := plugin.NewRegistry()
	require.NoError(t, Register(reg))
	factory, err := reg.Lookup(Kind)
	require.NoError(t, err)

	ds, err := factory(context.Background(), plugin.Spec{
		Owner: "friendly_user_3",
		Options: map[string]any{
			"bucket":            "measurements",
			"region":            "us-east-1",
			"endpoint":          "http://localhost:9000",
			"access_key_id":     "minio",
			"secret_access_key": "minio123",
			"max_retries":       3,
		},
	})
	require.NoError(t, err)
	assert.IsType(t, &Source{}, ds)
}
