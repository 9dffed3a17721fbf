package catalog_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agentgraph/pkg/catalog"
	"github.com/effective-security/agentgraph/pkg/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDiscoverer struct {
	calls atomic.Int32
	next  func(ctx context.Context) (*catalog.Discovery, error)
}

func (d *fakeDiscoverer) Discover(ctx context.Context) (*catalog.Discovery, error) {
	d.calls.Add(1)
	return d.next(ctx)
}

func TestGetToolsConnected(t *testing.T) {
	disc := &fakeDiscoverer{
		next: func(ctx context.Context) (*catalog.Discovery, error) {
			return &catalog.Discovery{Tools: namedTools("search", "get_weather")}, nil
		},
	}
	svc := catalog.NewService(&catalog.Config{}, catalog.WithDiscoverer(disc))

	cat := svc.GetTools(context.Background())
	require.NotNil(t, cat)
	assert.Equal(t, catalog.StateConnected, cat.State())
	assert.Equal(t, "get_weather,search", cat.Signature())

	// second call returns the cached catalog without re-discovery
	again := svc.GetTools(context.Background())
	assert.Same(t, cat, again)
	assert.EqualValues(t, 1, disc.calls.Load())
}

func TestGetToolsFallbackOnError(t *testing.T) {
	disc := &fakeDiscoverer{
		next: func(ctx context.Context) (*catalog.Discovery, error) {
			return nil, errors.New("connection refused")
		},
	}
	svc := catalog.NewService(&catalog.Config{},
		catalog.WithDiscoverer(disc),
		catalog.WithFallbackTools(namedTools("WebSearch")...))

	cat := svc.GetTools(context.Background())
	require.NotNil(t, cat)
	assert.Equal(t, catalog.StateFallback, cat.State())
	assert.Equal(t, []string{"WebSearch"}, cat.Names())
}

func TestGetToolsFallbackWithinTimeout(t *testing.T) {
	// discovery blocks until the deadline; GetTools must still return the
	// fallback catalog without raising
	disc := &fakeDiscoverer{
		next: func(ctx context.Context) (*catalog.Discovery, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	svc := catalog.NewService(
		&catalog.Config{DiscoveryTimeout: 50 * time.Millisecond},
		catalog.WithDiscoverer(disc),
		catalog.WithFallbackTools(namedTools("WebSearch")...))

	started := time.Now()
	cat := svc.GetTools(context.Background())
	require.NotNil(t, cat)
	assert.Equal(t, catalog.StateFallback, cat.State())
	assert.Less(t, time.Since(started), 5*time.Second)
}

func TestGetToolsConcurrentSingleDiscovery(t *testing.T) {
	disc := &fakeDiscoverer{
		next: func(ctx context.Context) (*catalog.Discovery, error) {
			time.Sleep(20 * time.Millisecond)
			return &catalog.Discovery{Tools: namedTools("search")}, nil
		},
	}
	svc := catalog.NewService(&catalog.Config{}, catalog.WithDiscoverer(disc))

	var wg sync.WaitGroup
	cats := make([]*catalog.Catalog, 8)
	for i := range cats {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cats[i] = svc.GetTools(context.Background())
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, disc.calls.Load())
	for _, cat := range cats {
		assert.Same(t, cats[0], cat)
	}
}

func TestGetToolsWithRefresh(t *testing.T) {
	var generation atomic.Int32
	disc := &fakeDiscoverer{
		next: func(ctx context.Context) (*catalog.Discovery, error) {
			if generation.Add(1) == 1 {
				return &catalog.Discovery{Tools: namedTools("search")}, nil
			}
			return &catalog.Discovery{Tools: namedTools("search", "calculator")}, nil
		},
	}
	svc := catalog.NewService(&catalog.Config{}, catalog.WithDiscoverer(disc))

	first := svc.GetTools(context.Background())
	assert.Equal(t, "search", first.Signature())

	refreshed := svc.GetToolsWithRefresh(context.Background())
	assert.Equal(t, "calculator,search", refreshed.Signature())
	assert.Same(t, refreshed, svc.Current())

	// refresh failure degrades to the fallback set, it does not raise
	disc.next = func(ctx context.Context) (*catalog.Discovery, error) {
		return nil, errors.New("boom")
	}
	degraded := svc.GetToolsWithRefresh(context.Background())
	assert.Equal(t, catalog.StateFallback, degraded.State())
}

func TestDefaultService(t *testing.T) {
	prev := catalog.Default()
	defer catalog.SetDefault(prev)

	svc := catalog.NewService(&catalog.Config{},
		catalog.WithDiscoverer(&fakeDiscoverer{
			next: func(ctx context.Context) (*catalog.Discovery, error) {
				return &catalog.Discovery{Tools: namedTools("search")}, nil
			},
		}))
	catalog.SetDefault(svc)
	assert.Same(t, svc, catalog.Default())
}

func TestFallbackTools(t *testing.T) {
	list := catalog.FallbackTools()
	require.NotEmpty(t, list)

	var search tools.ITool
	for _, tool := range list {
		if tool.Name() == catalog.WebSearchToolName {
			search = tool
		}
	}
	require.NotNil(t, search)
	assert.NotEmpty(t, search.Description())

	// without the API key the tool answers with an unavailable message
	// instead of failing
	t.Setenv(catalog.TavilyTokenEnvVarName, "")
	res, err := search.Call(context.Background(), `{"Query":"golang"}`)
	require.NoError(t, err)
	assert.Contains(t, res, "not available")

	_, err = search.Call(context.Background(), `{"Query":""}`)
	assert.Error(t, err)
}
