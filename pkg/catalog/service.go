package catalog

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/effective-security/agentgraph/pkg/metricskey"
	"github.com/effective-security/agentgraph/pkg/tools"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/agentgraph", "catalog")

// Service maintains the process-wide tool catalog. Discovery runs lazily on
// first use under a bounded timeout; on failure the fallback set is installed
// instead, so callers never observe an error from GetTools.
type Service struct {
	cfg        *Config
	discoverer Discoverer
	fallback   []tools.ITool

	lock    sync.Mutex
	current atomic.Pointer[Catalog]
	closer  func() error
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithDiscoverer overrides the MCP discoverer.
func WithDiscoverer(d Discoverer) ServiceOption {
	return func(s *Service) {
		s.discoverer = d
	}
}

// WithFallbackTools overrides the static fallback tool set.
func WithFallbackTools(list ...tools.ITool) ServiceOption {
	return func(s *Service) {
		s.fallback = list
	}
}

// NewService creates a catalog service.
func NewService(cfg *Config, opts ...ServiceOption) *Service {
	svc := &Service{
		cfg: cfg,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.discoverer == nil {
		svc.discoverer = NewMCPDiscoverer(cfg)
	}
	if svc.fallback == nil {
		svc.fallback = FallbackTools()
	}
	return svc
}

// GetTools returns the current catalog, running discovery on first use.
// Concurrent first-use callers are serialized; discovery runs at most once.
func (s *Service) GetTools(ctx context.Context) *Catalog {
	if c := s.current.Load(); c != nil {
		return c
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	// Another caller may have finished discovery while we waited on the lock.
	if c := s.current.Load(); c != nil {
		return c
	}
	return s.refreshLocked(ctx)
}

// GetToolsWithRefresh re-runs discovery and atomically replaces the cached
// catalog. Concurrent readers keep observing the previous catalog until the
// replacement is complete.
func (s *Service) GetToolsWithRefresh(ctx context.Context) *Catalog {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.refreshLocked(ctx)
}

func (s *Service) refreshLocked(ctx context.Context) *Catalog {
	started := time.Now()
	defer metricskey.PerfCatalogDiscovery.MeasureSince(started)

	dctx, cancel := context.WithTimeout(ctx, s.cfg.discoveryTimeout())
	defer cancel()

	var cat *Catalog
	var closer func() error

	disc, err := s.discoverer.Discover(dctx)
	if err != nil {
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "discovery_failed",
			"fallback_tools", len(s.fallback),
			"err", err.Error())
		metricskey.StatsCatalogDiscoveryFallback.IncrCounter(1)
		cat = NewCatalog(StateFallback, s.fallback)
	} else {
		metricskey.StatsCatalogDiscoverySucceeded.IncrCounter(1)
		cat = NewCatalog(StateConnected, disc.Tools)
		closer = disc.Close
	}

	prev := s.closer
	s.current.Store(cat)
	s.closer = closer
	if prev != nil {
		_ = prev()
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "catalog_updated",
		"state", cat.State(),
		"tools", len(cat.Specs()),
		"signature", cat.Signature())
	return cat
}

// Current returns the cached catalog without triggering discovery.
// Returns nil before the first GetTools.
func (s *Service) Current() *Catalog {
	return s.current.Load()
}

// Close releases the discovery session, if any.
func (s *Service) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	closer := s.closer
	s.closer = nil
	if closer != nil {
		return closer()
	}
	return nil
}

var (
	defaultSvc  *Service
	defaultLock sync.Mutex
)

// Default returns the process-wide catalog service, creating it from the
// environment on first use.
func Default() *Service {
	defaultLock.Lock()
	defer defaultLock.Unlock()

	if defaultSvc == nil {
		defaultSvc = NewService(ConfigFromEnv())
	}
	return defaultSvc
}

// SetDefault replaces the process-wide catalog service. Intended for tests
// and for embedders that construct the service themselves.
func SetDefault(s *Service) {
	defaultLock.Lock()
	defer defaultLock.Unlock()
	defaultSvc = s
}
