// Package bindings caches tool-bound model clients. Binding a model to a
// tool set converts the catalog specs into provider tool definitions, which
// is pure overhead to repeat per turn, so prepared bindings are kept in a
// bounded LRU keyed by model name and tool set signature.
package bindings

import (
	"container/list"
	"sync"
	"time"

	"github.com/effective-security/agentgraph/pkg/catalog"
	"github.com/effective-security/agentgraph/pkg/llmfactory"
	"github.com/effective-security/agentgraph/pkg/llms"
	"github.com/effective-security/agentgraph/pkg/metricskey"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/agentgraph", "bindings")

// DefaultCapacity bounds the number of cached bindings. Deployments run a
// handful of models against a slowly changing tool set, so a small cache
// holds the entire working set.
const DefaultCapacity = 32

// BoundModel pairs a model client with the tool definitions it was prepared
// with. Instances are shared between cache hits; treat as immutable.
type BoundModel struct {
	// Model is the provider client from the factory allow-list.
	Model llms.Model
	// Tools are the provider tool definitions converted from the catalog.
	Tools []llms.Tool
	// Signature is the tool set signature the binding was prepared for.
	Signature string
}

type cacheKey struct {
	model     string
	signature string
}

type cacheEntry struct {
	key   cacheKey
	bound *BoundModel
}

// Cache is a bounded, concurrency-safe LRU of prepared bindings.
type Cache struct {
	factory  llmfactory.Factory
	capacity int

	lock  sync.Mutex
	ll    *list.List
	items map[cacheKey]*list.Element
}

// NewCache creates a binding cache over the model factory. A non-positive
// capacity falls back to DefaultCapacity.
func NewCache(factory llmfactory.Factory, capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		factory:  factory,
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[cacheKey]*list.Element),
	}
}

// Bind returns the model bound to the catalog's tool set. Repeated calls
// with the same model name and an equal tool set return the same BoundModel
// instance. A model name outside the factory allow-list fails with
// llmfactory.ErrUnsupportedModel.
func (c *Cache) Bind(modelName string, cat *catalog.Catalog) (*BoundModel, error) {
	// Absent model name is normalized before the lookup, so the default
	// model requested implicitly and explicitly shares one entry.
	if modelName == "" {
		modelName = c.factory.DefaultModelName()
	}
	started := time.Now()
	defer metricskey.PerfModelBind.MeasureSince(started, modelName)

	key := cacheKey{model: modelName, signature: cat.Signature()}

	c.lock.Lock()
	defer c.lock.Unlock()

	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		metricskey.StatsBindingCacheHits.IncrCounter(1, modelName)
		return el.Value.(*cacheEntry).bound, nil
	}
	metricskey.StatsBindingCacheMisses.IncrCounter(1, modelName)

	model, err := c.factory.ModelByName(modelName)
	if err != nil {
		return nil, err
	}

	bound := &BoundModel{
		Model:     model,
		Tools:     ToolDefinitions(cat.Specs()),
		Signature: key.signature,
	}

	c.items[key] = c.ll.PushFront(&cacheEntry{key: key, bound: bound})
	for c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest == nil {
			break
		}
		c.ll.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).key)
	}

	logger.KV(xlog.DEBUG,
		"status", "bound_model",
		"model", modelName,
		"tools", len(bound.Tools),
		"signature", bound.Signature)
	return bound, nil
}

// Len returns the number of cached bindings.
func (c *Cache) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.ll.Len()
}

// Purge drops all cached bindings.
func (c *Cache) Purge() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.ll.Init()
	c.items = make(map[cacheKey]*list.Element)
}

// ToolDefinitions converts catalog specs into provider tool definitions,
// preserving the catalog order.
func ToolDefinitions(specs []*catalog.ToolSpec) []llms.Tool {
	defs := make([]llms.Tool, 0, len(specs))
	for _, spec := range specs {
		defs = append(defs, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  spec.InputSchema,
			},
		})
	}
	return defs
}
