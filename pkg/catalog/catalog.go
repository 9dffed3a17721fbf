// Package catalog discovers the set of remotely hosted tools available to the
// agent and maintains a process-wide, lazily populated catalog with a
// statically configured fallback when the capability server is unreachable.
package catalog

import (
	"sort"
	"strings"

	"github.com/effective-security/agentgraph/pkg/tools"
)

// State is the connectivity state of the catalog.
type State string

const (
	// StateUninitialized means discovery has not run yet.
	StateUninitialized State = "uninitialized"
	// StateConnected means the catalog was retrieved from the capability server.
	StateConnected State = "connected"
	// StateFallback means discovery failed and the static fallback set is in use.
	StateFallback State = "fallback"
	// StateFailed means discovery failed and no usable tool set exists.
	// The service never produces this state as long as a fallback set is
	// configured.
	StateFailed State = "failed"
)

// ToolSpec describes one callable capability. Immutable once fetched.
type ToolSpec struct {
	// Name is the unique tool name.
	Name string `json:"name"`
	// Description is the human-readable tool description.
	Description string `json:"description"`
	// InputSchema is the declared input schema. Tool schemas discovered from
	// remote servers are irregularly shaped, so the value is kept
	// permissively typed; use Summary for a normalized rendition.
	InputSchema any `json:"input_schema,omitempty"`
}

// Catalog is the current set of tools available to the agent, plus
// connectivity state. Instances are immutable; the service replaces the
// whole catalog atomically on refresh.
type Catalog struct {
	specs     []*ToolSpec
	list      []tools.ITool
	byName    map[string]tools.ITool
	state     State
	signature string
}

// NewCatalog builds a catalog from the given tools, preserving their order.
func NewCatalog(state State, list []tools.ITool) *Catalog {
	c := &Catalog{
		state:  state,
		list:   list,
		byName: make(map[string]tools.ITool, len(list)),
	}
	names := make([]string, 0, len(list))
	for _, tool := range list {
		name := tool.Name()
		if _, ok := c.byName[name]; ok {
			continue
		}
		c.byName[name] = tool
		c.specs = append(c.specs, &ToolSpec{
			Name:        name,
			Description: tool.Description(),
			InputSchema: tool.Parameters(),
		})
		names = append(names, name)
	}
	c.signature = Signature(names)
	return c
}

// State returns the connectivity state.
func (c *Catalog) State() State {
	if c == nil {
		return StateUninitialized
	}
	return c.state
}

// Specs returns the tool specs in retrieval order.
func (c *Catalog) Specs() []*ToolSpec {
	return c.specs
}

// Tools returns the tools in retrieval order.
func (c *Catalog) Tools() []tools.ITool {
	return c.list
}

// Tool returns the tool by exact name match.
func (c *Catalog) Tool(name string) (tools.ITool, bool) {
	tool, ok := c.byName[name]
	return tool, ok
}

// Names returns the tool names in retrieval order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.specs))
	for _, spec := range c.specs {
		names = append(names, spec.Name)
	}
	return names
}

// Signature returns the deterministic signature of the catalog, invariant
// under permutation of the tool order.
func (c *Catalog) Signature() string {
	return c.signature
}

// Signature computes a deterministic signature from tool names: sorted and
// comma-joined, so that equal tool sets produce equal signatures regardless
// of iteration order.
func Signature(names []string) string {
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
