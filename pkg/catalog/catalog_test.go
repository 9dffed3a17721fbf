package catalog_test

import (
	"context"
	"testing"

	"github.com/effective-security/agentgraph/pkg/catalog"
	"github.com/effective-security/agentgraph/pkg/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTool struct {
	name        string
	description string
	params      any
	call        func(ctx context.Context, input string) (string, error)
}

func (t *fakeTool) Name() string        { return t.name }
func (t *fakeTool) Description() string { return t.description }
func (t *fakeTool) Parameters() any     { return t.params }
func (t *fakeTool) Call(ctx context.Context, input string) (string, error) {
	if t.call == nil {
		return "", nil
	}
	return t.call(ctx, input)
}

func namedTools(names ...string) []tools.ITool {
	list := make([]tools.ITool, 0, len(names))
	for _, name := range names {
		list = append(list, &fakeTool{name: name, description: name + " tool"})
	}
	return list
}

func TestSignaturePermutationInvariant(t *testing.T) {
	sig1 := catalog.Signature([]string{"get_weather", "search", "calculator"})
	sig2 := catalog.Signature([]string{"search", "calculator", "get_weather"})
	assert.Equal(t, sig1, sig2)
	assert.Equal(t, "calculator,get_weather,search", sig1)

	cat1 := catalog.NewCatalog(catalog.StateConnected, namedTools("b", "a", "c"))
	cat2 := catalog.NewCatalog(catalog.StateConnected, namedTools("c", "b", "a"))
	assert.Equal(t, cat1.Signature(), cat2.Signature())
	assert.Equal(t, "a,b,c", cat1.Signature())
}

func TestSignatureDiffers(t *testing.T) {
	sig1 := catalog.Signature([]string{"a", "b"})
	sig2 := catalog.Signature([]string{"a", "b", "c"})
	assert.NotEqual(t, sig1, sig2)
}

func TestNewCatalog(t *testing.T) {
	cat := catalog.NewCatalog(catalog.StateConnected, namedTools("search", "get_weather", "search"))

	// duplicate names are kept once, first wins
	assert.Equal(t, []string{"search", "get_weather"}, cat.Names())
	assert.Equal(t, catalog.StateConnected, cat.State())
	require.Len(t, cat.Specs(), 2)
	assert.Equal(t, "search", cat.Specs()[0].Name)

	tool, ok := cat.Tool("get_weather")
	require.True(t, ok)
	assert.Equal(t, "get_weather", tool.Name())

	_, ok = cat.Tool("missing")
	assert.False(t, ok)

	var nilCat *catalog.Catalog
	assert.Equal(t, catalog.StateUninitialized, nilCat.State())
}

func TestToolSpecSummary(t *testing.T) {
	spec := &catalog.ToolSpec{
		Name:        "get_weather",
		Description: "Returns the weather.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"city":  map[string]any{"type": "string"},
				"units": map[string]any{"type": "string"},
			},
			"required": []any{"city"},
		},
	}
	assert.Equal(t, "get_weather: Returns the weather. (args: city*, units)", spec.Summary())

	// malformed schema degrades to name and description
	spec = &catalog.ToolSpec{
		Name:        "odd",
		Description: "Odd schema.",
		InputSchema: []any{"not", "an", "object"},
	}
	assert.Equal(t, "odd: Odd schema.", spec.Summary())

	spec = &catalog.ToolSpec{Name: "bare"}
	assert.Equal(t, "bare", spec.Summary())
}

func TestNormalizeSchema(t *testing.T) {
	assert.Nil(t, catalog.NormalizeSchema(nil))
	assert.Nil(t, catalog.NormalizeSchema("scalar"))
	assert.Nil(t, catalog.NormalizeSchema(make(chan int)))

	m := catalog.NormalizeSchema(struct {
		Type string `json:"type"`
	}{Type: "object"})
	require.NotNil(t, m)
	assert.Equal(t, "object", m["type"])
}

func TestPromptSummary(t *testing.T) {
	cat := catalog.NewCatalog(catalog.StateFallback, namedTools("search"))
	summary := catalog.PromptSummary(cat.Specs())
	assert.Equal(t, "- search: search tool", summary)
}
