package catalog

import (
	"context"
	"encoding/json"
	"os"
	"reflect"

	"github.com/cockroachdb/errors"
	tavilygo "github.com/diverged/tavily-go"
	tavilymodels "github.com/diverged/tavily-go/models"
	"github.com/effective-security/agentgraph/pkg/llmutils"
	"github.com/effective-security/agentgraph/pkg/schema"
	"github.com/effective-security/agentgraph/pkg/tools"
)

// WebSearchToolName is the name of the fallback web search tool.
const WebSearchToolName = "WebSearch"

// TavilyTokenEnvVarName is the environment variable for the Tavily API key.
const TavilyTokenEnvVarName = "TAVILY_API_KEY"

// FallbackTools returns the static tool set used when discovery fails.
// The set is always non-empty so that the agent keeps a usable, if degraded,
// capability surface.
func FallbackTools() []tools.ITool {
	return []tools.ITool{NewWebSearchTool()}
}

// SearchRequest is the web search tool input.
type SearchRequest struct {
	Query string `json:"Query" yaml:"Query" jsonschema:"title=Query,description=The query to search web."`
}

// SearchResult is the web search tool output.
type SearchResult struct {
	Results []tavilymodels.SearchResult `json:"results" yaml:"Results" jsonschema:"title=results,description=The results from a web search."`
	Answer  string                      `json:"answer,omitempty" yaml:"Answer" jsonschema:"title=answer,description=The aggregated answer from a web search."`
}

// WebSearchTool provides web search over the Tavily API. Without an API key
// the tool stays callable and reports that search is unavailable, so the
// fallback catalog never produces hard failures.
type WebSearchTool struct {
	name        string
	description string
	funcParams  any

	baseURL string
}

var _ tools.Tool[SearchRequest, SearchResult] = (*WebSearchTool)(nil)

// NewWebSearchTool creates the fallback web search tool.
func NewWebSearchTool() *WebSearchTool {
	var funcParams any
	if sc, err := schema.New(reflect.TypeOf(SearchRequest{})); err == nil {
		funcParams = sc.Parameters
	}
	return &WebSearchTool{
		name:        WebSearchToolName,
		description: "A tool that provides a web search functionality.",
		funcParams:  funcParams,
	}
}

// WithBaseURL overrides the Tavily API endpoint.
func (t *WebSearchTool) WithBaseURL(baseURL string) *WebSearchTool {
	t.baseURL = baseURL
	return t
}

// Name implements the ITool interface.
func (t *WebSearchTool) Name() string {
	return t.name
}

// Description implements the ITool interface.
func (t *WebSearchTool) Description() string {
	return t.description
}

// Parameters implements the ITool interface.
func (t *WebSearchTool) Parameters() any {
	return t.funcParams
}

// Run performs the search.
func (t *WebSearchTool) Run(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	if req.Query == "" {
		return nil, errors.New("invalid request: empty query")
	}

	apikey := os.Getenv(TavilyTokenEnvVarName)
	if apikey == "" {
		return &SearchResult{
			Answer: "Web search is not available: " + TavilyTokenEnvVarName + " is not set.",
		}, nil
	}

	client := tavilygo.NewClient(apikey)
	if t.baseURL != "" {
		client.BaseURL = t.baseURL
	}

	searchReq := tavilymodels.SearchRequest{
		Query:         req.Query,
		SearchDepth:   "basic",
		IncludeAnswer: true,
	}
	searchResp, err := tavilygo.Search(client, searchReq)
	if err != nil {
		return nil, errors.Wrap(err, "failed to perform search")
	}

	return &SearchResult{
		Results: searchResp.Results,
		Answer:  searchResp.Answer,
	}, nil
}

// Call implements the ITool interface.
func (t *WebSearchTool) Call(ctx context.Context, input string) (string, error) {
	var req SearchRequest
	if err := json.Unmarshal(llmutils.CleanJSON([]byte(input)), &req); err != nil {
		return "", errors.Wrap(err, "failed to unmarshal input")
	}
	out, err := t.Run(ctx, &req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(out), nil
}
