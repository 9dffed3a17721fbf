package metricskey

import "github.com/effective-security/metrics"

// Stats
var (
	// StatsLLMMessagesSent is base for counter metric for total messages sent to LLM
	StatsLLMMessagesSent = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_messages_sent",
		Help:         "stats_llm_messages_sent provides total messages sent to LLM",
		RequiredTags: []string{"model"},
	}

	StatsLLMBytesSent = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_bytes_sent",
		Help:         "stats_llm_bytes_sent provides total bytes sent to LLM",
		RequiredTags: []string{"model"},
	}

	StatsLLMBytesReceived = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_bytes_received",
		Help:         "stats_llm_bytes_received provides total bytes received from LLM",
		RequiredTags: []string{"model"},
	}

	StatsLLMInputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_input_tokens",
		Help:         "stats_llm_input_tokens provides total input tokens sent to LLM",
		RequiredTags: []string{"model"},
	}

	StatsLLMOutputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_output_tokens",
		Help:         "stats_llm_output_tokens provides total output tokens received from LLM",
		RequiredTags: []string{"model"},
	}

	StatsCatalogDiscoverySucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_catalog_discovery_succeeded",
		Help:         "stats_catalog_discovery_succeeded provides total successful tool catalog discoveries",
		RequiredTags: []string{},
	}

	StatsCatalogDiscoveryFallback = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_catalog_discovery_fallback",
		Help:         "stats_catalog_discovery_fallback provides total tool catalog discoveries degraded to the fallback set",
		RequiredTags: []string{},
	}

	StatsBindingCacheHits = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_binding_cache_hits",
		Help:         "stats_binding_cache_hits provides total model binding cache hits",
		RequiredTags: []string{"model"},
	}

	StatsBindingCacheMisses = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_binding_cache_misses",
		Help:         "stats_binding_cache_misses provides total model binding cache misses",
		RequiredTags: []string{"model"},
	}

	StatsGraphTurnsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_graph_turns_succeeded",
		Help:         "stats_graph_turns_succeeded provides total graph turns succeeded",
		RequiredTags: []string{"model"},
	}

	StatsGraphTurnsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_graph_turns_failed",
		Help:         "stats_graph_turns_failed provides total graph turns failed",
		RequiredTags: []string{"model"},
	}

	StatsToolCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_succeeded",
		Help:         "stats_tool_calls_succeeded provides total tool calls succeeded",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_failed",
		Help:         "stats_tool_calls_failed provides total tool calls failed",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsNotFound = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_not_found",
		Help:         "stats_tool_calls_not_found provides total tool calls not found",
		RequiredTags: []string{"tool"},
	}
)

// Perf
var (
	PerfCatalogDiscovery = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_catalog_discovery",
		Help:         "perf_catalog_discovery provides duration of tool catalog discovery",
		RequiredTags: []string{},
	}

	PerfModelBind = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_model_bind",
		Help:         "perf_model_bind provides duration of model binding",
		RequiredTags: []string{"model"},
	}

	PerfGraphTurn = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_graph_turn",
		Help:         "perf_graph_turn provides duration of a full graph turn",
		RequiredTags: []string{"model"},
	}

	PerfToolCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_tool_call",
		Help:         "perf_tool_call provides duration of tool call",
		RequiredTags: []string{"tool"},
	}
)

// Metrics returns slice of metrics from this repo
// keep sorted by name
var Metrics = []*metrics.Describe{
	&PerfCatalogDiscovery,
	&PerfGraphTurn,
	&PerfModelBind,
	&PerfToolCall,
	&StatsBindingCacheHits,
	&StatsBindingCacheMisses,
	&StatsCatalogDiscoveryFallback,
	&StatsCatalogDiscoverySucceeded,
	&StatsGraphTurnsFailed,
	&StatsGraphTurnsSucceeded,
	&StatsLLMBytesReceived,
	&StatsLLMBytesSent,
	&StatsLLMInputTokens,
	&StatsLLMMessagesSent,
	&StatsLLMOutputTokens,
	&StatsToolCallsFailed,
	&StatsToolCallsNotFound,
	&StatsToolCallsSucceeded,
}
