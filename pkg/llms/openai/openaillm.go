// Package openai implements the llms.Model interface on top of the official
// OpenAI SDK. OpenAI-compatible providers (Azure, Perplexity) reuse the same
// client with a different base URL.
package openai

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agentgraph/pkg/llms"
	"github.com/effective-security/x/values"
	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

var (
	// ErrEmptyResponse is returned when the OpenAI API returns an empty response.
	ErrEmptyResponse = errors.New("openai: no response")
	// ErrMissingToken is returned when no API key is configured.
	ErrMissingToken = errors.New("openai: missing API key, set it in the OPENAI_API_KEY environment variable")
)

// LLM is an OpenAI-backed chat model.
type LLM struct {
	client  openaisdk.Client
	options *Options
}

var _ llms.Model = (*LLM)(nil)

// New returns a new OpenAI LLM.
func New(opts ...Option) (*LLM, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	if options.Token == "" {
		return nil, ErrMissingToken
	}
	if options.Model == "" {
		return nil, errors.New("openai: model is required")
	}

	sdkOpts := []option.RequestOption{
		option.WithAPIKey(options.Token),
		option.WithMaxRetries(2),
	}
	if options.BaseURL != "" {
		sdkOpts = append(sdkOpts, option.WithBaseURL(options.BaseURL))
	}
	if options.OrgID != "" {
		sdkOpts = append(sdkOpts, option.WithOrganization(options.OrgID))
	}
	if options.HttpClient != nil {
		sdkOpts = append(sdkOpts, option.WithHTTPClient(options.HttpClient))
	}

	return &LLM{
		client:  openaisdk.NewClient(sdkOpts...),
		options: options,
	}, nil
}

// GetName implements the Model interface.
func (o *LLM) GetName() string {
	return o.options.Model
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	switch strings.ToUpper(o.options.ProviderType) {
	case "AZURE", "AZURE_AD":
		return llms.ProviderAzure
	case "PERPLEXITY":
		return llms.ProviderPerplexity
	}
	return llms.ProviderOpenAI
}

// GenerateContent implements the Model interface.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}

	chatMsgs, err := toChatMessages(messages)
	if err != nil {
		return nil, err
	}

	params := openaisdk.ChatCompletionNewParams{
		Model:    shared.ChatModel(values.StringsCoalesce(opts.Model, o.options.Model)),
		Messages: chatMsgs,
	}
	if opts.Temperature != nil {
		params.Temperature = openaisdk.Float(*opts.Temperature)
	}
	if opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openaisdk.Int(int64(opts.MaxTokens))
	}
	if opts.N > 0 {
		params.N = openaisdk.Int(int64(opts.N))
	}
	if opts.Seed > 0 {
		params.Seed = openaisdk.Int(int64(opts.Seed))
	}
	if len(opts.StopWords) > 0 {
		params.Stop = openaisdk.ChatCompletionNewParamsStopUnion{
			OfStringArray: opts.StopWords,
		}
	}
	for _, tool := range opts.Tools {
		t, err := toChatTool(tool)
		if err != nil {
			return nil, errors.WithMessage(err, "failed to convert tool definition")
		}
		params.Tools = append(params.Tools, t)
	}

	var completion *openaisdk.ChatCompletion
	if opts.StreamingFunc != nil {
		completion, err = o.generateStreaming(ctx, params, opts.StreamingFunc)
	} else {
		completion, err = o.client.Chat.Completions.New(ctx, params)
	}
	if err != nil {
		return nil, errors.Wrap(err, "openai: completion request failed")
	}
	if completion == nil || len(completion.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	resp := &llms.ContentResponse{}
	for _, choice := range completion.Choices {
		cc := &llms.ContentChoice{
			Content:    choice.Message.Content,
			StopReason: string(choice.FinishReason),
			GenerationInfo: map[string]any{
				"InputTokens":  completion.Usage.PromptTokens,
				"OutputTokens": completion.Usage.CompletionTokens,
				"TotalTokens":  completion.Usage.TotalTokens,
			},
		}
		for _, tc := range choice.Message.ToolCalls {
			cc.ToolCalls = append(cc.ToolCalls, llms.ToolCall{
				ID:   tc.ID,
				Type: string(tc.Type),
				FunctionCall: &llms.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		cc.ToolCalls = llms.NormalizeToolCalls(cc.ToolCalls)
		resp.Choices = append(resp.Choices, cc)
	}
	return resp, nil
}

func (o *LLM) generateStreaming(
	ctx context.Context,
	params openaisdk.ChatCompletionNewParams,
	streamingFunc func(ctx context.Context, chunk []byte) error,
) (*openaisdk.ChatCompletion, error) {
	stream := o.client.Chat.Completions.NewStreaming(ctx, params)
	defer func() {
		_ = stream.Close()
	}()

	acc := openaisdk.ChatCompletionAccumulator{}
	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			if err := streamingFunc(ctx, []byte(chunk.Choices[0].Delta.Content)); err != nil {
				return nil, err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, err
	}
	return &acc.ChatCompletion, nil
}

func toChatMessages(messages []llms.Message) ([]openaisdk.ChatCompletionMessageParamUnion, error) {
	chatMsgs := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, mc := range messages {
		switch mc.Role {
		case llms.RoleSystem:
			chatMsgs = append(chatMsgs, openaisdk.SystemMessage(llms.TextContentOf(mc)))
		case llms.RoleHuman, llms.RoleGeneric:
			chatMsgs = append(chatMsgs, openaisdk.UserMessage(llms.TextContentOf(mc)))
		case llms.RoleAI:
			msg, err := toAssistantMessage(mc)
			if err != nil {
				return nil, err
			}
			chatMsgs = append(chatMsgs, msg)
		case llms.RoleTool:
			if len(mc.Parts) != 1 {
				return nil, errors.Newf("expected exactly one part for role %v, got %d", mc.Role, len(mc.Parts))
			}
			tr, ok := mc.Parts[0].(llms.ToolCallResponse)
			if !ok {
				return nil, errors.Newf("expected part of type ToolCallResponse for role %v, got %T", mc.Role, mc.Parts[0])
			}
			chatMsgs = append(chatMsgs, openaisdk.ToolMessage(tr.Content, tr.ToolCallID))
		default:
			return nil, errors.WithMessagef(llms.ErrUnexpectedRole, "role %v not supported", mc.Role)
		}
	}
	return chatMsgs, nil
}

func toAssistantMessage(mc llms.Message) (openaisdk.ChatCompletionMessageParamUnion, error) {
	assistant := &openaisdk.ChatCompletionAssistantMessageParam{}

	if text := llms.TextContentOf(mc); text != "" {
		assistant.Content.OfString = openaisdk.String(text)
	}
	for _, tc := range llms.ToolCallsOf(mc) {
		if tc.FunctionCall == nil {
			return openaisdk.ChatCompletionMessageParamUnion{}, errors.New("openai: tool call without function payload")
		}
		assistant.ToolCalls = append(assistant.ToolCalls, openaisdk.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openaisdk.ChatCompletionMessageFunctionToolCallParam{
				ID: tc.ID,
				Function: openaisdk.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      tc.FunctionCall.Name,
					Arguments: tc.FunctionCall.Arguments,
				},
			},
		})
	}
	return openaisdk.ChatCompletionMessageParamUnion{OfAssistant: assistant}, nil
}

func toChatTool(tool llms.Tool) (openaisdk.ChatCompletionToolUnionParam, error) {
	if tool.Type != "function" || tool.Function == nil {
		return openaisdk.ChatCompletionToolUnionParam{}, errors.Newf("unsupported tool type: %s", tool.Type)
	}
	def := shared.FunctionDefinitionParam{
		Name:        tool.Function.Name,
		Description: openaisdk.String(tool.Function.Description),
	}
	if tool.Function.Parameters != nil {
		params, err := toFunctionParameters(tool.Function.Parameters)
		if err != nil {
			return openaisdk.ChatCompletionToolUnionParam{}, err
		}
		def.Parameters = params
	}
	return openaisdk.ChatCompletionFunctionTool(def), nil
}

// toFunctionParameters converts a permissively typed schema value into the
// map form the SDK requires.
func toFunctionParameters(v any) (shared.FunctionParameters, error) {
	if m, ok := v.(map[string]any); ok {
		return shared.FunctionParameters(m), nil
	}
	bs, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal tool parameters")
	}
	var m map[string]any
	if err := json.Unmarshal(bs, &m); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal tool parameters")
	}
	return shared.FunctionParameters(m), nil
}
