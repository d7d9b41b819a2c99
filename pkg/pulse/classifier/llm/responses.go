package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

// ResponsesCompleter calls the OpenAI Responses API with a strict JSON
// schema output format.
type ResponsesCompleter struct {
	client          *openai.Client
	model           string
	maxOutputTokens int64
}

// NewResponsesCompleter builds a completer for model. Extra request options
// (base URL, HTTP client) are passed through to the SDK client. The SDK's own
// retries are off: a failed call surfaces as a classifier error.
func NewResponsesCompleter(apiKey, model string, opts ...option.RequestOption) *ResponsesCompleter {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	client := openai.NewClient(opts...)
	return &ResponsesCompleter{
		client:          &client,
		model:           model,
		maxOutputTokens: 4000,
	}
}

// Complete implements Completer.
func (r *ResponsesCompleter) Complete(ctx context.Context, req Request) (string, error) {
	if r.model == "" {
		return "", errors.New("llm: model is empty")
	}
	params := responses.ResponseNewParams{
		Model:           r.model,
		MaxOutputTokens: openai.Int(r.maxOutputTokens),
		Instructions:    openai.String(req.Instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(req.Input, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:        req.SchemaName,
					Schema:      req.Schema,
					Strict:      openai.Bool(true),
					Description: openai.String("Per-comment sentiment labels"),
					Type:        "json_schema",
				},
			},
		},
	}

	resp, err := r.client.Responses.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("responses call: %w", err)
	}
	return resp.OutputText(), nil
}
