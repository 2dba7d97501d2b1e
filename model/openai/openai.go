// Package openai provides an implementation of model.Client using the OpenAI
// Chat Completions API (including function/tool calling). It adapts the
// assistant's normalized Request/Response structures into the SDK's message
// format and back.
package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/reslab/reslab/model"
)

// Options configure the OpenAI client adapter.
// Fields mirror a subset of Chat Completion parameters intentionally kept
// minimal; extend via functional options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Client wraps the OpenAI Chat Completions API behind the generic
// model.Client interface.
type Client struct {
	client *openai.Client
	opts   Options
}

// NewClient creates a new OpenAI client using the official SDK defaults
// (API key from the environment).
func NewClient(optFns ...func(o *Options)) *Client {
	client := openai.NewClient()
	return NewClientFromSDK(&client, optFns...)
}

// NewClientFromSDK creates a new OpenAI client from an existing SDK client.
func NewClientFromSDK(client *openai.Client, optFns ...func(o *Options)) *Client {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{client: client, opts: opts}
}

// Complete sends instructions, history and the operation catalog to the Chat
// Completions API and converts the first choice back into a model.Response.
// A tool call naming an operation outside the supplied catalog, or carrying
// undecodable arguments, yields model.ErrMalformedOutput.
func (c *Client) Complete(ctx context.Context, req model.Request) (model.Response, error) {
	params := c.buildParams(req)

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return model.Response{}, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return model.Response{}, fmt.Errorf("%w: no choices returned", model.ErrMalformedOutput)
	}

	ch0 := resp.Choices[0]
	out := model.Response{Text: ch0.Message.Content}

	for _, tc := range ch0.Message.ToolCalls {
		op, err := decodeOperation(req, tc.Function.Name, tc.Function.Arguments)
		if err != nil {
			return model.Response{}, err
		}
		out.Operation = op
		break // one operation per turn; extra calls are ignored
	}
	return out, nil
}

// buildParams assembles the OpenAI request parameters including operation
// definitions exposed as tools.
func (c *Client) buildParams(req model.Request) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+1)
	if req.Instructions != "" {
		messages = append(messages, openai.SystemMessage(req.Instructions))
	}
	for _, msg := range req.History {
		switch msg.Role {
		case "assistant":
			messages = append(messages, openai.AssistantMessage(msg.Text))
		default:
			messages = append(messages, openai.UserMessage(msg.Text))
		}
	}

	params := openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               c.opts.Model,
		Temperature:         openai.Float(c.opts.Temperature),
		MaxCompletionTokens: openai.Int(c.opts.MaxCompletionTokens),
	}
	if len(req.Operations) == 0 {
		return params
	}
	tools := make([]openai.ChatCompletionToolParam, len(req.Operations))
	for i, op := range req.Operations {
		tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        op.Name,
				Description: openai.String(op.Description),
				Parameters:  op.Parameters,
			},
		}
	}
	params.Tools = tools
	return params
}

// decodeOperation maps a tool call back to its catalog entry and parses the
// argument payload into an operation request.
func decodeOperation(req model.Request, name, arguments string) (*model.OperationRequest, error) {
	def, ok := req.OperationByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown operation %q", model.ErrMalformedOutput, name)
	}
	fields := map[string]any{}
	if arguments != "" {
		if err := json.Unmarshal([]byte(arguments), &fields); err != nil {
			return nil, fmt.Errorf("%w: undecodable arguments for %q: %v", model.ErrMalformedOutput, name, err)
		}
	}
	return &model.OperationRequest{Target: def.Target, Action: def.Action, Fields: fields}, nil
}

// Info returns metadata describing this OpenAI client implementation.
func (c *Client) Info() model.Info {
	return model.Info{
		Name:               c.opts.Model,
		Provider:           "openai",
		SupportsOperations: true,
	}
}
