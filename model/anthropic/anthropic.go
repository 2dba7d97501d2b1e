// Package anthropic provides a model.Client wrapper for the Anthropic Claude API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"
	"github.com/reslab/reslab/model"
)

// Options configure the Anthropic client adapter (temperature, model id,
// max tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Client wraps the Anthropic Messages API behind the generic model.Client interface.
type Client struct {
	client *anthropic.Client
	opts   Options
}

// NewClient creates a new Anthropic client using the official SDK.
func NewClient(optFns ...func(o *Options)) *Client {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Client{client: &client, opts: opts}
}

// NewClientFromSDK creates a new Anthropic client from an existing SDK client.
func NewClientFromSDK(client *anthropic.Client, optFns ...func(o *Options)) *Client {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{client: client, opts: opts}
}

// Complete sends instructions, history and the operation catalog to the
// Messages API and converts the content blocks back into a model.Response.
func (c *Client) Complete(ctx context.Context, req model.Request) (model.Response, error) {
	params := anthropic.MessageNewParams{
		Model:       c.opts.Model,
		Messages:    buildMessages(req.History),
		MaxTokens:   c.opts.MaxTokens,
		Temperature: anthropic.Float(c.opts.Temperature),
	}
	if req.Instructions != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.Instructions}}
	}
	if len(req.Operations) > 0 {
		params.Tools = buildTools(req.Operations)
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return model.Response{}, fmt.Errorf("anthropic api error: %w", err)
	}

	var out model.Response
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			out.Text += block.AsText().Text
		case "tool_use":
			if out.Operation != nil {
				continue // one operation per turn
			}
			toolBlock := block.AsToolUse()
			op, err := decodeOperation(req, toolBlock.Name, toolBlock.Input)
			if err != nil {
				return model.Response{}, err
			}
			out.Operation = op
		}
	}
	return out, nil
}

// buildMessages converts conversation history to Anthropic message format.
func buildMessages(history []model.Message) []anthropic.MessageParam {
	messages := make([]anthropic.MessageParam, 0, len(history))
	for _, msg := range history {
		if msg.Text == "" {
			continue
		}
		block := anthropic.NewTextBlock(msg.Text)
		switch msg.Role {
		case "assistant":
			messages = append(messages, anthropic.NewAssistantMessage(block))
		default:
			// Treat unknown roles as user
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}
	return messages
}

// buildTools converts operation definitions to the Anthropic tool format.
func buildTools(ops []model.OperationDefinition) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, len(ops))
	for i, op := range ops {
		inputSchema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}
		if op.Parameters != nil {
			if properties, exists := op.Parameters["properties"]; exists {
				inputSchema.Properties = properties
			}
			if required, exists := op.Parameters["required"]; exists {
				switch req := required.(type) {
				case []string:
					inputSchema.Required = req
				case []any:
					for _, r := range req {
						if s, ok := r.(string); ok {
							inputSchema.Required = append(inputSchema.Required, s)
						}
					}
				}
			}
		}
		tools[i] = anthropic.ToolUnionParamOfTool(inputSchema, op.Name)
	}
	return tools
}

// decodeOperation maps a tool_use block back to its catalog entry. The input
// payload is round-tripped through JSON to normalize whatever shape the SDK
// surfaces it in.
func decodeOperation(req model.Request, name string, input any) (*model.OperationRequest, error) {
	def, ok := req.OperationByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown operation %q", model.ErrMalformedOutput, name)
	}
	fields := map[string]any{}
	if input != nil {
		raw, err := json.Marshal(input)
		if err != nil {
			return nil, fmt.Errorf("%w: undecodable arguments for %q: %v", model.ErrMalformedOutput, name, err)
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("%w: undecodable arguments for %q: %v", model.ErrMalformedOutput, name, err)
		}
	}
	return &model.OperationRequest{Target: def.Target, Action: def.Action, Fields: fields}, nil
}

// Info returns metadata describing this Anthropic client implementation.
func (c *Client) Info() model.Info {
	return model.Info{
		Name:               string(c.opts.Model),
		Provider:           "anthropic",
		SupportsOperations: true,
	}
}
