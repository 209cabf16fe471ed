package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"med-assistant/internal/inference"
)

// OpenAIClient calls an OpenAI-compatible Chat Completions API (Groq by default).
type OpenAIClient struct {
	model       openai.ChatModel
	temperature float64
	timeout     time.Duration
	client      *openai.Client
}

const (
	defaultChatTimeout     = 60 * time.Second
	defaultChatTemperature = 0.7
)

// NewOpenAIClient builds a client for the chat capability. httpClient may be nil.
func NewOpenAIClient(apiKey string, spec inference.Capability, timeout time.Duration, httpClient *http.Client) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key required")
	}
	if spec.Model == "" {
		return nil, fmt.Errorf("chat model required")
	}
	if timeout <= 0 {
		timeout = defaultChatTimeout
	}
	temperature := spec.Temperature
	if temperature == 0 {
		temperature = defaultChatTemperature
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if spec.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(spec.Endpoint))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	cli := openai.NewClient(opts...)
	return &OpenAIClient{
		model:       openai.ChatModel(spec.Model),
		temperature: temperature,
		timeout:     timeout,
		client:      &cli,
	}, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	if c == nil || c.client == nil {
		return "", inference.NewShapeError(inference.CapabilityChat, fmt.Errorf("nil openai client"))
	}
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(reqCtx, openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    buildMessages(system, user),
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", inference.NewShapeError(inference.CapabilityChat, fmt.Errorf("no choices returned"))
	}
	return resp.Choices[0].Message.Content, nil
}

func buildMessages(system, user string) []openai.ChatCompletionMessageParamUnion {
	return []openai.ChatCompletionMessageParamUnion{
		{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(system),
				},
			},
		},
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfString: openai.String(user),
				},
			},
		},
	}
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &inference.Error{
			Capability: inference.CapabilityChat,
			Kind:       inference.StatusKind(apiErr.StatusCode),
			Status:     apiErr.StatusCode,
			Err:        err,
		}
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return inference.NewShapeError(inference.CapabilityChat, err)
	}
	return inference.NewTransportError(inference.CapabilityChat, err)
}
