package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"

	"med-assistant/internal/inference"
)

// GeminiClient calls Google's Gemini models through the generative-ai SDK.
type GeminiClient struct {
	model       string
	temperature float32
	timeout     time.Duration
	client      *genai.Client
}

// NewGeminiClient dials the Gemini API. Close releases the underlying connection.
func NewGeminiClient(ctx context.Context, apiKey string, spec inference.Capability, timeout time.Duration) (*GeminiClient, error) {
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
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiClient{
		model:       spec.Model,
		temperature: float32(temperature),
		timeout:     timeout,
		client:      client,
	}, nil
}

func (c *GeminiClient) Complete(ctx context.Context, system, user string) (string, error) {
	if c == nil || c.client == nil {
		return "", inference.NewShapeError(inference.CapabilityChat, fmt.Errorf("nil gemini client"))
	}
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	model := c.client.GenerativeModel(c.model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(system)},
	}
	model.SetTemperature(c.temperature)

	resp, err := model.GenerateContent(reqCtx, genai.Text(user))
	if err != nil {
		return "", classifyGeminiError(err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", inference.NewShapeError(inference.CapabilityChat, fmt.Errorf("no candidates returned"))
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", inference.NewShapeError(inference.CapabilityChat, fmt.Errorf("no text parts returned"))
	}
	return text.String(), nil
}

// Close releases the Gemini connection.
func (c *GeminiClient) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func classifyGeminiError(err error) error {
	var apiErr *apierror.APIError
	if !errors.As(err, &apiErr) {
		return inference.NewTransportError(inference.CapabilityChat, err)
	}
	if status := apiErr.HTTPCode(); status > 0 {
		return &inference.Error{
			Capability: inference.CapabilityChat,
			Kind:       inference.StatusKind(status),
			Status:     status,
			Err:        err,
		}
	}
	kind := inference.Permanent
	if st := apiErr.GRPCStatus(); st != nil {
		switch st.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Internal:
			kind = inference.Transient
		}
	}
	return &inference.Error{Capability: inference.CapabilityChat, Kind: kind, Err: err}
}
