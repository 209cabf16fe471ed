package inference

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Captioner describes an image in one sentence.
type Captioner interface {
	Caption(ctx context.Context, image []byte, contentType string) (string, error)
}

// HFCaptionClient calls an image-to-text model on the Hugging Face inference API.
type HFCaptionClient struct {
	hub hubClient
}

// NewHFCaptionClient builds a captioner. httpClient may be nil.
func NewHFCaptionClient(spec Capability, token string, timeout time.Duration, httpClient *http.Client) (*HFCaptionClient, error) {
	if token == "" {
		return nil, fmt.Errorf("inference hub token required")
	}
	return &HFCaptionClient{hub: newHubClient(CapabilityCaption, spec, token, timeout, httpClient)}, nil
}

func (c *HFCaptionClient) Caption(ctx context.Context, image []byte, contentType string) (string, error) {
	if len(image) == 0 {
		return "", NewShapeError(CapabilityCaption, fmt.Errorf("empty image"))
	}
	field, err := c.hub.postBinary(ctx, image, contentType)
	if err != nil {
		return "", err
	}
	caption := strings.TrimSpace(field.String())
	if caption == "" {
		return "", NewShapeError(CapabilityCaption, fmt.Errorf("empty caption"))
	}
	return caption, nil
}
