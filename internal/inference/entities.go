package inference

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Entity is one medically relevant span found by the extraction model.
type Entity struct {
	Group string  `json:"entity_group"`
	Word  string  `json:"word"`
	Score float64 `json:"score"`
	Start int     `json:"start"`
	End   int     `json:"end"`
}

// EntityExtractor finds symptoms, diseases and drugs in free text.
type EntityExtractor interface {
	Extract(ctx context.Context, text string) ([]Entity, error)
}

// HFEntityClient calls a token-classification model on the Hugging Face inference API.
type HFEntityClient struct {
	hub hubClient
}

// NewHFEntityClient builds an extractor. httpClient may be nil.
func NewHFEntityClient(spec Capability, token string, timeout time.Duration, httpClient *http.Client) (*HFEntityClient, error) {
	if token == "" {
		return nil, fmt.Errorf("inference hub token required")
	}
	return &HFEntityClient{hub: newHubClient(CapabilityEntities, spec, token, timeout, httpClient)}, nil
}

func (c *HFEntityClient) Extract(ctx context.Context, text string) ([]Entity, error) {
	field, err := c.hub.postJSON(ctx, map[string]any{
		"inputs":     text,
		"parameters": map[string]string{"aggregation_strategy": "simple"},
	})
	if err != nil {
		return nil, err
	}
	if !field.IsArray() {
		return nil, NewShapeError(CapabilityEntities, fmt.Errorf("expected entity array, got %s", field.Type))
	}
	var out []Entity
	for _, item := range field.Array() {
		word := strings.TrimSpace(item.Get("word").String())
		if word == "" {
			continue
		}
		out = append(out, Entity{
			Group: item.Get("entity_group").String(),
			Word:  word,
			Score: item.Get("score").Float(),
			Start: int(item.Get("start").Int()),
			End:   int(item.Get("end").Int()),
		})
	}
	return out, nil
}

// FormatEntities renders extracted entities as a response fragment. No entities yields "".
func FormatEntities(entities []Entity) string {
	if len(entities) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("🔍 Detected medical entities:")
	for _, e := range entities {
		fmt.Fprintf(&b, "\n- %s (%s, %.0f%%)", e.Word, e.Group, e.Score*100)
	}
	return b.String()
}
