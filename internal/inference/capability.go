package inference

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	CapabilityChat     = "chat"
	CapabilityEntities = "entities"
	CapabilityCaption  = "caption"
)

// Capability pins one remote contract: which model, where, and which field of the reply to read.
// ResponsePath applies to the hub capabilities only; chat replies are decoded by the provider SDK.
type Capability struct {
	Model        string  `yaml:"model"`
	Endpoint     string  `yaml:"endpoint"`
	ResponsePath string  `yaml:"response_path"`
	Temperature  float64 `yaml:"temperature,omitempty"`
}

// URL expands a {model} placeholder in the endpoint.
func (c Capability) URL() string {
	return strings.ReplaceAll(c.Endpoint, "{model}", c.Model)
}

// Capabilities enumerates every remote contract the assistant uses.
type Capabilities struct {
	Chat     Capability `yaml:"chat"`
	Entities Capability `yaml:"entities"`
	Caption  Capability `yaml:"caption"`
}

// DefaultCapabilities returns the stock contracts against the given hosts.
func DefaultCapabilities(chatModel, chatBaseURL string, temperature float64, hfInferenceURL, entityModel, captionModel string) Capabilities {
	hf := strings.TrimRight(hfInferenceURL, "/") + "/{model}"
	return Capabilities{
		Chat: Capability{
			Model:       chatModel,
			Endpoint:    chatBaseURL,
			Temperature: temperature,
		},
		Entities: Capability{
			Model:        entityModel,
			Endpoint:     hf,
			ResponsePath: "@this",
		},
		Caption: Capability{
			Model:        captionModel,
			Endpoint:     hf,
			ResponsePath: "0.generated_text",
		},
	}
}

// LoadCapabilities overlays the YAML file at path onto base. Fields left empty in the file keep their base value.
func LoadCapabilities(path string, base Capabilities) (Capabilities, error) {
	if path == "" {
		return base, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read capabilities file: %w", err)
	}
	var override Capabilities
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return base, fmt.Errorf("parse capabilities file: %w", err)
	}
	if override.Chat.ResponsePath != "" {
		return base, fmt.Errorf("chat.response_path is not configurable: chat replies are decoded by the provider client")
	}
	return Capabilities{
		Chat:     merge(base.Chat, override.Chat),
		Entities: merge(base.Entities, override.Entities),
		Caption:  merge(base.Caption, override.Caption),
	}, nil
}

func merge(base, override Capability) Capability {
	if override.Model != "" {
		base.Model = override.Model
	}
	if override.Endpoint != "" {
		base.Endpoint = override.Endpoint
	}
	if override.ResponsePath != "" {
		base.ResponsePath = override.ResponsePath
	}
	if override.Temperature != 0 {
		base.Temperature = override.Temperature
	}
	return base
}
