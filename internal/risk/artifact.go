package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

const maxArtifactSize = 1 << 20

// Artifact is the on-disk JSON export of the trained estimator.
type Artifact struct {
	ModelType    string    `json:"model_type"`
	FeatureNames []string  `json:"feature_names"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
	Mean         []float64 `json:"mean,omitempty"`
	Scale        []float64 `json:"scale,omitempty"`
	Threshold    float64   `json:"threshold,omitempty"`
}

// Source locates an artifact: a local path, or "<owner>/<repo>/<file>" on the model hub.
type Source struct {
	Ref    string
	HubURL string
	Token  string
	HTTP   *http.Client
}

// Load fetches, decodes and validates the artifact once. The returned model is shared read-only.
func Load(ctx context.Context, src Source) (*Model, error) {
	raw, err := read(ctx, src)
	if err != nil {
		return nil, err
	}
	var art Artifact
	if err := json.Unmarshal(raw, &art); err != nil {
		return nil, fmt.Errorf("decode risk artifact: %w", err)
	}
	return FromArtifact(art)
}

// FromArtifact validates art against the declared feature order.
func FromArtifact(art Artifact) (*Model, error) {
	if art.ModelType != "" && art.ModelType != "logistic_regression" {
		return nil, fmt.Errorf("unsupported model type %q", art.ModelType)
	}
	if len(art.FeatureNames) != NumFeatures {
		return nil, fmt.Errorf("artifact has %d features, want %d", len(art.FeatureNames), NumFeatures)
	}
	for i, name := range art.FeatureNames {
		if name != FeatureNames[i] {
			return nil, fmt.Errorf("feature %d is %q, want %q", i, name, FeatureNames[i])
		}
	}
	if len(art.Coefficients) != NumFeatures {
		return nil, fmt.Errorf("artifact has %d coefficients, want %d", len(art.Coefficients), NumFeatures)
	}

	m := &Model{intercept: art.Intercept, threshold: art.Threshold}
	if m.threshold <= 0 || m.threshold >= 1 {
		m.threshold = 0.5
	}
	copy(m.coefficients[:], art.Coefficients)

	for i := range m.scale {
		m.scale[i] = 1
	}
	if len(art.Mean) > 0 || len(art.Scale) > 0 {
		if len(art.Mean) != NumFeatures || len(art.Scale) != NumFeatures {
			return nil, fmt.Errorf("scaler must carry %d means and scales", NumFeatures)
		}
		copy(m.mean[:], art.Mean)
		for i, s := range art.Scale {
			if s == 0 {
				return nil, fmt.Errorf("scale for %s is zero", FeatureNames[i])
			}
			m.scale[i] = s
		}
	}
	return m, nil
}

func read(ctx context.Context, src Source) ([]byte, error) {
	if src.Ref == "" {
		return nil, fmt.Errorf("risk artifact source required")
	}
	if _, err := os.Stat(src.Ref); err == nil {
		raw, err := os.ReadFile(src.Ref)
		if err != nil {
			return nil, fmt.Errorf("read risk artifact: %w", err)
		}
		return raw, nil
	}
	return fetchFromHub(ctx, src)
}

func fetchFromHub(ctx context.Context, src Source) ([]byte, error) {
	parts := strings.Split(src.Ref, "/")
	if len(parts) < 3 || src.HubURL == "" {
		return nil, fmt.Errorf("risk artifact %q not found locally and is not a hub reference", src.Ref)
	}
	repo := strings.Join(parts[:2], "/")
	file := strings.Join(parts[2:], "/")
	url := fmt.Sprintf("%s/%s/resolve/main/%s", strings.TrimRight(src.HubURL, "/"), repo, file)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if src.Token != "" {
		req.Header.Set("Authorization", "Bearer "+src.Token)
	}
	client := src.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch risk artifact: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch risk artifact: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxArtifactSize))
}
