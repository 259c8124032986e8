package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/medicloud/portal/pkg/config"
	"github.com/medicloud/portal/pkg/logger"
	"github.com/medicloud/portal/pkg/types"
)

// Backend is one named generative-model endpoint configuration. Candidates
// are attempted in a fixed preference order.
type Backend interface {
	Name() string
	// Generate submits a multimodal request and returns the text result
	Generate(ctx context.Context, req *types.GenerationRequest) (string, error)
	// Probe performs a cheap synchronous smoke-test generation. Construction
	// succeeding does not guarantee generation will.
	Probe(ctx context.Context) error
}

// BackendFactory constructs a backend for a model identifier
type BackendFactory func(model string) (Backend, error)

// restBackend speaks the single-shot generate-from-parts REST API. Text and
// inline base64 binary parts travel in one user content block.
type restBackend struct {
	model       string
	endpoint    string
	apiKey      string
	temperature float64
	client      *http.Client
	logger      *logger.Logger
}

// NewRESTBackendFactory returns a factory producing REST backends from the
// generative-model configuration
func NewRESTBackendFactory(cfg *config.GenAIConfig, log *logger.Logger) BackendFactory {
	client := &http.Client{
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}

	return func(model string) (Backend, error) {
		if model == "" {
			return nil, fmt.Errorf("empty model identifier")
		}
		return &restBackend{
			model:       model,
			endpoint:    strings.TrimRight(cfg.Endpoint, "/"),
			apiKey:      cfg.APIKey,
			temperature: cfg.Temperature,
			client:      client,
			logger:      log,
		}, nil
	}
}

// Name returns the model identifier
func (b *restBackend) Name() string {
	return b.model
}

// wire types for the generate-from-parts call

type generatePart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *inlineDataPart `json:"inline_data,omitempty"`
}

type inlineDataPart struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

type generateRequest struct {
	Contents         []generateContent `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate submits the request to the backend
func (b *restBackend) Generate(ctx context.Context, req *types.GenerationRequest) (string, error) {
	return b.generate(ctx, req, 0)
}

// Probe issues a one-token generation to verify the model actually responds
func (b *restBackend) Probe(ctx context.Context) error {
	_, err := b.generate(ctx, &types.GenerationRequest{Prompt: "ping"}, 1)
	return err
}

func (b *restBackend) generate(ctx context.Context, req *types.GenerationRequest, maxTokens int) (string, error) {
	parts := []generatePart{{Text: req.Prompt}}

	if req.Attachment != nil {
		parts = append(parts, generatePart{
			InlineData: &inlineDataPart{
				MIMEType: req.Attachment.MIMEType,
				Data:     base64.StdEncoding.EncodeToString(req.Attachment.Data),
			},
		})
	}

	temperature := b.temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	payload := generateRequest{
		Contents: []generateContent{{Parts: parts}},
		GenerationConfig: &generationConfig{
			Temperature:     &temperature,
			MaxOutputTokens: maxTokens,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal generation request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", b.endpoint, b.model, b.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build generation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("model request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read model response: %w", err)
	}

	var decoded generateResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return "", fmt.Errorf("failed to decode model response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if decoded.Error != nil {
			return "", fmt.Errorf("model %s returned %s: %s", b.model, decoded.Error.Status, decoded.Error.Message)
		}
		return "", fmt.Errorf("model %s returned status %d", b.model, resp.StatusCode)
	}

	if len(decoded.Candidates) == 0 {
		return "", fmt.Errorf("model %s returned no candidates", b.model)
	}

	var sb strings.Builder
	for _, part := range decoded.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}

	return sb.String(), nil
}
