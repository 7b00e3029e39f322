package ml

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
)

// Generation settings biased toward deterministic, well-formed JSON
const (
	generationTemperature = 0.2
	generationTopP        = 0.8
	generationTopK        = 40
)

// maxResponseBytes bounds how much of a reply body is read into memory
const maxResponseBytes = 8 << 20

// maxErrorBodyBytes bounds the reply excerpt kept in an UpstreamError
const maxErrorBodyBytes = 512

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type requestPart struct {
	InlineData *inlineData `json:"inline_data,omitempty"`
	Text       string      `json:"text,omitempty"`
}

type requestContent struct {
	Parts []requestPart `json:"parts"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"topP"`
	TopK        int     `json:"topK"`
}

type generateRequest struct {
	Contents         []requestContent `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

// GeminiClient issues generateContent calls against the configured HTTPS endpoint
type GeminiClient struct {
	apiKey string
	apiURL string
	httpc  *http.Client
	debug  bool
}

// NewGeminiClient validates the configuration and returns a client. When
// httpc is nil a client with the configured timeout is used.
func NewGeminiClient(config GeminiConfig, httpc *http.Client, debug bool) (*GeminiClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if httpc == nil {
		httpc = &http.Client{Timeout: config.Timeout()}
	}
	return &GeminiClient{
		apiKey: config.APIKey,
		apiURL: config.APIURL,
		httpc:  httpc,
		debug:  debug,
	}, nil
}

// Call sends the image and prompt in a single request and returns the raw
// reply body. It never retries.
func (c *GeminiClient) Call(ctx context.Context, image []byte, mimeType, prompt string) ([]byte, error) {
	body := generateRequest{
		Contents: []requestContent{{
			Parts: []requestPart{
				{InlineData: &inlineData{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(image),
				}},
				{Text: prompt},
			},
		}},
		GenerationConfig: generationConfig{
			Temperature: generationTemperature,
			TopP:        generationTopP,
			TopK:        generationTopK,
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode gemini request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	if c.debug {
		log.Printf("Calling Gemini API with URL: %s (%d image bytes, %s)", c.apiURL, len(image), mimeType)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if c.debug {
		log.Printf("Gemini API response status: %d", resp.StatusCode)
		log.Printf("Gemini API raw response body: %s", raw)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt := raw
		if len(excerpt) > maxErrorBodyBytes {
			excerpt = excerpt[:maxErrorBodyBytes]
		}
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(excerpt)}
	}
	return raw, nil
}

// GeminiModel implements the Model interface over the Gemini REST endpoint
type GeminiModel struct {
	config GeminiConfig
	client *GeminiClient
	debug  bool
}

// NewGeminiModel creates a Gemini model; call Load before use
func NewGeminiModel(config GeminiConfig, debug bool) *GeminiModel {
	return &GeminiModel{config: config, debug: debug}
}

func (m *GeminiModel) Name() string { return "gemini" }

// Load builds the HTTP client
func (m *GeminiModel) Load(ctx context.Context) error {
	client, err := NewGeminiClient(m.config, nil, m.debug)
	if err != nil {
		return fmt.Errorf("failed to create gemini client: %w", err)
	}
	m.client = client
	return nil
}

// Generate calls the endpoint and unwraps the answer text from the envelope
func (m *GeminiModel) Generate(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	if m.client == nil {
		return "", fmt.Errorf("model not loaded")
	}
	raw, err := m.client.Call(ctx, image, mimeType, prompt)
	if err != nil {
		return "", err
	}
	return UnwrapEnvelope(raw)
}
