package ml

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"
)

// VertexModel implements the Model interface for Google's Vertex AI
type VertexModel struct {
	config VertexConfig
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewVertexModel creates a Vertex AI model; call Load before use
func NewVertexModel(config VertexConfig) *VertexModel {
	return &VertexModel{config: config}
}

func (m *VertexModel) Name() string { return "vertex" }

// Load initializes the Vertex AI client
func (m *VertexModel) Load(ctx context.Context) error {
	opts := []option.ClientOption{}

	if m.config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(m.config.CredentialsFile))
	}

	client, err := genai.NewClient(ctx, m.config.ProjectID, m.config.Location, opts...)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	model := client.GenerativeModel(m.config.Model)
	model.SetTemperature(generationTemperature)
	model.SetTopP(generationTopP)
	model.SetTopK(generationTopK)

	m.client = client
	m.model = model
	return nil
}

// Close releases the underlying client
func (m *VertexModel) Close() error {
	if m.client == nil {
		return nil
	}
	return m.client.Close()
}

// Generate sends the image and prompt through the SDK and returns the answer text
func (m *VertexModel) Generate(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	if m.model == nil {
		return "", fmt.Errorf("model not loaded")
	}

	img := genai.Blob{MIMEType: mimeType, Data: image}
	resp, err := m.model.GenerateContent(ctx, img, genai.Text(prompt))
	if err != nil {
		return "", &UpstreamError{Err: err}
	}
	return answerFromVertex(resp)
}

// answerFromVertex applies the envelope checks to an SDK response
func answerFromVertex(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", &EnvelopeError{Stage: StageOuterParse, Field: "response"}
	}
	if resp.Candidates == nil {
		return "", &EnvelopeError{Stage: StageCandidatesMissing, Field: "candidates"}
	}
	if len(resp.Candidates) == 0 {
		return "", &EnvelopeError{Stage: StageCandidatesEmpty, Field: "candidates"}
	}

	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return "", &EnvelopeError{Stage: StageContentMissing, Field: "candidates[0].content"}
	}
	if candidate.Content.Parts == nil {
		return "", &EnvelopeError{Stage: StagePartsMissing, Field: "candidates[0].content.parts"}
	}
	if len(candidate.Content.Parts) == 0 {
		return "", &EnvelopeError{Stage: StagePartsEmpty, Field: "candidates[0].content.parts"}
	}

	text, ok := candidate.Content.Parts[0].(genai.Text)
	if !ok {
		return "", &EnvelopeError{Stage: StageTextMissing, Field: "candidates[0].content.parts[0].text"}
	}
	answer := strings.TrimSpace(string(text))
	if answer == "" {
		return "", &EnvelopeError{Stage: StageTextBlank, Field: "candidates[0].content.parts[0].text"}
	}
	return answer, nil
}
