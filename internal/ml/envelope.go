package ml

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// envelope covers only the candidates[0].content.parts[0].text path of a
// generateContent reply. Pointers and nil slices tell "absent" from "empty".
type envelope struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// UnwrapEnvelope extracts the trimmed answer text from a raw generateContent
// response body. It stops at the first missing link and reports which one.
func UnwrapEnvelope(raw []byte) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", &EnvelopeError{Stage: StageOuterParse, Field: "body", Err: errors.New("empty response body")}
	}
	if trimmed[0] != '{' {
		return "", &EnvelopeError{Stage: StageOuterParse, Field: "body", Err: errors.New("response is not a JSON object")}
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return "", &EnvelopeError{Stage: StageOuterParse, Field: "body", Err: err}
	}

	if env.Candidates == nil {
		return "", &EnvelopeError{Stage: StageCandidatesMissing, Field: "candidates"}
	}
	if len(env.Candidates) == 0 {
		return "", &EnvelopeError{Stage: StageCandidatesEmpty, Field: "candidates"}
	}

	content := env.Candidates[0].Content
	if content == nil {
		return "", &EnvelopeError{Stage: StageContentMissing, Field: "candidates[0].content"}
	}
	if content.Parts == nil {
		return "", &EnvelopeError{Stage: StagePartsMissing, Field: "candidates[0].content.parts"}
	}
	if len(content.Parts) == 0 {
		return "", &EnvelopeError{Stage: StagePartsEmpty, Field: "candidates[0].content.parts"}
	}

	text := content.Parts[0].Text
	if text == nil {
		return "", &EnvelopeError{Stage: StageTextMissing, Field: "candidates[0].content.parts[0].text"}
	}
	answer := strings.TrimSpace(*text)
	if answer == "" {
		return "", &EnvelopeError{Stage: StageTextBlank, Field: "candidates[0].content.parts[0].text"}
	}
	return answer, nil
}
