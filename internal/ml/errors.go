package ml

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned at startup when the model backend is misconfigured
	ErrConfiguration = errors.New("configuration error")
	// ErrInvalidInput is returned when a scan request has no image data
	ErrInvalidInput = errors.New("invalid input")
	// ErrUpstreamUnavailable covers transport failures, timeouts and non-2xx replies
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrEnvelopeMalformed is returned when the answer text cannot be located in the response envelope
	ErrEnvelopeMalformed = errors.New("envelope malformed")
	// ErrContentMalformed is returned when the answer text does not decode into a report
	ErrContentMalformed = errors.New("content malformed")
)

// UpstreamError describes a failed call to the inference endpoint.
// StatusCode is zero when no HTTP response was received.
type UpstreamError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream unavailable: status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("upstream unavailable: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstreamUnavailable }

// EnvelopeStage names the link of the candidates -> content -> parts -> text
// path at which envelope extraction stopped.
type EnvelopeStage string

const (
	StageOuterParse        EnvelopeStage = "outer_parse"
	StageCandidatesMissing EnvelopeStage = "candidates_missing"
	StageCandidatesEmpty   EnvelopeStage = "candidates_empty"
	StageContentMissing    EnvelopeStage = "content_missing"
	StagePartsMissing      EnvelopeStage = "parts_missing"
	StagePartsEmpty        EnvelopeStage = "parts_empty"
	StageTextMissing       EnvelopeStage = "text_missing"
	StageTextBlank         EnvelopeStage = "text_blank"
)

// EnvelopeError reports the stage and field at which envelope extraction failed
type EnvelopeError struct {
	Stage EnvelopeStage
	Field string
	Err   error
}

func (e *EnvelopeError) Error() string {
	msg := fmt.Sprintf("envelope malformed at %s (field %q)", e.Stage, e.Field)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *EnvelopeError) Unwrap() error { return e.Err }

func (e *EnvelopeError) Is(target error) bool { return target == ErrEnvelopeMalformed }

// ContentError reports that the normalized answer could not be decoded
type ContentError struct {
	Err error
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("content malformed: %v", e.Err)
}

func (e *ContentError) Unwrap() error { return e.Err }

func (e *ContentError) Is(target error) bool { return target == ErrContentMalformed }
