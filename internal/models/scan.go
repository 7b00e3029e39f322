package models

// ScanRequest is a single product scan as handed to the analyzer
type ScanRequest struct {
	ImageData []byte `json:"-"`
	MimeType  string `json:"mimeType,omitempty"` // optional, sniffed when empty
	Prompt    string `json:"prompt,omitempty"`   // optional user context
}
