package ml

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/Aryan-Baglane/RecyclerAiChatBot/internal/models"
)

// DecodeProductDetails parses a canonical JSON string into a report. Unknown
// fields are ignored and missing ones keep their zero value; anything that is
// not a JSON object of the expected shape is a ContentError and yields no record.
func DecodeProductDetails(canonical string) (*models.ProductDetails, error) {
	trimmed := strings.TrimSpace(canonical)
	if trimmed == "" {
		return nil, &ContentError{Err: errors.New("empty answer")}
	}
	if trimmed[0] != '{' {
		return nil, &ContentError{Err: errors.New("answer is not a JSON object")}
	}

	var details models.ProductDetails
	if err := json.Unmarshal([]byte(trimmed), &details); err != nil {
		return nil, &ContentError{Err: err}
	}
	details.FillEmptyLists()
	return &details, nil
}
