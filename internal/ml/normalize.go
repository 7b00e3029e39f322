package ml

import (
	"regexp"
	"strings"
)

// fencePattern captures everything between the first opening ``` (optionally
// tagged json) and the next closing ```.
var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

var lineBreaks = strings.NewReplacer("\n", "", "\r", "")

// NormalizeAnswer turns the model's answer text into a canonical JSON string.
// Fence extraction must run before line breaks are removed, otherwise the
// closing fence can merge with trailing text.
func NormalizeAnswer(text string) string {
	working := strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(working); m != nil {
		working = strings.TrimSpace(m[1])
	}
	working = lineBreaks.Replace(working)
	return strings.TrimSpace(working)
}
