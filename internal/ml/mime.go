package ml

import (
	"encoding/base64"
	"net/http"
	"strings"
)

const defaultImageMIME = "image/jpeg"

// PickMIME prefers an explicit image MIME type, then a data-URL hint, then
// content sniffing, and falls back to image/jpeg.
func PickMIME(explicit, hint string, data []byte) string {
	if exp := strings.TrimSpace(explicit); strings.HasPrefix(exp, "image/") {
		return exp
	}
	if h := strings.TrimSpace(hint); strings.HasPrefix(h, "image/") {
		return h
	}
	if len(data) > 0 {
		if sniffed := http.DetectContentType(data); strings.HasPrefix(sniffed, "image/") {
			return sniffed
		}
	}
	return defaultImageMIME
}

// DecodeBase64Image decodes standard or URL-safe base64. A data:<mime>;base64,
// prefix is stripped and its MIME type returned as a hint.
func DecodeBase64Image(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	var hintMIME string
	if strings.HasPrefix(strings.ToLower(s), "data:") {
		if idx := strings.IndexByte(s, ','); idx > 0 {
			meta := s[len("data:"):idx]
			if semi := strings.IndexByte(meta, ';'); semi >= 0 {
				hintMIME = meta[:semi]
			} else {
				hintMIME = meta
			}
			s = s[idx+1:]
		}
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, hintMIME, nil
	} else if b2, err2 := base64.URLEncoding.DecodeString(s); err2 == nil {
		return b2, hintMIME, nil
	} else {
		return nil, "", err
	}
}
