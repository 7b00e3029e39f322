package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Aryan-Baglane/RecyclerAiChatBot/internal/ml"
	"github.com/Aryan-Baglane/RecyclerAiChatBot/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}

type fakeScanner struct {
	mu       sync.Mutex
	calls    int
	last     models.ScanRequest
	deadline time.Time
	details  *models.ProductDetails
	err      error
}

func (f *fakeScanner) Scan(ctx context.Context, req models.ScanRequest) (*models.ProductDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = req
	f.deadline, _ = ctx.Deadline()
	if f.err != nil {
		return nil, f.err
	}
	return f.details, nil
}

func newTestServer(scanner Scanner) *Server {
	return New(scanner, Options{RequestTimeout: 30 * time.Second, MaxUploadBytes: 1 << 20})
}

func sampleDetails() *models.ProductDetails {
	d := &models.ProductDetails{
		ProductName: "Plastic Bottle",
		Confidence:  0.9,
		EcoScore:    35,
		Categories:  []models.Category{{Title: "Materials", Score: "40"}},
	}
	d.FillEmptyLists()
	return d
}

func multipartBody(t *testing.T, image []byte, contentType, prompt string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="bottle.jpg"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(image); err != nil {
		t.Fatal(err)
	}
	if prompt != "" {
		if err := w.WriteField("prompt", prompt); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("error body is not JSON: %s", rec.Body.String())
	}
	return resp
}

func TestHealth(t *testing.T) {
	s := newTestServer(&fakeScanner{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestScanMultipart(t *testing.T) {
	scanner := &fakeScanner{details: sampleDetails()}
	s := newTestServer(scanner)

	body, contentType := multipartBody(t, jpegBytes, "image/jpeg", "reusable?")
	req := httptest.NewRequest(http.MethodPost, "/api/scan", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Error("missing request id header")
	}
	var got models.ProductDetails
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.ProductName != "Plastic Bottle" || got.EcoScore != 35 {
		t.Fatalf("unexpected body: %+v", got)
	}
	if !strings.Contains(rec.Body.String(), `"alternatives":[]`) {
		t.Errorf("expected empty alternatives list in %s", rec.Body.String())
	}

	if scanner.calls != 1 {
		t.Fatalf("expected 1 scan, got %d", scanner.calls)
	}
	if !bytes.Equal(scanner.last.ImageData, jpegBytes) || scanner.last.MimeType != "image/jpeg" || scanner.last.Prompt != "reusable?" {
		t.Fatalf("unexpected scan request: %+v", scanner.last)
	}
}

func TestScanJSON(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(jpegBytes)
	tests := []struct {
		name     string
		body     string
		wantMIME string
	}{
		{"plain base64", fmt.Sprintf(`{"base64ImageData": %q, "prompt": "glass jar"}`, encoded), ""},
		{"data url", fmt.Sprintf(`{"base64ImageData": %q}`, "data:image/png;base64,"+encoded), "image/png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scanner := &fakeScanner{details: sampleDetails()}
			s := newTestServer(scanner)

			req := httptest.NewRequest(http.MethodPost, "/api/scan", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
			}
			if !bytes.Equal(scanner.last.ImageData, jpegBytes) {
				t.Fatalf("image not decoded: %v", scanner.last.ImageData)
			}
			if scanner.last.MimeType != tt.wantMIME {
				t.Fatalf("mime = %q, want %q", scanner.last.MimeType, tt.wantMIME)
			}
		})
	}
}

func TestScanRejectsBadInput(t *testing.T) {
	emptyMultipart, emptyType := multipartBody(t, nil, "image/jpeg", "")
	tests := []struct {
		name        string
		body        string
		contentType string
		wantStatus  int
	}{
		{"empty multipart image", emptyMultipart.String(), emptyType, http.StatusBadRequest},
		{"missing image part", "", "multipart/form-data; boundary=xyz", http.StatusBadRequest},
		{"missing json field", `{"prompt": "hi"}`, "application/json", http.StatusBadRequest},
		{"invalid base64", `{"base64ImageData": "***"}`, "application/json", http.StatusBadRequest},
		{"malformed json", `{"base64ImageData": `, "application/json", http.StatusBadRequest},
		{"unsupported content type", "image", "text/plain", http.StatusUnsupportedMediaType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scanner := &fakeScanner{details: sampleDetails()}
			s := newTestServer(scanner)

			req := httptest.NewRequest(http.MethodPost, "/api/scan", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body = %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if scanner.calls != 0 {
				t.Fatalf("scanner must not be called, got %d calls", scanner.calls)
			}
			if resp := decodeError(t, rec); resp.RequestID == "" || resp.Error == "" {
				t.Fatalf("incomplete error body: %+v", resp)
			}
		})
	}
}

func TestScanRejectsOversizedBody(t *testing.T) {
	scanner := &fakeScanner{details: sampleDetails()}
	s := New(scanner, Options{MaxUploadBytes: 1024})

	body, contentType := multipartBody(t, bytes.Repeat([]byte{0xFF}, 4096), "image/jpeg", "")
	req := httptest.NewRequest(http.MethodPost, "/api/scan", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if scanner.calls != 0 {
		t.Fatalf("scanner must not be called")
	}
}

func TestScanErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid input", fmt.Errorf("failed: %w", ml.ErrInvalidInput), http.StatusBadRequest, "invalid_input"},
		{"deadline", &ml.UpstreamError{Err: context.DeadlineExceeded}, http.StatusGatewayTimeout, "upstream_timeout"},
		{"upstream", &ml.UpstreamError{StatusCode: 503, Body: "overloaded"}, http.StatusBadGateway, "upstream_unavailable"},
		{"envelope", &ml.EnvelopeError{Stage: ml.StageCandidatesEmpty, Field: "candidates"}, http.StatusBadGateway, "envelope_malformed"},
		{"content", &ml.ContentError{Err: errors.New("unexpected end of JSON input")}, http.StatusBadGateway, "content_malformed"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&fakeScanner{err: fmt.Errorf("failed to analyze product: %w", tt.err)})

			body, contentType := multipartBody(t, jpegBytes, "image/jpeg", "")
			req := httptest.NewRequest(http.MethodPost, "/api/scan", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			resp := decodeError(t, rec)
			if resp.Error != tt.wantCode {
				t.Fatalf("code = %s, want %s", resp.Error, tt.wantCode)
			}
			if resp.RequestID != rec.Header().Get(requestIDHeader) {
				t.Fatalf("request id mismatch: %s vs %s", resp.RequestID, rec.Header().Get(requestIDHeader))
			}
		})
	}
}

func TestScanRequestTimeoutHeader(t *testing.T) {
	scanner := &fakeScanner{details: sampleDetails()}
	s := newTestServer(scanner)

	body, contentType := multipartBody(t, jpegBytes, "image/jpeg", "")
	req := httptest.NewRequest(http.MethodPost, "/api/scan", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(requestTimeoutHeader, "2")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if remaining := time.Until(scanner.deadline); remaining > 2*time.Second {
		t.Fatalf("deadline not taken from header, %s remaining", remaining)
	}
}

func TestWebSocketScan(t *testing.T) {
	scanner := &fakeScanner{details: sampleDetails()}
	ts := httptest.NewServer(newTestServer(scanner).Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	send := func(v any) map[string]any {
		t.Helper()
		if err := conn.WriteJSON(v); err != nil {
			t.Fatal(err)
		}
		var reply map[string]any
		if err := conn.ReadJSON(&reply); err != nil {
			t.Fatal(err)
		}
		return reply
	}

	reply := send(map[string]any{
		"type": "scan",
		"data": map[string]string{"image": base64.StdEncoding.EncodeToString(jpegBytes), "prompt": "bottle"},
	})
	if reply["type"] != "scan_result" {
		t.Fatalf("unexpected reply: %v", reply)
	}
	data, _ := reply["data"].(map[string]any)
	if data["productName"] != "Plastic Bottle" {
		t.Fatalf("unexpected data: %v", data)
	}

	reply = send(map[string]any{"type": "scan", "data": map[string]string{}})
	if reply["type"] != "error" {
		t.Fatalf("expected error for empty image, got %v", reply)
	}

	reply = send(map[string]any{"type": "ping"})
	if reply["type"] != "error" || reply["message"] != "Unknown message type" {
		t.Fatalf("unexpected reply: %v", reply)
	}

	scanner.mu.Lock()
	scanner.err = &ml.UpstreamError{StatusCode: 500}
	scanner.mu.Unlock()
	reply = send(map[string]any{
		"type": "scan",
		"data": map[string]string{"image": base64.StdEncoding.EncodeToString(jpegBytes)},
	})
	if reply["message"] != "Failed to analyze product: upstream_unavailable" {
		t.Fatalf("unexpected reply: %v", reply)
	}

	scanner.mu.Lock()
	defer scanner.mu.Unlock()
	if scanner.calls != 2 {
		t.Fatalf("expected 2 scans, got %d", scanner.calls)
	}
}
