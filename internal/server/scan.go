package server

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Aryan-Baglane/RecyclerAiChatBot/internal/ml"
	"github.com/Aryan-Baglane/RecyclerAiChatBot/internal/models"
)

const (
	requestIDHeader      = "X-Request-ID"
	requestTimeoutHeader = "X-Request-Timeout"
)

// scanJSONRequest is the JSON form of a scan upload
type scanJSONRequest struct {
	Base64ImageData string `json:"base64ImageData" binding:"required"`
	Prompt          string `json:"prompt"`
	MimeType        string `json:"mimeType"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"requestId"`
}

func (s *Server) handleScan(c *gin.Context) {
	requestID := uuid.New().String()
	c.Header(requestIDHeader, requestID)

	// base64 inflates the payload by a third
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadBytes*2)

	var req models.ScanRequest
	var err error
	switch c.ContentType() {
	case gin.MIMEMultipartPOSTForm:
		req, err = s.readMultipart(c)
	case gin.MIMEJSON:
		req, err = s.readJSON(c)
	default:
		writeError(c, http.StatusUnsupportedMediaType, "unsupported_media_type",
			"use multipart/form-data or application/json", requestID)
		return
	}
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		log.Printf("[%s] Rejected scan request: %v", requestID, err)
		writeError(c, status, "invalid_input", err.Error(), requestID)
		return
	}
	if len(req.ImageData) == 0 {
		writeError(c, http.StatusBadRequest, "invalid_input", "image data cannot be empty", requestID)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.timeoutFor(c))
	defer cancel()

	start := time.Now()
	details, err := s.scanner.Scan(ctx, req)
	if err != nil {
		status, code := classify(err)
		log.Printf("[%s] Scan failed after %s: %v", requestID, time.Since(start), err)
		writeError(c, status, code, err.Error(), requestID)
		return
	}

	log.Printf("[%s] Scanned %q (ecoScore %d) in %s", requestID, details.ProductName, details.EcoScore, time.Since(start))
	c.JSON(http.StatusOK, details)
}

func (s *Server) readMultipart(c *gin.Context) (models.ScanRequest, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		return models.ScanRequest{}, err
	}
	log.Printf("Received multipart file: %s (%d bytes)", fh.Filename, fh.Size)

	f, err := fh.Open()
	if err != nil {
		return models.ScanRequest{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return models.ScanRequest{}, err
	}
	return models.ScanRequest{
		ImageData: data,
		MimeType:  fh.Header.Get("Content-Type"),
		Prompt:    c.PostForm("prompt"),
	}, nil
}

func (s *Server) readJSON(c *gin.Context) (models.ScanRequest, error) {
	log.Printf("Received JSON request")
	var body scanJSONRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		return models.ScanRequest{}, err
	}
	data, hint, err := ml.DecodeBase64Image(body.Base64ImageData)
	if err != nil {
		return models.ScanRequest{}, errors.New("base64ImageData is not valid base64")
	}
	mimeType := body.MimeType
	if mimeType == "" {
		mimeType = hint
	}
	return models.ScanRequest{
		ImageData: data,
		MimeType:  mimeType,
		Prompt:    body.Prompt,
	}, nil
}

// timeoutFor honours a positive X-Request-Timeout (seconds) header
func (s *Server) timeoutFor(c *gin.Context) time.Duration {
	if ts := c.GetHeader(requestTimeoutHeader); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			return time.Duration(v) * time.Second
		}
	}
	return s.requestTimeout
}

// classify maps a scan failure onto an HTTP status and an error code
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ml.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "upstream_timeout"
	case errors.Is(err, ml.ErrUpstreamUnavailable):
		return http.StatusBadGateway, "upstream_unavailable"
	case errors.Is(err, ml.ErrEnvelopeMalformed):
		return http.StatusBadGateway, "envelope_malformed"
	case errors.Is(err, ml.ErrContentMalformed):
		return http.StatusBadGateway, "content_malformed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeError(c *gin.Context, status int, code, message, requestID string) {
	c.AbortWithStatusJSON(status, errorResponse{
		Error:     code,
		Message:   message,
		RequestID: requestID,
	})
}
