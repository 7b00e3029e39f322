package server

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Aryan-Baglane/RecyclerAiChatBot/internal/ml"
	"github.com/Aryan-Baglane/RecyclerAiChatBot/internal/models"
)

type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type wsScanData struct {
	Image    string `json:"image"`
	Prompt   string `json:"prompt"`
	MimeType string `json:"mimeType"`
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("WebSocket upgrade failed:", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(s.maxUploadBytes * 2)

	// Store client connection
	clientID := uuid.New().String()
	s.clients.Store(clientID, conn)
	defer s.clients.Delete(clientID)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Println("Error reading message:", err)
			}
			break
		}

		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Println("Error parsing message:", err)
			s.sendError(conn, "Invalid message format")
			continue
		}

		s.handleWebSocketMessage(c.Request.Context(), conn, msg)
	}
}

func (s *Server) handleWebSocketMessage(ctx context.Context, conn *websocket.Conn, msg wsMessage) {
	switch msg.Type {
	case "scan":
		s.handleWebSocketScan(ctx, conn, msg.Data)
	default:
		s.sendError(conn, "Unknown message type")
	}
}

func (s *Server) handleWebSocketScan(ctx context.Context, conn *websocket.Conn, raw json.RawMessage) {
	var data wsScanData
	if err := json.Unmarshal(raw, &data); err != nil || data.Image == "" {
		s.sendError(conn, "Invalid image data")
		return
	}

	imageData, hint, err := ml.DecodeBase64Image(data.Image)
	if err != nil || len(imageData) == 0 {
		log.Printf("Error decoding image: %v", err)
		s.sendError(conn, "Invalid image format")
		return
	}
	mimeType := data.MimeType
	if mimeType == "" {
		mimeType = hint
	}

	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	details, err := s.scanner.Scan(ctx, models.ScanRequest{
		ImageData: imageData,
		MimeType:  mimeType,
		Prompt:    data.Prompt,
	})
	if err != nil {
		log.Printf("Error processing image: %v", err)
		_, code := classify(err)
		s.sendError(conn, "Failed to analyze product: "+code)
		return
	}

	s.sendMessage(conn, "scan_result", details)
}

func (s *Server) sendMessage(conn *websocket.Conn, messageType string, data any) {
	msg := map[string]any{
		"type": messageType,
		"data": data,
	}

	if s.debug {
		log.Printf("Sending message to client - Type: %s", messageType)
	}
	if err := conn.WriteJSON(msg); err != nil {
		log.Println("Error sending message:", err)
	}
}

func (s *Server) sendError(conn *websocket.Conn, message string) {
	msg := map[string]any{
		"type":    "error",
		"message": message,
	}

	if err := conn.WriteJSON(msg); err != nil {
		log.Println("Error sending error message:", err)
	}
}

// closeClients tells open websocket clients the server is going away;
// http.Server.Shutdown does not track hijacked connections.
func (s *Server) closeClients() {
	s.clients.Range(func(key, value any) bool {
		if conn, ok := value.(*websocket.Conn); ok {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			_ = conn.Close()
		}
		return true
	})
}
